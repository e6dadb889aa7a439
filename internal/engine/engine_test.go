package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gookie-auctions/internal/biddingerrors"
	model "gookie-auctions/internal/models"
	"gookie-auctions/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Helper to create an active auction ending at endTime
func newAuction(id string, startingBid, highest string, bidder string, endTime time.Time) model.Auction {
	return model.Auction{
		AuctionID:         id,
		Title:             "Gookie " + id,
		StartingBid:       d(startingBid),
		CurrentHighestBid: d(highest),
		HighestBidder:     bidder,
		EndTime:           endTime,
		Status:            model.StatusActive,
		CreatedAt:         baseTime.Add(-time.Hour),
	}
}

func known(balance string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(balance), Valid: true}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, cfg.MinIncrement.Equal(d("0.05")))
	require.Equal(t, 5*time.Minute, cfg.AntiSnipeWindow)
	require.Equal(t, 5*time.Minute, cfg.ExtensionDuration)
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.MinIncrement = decimal.Zero
	require.Error(t, bad.Validate())

	bad = cfg
	bad.ExtensionDuration = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.AntiSnipeWindow = -time.Second
	require.Error(t, bad.Validate())

	bad = cfg
	bad.MinIncrement = d("0.0000000001")
	require.Error(t, bad.Validate())

	bad = cfg
	bad.MaxAmount = decimal.Zero
	require.Error(t, bad.Validate())

	bad = cfg
	bad.MaxAmount = d("1e12")
	require.Error(t, bad.Validate())
}

func TestEngine_CheckAmount(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())

	capped := DefaultConfig()
	capped.MaxAmount = d("500")
	small := NewEngine(nil, capped)

	tests := []struct {
		name    string
		engine  *Engine
		amount  string
		wantErr string
	}{
		{name: "whole_amount", engine: e, amount: "12"},
		{name: "nine_decimal_places", engine: e, amount: "1.000000001"},
		{name: "positive_exponent", engine: e, amount: "5e3"},
		{name: "exactly_max", engine: e, amount: "99999999999.999999999"},
		{name: "zero", engine: e, amount: "0", wantErr: "positive"},
		{name: "negative", engine: e, amount: "-1", wantErr: "positive"},
		{name: "ten_decimal_places", engine: e, amount: "1.0000000000000000001", wantErr: "decimal places"},
		{name: "tiny_exponent", engine: e, amount: "1e-20000000", wantErr: "decimal places"},
		{name: "just_over_max", engine: e, amount: "100000000000", wantErr: "exceeds maximum"},
		{name: "huge_exponent", engine: e, amount: "1e20000000", wantErr: "exceeds maximum"},
		{name: "configured_max", engine: small, amount: "500"},
		{name: "over_configured_max", engine: small, amount: "500.01", wantErr: "exceeds maximum"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			start := time.Now()
			err := tc.engine.CheckAmount(d(tc.amount))
			require.Less(t, time.Since(start), time.Second)

			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEngine_MinimumRequired(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())

	tests := []struct {
		name     string
		starting string
		highest  string
		want     string
	}{
		{name: "no_bids_uses_starting_bid", starting: "1.0", highest: "0", want: "1.0"},
		{name: "no_bids_small_starting_bid", starting: "0.01", highest: "0", want: "0.01"},
		{name: "existing_bid_adds_increment", starting: "1.0", highest: "2.0", want: "2.05"},
		{name: "existing_bid_below_starting", starting: "5", highest: "0.5", want: "0.55"},
		{name: "fractional_highest", starting: "1", highest: "3.33", want: "3.38"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := newAuction("a1", tc.starting, tc.highest, "", baseTime.Add(time.Hour))
			require.True(t, e.MinimumRequired(a).Equal(d(tc.want)), "got %s want %s", e.MinimumRequired(a), tc.want)
		})
	}
}

func TestEngine_EvaluateBid(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())
	now := baseTime
	open := newAuction("a1", "1.0", "0", "", now.Add(time.Hour))
	withBid := newAuction("a2", "1.0", "2.0", "wallet-a", now.Add(time.Hour))
	closed := newAuction("a3", "1.0", "2.0", "wallet-a", now.Add(time.Hour))
	closed.Status = model.StatusClosed

	tests := []struct {
		name        string
		auction     model.Auction
		amount      string
		balance     decimal.NullDecimal
		now         time.Time
		wantErr     error
		wantMinimum string
	}{
		{name: "first_bid_below_starting", auction: open, amount: "0.5", now: now, wantErr: biddingerrors.ErrBidTooLow, wantMinimum: "1.0"},
		{name: "first_bid_at_starting", auction: open, amount: "1.0", now: now},
		{name: "increment_missed_by_one_cent", auction: withBid, amount: "2.04", now: now, wantErr: biddingerrors.ErrBidTooLow, wantMinimum: "2.05"},
		{name: "increment_met_exactly", auction: withBid, amount: "2.05", now: now},
		{name: "equal_to_highest", auction: withBid, amount: "2.0", now: now, wantErr: biddingerrors.ErrBidTooLow, wantMinimum: "2.05"},
		{name: "closed_status", auction: closed, amount: "100", now: now, wantErr: biddingerrors.ErrAuctionEnded},
		{name: "now_equals_end_time", auction: open, amount: "100", now: open.EndTime, wantErr: biddingerrors.ErrAuctionEnded},
		{name: "now_after_end_time", auction: open, amount: "100", now: open.EndTime.Add(time.Second), wantErr: biddingerrors.ErrAuctionEnded},
		{name: "ended_takes_priority_over_too_low", auction: open, amount: "0.1", now: open.EndTime, wantErr: biddingerrors.ErrAuctionEnded},
		{name: "insufficient_funds", auction: withBid, amount: "3", balance: known("2.5"), now: now, wantErr: biddingerrors.ErrInsufficientFunds},
		{name: "too_low_takes_priority_over_funds", auction: withBid, amount: "2.01", balance: known("1"), now: now, wantErr: biddingerrors.ErrBidTooLow, wantMinimum: "2.05"},
		{name: "balance_exactly_enough", auction: withBid, amount: "3", balance: known("3"), now: now},
		{name: "unknown_balance_skips_check", auction: withBid, amount: "1000", now: now},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			intent, err := e.EvaluateBid(tc.auction, "wallet-b", d(tc.amount), tc.balance, tc.now)
			if tc.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.wantErr), "expected error: %v, got: %v", tc.wantErr, err)

				var tooLow *biddingerrors.BidTooLowError
				if tc.wantMinimum != "" {
					require.True(t, errors.As(err, &tooLow))
					require.True(t, tooLow.MinimumRequired.Equal(d(tc.wantMinimum)), "minimum %s", tooLow.MinimumRequired)
				}
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.auction.AuctionID, intent.AuctionID)
			require.Equal(t, "wallet-b", intent.Bidder)
			require.True(t, intent.Amount.Equal(d(tc.amount)))
		})
	}
}

func TestEngine_EvaluateBid_RejectsEverythingBelowMinimum(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())

	for _, highest := range []string{"0", "0.5", "1", "2.95", "10"} {
		a := newAuction("a1", "1", highest, "", baseTime.Add(time.Hour))
		minimum := e.MinimumRequired(a)

		for _, below := range []string{"0.01", "0.001"} {
			amount := minimum.Sub(d(below))
			_, err := e.EvaluateBid(a, "w", amount, decimal.NullDecimal{}, baseTime)
			require.ErrorIs(t, err, biddingerrors.ErrBidTooLow, "highest %s amount %s", highest, amount)
		}

		_, err := e.EvaluateBid(a, "w", minimum, decimal.NullDecimal{}, baseTime)
		require.NoError(t, err, "highest %s", highest)
	}
}

func TestEngine_CommitBid(t *testing.T) {
	end := baseTime

	tests := []struct {
		name         string
		endTime      time.Time
		commitAt     time.Time
		wantExtended bool
		wantEndTime  time.Time
	}{
		{name: "inside_window_extends", endTime: end, commitAt: end.Add(-3 * time.Minute), wantExtended: true, wantEndTime: end.Add(2 * time.Minute)},
		{name: "outside_window_unchanged", endTime: end, commitAt: end.Add(-10 * time.Minute), wantEndTime: end},
		{name: "exactly_window_unchanged", endTime: end, commitAt: end.Add(-5 * time.Minute), wantEndTime: end},
		{name: "last_second_extends", endTime: end, commitAt: end.Add(-time.Second), wantExtended: true, wantEndTime: end.Add(5*time.Minute - time.Second)},
		{name: "already_expired_not_extended", endTime: end, commitAt: end.Add(time.Second), wantEndTime: end},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := repository.NewMemoryRepo()
			e := NewEngine(repo, DefaultConfig())
			auction := newAuction("a1", "1.0", "0", "", tc.endTime)
			require.NoError(t, repo.CreateAuction(context.Background(), auction))

			intent := model.BidIntent{AuctionID: "a1", Bidder: "wallet-a", Amount: d("1.5")}
			result, err := e.CommitBid(context.Background(), auction, intent, tc.commitAt)
			require.NoError(t, err)

			require.Equal(t, tc.wantExtended, result.Extended)
			require.True(t, tc.wantEndTime.Equal(result.NewEndTime), "new end %s want %s", result.NewEndTime, tc.wantEndTime)
			require.NotEmpty(t, result.Bid.BidID)
			require.True(t, tc.commitAt.Equal(result.Bid.CreatedAt))

			stored, err := repo.Fetch(context.Background(), "a1")
			require.NoError(t, err)
			require.True(t, stored.CurrentHighestBid.Equal(d("1.5")))
			require.Equal(t, "wallet-a", stored.HighestBidder)
			require.True(t, tc.wantEndTime.Equal(stored.EndTime))

			bids, err := repo.ListBids(context.Background(), "a1", model.OrderByTime)
			require.NoError(t, err)
			require.Len(t, bids, 1)
			require.Equal(t, result.Bid, bids[0])
		})
	}
}

func TestEngine_CommitBid_RepeatedExtensions(t *testing.T) {
	repo := repository.NewMemoryRepo()
	e := NewEngine(repo, DefaultConfig())
	ctx := context.Background()

	auction := newAuction("a1", "1", "0", "", baseTime)
	require.NoError(t, repo.CreateAuction(ctx, auction))

	amount := d("1")
	commitAt := baseTime.Add(-time.Minute)
	for i := 0; i < 20; i++ {
		snapshot, err := repo.Fetch(ctx, "a1")
		require.NoError(t, err)

		result, err := e.CommitBid(ctx, snapshot, model.BidIntent{AuctionID: "a1", Bidder: fmt.Sprintf("w%d", i), Amount: amount}, commitAt)
		require.NoError(t, err)
		require.True(t, result.Extended, "extension %d", i)
		require.True(t, commitAt.Add(ExtensionDuration).Equal(result.NewEndTime))

		amount = amount.Add(MinIncrement)
		commitAt = result.NewEndTime.Add(-time.Minute)
	}
}

func TestEngine_CommitBid_ShortExtensionNeverShortens(t *testing.T) {
	repo := repository.NewMemoryRepo()
	cfg := DefaultConfig()
	cfg.AntiSnipeWindow = 10 * time.Minute
	cfg.ExtensionDuration = 2 * time.Minute
	e := NewEngine(repo, cfg)

	auction := newAuction("a1", "1", "0", "", baseTime)
	require.NoError(t, repo.CreateAuction(context.Background(), auction))

	result, err := e.CommitBid(context.Background(), auction, model.BidIntent{AuctionID: "a1", Bidder: "w", Amount: d("1")}, baseTime.Add(-8*time.Minute))
	require.NoError(t, err)
	require.False(t, result.Extended)
	require.True(t, baseTime.Equal(result.NewEndTime))
}

func TestEngine_CommitBid_ConcurrentTie(t *testing.T) {
	repo := repository.NewMemoryRepo()
	e := NewEngine(repo, DefaultConfig())
	ctx := context.Background()

	auction := newAuction("a1", "1", "2.0", "wallet-z", baseTime.Add(time.Hour))
	require.NoError(t, repo.CreateAuction(ctx, auction))

	intentA, err := e.EvaluateBid(auction, "wallet-a", d("3.0"), decimal.NullDecimal{}, baseTime)
	require.NoError(t, err)
	intentB, err := e.EvaluateBid(auction, "wallet-b", d("3.0"), decimal.NullDecimal{}, baseTime)
	require.NoError(t, err)

	_, err = e.CommitBid(ctx, auction, intentA, baseTime)
	require.NoError(t, err)

	_, err = e.CommitBid(ctx, auction, intentB, baseTime)
	require.ErrorIs(t, err, biddingerrors.ErrConflict)

	stored, err := repo.Fetch(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "wallet-a", stored.HighestBidder)
	require.True(t, stored.CurrentHighestBid.Equal(d("3.0")))

	bids, err := repo.ListBids(ctx, "a1", model.OrderByTime)
	require.NoError(t, err)
	require.Len(t, bids, 1)
}

func TestEngine_CommitBid_StoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := repository.NewMockAuctionStore(ctrl)
	e := NewEngine(mockStore, DefaultConfig())
	auction := newAuction("a1", "1", "2", "w", baseTime.Add(time.Minute))
	intent := model.BidIntent{AuctionID: "a1", Bidder: "wallet-b", Amount: d("2.5")}

	mockStore.EXPECT().
		AppendBidAndUpdateAuction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, update model.BidUpdate) error {
			require.True(t, update.ExpectedPriorHighest.Equal(d("2")))
			require.True(t, baseTime.Add(5*time.Minute).Equal(update.EndTime))
			require.Equal(t, "wallet-b", update.Bid.Bidder)
			return fmt.Errorf("write: %w", biddingerrors.ErrStore)
		})

	_, err := e.CommitBid(context.Background(), auction, intent, baseTime)
	require.ErrorIs(t, err, biddingerrors.ErrStore)

	_, err = e.CommitBid(context.Background(), auction, model.BidIntent{AuctionID: "other", Bidder: "w", Amount: d("3")}, baseTime)
	require.ErrorIs(t, err, biddingerrors.ErrInvalidBid)
}

func TestEngine_ResolveExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("closes_overdue_auction_without_winner", func(t *testing.T) {
		repo := repository.NewMemoryRepo()
		e := NewEngine(repo, DefaultConfig())
		auction := newAuction("a1", "1", "0", "", baseTime)
		require.NoError(t, repo.CreateAuction(ctx, auction))

		resolved, closed, err := e.ResolveExpiry(ctx, auction, baseTime.Add(time.Second))
		require.NoError(t, err)
		require.True(t, closed)
		require.Equal(t, model.StatusClosed, resolved.Status)
		require.Empty(t, resolved.HighestBidder)
		require.False(t, resolved.HasBids())

		stored, err := repo.Fetch(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, model.StatusClosed, stored.Status)

		again, closed, err := e.ResolveExpiry(ctx, resolved, baseTime.Add(time.Hour))
		require.NoError(t, err)
		require.False(t, closed)
		require.Equal(t, resolved, again)
	})

	t.Run("closes_at_exact_end_time_and_keeps_winner", func(t *testing.T) {
		repo := repository.NewMemoryRepo()
		e := NewEngine(repo, DefaultConfig())
		auction := newAuction("a1", "1", "4.2", "wallet-a", baseTime)
		require.NoError(t, repo.CreateAuction(ctx, auction))

		resolved, closed, err := e.ResolveExpiry(ctx, auction, baseTime)
		require.NoError(t, err)
		require.True(t, closed)
		require.Equal(t, "wallet-a", resolved.HighestBidder)
		require.True(t, resolved.CurrentHighestBid.Equal(d("4.2")))
	})

	t.Run("future_end_time_untouched", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockStore := repository.NewMockAuctionStore(ctrl)
		e := NewEngine(mockStore, DefaultConfig())

		auction := newAuction("a1", "1", "0", "", baseTime.Add(time.Minute))
		for i := 0; i < 2; i++ {
			resolved, closed, err := e.ResolveExpiry(ctx, auction, baseTime)
			require.NoError(t, err)
			require.False(t, closed)
			require.Equal(t, model.StatusActive, resolved.Status)
		}
	})

	t.Run("store_failure_leaves_snapshot_active", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		mockStore := repository.NewMockAuctionStore(ctrl)
		e := NewEngine(mockStore, DefaultConfig())

		mockStore.EXPECT().UpdateStatus(gomock.Any(), "a1", model.StatusClosed).Return(biddingerrors.ErrStore)

		auction := newAuction("a1", "1", "0", "", baseTime)
		resolved, closed, err := e.ResolveExpiry(ctx, auction, baseTime.Add(time.Minute))
		require.ErrorIs(t, err, biddingerrors.ErrStore)
		require.False(t, closed)
		require.Equal(t, model.StatusActive, resolved.Status)
	})
}

func TestEngine_InSnipeWindow(t *testing.T) {
	e := NewEngine(nil, DefaultConfig())
	a := newAuction("a1", "1", "0", "", baseTime)

	require.False(t, e.InSnipeWindow(a, baseTime.Add(-6*time.Minute)))
	require.False(t, e.InSnipeWindow(a, baseTime.Add(-5*time.Minute)))
	require.True(t, e.InSnipeWindow(a, baseTime.Add(-4*time.Minute)))
	require.False(t, e.InSnipeWindow(a, baseTime))
	require.False(t, e.InSnipeWindow(a, baseTime.Add(time.Minute)))
}
