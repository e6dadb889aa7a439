package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gookie-auctions/internal/biddingerrors"
	model "gookie-auctions/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for a duplicate key
const uniqueViolation = "23505"

const auctionColumns = `id, title, description, image_url, starting_bid, current_highest_bid,
	highest_bidder, end_time, status, created_at`

// PostgresRepo implements AuctionStore on PostgreSQL
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo connects to databaseURL and verifies the connection
func NewPostgresRepo(ctx context.Context, databaseURL string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// EnsureSchema creates the auctions and auction_bids tables if missing
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// CreateAuction inserts a new auction row
func (r *PostgresRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		auction.AuctionID,
		auction.Title,
		auction.Description,
		auction.ImageURL,
		auction.StartingBid,
		auction.CurrentHighestBid,
		auction.HighestBidder,
		auction.EndTime,
		string(auction.Status),
		auction.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("create auction %s: %w - already exists", auction.AuctionID, biddingerrors.ErrInvalidAuction)
	}
	if err != nil {
		return fmt.Errorf("failed to create auction %s: %w: %v", auction.AuctionID, biddingerrors.ErrStore, err)
	}
	return nil
}

// Fetch reads one auction row
func (r *PostgresRepo) Fetch(ctx context.Context, auctionID string) (model.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	auction, err := scanAuction(r.pool.QueryRow(ctx, query, auctionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("fetch auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("failed to fetch auction %s: %w: %v", auctionID, biddingerrors.ErrStore, err)
	}
	return auction, nil
}

// ListAuctions returns auctions newest first, narrowed by filter
func (r *PostgresRepo) ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, id
	`
	rows, err := r.pool.Query(ctx, query, string(filter.Status), strings.TrimSpace(filter.Search))
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w: %v", biddingerrors.ErrStore, err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w: %v", biddingerrors.ErrStore, err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w: %v", biddingerrors.ErrStore, err)
	}
	return auctions, nil
}

// AppendBidAndUpdateAuction runs the conditional auction update and the bid
// insert in one transaction. Zero updated rows means a concurrent commit won.
func (r *PostgresRepo) AppendBidAndUpdateAuction(ctx context.Context, update model.BidUpdate) error {
	bid := update.Bid

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %v", biddingerrors.ErrStore, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE auctions
		SET current_highest_bid = $2, highest_bidder = $3, end_time = $4
		WHERE id = $1 AND status = 'active' AND current_highest_bid = $5
	`, bid.AuctionID, bid.Amount, bid.Bidder, update.EndTime, update.ExpectedPriorHighest)
	if err != nil {
		return fmt.Errorf("failed to update auction %s: %w: %v", bid.AuctionID, biddingerrors.ErrStore, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, bid.AuctionID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check auction %s: %w: %v", bid.AuctionID, biddingerrors.ErrStore, err)
		}
		if !exists {
			return fmt.Errorf("append bid for auction %s: %w", bid.AuctionID, biddingerrors.ErrAuctionNotFound)
		}
		return fmt.Errorf("append bid for auction %s: %w - expected highest %s", bid.AuctionID, biddingerrors.ErrConflict, update.ExpectedPriorHighest)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO auction_bids (id, auction_id, bidder, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, bid.BidID, bid.AuctionID, bid.Bidder, bid.Amount, bid.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bid %s: %w: %v", bid.BidID, biddingerrors.ErrStore, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bid %s: %w: %v", bid.BidID, biddingerrors.ErrStore, err)
	}
	return nil
}

// ListBids returns an auction's bids in the requested order
func (r *PostgresRepo) ListBids(ctx context.Context, auctionID string, order model.BidOrder) ([]model.Bid, error) {
	orderBy := "created_at ASC, id"
	if order == model.OrderByAmount {
		orderBy = "amount DESC, created_at ASC"
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, auctionID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check auction %s: %w: %v", auctionID, biddingerrors.ErrStore, err)
	}
	if !exists {
		return nil, fmt.Errorf("list bids for auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, auction_id, bidder, amount, created_at
		FROM auction_bids
		WHERE auction_id = $1
		ORDER BY `+orderBy, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids for auction %s: %w: %v", auctionID, biddingerrors.ErrStore, err)
	}
	defer rows.Close()

	bids := []model.Bid{}
	for rows.Next() {
		var b model.Bid
		if err := rows.Scan(&b.BidID, &b.AuctionID, &b.Bidder, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w: %v", biddingerrors.ErrStore, err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list bids for auction %s: %w: %v", auctionID, biddingerrors.ErrStore, err)
	}
	return bids, nil
}

// UpdateStatus closes an auction. Closed rows are never reopened.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, auctionID string, status model.AuctionStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auctions SET status = $2
		WHERE id = $1 AND status <> 'closed'
	`, auctionID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update status for auction %s: %w: %v", auctionID, biddingerrors.ErrStore, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Fetch(ctx, auctionID); err != nil {
			return err
		}
	}
	return nil
}

// GetAuctionsByBidder returns all auctions a bidder has bid on
func (r *PostgresRepo) GetAuctionsByBidder(ctx context.Context, bidder string) ([]model.Auction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+auctionColumns+`
		FROM auctions
		WHERE id IN (SELECT DISTINCT auction_id FROM auction_bids WHERE bidder = $1)
		ORDER BY created_at DESC, id
	`, bidder)
	if err != nil {
		return nil, fmt.Errorf("failed to get auctions for bidder %s: %w: %v", bidder, biddingerrors.ErrStore, err)
	}
	defer rows.Close()

	var auctions []model.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w: %v", biddingerrors.ErrStore, err)
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get auctions for bidder %s: %w: %v", bidder, biddingerrors.ErrStore, err)
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("get auctions for bidder %s: %w", bidder, biddingerrors.ErrUserNoBids)
	}
	return auctions, nil
}

func scanAuction(row pgx.Row) (model.Auction, error) {
	var a model.Auction
	var status string
	err := row.Scan(
		&a.AuctionID,
		&a.Title,
		&a.Description,
		&a.ImageURL,
		&a.StartingBid,
		&a.CurrentHighestBid,
		&a.HighestBidder,
		&a.EndTime,
		&status,
		&a.CreatedAt,
	)
	if err != nil {
		return model.Auction{}, err
	}
	a.Status = model.AuctionStatus(status)
	if !a.Status.Valid() {
		return model.Auction{}, fmt.Errorf("auction %s has unknown status %q", a.AuctionID, status)
	}
	return a, nil
}
