package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new time-ordered (v7) identifier string, falling back
// to a random v4 if the clock source fails
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
