package ports

import (
	"context"

	"go.trai.ch/claimgraph/internal/core/domain"
)

// Fetcher retrieves the raw payload of one level for a key.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type Fetcher interface {
	// Fetch returns the payload for level and key. Failures wrap domain.ErrFetchFailed.
	Fetch(ctx context.Context, level domain.Level, key domain.Key) (domain.RawPayload, error)
}
