package repository

import (
	"context"

	"github.com/user/listing-crawler/internal/entity"
)

// ListingRepository is the append-only store of scraped listings.
type ListingRepository interface {
	// NextAvailableID returns the first primary key not yet used.
	NextAvailableID(ctx context.Context) (int64, error)
	// AppendRecords inserts records as-is; IDs must already be offset.
	AppendRecords(ctx context.Context, records []entity.ListingRecord) error
}
