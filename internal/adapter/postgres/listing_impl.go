package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/listing-crawler/internal/entity"
)

// ListingRepoImpl stores listings in the terrenos table.
type ListingRepoImpl struct {
	db *pgxpool.Pool
}

func NewListingRepo(db *pgxpool.Pool) *ListingRepoImpl {
	return &ListingRepoImpl{db: db}
}

// NextAvailableID returns one past the highest stored id, or 1 for an empty table.
func (r *ListingRepoImpl) NextAvailableID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM terrenos`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next listing id: %w", err)
	}
	return next, nil
}

// AppendRecords inserts every record in one transaction.
func (r *ListingRepoImpl) AppendRecords(ctx context.Context, records []entity.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO terrenos (id, titulo, endereco, area_m2, preco_real, preco_m2, link, pagina, data_coleta, localidade, estado)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			rec.SequenceID,
			rec.Title,
			rec.Address,
			rec.AreaSqm,
			rec.PriceBRL,
			rec.PricePerSqm,
			rec.ListingURL,
			rec.PageNumber,
			rec.CollectedOn.Time(),
			rec.Locality,
			rec.Region,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting %d listings: %w", len(records), err)
	}
	return tx.Commit(ctx)
}
