package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/adapter/htmldom"
	"github.com/user/listing-crawler/internal/engine"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	x := engine.NewExtractor(testConfig(), zap.NewNop(), fixedClock)

	extract := func(t *testing.T, html string) (*entity.ListingRecord, error) {
		t.Helper()
		el, err := htmldom.Fragment(html)
		require.NoError(t, err)
		return x.Extract(ctx, el, 7, 2)
	}

	t.Run("parses a complete listing", func(t *testing.T) {
		t.Parallel()
		rec, err := extract(t, validListing(1).html())
		require.NoError(t, err)

		assert.Equal(t, int64(7), rec.SequenceID)
		assert.Equal(t, 2, rec.PageNumber)
		assert.Equal(t, "Lote 1", rec.Title)
		assert.Equal(t, entity.AddressUnavailable, rec.Address)
		assert.InDelta(t, 1234.56, rec.PriceBRL, 1e-9)
		assert.InDelta(t, 250.0, rec.AreaSqm, 1e-9)
		assert.InDelta(t, 4.94, rec.PricePerSqm, 1e-9)
		assert.Equal(t, "https://www.vivareal.com.br/imovel/lote-1", rec.ListingURL)
		assert.Equal(t, "2025-03-14", rec.CollectedOn.String())
	})

	t.Run("falls back to data-cy selectors", func(t *testing.T) {
		t.Parallel()
		rec, err := extract(t, `<article>
<p data-cy="rp-cardProperty-price-txt">R$ 90.000</p>
<p data-cy="rp-cardProperty-propertyArea-txt">300 m²</p>
<h2 data-cy="rp-cardProperty-location-txt">Lote no Centro</h2>
<p data-cy="rp-cardProperty-street-txt">Rua A, 10</p>
<a href="https://www.vivareal.com.br/imovel/abc/">ver</a>
</article>`)
		require.NoError(t, err)

		assert.InDelta(t, 90000.0, rec.PriceBRL, 1e-9)
		assert.InDelta(t, 300.0, rec.AreaSqm, 1e-9)
		assert.InDelta(t, 300.0, rec.PricePerSqm, 1e-9)
		assert.Equal(t, "Lote no Centro", rec.Title)
		assert.Equal(t, "Rua A, 10", rec.Address)
		assert.Equal(t, "https://www.vivareal.com.br/imovel/abc/", rec.ListingURL)
	})

	t.Run("uses sentinels and an empty link for optional fields", func(t *testing.T) {
		t.Parallel()
		rec, err := extract(t, listing{price: "R$ 100.000", area: "500 m²"}.html())
		require.NoError(t, err)

		assert.Equal(t, entity.TitleUnavailable, rec.Title)
		assert.Equal(t, entity.AddressUnavailable, rec.Address)
		assert.Empty(t, rec.ListingURL)
	})

	t.Run("skips a listing without price", func(t *testing.T) {
		t.Parallel()
		rec, err := extract(t, invalidListing().html())
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, repository.ErrExtractionSkip)
	})

	t.Run("skips a listing without area", func(t *testing.T) {
		t.Parallel()
		rec, err := extract(t, listing{price: "R$ 100.000", title: "x"}.html())
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, repository.ErrExtractionSkip)
	})

	t.Run("skips a listing whose price does not parse", func(t *testing.T) {
		t.Parallel()
		rec, err := extract(t, listing{price: "Sob consulta", area: "250 m²"}.html())
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, repository.ErrExtractionSkip)
	})
}
