package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
	"github.com/user/listing-crawler/pkg/utils"
)

// Extractor turns one listing card into a ListingRecord.
type Extractor struct {
	waitTimeout time.Duration
	baseURL     *url.URL
	logger      *zap.Logger
	now         func() time.Time
}

// NewExtractor builds an extractor; relative links are resolved against cfg.TargetURL.
func NewExtractor(cfg entity.CrawlConfig, logger *zap.Logger, now func() time.Time) *Extractor {
	base, _ := url.Parse(cfg.TargetURL)
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		waitTimeout: cfg.WaitTimeout,
		baseURL:     base,
		logger:      logger,
		now:         now,
	}
}

// Extract reads price and area (required) and title, address and link (optional)
// from el. A listing without a usable price or area is dropped with an error
// wrapping repository.ErrExtractionSkip.
func (x *Extractor) Extract(ctx context.Context, el repository.Element, sequenceID int64, page int) (*entity.ListingRecord, error) {
	priceText, err := x.text(ctx, el, PriceChain)
	if err != nil {
		return nil, skip(sequenceID, "price", err)
	}
	areaText, err := x.text(ctx, el, AreaChain)
	if err != nil {
		return nil, skip(sequenceID, "area", err)
	}

	price := ParsePrice(priceText)
	area := ParseArea(areaText)
	if price == 0 || area == 0 {
		return nil, fmt.Errorf("%w: listing %d has incomplete data (price=%q area=%q)",
			repository.ErrExtractionSkip, sequenceID, priceText, areaText)
	}

	title, err := x.text(ctx, el, TitleChain)
	if err != nil || title == "" {
		title = entity.TitleUnavailable
	}
	address, err := x.text(ctx, el, AddressChain)
	if err != nil || address == "" {
		address = entity.AddressUnavailable
	}

	return &entity.ListingRecord{
		SequenceID:  sequenceID,
		Title:       title,
		Address:     address,
		AreaSqm:     area,
		PriceBRL:    price,
		PricePerSqm: PricePerSqm(price, area),
		ListingURL:  x.link(ctx, el),
		PageNumber:  page,
		CollectedOn: entity.DateOf(x.now()),
	}, nil
}

func (x *Extractor) text(ctx context.Context, el repository.Element, c SelectorChain) (string, error) {
	found, err := firstMatch(ctx, c, x.waitTimeout, el.Find)
	if err != nil {
		return "", err
	}
	text, err := bounded(ctx, x.waitTimeout, found.Text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// link returns the absolute listing URL, or "" when the card has none.
func (x *Extractor) link(ctx context.Context, el repository.Element) string {
	found, err := firstMatch(ctx, LinkChain, x.waitTimeout, el.Find)
	if err != nil {
		return ""
	}
	opCtx, cancel := context.WithTimeout(ctx, x.waitTimeout)
	defer cancel()
	href, ok, err := found.Attribute(opCtx, "href")
	if err != nil || !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	href = strings.TrimSpace(href)
	if x.baseURL == nil {
		return href
	}
	abs, err := utils.ToAbsoluteURL(x.baseURL, href)
	if err != nil {
		x.logger.Debug("keeping unresolved link", zap.String("href", href), zap.Error(err))
		return href
	}
	return abs
}

func skip(sequenceID int64, field string, err error) error {
	return fmt.Errorf("%w: listing %d has no %s: %w", repository.ErrExtractionSkip, sequenceID, field, err)
}
