package engine_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/listing-crawler/internal/adapter/htmldom"
	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/mock"
	"github.com/user/listing-crawler/internal/repository"
)

var collectedAt = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func fixedClock() time.Time { return collectedAt }

type listing struct {
	price, area, title, href string
}

func validListing(n int) listing {
	return listing{
		price: "R$ 1.234,56",
		area:  "250,00 m²",
		title: fmt.Sprintf("Lote %d", n),
		href:  fmt.Sprintf("/imovel/lote-%d", n),
	}
}

// invalidListing has no price at all.
func invalidListing() listing {
	return listing{area: "300 m²", title: "Lote sem preço"}
}

func (l listing) html() string {
	var b strings.Builder
	b.WriteString("<article>")
	if l.price != "" {
		fmt.Fprintf(&b, `<div class="property-card__price">%s</div>`, l.price)
	}
	if l.area != "" {
		fmt.Fprintf(&b, `<span class="property-card__detail-area">%s</span>`, l.area)
	}
	if l.title != "" {
		fmt.Fprintf(&b, `<span class="property-card__title">%s</span>`, l.title)
	}
	if l.href != "" {
		fmt.Fprintf(&b, `<a class="property-card__content-link" href="%s">ver</a>`, l.href)
	}
	b.WriteString("</article>")
	return b.String()
}

type page struct {
	location string
	listings []listing
	noNext   bool
}

func (p page) html() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	if p.location != "" {
		fmt.Fprintf(&b, `<div class="search-input-location">%s</div>`, p.location)
	}
	b.WriteString(`<div class="results-list">`)
	for _, l := range p.listings {
		b.WriteString(l.html())
	}
	b.WriteString("</div>")
	if !p.noNext {
		b.WriteString(`<button title="Próxima página">›</button>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// replaySession builds a counting session over the given pages.
func replaySession(t *testing.T, pages ...page) *mock.Session {
	t.Helper()
	htmls := make([]string, len(pages))
	for i, p := range pages {
		htmls[i] = p.html()
	}
	parsed, err := htmldom.ParsePages(htmls...)
	require.NoError(t, err)
	return &mock.Session{Base: htmldom.NewReplaySession(parsed)}
}

func providerFor(s repository.Session) *mock.SessionProvider {
	return &mock.SessionProvider{
		ProvisionFn: func(context.Context, entity.CrawlConfig) (repository.Session, error) {
			return s, nil
		},
	}
}

func testConfig() entity.CrawlConfig {
	cfg := entity.DefaultCrawlConfig()
	cfg.WaitTimeout = time.Second
	return cfg
}

func sequenceIDs(rs *entity.ResultSet) []int64 {
	ids := make([]int64, 0, rs.Len())
	for _, r := range rs.Records {
		ids = append(ids, r.SequenceID)
	}
	return ids
}
