package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/user/listing-crawler/internal/repository"
)

// SelectorChain is an ordered list of ways to find the same thing on a page.
// The class names on the target site are generated by its front-end build and
// drift between deploys, so lookups try each selector in turn until one matches.
type SelectorChain struct {
	Name      string
	Selectors []repository.Selector
}

func chain(name string, selectors ...repository.Selector) SelectorChain {
	return SelectorChain{Name: name, Selectors: selectors}
}

const nextPageLabel = "Próxima página"

var (
	ResultsContainerChain = chain("results container",
		repository.ByCSS(`div.results-list`),
	)
	ListingCardsChain = chain("listing cards",
		repository.ByCSS(`div.results-list article`),
	)
	LocationChain = chain("location",
		repository.ByCSS(`.search-input-location`),
	)

	PriceChain = chain("price",
		repository.ByCSS(`div[class*="price"]`),
		repository.ByCSS(`[data-cy="rp-cardProperty-price-txt"]`),
	)
	AreaChain = chain("area",
		repository.ByCSS(`span[class*="detail-area"]`),
		repository.ByCSS(`[data-cy="rp-cardProperty-propertyArea-txt"]`),
	)
	TitleChain = chain("title",
		repository.ByCSS(`span.property-card__title`),
		repository.ByCSS(`[data-cy="rp-cardProperty-location-txt"]`),
	)
	AddressChain = chain("address",
		repository.ByCSS(`span[class*="address"]`),
		repository.ByCSS(`[data-cy="rp-cardProperty-street-txt"]`),
	)
	LinkChain = chain("link",
		repository.ByCSS(`a[class*="property-card__content-link"]`),
		repository.ByCSS(`a[href*="/imovel/"]`),
	)

	NextPageChain = chain("next page",
		repository.ByXPath(fmt.Sprintf(`//button[contains(., '%s')]`, nextPageLabel)),
		repository.ByXPath(fmt.Sprintf(`//a[contains(., '%s')]`, nextPageLabel)),
		repository.ByXPath(fmt.Sprintf(`//button[@title='%s']`, nextPageLabel)),
		repository.ByXPath(fmt.Sprintf(`//a[@title='%s']`, nextPageLabel)),
	)
)

// firstMatch runs lookup for every selector of c, each bounded by timeout, and
// returns the first success. It gives up early only when ctx itself is done.
func firstMatch[T any](ctx context.Context, c SelectorChain, timeout time.Duration,
	lookup func(context.Context, repository.Selector) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for _, sel := range c.Selectors {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		found, err := lookup(attemptCtx, sel)
		cancel()
		if err == nil {
			return found, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = err
	}
	if lastErr == nil {
		return zero, fmt.Errorf("%s: %w", c.Name, repository.ErrSelectorNotFound)
	}
	return zero, fmt.Errorf("%s: %w (last error: %v)", c.Name, repository.ErrSelectorNotFound, lastErr)
}
