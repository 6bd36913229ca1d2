package entity

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// DefaultTargetURL is the VivaReal search for residential lots in Eusébio/CE.
const DefaultTargetURL = "https://www.vivareal.com.br/venda/ceara/eusebio/lote-terreno_residencial/#onde=,Cear%C3%A1,Eus%C3%A9bio,,,,,city,BR%3ECeara%3ENULL%3EEusebio,-14.791623,-39.283324,&itl_id=1000183&itl_name=vivareal_-_botao-cta_buscar_to_vivareal_resultado-pesquisa"

// CrawlConfig is the immutable input of a crawl run.
type CrawlConfig struct {
	WaitTimeout        time.Duration
	PageLoadTimeout    time.Duration
	ScrollPause        time.Duration
	SettleDuration     time.Duration
	TargetURL          string
	MaxRetries         int
	ReadyPollAttempts  int
	ListingLookupDelay time.Duration
	Headless           bool
	FallbackLocality   string
	FallbackRegion     string
}

// DefaultCrawlConfig returns the configuration used when the caller supplies nothing.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		WaitTimeout:        8 * time.Second,
		PageLoadTimeout:    60 * time.Second,
		ScrollPause:        2 * time.Second,
		SettleDuration:     4 * time.Second,
		TargetURL:          DefaultTargetURL,
		MaxRetries:         3,
		ReadyPollAttempts:  30,
		ListingLookupDelay: 5 * time.Second,
		Headless:           true,
		FallbackLocality:   "Eusébio",
		FallbackRegion:     "CE",
	}
}

// Validate reports the first invalid field of the configuration.
func (c CrawlConfig) Validate() error {
	if c.WaitTimeout <= 0 || c.PageLoadTimeout <= 0 {
		return errors.New("wait and page load timeouts must be positive")
	}
	if c.ScrollPause < 0 || c.SettleDuration < 0 || c.ListingLookupDelay < 0 {
		return errors.New("pause durations must not be negative")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.ReadyPollAttempts < 1 {
		return fmt.Errorf("ready poll attempts must be at least 1, got %d", c.ReadyPollAttempts)
	}
	u, err := url.ParseRequestURI(c.TargetURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid target URL %q", c.TargetURL)
	}
	return nil
}
