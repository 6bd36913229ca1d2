package chromedp_crawler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

const (
	acceptLanguage = "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7"
	locale         = "pt-BR"
	windowWidth    = 1920
	windowHeight   = 1080
)

type userAgent struct {
	value    string
	platform string
}

var userAgents = []userAgent{
	{`Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`, "Windows NT 10.0; Win64; x64"},
	{`Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`, "MacIntel"},
	{`Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Edge/120.0.0.0 Safari/537.36`, "Windows NT 10.0; Win64; x64"},
	{`Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36`, "Linux x86_64"},
}

// Provisioner starts one headless Chrome per crawl run, disguised as a regular
// pt-BR desktop browser.
type Provisioner struct {
	logger *zap.Logger
	// ExecPath overrides the Chrome binary; empty means auto-detect.
	ExecPath string
}

func NewProvisioner(logger *zap.Logger) *Provisioner {
	return &Provisioner{logger: logger}
}

// Provision launches Chrome and applies the fingerprint overrides. A browser
// that started but could not be configured is shut down before returning.
func (p *Provisioner) Provision(ctx context.Context, cfg entity.CrawlConfig) (repository.Session, error) {
	ua := userAgents[rand.Intn(len(userAgents))]

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("lang", locale),
		chromedp.Flag("accept-lang", acceptLanguage),
		chromedp.WindowSize(windowWidth, windowHeight),
		chromedp.UserAgent(ua.value),
	)
	if p.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(p.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	sugar := p.logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	s := newSession(browserCtx, func() { browserCancel(); allocCancel() }, p.logger)
	if err := p.start(ctx, browserCtx, cfg.PageLoadTimeout, disguise(ua)); err != nil {
		if closeErr := s.Close(); closeErr != nil {
			p.logger.Warn("closing half-started browser", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("%w: %w", repository.ErrBrowserInit, err)
	}

	p.logger.Info("browser session ready", zap.String("user_agent", ua.value), zap.Bool("headless", cfg.Headless))
	return s, nil
}

// start runs the first actions on browserCtx itself: that call launches Chrome
// and the process lives as long as the context it is given. The wait is
// bounded by ctx and limit; on expiry the caller closes the session, which
// cancels browserCtx and ends the goroutine.
func (p *Provisioner) start(ctx, browserCtx context.Context, limit time.Duration, actions []chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(browserCtx, actions...)
	}()

	if limit <= 0 {
		limit = entity.DefaultCrawlConfig().PageLoadTimeout
	}
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("browser did not start within %s", limit)
	}
}
