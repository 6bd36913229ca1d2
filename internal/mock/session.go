// Package mock provides function-field doubles for the repository interfaces.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

var _ repository.SessionProvider = (*SessionProvider)(nil)

type SessionProvider struct {
	ProvisionFn func(ctx context.Context, cfg entity.CrawlConfig) (repository.Session, error)
}

func (m *SessionProvider) Provision(ctx context.Context, cfg entity.CrawlConfig) (repository.Session, error) {
	return m.ProvisionFn(ctx, cfg)
}

var _ repository.Session = (*Session)(nil)

// Session delegates to Base unless the matching Fn is set, and counts Close calls.
type Session struct {
	Base repository.Session

	NavigateFn      func(ctx context.Context, url string) error
	ReadyStateFn    func(ctx context.Context) (string, error)
	WaitForFn       func(ctx context.Context, sel repository.Selector) (repository.Element, error)
	WaitClickableFn func(ctx context.Context, sel repository.Selector) (repository.Element, error)
	QueryAllFn      func(ctx context.Context, sel repository.Selector) ([]repository.Element, error)
	ClickFn         func(ctx context.Context, el repository.Element) error
	CloseFn         func() error

	closed atomic.Int32
}

// Closed returns how many times Close was called.
func (m *Session) Closed() int { return int(m.closed.Load()) }

func (m *Session) Navigate(ctx context.Context, url string) error {
	if m.NavigateFn != nil {
		return m.NavigateFn(ctx, url)
	}
	return m.Base.Navigate(ctx, url)
}

func (m *Session) ReadyState(ctx context.Context) (string, error) {
	if m.ReadyStateFn != nil {
		return m.ReadyStateFn(ctx)
	}
	return m.Base.ReadyState(ctx)
}

func (m *Session) CurrentURL(ctx context.Context) (string, error) {
	return m.Base.CurrentURL(ctx)
}

func (m *Session) WaitFor(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	if m.WaitForFn != nil {
		return m.WaitForFn(ctx, sel)
	}
	return m.Base.WaitFor(ctx, sel)
}

func (m *Session) WaitClickable(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	if m.WaitClickableFn != nil {
		return m.WaitClickableFn(ctx, sel)
	}
	return m.Base.WaitClickable(ctx, sel)
}

func (m *Session) QueryAll(ctx context.Context, sel repository.Selector) ([]repository.Element, error) {
	if m.QueryAllFn != nil {
		return m.QueryAllFn(ctx, sel)
	}
	return m.Base.QueryAll(ctx, sel)
}

func (m *Session) ScrollHeight(ctx context.Context) (float64, error) {
	return m.Base.ScrollHeight(ctx)
}

func (m *Session) ScrollTo(ctx context.Context, y float64) error {
	return m.Base.ScrollTo(ctx, y)
}

func (m *Session) Click(ctx context.Context, el repository.Element) error {
	if m.ClickFn != nil {
		return m.ClickFn(ctx, el)
	}
	return m.Base.Click(ctx, el)
}

func (m *Session) Close() error {
	m.closed.Add(1)
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return m.Base.Close()
}
