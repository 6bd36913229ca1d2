package repository

import (
	"context"

	"github.com/user/listing-crawler/internal/entity"
)

// SelectorKind tells a session how to evaluate a selector expression.
type SelectorKind int

const (
	CSS SelectorKind = iota
	XPath
)

// Selector is one way of locating an element.
type Selector struct {
	Kind SelectorKind
	Expr string
}

func (s Selector) String() string {
	if s.Kind == XPath {
		return "xpath:" + s.Expr
	}
	return "css:" + s.Expr
}

// ByCSS returns a CSS selector.
func ByCSS(expr string) Selector { return Selector{Kind: CSS, Expr: expr} }

// ByXPath returns an XPath selector.
func ByXPath(expr string) Selector { return Selector{Kind: XPath, Expr: expr} }

// SessionProvider provisions browser sessions.
type SessionProvider interface {
	// Provision starts a browser configured for cfg. Failures wrap ErrBrowserInit.
	Provision(ctx context.Context, cfg entity.CrawlConfig) (Session, error)
}

// Session is an exclusively owned browser tab. Every blocking method is bounded
// by the context it receives.
type Session interface {
	Navigate(ctx context.Context, url string) error
	ReadyState(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// WaitFor blocks until sel matches at least one element.
	WaitFor(ctx context.Context, sel Selector) (Element, error)
	// WaitClickable blocks until sel matches a visible, enabled element.
	WaitClickable(ctx context.Context, sel Selector) (Element, error)
	// QueryAll blocks until sel matches at least one element and returns all matches.
	QueryAll(ctx context.Context, sel Selector) ([]Element, error)
	ScrollHeight(ctx context.Context) (float64, error)
	ScrollTo(ctx context.Context, y float64) error
	// Click clicks el from a script rather than with a pointer event.
	Click(ctx context.Context, el Element) error
	// Close releases the browser. Calling it more than once is a no-op.
	Close() error
}

// Element is a node of the current page.
type Element interface {
	// Find blocks until sel matches a descendant of the element.
	Find(ctx context.Context, sel Selector) (Element, error)
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, bool, error)
}
