package chromedp_crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/user/listing-crawler/internal/repository"
)

// Element is a DOM node captured from a Session.
type Element struct {
	session *Session
	node    *cdp.Node
}

// Find waits for a CSS match below the element. XPath is evaluated against the
// whole document by Chrome, so it is refused here.
func (e *Element) Find(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	if sel.Kind != repository.CSS {
		return nil, fmt.Errorf("%s below a node: %w", sel, repository.ErrUnsupportedSelector)
	}
	var nodes []*cdp.Node
	err := e.session.run(ctx, chromedp.Nodes(sel.Expr, &nodes, chromedp.ByQuery, chromedp.FromNode(e.node)))
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && len(nodes) == 0) {
		return nil, fmt.Errorf("%s: %w", sel, repository.ErrSelectorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sel, err)
	}
	return &Element{session: e.session, node: nodes[0]}, nil
}

// Text returns the rendered text of the element.
func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return callOn(ctx, e.node, `function() { return this.innerText; }`, &text)
	}))
	return strings.TrimSpace(text), err
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attribute(name)
	return v, ok, nil
}
