package chromedp_crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/listing-crawler/internal/repository"
)

// Session is a live Chrome tab implementing repository.Session.
type Session struct {
	browserCtx context.Context
	release    context.CancelFunc
	logger     *zap.Logger
	closeOnce  sync.Once
	closeErr   error
}

func newSession(browserCtx context.Context, release context.CancelFunc, logger *zap.Logger) *Session {
	return &Session{browserCtx: browserCtx, release: release, logger: logger}
}

// run executes actions on the tab. The operation stops when ctx is done, and
// the deadline of ctx bounds it, but cancelling it never closes the tab.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// lookup waits for sel and returns the matched nodes. A deadline reached while
// waiting is reported as repository.ErrSelectorNotFound.
func (s *Session) lookup(ctx context.Context, sel repository.Selector, opts ...chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(sel.Expr, &nodes, append(opts, by(sel))...))
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%s: %w", sel, repository.ErrSelectorNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", sel, err)
	case len(nodes) == 0:
		return nil, fmt.Errorf("%s: %w", sel, repository.ErrSelectorNotFound)
	}
	return nodes, nil
}

func by(sel repository.Selector) chromedp.QueryOption {
	if sel.Kind == repository.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) ReadyState(ctx context.Context) (string, error) {
	var state string
	err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state))
	return state, err
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

func (s *Session) WaitFor(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	nodes, err := s.lookup(ctx, sel)
	if err != nil {
		return nil, err
	}
	return &Element{session: s, node: nodes[0]}, nil
}

func (s *Session) WaitClickable(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	nodes, err := s.lookup(ctx, sel, chromedp.NodeVisible)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if _, disabled := n.Attribute("disabled"); !disabled {
			return &Element{session: s, node: n}, nil
		}
	}
	return nil, fmt.Errorf("%s is disabled: %w", sel, repository.ErrSelectorNotFound)
}

func (s *Session) QueryAll(ctx context.Context, sel repository.Selector) ([]repository.Element, error) {
	opt := chromedp.ByQueryAll
	if sel.Kind == repository.XPath {
		opt = chromedp.BySearch
	}
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(sel.Expr, &nodes, opt))
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && len(nodes) == 0) {
		return nil, fmt.Errorf("%s: %w", sel, repository.ErrSelectorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sel, err)
	}
	els := make([]repository.Element, len(nodes))
	for i, n := range nodes {
		els[i] = &Element{session: s, node: n}
	}
	return els, nil
}

func (s *Session) ScrollHeight(ctx context.Context) (float64, error) {
	var height float64
	err := s.run(ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height))
	return height, err
}

func (s *Session) ScrollTo(ctx context.Context, y float64) error {
	return s.run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %f)`, y), nil))
}

// Click dispatches a click from script, which works even when the control is
// covered by another element.
func (s *Session) Click(ctx context.Context, el repository.Element) error {
	e, ok := el.(*Element)
	if !ok || e.session != s {
		return fmt.Errorf("element %T does not belong to this session", el)
	}
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return callOn(ctx, e.node, `function() { this.click(); }`, nil)
	}))
}

// Close shuts the browser down. Only the first call does anything.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.browserCtx)
		s.release()
		s.logger.Info("browser session closed")
	})
	return s.closeErr
}

// callOn invokes fn with this bound to node and decodes its return value into out.
func callOn(ctx context.Context, node *cdp.Node, fn string, out any) error {
	obj, err := dom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
	if err != nil {
		return fmt.Errorf("resolving node: %w", err)
	}
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(out != nil).
		Do(ctx)
	if err != nil {
		return err
	}
	if exc != nil {
		return fmt.Errorf("script exception: %s", exc.Text)
	}
	if out == nil || res == nil || len(res.Value) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(res.Value), out)
}
