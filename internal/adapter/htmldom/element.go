// Package htmldom evaluates selectors over parsed HTML with goquery. It backs
// the offline replay session and the engine tests.
package htmldom

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/listing-crawler/internal/repository"
)

// Element wraps a goquery selection holding exactly one node.
type Element struct {
	sel *goquery.Selection
}

// NewElement wraps the first node of sel.
func NewElement(sel *goquery.Selection) *Element {
	return &Element{sel: sel.First()}
}

// Fragment parses an HTML snippet and returns its first top-level element.
func Fragment(html string) (*Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	first := doc.Find("body").Children().First()
	if first.Length() == 0 {
		return nil, fmt.Errorf("fragment has no element: %w", repository.ErrSelectorNotFound)
	}
	return NewElement(first), nil
}

// Selection exposes the underlying goquery selection.
func (e *Element) Selection() *goquery.Selection { return e.sel }

func (e *Element) Find(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	found, err := match(e.sel, sel)
	if err != nil {
		return nil, err
	}
	return NewElement(found), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// match returns every descendant of root matched by sel, or
// repository.ErrSelectorNotFound when there is none.
func match(root *goquery.Selection, sel repository.Selector) (*goquery.Selection, error) {
	var found *goquery.Selection
	switch sel.Kind {
	case repository.CSS:
		found = root.Find(sel.Expr)
	case repository.XPath:
		q, err := parseXPath(sel.Expr)
		if err != nil {
			return nil, err
		}
		found = q.apply(root)
	default:
		return nil, fmt.Errorf("%s: %w", sel, repository.ErrUnsupportedSelector)
	}
	if found.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", sel, repository.ErrSelectorNotFound)
	}
	return found, nil
}

// Only the two XPath shapes used for pagination controls are understood:
// //tag[contains(., 'text')] and //tag[@attr='value'].
var (
	xpathContains = regexp.MustCompile(`^//([a-z][a-z0-9]*)\[contains\(\s*\.\s*,\s*'([^']*)'\s*\)\]$`)
	xpathAttrEq   = regexp.MustCompile(`^//([a-z][a-z0-9]*)\[@([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*'([^']*)'\]$`)
)

type xpathQuery struct {
	tag   string
	attr  string
	value string
}

func parseXPath(expr string) (xpathQuery, error) {
	if m := xpathContains.FindStringSubmatch(expr); m != nil {
		return xpathQuery{tag: m[1], value: m[2]}, nil
	}
	if m := xpathAttrEq.FindStringSubmatch(expr); m != nil {
		return xpathQuery{tag: m[1], attr: m[2], value: m[3]}, nil
	}
	return xpathQuery{}, fmt.Errorf("xpath %q: %w", expr, repository.ErrUnsupportedSelector)
}

func (q xpathQuery) apply(root *goquery.Selection) *goquery.Selection {
	return root.Find(q.tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if q.attr == "" {
			return strings.Contains(s.Text(), q.value)
		}
		v, ok := s.Attr(q.attr)
		return ok && v == q.value
	})
}
