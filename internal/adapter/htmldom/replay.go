package htmldom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/listing-crawler/internal/entity"
	"github.com/user/listing-crawler/internal/repository"
)

const replayPageHeight = 4000

var (
	errSessionClosed = errors.New("replay session closed")
	errNotNavigated  = errors.New("replay session has not navigated yet")
)

// Page is one saved result page.
type Page struct {
	Name string
	Doc  *goquery.Document
}

// ParsePages parses in-memory HTML documents, named page-1, page-2 and so on.
func ParsePages(htmls ...string) ([]Page, error) {
	pages := make([]Page, 0, len(htmls))
	for i, h := range htmls {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(h))
		if err != nil {
			return nil, fmt.Errorf("parsing page %d: %w", i+1, err)
		}
		pages = append(pages, Page{Name: fmt.Sprintf("page-%d", i+1), Doc: doc})
	}
	return pages, nil
}

// LoadDir reads every *.html file of dir in lexical order.
func LoadDir(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading replay dir: %w", err)
	}
	var pages []Page
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".html") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		pages = append(pages, Page{Name: entry.Name(), Doc: doc})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no .html pages in %s", dir)
	}
	return pages, nil
}

// ReplayProvider hands out sessions that replay saved result pages instead of
// driving a browser. Clicking a next-page control moves to the following page.
type ReplayProvider struct {
	pages []Page
}

func NewReplayProvider(pages []Page) *ReplayProvider {
	return &ReplayProvider{pages: pages}
}

func (p *ReplayProvider) Provision(ctx context.Context, _ entity.CrawlConfig) (repository.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrBrowserInit, err)
	}
	if len(p.pages) == 0 {
		return nil, fmt.Errorf("%w: no pages to replay", repository.ErrBrowserInit)
	}
	return NewReplaySession(p.pages), nil
}

// ReplaySession implements repository.Session over saved pages.
type ReplaySession struct {
	mu      sync.Mutex
	pages   []Page
	current int
	url     string
	scrollY float64
	closed  bool
	once    sync.Once
}

func NewReplaySession(pages []Page) *ReplaySession {
	return &ReplaySession{pages: pages, current: -1}
}

func (s *ReplaySession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil && !errors.Is(err, errNotNavigated) {
		return err
	}
	if len(s.pages) == 0 {
		return fmt.Errorf("navigating to %s: nothing to replay", url)
	}
	s.url, s.current, s.scrollY = url, 0, 0
	return nil
}

func (s *ReplaySession) ReadyState(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return "", err
	}
	return "complete", nil
}

func (s *ReplaySession) CurrentURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return "", err
	}
	return s.url, nil
}

func (s *ReplaySession) WaitFor(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	found, err := match(s.document(), sel)
	if err != nil {
		return nil, err
	}
	return NewElement(found), nil
}

// WaitClickable matches sel among enabled elements. The last saved page has
// nowhere to go, so nothing on it is clickable.
func (s *ReplaySession) WaitClickable(ctx context.Context, sel repository.Selector) (repository.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if s.current == len(s.pages)-1 {
		return nil, fmt.Errorf("%s on last replay page: %w", sel, repository.ErrSelectorNotFound)
	}
	found, err := match(s.document(), sel)
	if err != nil {
		return nil, err
	}
	enabled := found.Not("[disabled]")
	if enabled.Length() == 0 {
		return nil, fmt.Errorf("%s is disabled: %w", sel, repository.ErrSelectorNotFound)
	}
	return NewElement(enabled), nil
}

func (s *ReplaySession) QueryAll(ctx context.Context, sel repository.Selector) ([]repository.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	found, err := match(s.document(), sel)
	if err != nil {
		return nil, err
	}
	els := make([]repository.Element, 0, found.Length())
	found.Each(func(_ int, node *goquery.Selection) {
		els = append(els, NewElement(node))
	})
	return els, nil
}

func (s *ReplaySession) ScrollHeight(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return 0, err
	}
	return replayPageHeight, nil
}

func (s *ReplaySession) ScrollTo(ctx context.Context, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return err
	}
	s.scrollY = y
	return nil
}

// Click moves to the next saved page.
func (s *ReplaySession) Click(ctx context.Context, el repository.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(ctx); err != nil {
		return err
	}
	if _, ok := el.(*Element); !ok {
		return fmt.Errorf("cannot click %T in a replay session", el)
	}
	if s.current+1 >= len(s.pages) {
		return fmt.Errorf("no page after %s", s.pages[s.current].Name)
	}
	s.current++
	s.scrollY = 0
	return nil
}

func (s *ReplaySession) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})
	return nil
}

// PageName returns the name of the page currently shown.
func (s *ReplaySession) PageName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 {
		return ""
	}
	return s.pages[s.current].Name
}

func (s *ReplaySession) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return errSessionClosed
	}
	if s.current < 0 {
		return errNotNavigated
	}
	return nil
}

func (s *ReplaySession) document() *goquery.Selection {
	return s.pages[s.current].Doc.Selection
}
