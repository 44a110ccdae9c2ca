// Package extract pulls the documentation link list that feeds an upload
// batch out of a table-of-contents container.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/linkfeed/internal/linkfile"
)

// DefaultContainer is the TOC container on AWS documentation pages.
const DefaultContainer = `div[data-testid="doc-page-toc"]`

// ErrContainerNotFound is returned when the page has no TOC container.
var ErrContainerNotFound = errors.New("link container not found")

// Fetcher returns the HTML of a page.
type Fetcher interface {
	HTML(ctx context.Context, pageURL string) (string, error)
}

// Extractor fetches a page and collects the links in its container.
type Extractor struct {
	fetcher     Fetcher
	container   string
	logger      *zap.Logger
	concurrency int
	limiter     *rate.Limiter
}

// New returns an Extractor. An empty container uses DefaultContainer.
func New(fetcher Fetcher, container string, logger *zap.Logger) *Extractor {
	if strings.TrimSpace(container) == "" {
		container = DefaultContainer
	}
	return &Extractor{
		fetcher:     fetcher,
		container:   container,
		logger:      logger.Named("extract"),
		concurrency: 1,
	}
}

// Extract fetches pageURL and returns its container links.
func (e *Extractor) Extract(ctx context.Context, pageURL string) ([]linkfile.Link, error) {
	e.logger.Info("Fetching documentation page.", zap.String("url", pageURL))

	html, err := e.fetcher.HTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch '%s': %w", pageURL, err)
	}

	links, err := Links(html, pageURL, e.container)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Extracted links.", zap.Int("count", len(links)))
	return links, nil
}

// Links returns the anchors under the first element matching container, in
// document order, with hrefs resolved against pageURL. Empty, fragment-only
// and javascript: hrefs are skipped and each URL is kept once.
func Links(html, pageURL, container string) ([]linkfile.Link, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL '%s': %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	root := doc.Find(container).First()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, container)
	}

	seen := make(map[string]bool)
	links := []linkfile.Link{}
	root.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, linkfile.Link{
			Text: strings.Join(strings.Fields(a.Text()), " "),
			URL:  abs,
		})
	})
	return links, nil
}

func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(href), "javascript:")
}
