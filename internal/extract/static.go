package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// StaticFetcher downloads pages without rendering them. It suits
// documentation sites that ship their TOC in the server response.
type StaticFetcher struct {
	UserAgent string
	Timeout   time.Duration
}

// HTML fetches pageURL with a fresh collector.
func (f StaticFetcher) HTML(ctx context.Context, pageURL string) (string, error) {
	ua := f.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	c := colly.NewCollector(
		colly.UserAgent(ua),
		colly.StdlibContext(ctx),
		colly.IgnoreRobotsTxt(),
	)
	if f.Timeout > 0 {
		c.SetRequestTimeout(f.Timeout)
	}

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	c.Wait()
	if fetchErr != nil {
		return "", fetchErr
	}
	return string(body), nil
}
