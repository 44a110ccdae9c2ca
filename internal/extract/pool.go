package extract

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/linkfeed/internal/linkfile"
)

// Throttle bounds how ExtractAll fetches: at most concurrency pages in
// flight and perSecond fetches started per second. perSecond <= 0 means
// no rate limit.
func (e *Extractor) Throttle(concurrency int, perSecond float64) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	e.concurrency = concurrency
	e.limiter = nil
	if perSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return e
}

// ExtractAll extracts every page and merges the links in page order,
// keeping the first occurrence of each URL. The first failure cancels the
// remaining pages.
func (e *Extractor) ExtractAll(ctx context.Context, pages []string) ([]linkfile.Link, error) {
	results := make([][]linkfile.Link, len(pages))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, page := range pages {
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(groupCtx); err != nil {
					e.logger.Warn("Context cancelled while waiting for rate limiter.", zap.String("url", page), zap.Error(err))
					return err
				}
			}
			links, err := e.Extract(groupCtx, page)
			if err != nil {
				return err
			}
			results[i] = links
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	merged := []linkfile.Link{}
	for _, links := range results {
		for _, l := range links {
			if seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			merged = append(merged, l)
		}
	}
	return merged, nil
}
