package engine

import (
	"context"
	"time"

	"github.com/xkilldash9x/linkfeed/internal/selector"
	"go.uber.org/zap"
)

// minProbeTime lets the final round run once the budget is spent.
const minProbeTime = 100 * time.Millisecond

// Poller checks a set of indicators until one appears or a budget runs out.
type Poller struct {
	prober Prober
	logger *zap.Logger
}

func NewPoller(prober Prober, logger *zap.Logger) *Poller {
	return &Poller{prober: prober, logger: logger.Named("poller")}
}

// AwaitEvidence returns true as soon as any indicator is present. It
// returns false only once budget has fully elapsed with a final check
// finding nothing, or when ctx is done. Probe errors count as absent.
func (p *Poller) AwaitEvidence(ctx context.Context, indicators []selector.Candidate, budget, interval time.Duration) bool {
	start := time.Now()
	deadline := start.Add(budget)
	for round := 1; ; round++ {
		for _, ind := range indicators {
			present, err := p.probe(ctx, ind, deadline)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				p.logger.Debug("Probe failed.", zap.Stringer("selector", ind), zap.Error(err))
				continue
			}
			if present {
				p.logger.Debug("Evidence found.",
					zap.Stringer("selector", ind),
					zap.Int("round", round),
					zap.Duration("elapsed", time.Since(start)))
				return true
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if err := Pause(ctx, min(interval, remaining)); err != nil {
			return false
		}
	}
}

// probe bounds a single check by the poll deadline so a stalled driver
// cannot stretch the budget.
func (p *Poller) probe(ctx context.Context, ind selector.Candidate, deadline time.Time) (bool, error) {
	if floor := time.Now().Add(minProbeTime); deadline.Before(floor) {
		deadline = floor
	}
	pctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	return p.prober.Present(pctx, ind)
}
