// Package orchestrator drives the add-source dialog once per URL.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xkilldash9x/linkfeed/internal/config"
	"github.com/xkilldash9x/linkfeed/internal/engine"
	"github.com/xkilldash9x/linkfeed/internal/linkfile"
	"github.com/xkilldash9x/linkfeed/internal/selector"
	"go.uber.org/zap"
)

// Summary describes a finished or aborted run.
type Summary struct {
	RunID     string
	Total     int
	Submitted int
	// Unconfirmed counts submitted items whose evidence never appeared.
	Unconfirmed int
	Learned     map[selector.Action]string
	Elapsed     time.Duration
}

// Orchestrator feeds items into the notebook one at a time.
type Orchestrator struct {
	page    engine.Page
	catalog *selector.Catalog
	wait    config.WaitPolicy
	poller  *engine.Poller
	logger  *zap.Logger
	out     io.Writer
}

// New creates an orchestrator. Operator-facing progress goes to out.
func New(page engine.Page, catalog *selector.Catalog, wait config.WaitPolicy, logger *zap.Logger, out io.Writer) *Orchestrator {
	logger = logger.Named("orchestrator")
	return &Orchestrator{
		page:    page,
		catalog: catalog,
		wait:    wait,
		poller:  engine.NewPoller(page, logger),
		logger:  logger,
		out:     out,
	}
}

// Startup opens the workspace and waits for the operator to log in and the
// UI to become ready.
func (o *Orchestrator) Startup(ctx context.Context, entryURL string) error {
	o.logger.Info("Opening workspace.", zap.String("url", entryURL))
	if err := o.page.Navigate(ctx, entryURL); err != nil {
		return fmt.Errorf("failed to open workspace '%s': %w", entryURL, err)
	}
	fmt.Fprintln(o.out, "Log in through the browser window if prompted. Waiting for the workspace to load...")

	ready := o.catalog.Indicators(selector.Ready)
	structural, text := splitLocalized(ready)
	if len(structural) == 0 {
		structural, text = text, nil
	}

	start := time.Now()
	found := o.poller.AwaitEvidence(ctx, structural, o.wait.Startup, o.wait.StartupPoll)
	if !found && len(text) > 0 && ctx.Err() == nil {
		o.logger.Warn("Workspace title not found; falling back to source panel labels.")
		found = o.poller.AwaitEvidence(ctx, text, o.wait.StartupFallback, o.wait.StartupPoll)
	}
	if !found {
		if err := ctx.Err(); err != nil {
			return err
		}
		return &engine.StartupError{Indicators: ready, Waited: time.Since(start)}
	}

	o.logger.Info("Workspace ready.", zap.Duration("waited", time.Since(start)))
	return engine.Pause(ctx, o.wait.StartupSettle)
}

// Run submits items in order and stops at the first fatal error, which is
// returned as a *BatchError alongside the partial summary.
func (o *Orchestrator) Run(ctx context.Context, items []linkfile.Item) (Summary, error) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))
	cache := selector.NewLearnedCache()
	state := &runState{resolver: engine.NewResolver(o.page, o.catalog, cache, o.wait.CacheAttempt, logger)}

	summary := Summary{RunID: runID, Total: len(items)}
	start := time.Now()
	finish := func() Summary {
		summary.Elapsed = time.Since(start)
		summary.Learned = cache.Snapshot()
		logger.Info("Run finished.",
			zap.Int("submitted", summary.Submitted),
			zap.Int("unconfirmed", summary.Unconfirmed),
			zap.Int("total", summary.Total),
			zap.Duration("elapsed", summary.Elapsed),
			zap.Any("learned_selectors", summary.Learned))
		return summary
	}

	logger.Info("Starting run.", zap.Int("items", len(items)))
	for i, item := range items {
		fmt.Fprintf(o.out, "[%d/%d] %s\n", i+1, len(items), item.URL)
		run := &itemRun{
			Orchestrator: o,
			run:          state,
			item:         item,
			first:        i == 0,
			logger:       logger.With(zap.Int("item", item.Position), zap.String("url", item.URL)),
		}
		confirmed, err := run.process(ctx)
		if err != nil {
			logger.Error("Aborting batch.", zap.Error(err), zap.Int("remaining", len(items)-i-1))
			return finish(), err
		}
		summary.Submitted++
		if !confirmed {
			summary.Unconfirmed++
		}
	}
	return finish(), nil
}

// runState is shared by the items of one run and discarded with it.
type runState struct {
	resolver *engine.Resolver
	// addScope is where the add button was last found; nil means the page.
	addScope   *selector.Candidate
	scopeKnown bool
}

func splitLocalized(cands []selector.Candidate) (structural, text []selector.Candidate) {
	for _, c := range cands {
		if c.Localized {
			text = append(text, c)
		} else {
			structural = append(structural, c)
		}
	}
	return structural, text
}
