package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/xkilldash9x/linkfeed/internal/engine"
	"github.com/xkilldash9x/linkfeed/internal/linkfile"
	"github.com/xkilldash9x/linkfeed/internal/selector"
	"go.uber.org/zap"
)

// itemRun carries one item through the state machine.
type itemRun struct {
	*Orchestrator
	run    *runState
	item   linkfile.Item
	first  bool
	logger *zap.Logger
}

// process returns whether completion evidence was seen. Any error is a
// *BatchError and ends the batch.
func (r *itemRun) process(ctx context.Context) (bool, error) {
	state := NeedDialog
	if r.first {
		// The menu can already be open when the operator left the dialog up.
		if r.chooserOpen(ctx) {
			r.logger.Info("Source type menu already open; skipping the add button.")
			state = NeedSourceType
		}
	} else if !r.poller.AwaitEvidence(ctx, r.catalog.Indicators(selector.NextReady), r.wait.PollInterval, r.wait.PollInterval) {
		r.logger.Debug("Next-item indicators not visible yet.")
	}

	for state != Confirmed {
		next, err := r.step(ctx, state)
		if err != nil {
			return false, &BatchError{Item: r.item, State: state, Err: err}
		}
		r.logger.Debug("Transition.", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	confirmed, err := r.confirm(ctx)
	if err != nil {
		return confirmed, &BatchError{Item: r.item, State: Confirmed, Err: err}
	}
	return confirmed, nil
}

// chooserOpen requires the website option next to a chooser chip. Chips
// alone also appear on the idle notebook page.
func (r *itemRun) chooserOpen(ctx context.Context) bool {
	if !r.poller.AwaitEvidence(ctx, r.catalog.Indicators(selector.Chooser), r.wait.ChooserProbe, r.wait.PollInterval) {
		return false
	}
	if r.poller.AwaitEvidence(ctx, r.catalog.CandidatesFor(selector.SelectWebsiteOption), r.wait.PollInterval, r.wait.PollInterval) {
		return true
	}
	r.logger.Debug("Chooser chip visible without the website option; opening the dialog.")
	return false
}

func (r *itemRun) step(ctx context.Context, s State) (State, error) {
	switch s {
	case NeedDialog:
		return NeedSourceType, r.openDialog(ctx)
	case NeedSourceType:
		return NeedURLInput, r.chooseWebsite(ctx)
	case NeedURLInput:
		return NeedSubmit, r.fillURL(ctx)
	case NeedSubmit:
		return Confirmed, r.submit(ctx)
	default:
		return s, fmt.Errorf("no transition from %s", s)
	}
}

// openDialog looks for the add button inside the sources section first,
// then anywhere on the page. Once a scope works it is tried first for the
// rest of the run.
func (r *itemRun) openDialog(ctx context.Context) error {
	scopes := r.addScopes()
	var res engine.StepResult
	for i, scope := range scopes {
		timeout := r.wait.Candidate
		if scope != nil {
			timeout = r.wait.CacheAttempt
		}
		res = r.run.resolver.Perform(ctx, selector.OpenAddDialog, scope, timeout, r.settledClick)
		if res.OK() {
			r.run.addScope, r.run.scopeKnown = scope, true
			break
		}
		if ctx.Err() != nil {
			break
		}
		if i < len(scopes)-1 {
			r.logger.Debug("Add button not found in section; widening.", zap.Error(res.Err))
		}
	}
	if !res.OK() {
		return res.Err
	}

	if !r.poller.AwaitEvidence(ctx, r.catalog.Indicators(selector.Chooser), r.wait.ChooserWait, r.wait.PollInterval) {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Warn("Source type menu not detected after opening the dialog; continuing.")
	}
	return nil
}

// addScopes lists the scopes to search for the add button, narrowest
// first and ending with the whole page (nil).
func (r *itemRun) addScopes() []*selector.Candidate {
	if r.run.scopeKnown {
		if r.run.addScope == nil {
			return []*selector.Candidate{nil}
		}
		return []*selector.Candidate{r.run.addScope, nil}
	}
	var scopes []*selector.Candidate
	for _, section := range r.catalog.Indicators(selector.Section) {
		scopes = append(scopes, &section)
	}
	return append(scopes, nil)
}

func (r *itemRun) chooseWebsite(ctx context.Context) error {
	res := r.run.resolver.Perform(ctx, selector.SelectWebsiteOption, nil, r.wait.Candidate, r.settledClick)
	return res.Err
}

// fillURL falls back to select-all and typing into whatever has focus, which
// after choosing the website option is the URL field.
func (r *itemRun) fillURL(ctx context.Context) error {
	res := r.run.resolver.Perform(ctx, selector.FillURLField, nil, r.wait.InputCandidate,
		func(ctx context.Context, node *cdp.Node) error {
			return r.page.Fill(ctx, node, r.item.URL)
		})
	if res.OK() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.logger.Warn("URL field not usable; typing into the focused element.", zap.Error(res.Err))
	if err := r.page.TypeAtFocus(ctx, r.item.URL); err != nil {
		return fmt.Errorf("%w; select-all fallback failed: %w", res.Err, err)
	}
	return nil
}

// submit clicks Insert from script, which works even when an overlay
// intercepts pointer events, and presses Enter if that fails.
func (r *itemRun) submit(ctx context.Context) error {
	res := r.run.resolver.Perform(ctx, selector.ClickInsert, nil, r.wait.Candidate,
		func(ctx context.Context, node *cdp.Node) error {
			return r.page.ScriptClick(ctx, node)
		})
	if !res.OK() {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Warn("Insert button not usable; pressing Enter.", zap.Error(res.Err))
		if err := r.page.PressEnter(ctx); err != nil {
			return fmt.Errorf("%w; enter fallback failed: %w", res.Err, err)
		}
	}
	return engine.Pause(ctx, r.wait.PostSubmit)
}

// confirm polls for evidence, then holds the inter-item floor measured from
// the start of the poll.
func (r *itemRun) confirm(ctx context.Context) (bool, error) {
	pollStart := time.Now()
	confirmed := r.poller.AwaitEvidence(ctx, r.catalog.Indicators(selector.Evidence), r.wait.PollBudget, r.wait.PollInterval)
	if err := ctx.Err(); err != nil {
		return confirmed, err
	}
	if confirmed {
		r.logger.Info("Source added.", zap.Duration("confirmed_after", time.Since(pollStart)))
	} else {
		r.logger.Warn("Submission not confirmed; continuing.", zap.Error(engine.ErrCompletionTimeout))
	}
	return confirmed, engine.PauseFloor(ctx, pollStart, r.wait.InterItem)
}

func (r *itemRun) settledClick(ctx context.Context, node *cdp.Node) error {
	if err := engine.Pause(ctx, r.wait.PreClick); err != nil {
		return err
	}
	if err := r.page.Click(ctx, node); err != nil {
		return err
	}
	return engine.Pause(ctx, r.wait.PostClick)
}
