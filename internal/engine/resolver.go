package engine

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/xkilldash9x/linkfeed/internal/selector"
	"go.uber.org/zap"
)

// defaultInteractionTimeout bounds a single click or fill once the element is found.
const defaultInteractionTimeout = 15 * time.Second

// Interaction acts on a located element.
type Interaction func(ctx context.Context, node *cdp.Node) error

// StepResult reports the outcome of resolving one action.
type StepResult struct {
	Action selector.Action
	// Node is the located element, nil on failure.
	Node *cdp.Node
	// Selector is the candidate that worked, nil on failure.
	Selector  *selector.Candidate
	FromCache bool
	// Tried lists every candidate attempted, in order, including the cached one.
	Tried []selector.Candidate
	// Err is the failure reason: a *ResolutionError, an *InteractionError or
	// the caller's context error.
	Err error
}

// OK reports whether the action was resolved.
func (r StepResult) OK() bool { return r.Err == nil && r.Node != nil }

// Resolver turns logical actions into elements, cache first, then the
// catalog cascade.
type Resolver struct {
	page               Page
	catalog            *selector.Catalog
	cache              *selector.LearnedCache
	cacheTimeout       time.Duration
	interactionTimeout time.Duration
	logger             *zap.Logger
}

// NewResolver creates a resolver that records successes in cache.
func NewResolver(page Page, catalog *selector.Catalog, cache *selector.LearnedCache, cacheTimeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		page:               page,
		catalog:            catalog,
		cache:              cache,
		cacheTimeout:       cacheTimeout,
		interactionTimeout: defaultInteractionTimeout,
		logger:             logger.Named("resolver"),
	}
}

type attempt struct {
	candidate selector.Candidate
	timeout   time.Duration
	cached    bool
}

// Resolve locates the element for action and caches the candidate that found it.
func (r *Resolver) Resolve(ctx context.Context, action selector.Action, scope *selector.Candidate, perCandidate time.Duration) StepResult {
	return r.Perform(ctx, action, scope, perCandidate, nil)
}

// Perform locates the element for action and runs interact on it. When the
// interaction fails the cascade moves on to the next candidate. The cache
// is only updated after interact succeeds.
func (r *Resolver) Perform(ctx context.Context, action selector.Action, scope *selector.Candidate, perCandidate time.Duration, interact Interaction) StepResult {
	result := StepResult{Action: action}
	logger := r.logger.With(zap.String("action", string(action)))
	if scope != nil {
		logger = logger.With(zap.Stringer("scope", *scope))
	}

	var (
		lastInteraction *InteractionError
		staleCache      *selector.Candidate
	)
	for _, a := range r.attempts(action, perCandidate) {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}
		if staleCache != nil && !a.cached && a.candidate == *staleCache {
			continue
		}
		result.Tried = append(result.Tried, a.candidate)
		if a.cached {
			staleCache = &a.candidate
		}

		node, err := r.locate(ctx, a, scope)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				result.Err = ctxErr
				return result
			}
			logger.Debug("Candidate not found.",
				zap.Stringer("selector", a.candidate),
				zap.Bool("cached", a.cached),
				zap.Duration("timeout", a.timeout),
				zap.Error(err))
			continue
		}

		// Off-screen elements are still clickable through script, so a
		// failed scroll is not a reason to skip the candidate.
		if err := r.page.ScrollIntoView(ctx, node); err != nil {
			logger.Debug("Scroll into view failed.", zap.Stringer("selector", a.candidate), zap.Error(err))
		}

		if interact != nil {
			if err := r.interact(ctx, node, interact); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					result.Err = ctxErr
					return result
				}
				lastInteraction = &InteractionError{Action: action, Candidate: a.candidate, Err: err}
				logger.Warn("Interaction failed; trying next candidate.",
					zap.Stringer("selector", a.candidate), zap.Error(err))
				continue
			}
		}

		r.cache.Set(action, a.candidate)
		matched := a.candidate
		result.Node = node
		result.Selector = &matched
		result.FromCache = a.cached
		logger.Debug("Resolved.", zap.Stringer("selector", matched), zap.Bool("cached", a.cached))
		return result
	}

	if lastInteraction != nil {
		result.Err = lastInteraction
	} else {
		result.Err = &ResolutionError{Action: action, Scope: scope, Tried: result.Tried}
	}
	return result
}

func (r *Resolver) attempts(action selector.Action, perCandidate time.Duration) []attempt {
	var out []attempt
	if c, ok := r.cache.Get(action); ok {
		out = append(out, attempt{candidate: c, timeout: r.cacheTimeout, cached: true})
	}
	for _, c := range r.catalog.CandidatesFor(action) {
		out = append(out, attempt{candidate: c, timeout: perCandidate})
	}
	return out
}

func (r *Resolver) locate(ctx context.Context, a attempt, scope *selector.Candidate) (*cdp.Node, error) {
	lctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	node, err := r.page.Query(lctx, a.candidate, scope)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, errors.New("driver returned no node")
	}
	return node, nil
}

func (r *Resolver) interact(ctx context.Context, node *cdp.Node, interact Interaction) error {
	ictx, cancel := context.WithTimeout(ctx, r.interactionTimeout)
	defer cancel()
	return interact(ictx, node)
}
