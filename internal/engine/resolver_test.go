package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/linkfeed/internal/engine/enginetest"
	"github.com/xkilldash9x/linkfeed/internal/selector"
	"go.uber.org/zap/zaptest"
)

var _ Page = (*enginetest.FakePage)(nil)

const (
	testCandidateTimeout = 20 * time.Millisecond
	testCacheTimeout     = 10 * time.Millisecond
)

var (
	candA = selector.CSS("button.a")
	candB = selector.CSS("button.b")
	candC = selector.CSS("button.c")
	candX = selector.CSS("input.x")
)

func testCatalog() *selector.Catalog {
	return selector.NewCatalog(map[selector.Action][]selector.Candidate{
		selector.OpenAddDialog: {candA, candB, candC},
		selector.FillURLField:  {candX},
	}, nil)
}

func newTestResolver(t *testing.T, page Page, cache *selector.LearnedCache) *Resolver {
	t.Helper()
	return NewResolver(page, testCatalog(), cache, testCacheTimeout, zaptest.NewLogger(t))
}

func TestResolveCascade(t *testing.T) {
	// Arrange
	page := enginetest.NewFakePage()
	page.Add(candB, candC)
	cache := selector.NewLearnedCache()
	r := newTestResolver(t, page, cache)

	// Act
	res := r.Resolve(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout)

	// Assert
	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	assert.Equal(t, candB, *res.Selector)
	assert.False(t, res.FromCache)
	assert.Equal(t, []selector.Candidate{candA, candB}, res.Tried)
	assert.Equal(t, []string{"button.a", "button.b"}, page.Selectors(enginetest.OpQuery), "c must never be tried")
	assert.Equal(t, []string{"button.b"}, page.Selectors(enginetest.OpScroll))

	cached, ok := cache.Get(selector.OpenAddDialog)
	require.True(t, ok)
	assert.Equal(t, candB, cached)
}

func TestResolveCachePrecedence(t *testing.T) {
	page := enginetest.NewFakePage()
	page.Add(candA, candB)
	cache := selector.NewLearnedCache()
	cache.Set(selector.OpenAddDialog, candB)
	r := newTestResolver(t, page, cache)

	res := r.Resolve(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout)

	require.True(t, res.OK())
	assert.True(t, res.FromCache)
	assert.Equal(t, candB, *res.Selector)
	assert.Equal(t, []string{"button.b"}, page.Selectors(enginetest.OpQuery))
}

func TestResolveStaleCacheFallsBackToCatalog(t *testing.T) {
	page := enginetest.NewFakePage()
	page.Add(candC)
	cache := selector.NewLearnedCache()
	cache.Set(selector.OpenAddDialog, candB)
	r := newTestResolver(t, page, cache)

	res := r.Resolve(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout)

	require.True(t, res.OK())
	assert.False(t, res.FromCache)
	assert.Equal(t, []string{"button.b", "button.a", "button.c"}, page.Selectors(enginetest.OpQuery), "a failed cached candidate is not retried")
	assert.Equal(t, []selector.Candidate{candB, candA, candC}, res.Tried)
	cached, _ := cache.Get(selector.OpenAddDialog)
	assert.Equal(t, candC, cached, "cache must be overwritten with the new winner")
}

func TestResolveCacheIsolation(t *testing.T) {
	page := enginetest.NewFakePage()
	page.Add(candA, candX)
	cache := selector.NewLearnedCache()
	r := newTestResolver(t, page, cache)

	res := r.Resolve(context.Background(), selector.FillURLField, nil, testCandidateTimeout)
	require.True(t, res.OK())

	_, ok := cache.Get(selector.OpenAddDialog)
	assert.False(t, ok)
	got, ok := cache.Get(selector.FillURLField)
	assert.True(t, ok)
	assert.Equal(t, candX, got)
}

func TestResolveFailure(t *testing.T) {
	page := enginetest.NewFakePage()
	cache := selector.NewLearnedCache()
	r := newTestResolver(t, page, cache)

	start := time.Now()
	res := r.Resolve(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout)
	elapsed := time.Since(start)

	require.False(t, res.OK())
	assert.Nil(t, res.Node)
	assert.Nil(t, res.Selector)

	var resErr *ResolutionError
	require.ErrorAs(t, res.Err, &resErr)
	assert.Equal(t, selector.OpenAddDialog, resErr.Action)
	assert.Len(t, resErr.Tried, 3)
	assert.Contains(t, resErr.Error(), "could not locate open_add_dialog within page after 3 candidates")
	assert.GreaterOrEqual(t, elapsed, 3*testCandidateTimeout, "each candidate gets its own timeout")

	_, cached := cache.Get(selector.OpenAddDialog)
	assert.False(t, cached)
}

func TestResolveScope(t *testing.T) {
	section := selector.CSS("section")
	page := enginetest.NewFakePage()
	page.Add(section, candA)
	r := newTestResolver(t, page, selector.NewLearnedCache())

	scoped := r.Resolve(context.Background(), selector.OpenAddDialog, &section, testCandidateTimeout)
	require.False(t, scoped.OK())
	var resErr *ResolutionError
	require.ErrorAs(t, scoped.Err, &resErr)
	assert.Contains(t, resErr.Error(), "within scope 'section'")

	page.AddWithin(section, candB)
	scoped = r.Resolve(context.Background(), selector.OpenAddDialog, &section, testCandidateTimeout)
	require.True(t, scoped.OK())
	assert.Equal(t, candB, *scoped.Selector)

	for _, call := range page.Calls(enginetest.OpQuery) {
		assert.Equal(t, "section", call.Scope)
	}
}

func TestPerformInteractionFallsThrough(t *testing.T) {
	page := enginetest.NewFakePage()
	page.Add(candA, candB, candC)
	page.Fail(enginetest.OpClick, candA, enginetest.ErrDetached)
	cache := selector.NewLearnedCache()
	r := newTestResolver(t, page, cache)

	click := func(ctx context.Context, node *cdp.Node) error { return page.Click(ctx, node) }
	res := r.Perform(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout, click)

	require.True(t, res.OK())
	assert.Equal(t, candB, *res.Selector)
	assert.Equal(t, []string{"button.a", "button.b"}, page.Selectors(enginetest.OpClick))
	cached, _ := cache.Get(selector.OpenAddDialog)
	assert.Equal(t, candB, cached)
}

func TestPerformSkipsCachedCandidateAfterInteractionFailure(t *testing.T) {
	page := enginetest.NewFakePage()
	page.Add(candC)
	page.Fail(enginetest.OpClick, candC, enginetest.ErrDetached)
	cache := selector.NewLearnedCache()
	cache.Set(selector.OpenAddDialog, candC)
	r := newTestResolver(t, page, cache)

	click := func(ctx context.Context, node *cdp.Node) error { return page.Click(ctx, node) }
	res := r.Perform(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout, click)

	require.False(t, res.OK())
	var interErr *InteractionError
	require.ErrorAs(t, res.Err, &interErr)
	assert.Equal(t, candC, interErr.Candidate)
	assert.Equal(t, []selector.Candidate{candC, candA, candB}, res.Tried)
	assert.Equal(t, []string{"button.c", "button.a", "button.b"}, page.Selectors(enginetest.OpQuery))
	assert.Equal(t, []string{"button.c"}, page.Selectors(enginetest.OpClick))
}

func TestPerformAllInteractionsFail(t *testing.T) {
	page := enginetest.NewFakePage()
	page.Add(candA)
	cache := selector.NewLearnedCache()
	r := newTestResolver(t, page, cache)

	boom := errors.New("not interactable")
	res := r.Perform(context.Background(), selector.OpenAddDialog, nil, testCandidateTimeout,
		func(context.Context, *cdp.Node) error { return boom })

	require.False(t, res.OK())
	var ie *InteractionError
	require.ErrorAs(t, res.Err, &ie)
	assert.Equal(t, candA, ie.Candidate)
	assert.ErrorIs(t, res.Err, boom)
	_, cached := cache.Get(selector.OpenAddDialog)
	assert.False(t, cached, "a failed interaction must not be cached")
}

func TestResolveCallerCancellation(t *testing.T) {
	page := enginetest.NewFakePage()
	r := newTestResolver(t, page, selector.NewLearnedCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := r.Resolve(ctx, selector.OpenAddDialog, nil, time.Second)

	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, page.Calls(enginetest.OpQuery))
}
