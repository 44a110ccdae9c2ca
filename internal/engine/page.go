// Package engine resolves logical UI actions to elements through a cascade
// of selector candidates, and decides when a submission has completed.
package engine

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/xkilldash9x/linkfeed/internal/selector"
)

// Prober answers whether an element is present right now, without waiting.
type Prober interface {
	Present(ctx context.Context, c selector.Candidate) (bool, error)
}

// Page is the DOM driver the engine works against. Query blocks until the
// target is attached or ctx ends; every other method acts once.
type Page interface {
	Prober

	Navigate(ctx context.Context, url string) error
	// Query locates target. A nil scope searches the whole page; otherwise
	// the search is rooted at the first element matching scope.
	Query(ctx context.Context, target selector.Candidate, scope *selector.Candidate) (*cdp.Node, error)
	ScrollIntoView(ctx context.Context, node *cdp.Node) error
	// Click dispatches a trusted mouse click at the node's center.
	Click(ctx context.Context, node *cdp.Node) error
	// ScriptClick calls the element's click() method from page script.
	ScriptClick(ctx context.Context, node *cdp.Node) error
	// Fill replaces the node's value with text and verifies the result.
	Fill(ctx context.Context, node *cdp.Node, text string) error
	// TypeAtFocus selects everything in the focused element and types text.
	TypeAtFocus(ctx context.Context, text string) error
	PressEnter(ctx context.Context) error
}
