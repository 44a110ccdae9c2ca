// internal/browser/interaction.go
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkfeed/internal/selector"
)

const (
	defaultNavigationTimeout = 90 * time.Second
	defaultPostLoadWait      = 1500 * time.Millisecond
	queryPollInterval        = 100 * time.Millisecond
)

const (
	scriptClick = `function() { this.click(); }`
	scriptClear = `function() {
		this.focus();
		this.value = '';
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	scriptValue     = `function() { return this.value; }`
	scriptSelectAll = `(() => {
		const el = document.activeElement;
		if (el && typeof el.select === 'function') { el.select(); return true; }
		document.execCommand('selectAll');
		return false;
	})()`
)

// Navigate loads url and waits for the body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL.", zap.String("url", url))

	opCtx, opCancel := CombineContext(s.ctx, ctx)
	defer opCancel()

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	return s.stabilize(opCtx)
}

// stabilize waits for the DOM and then a quiet period for client rendering.
func (s *Session) stabilize(ctx context.Context) error {
	quiet := s.cfg.PostLoadWait
	if quiet <= 0 {
		quiet = defaultPostLoadWait
	}

	stabCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(stabCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("WaitReady failed during stabilization.", zap.Error(err))
	}
	return chromedp.Run(ctx, chromedp.Sleep(quiet))
}

// Query polls until target is attached and visible, or ctx ends.
func (s *Session) Query(ctx context.Context, target selector.Candidate, scope *selector.Candidate) (*cdp.Node, error) {
	expr := locatorExpr(target, scope, true)

	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	ticker := time.NewTicker(queryPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		node, err := lookup(runCtx, expr)
		if node != nil {
			return node, nil
		}
		if err != nil && runCtx.Err() == nil {
			lastErr = err
		}

		select {
		case <-runCtx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("element '%s' not found: %w (last error: %v)", target, runCtx.Err(), lastErr)
			}
			return nil, fmt.Errorf("element '%s' not found: %w", target, runCtx.Err())
		case <-ticker.C:
		}
	}
}

// lookup returns the node for expr, or nil if it does not match right now.
func lookup(ctx context.Context, expr string) (*cdp.Node, error) {
	var found bool
	if err := chromedp.Run(ctx, chromedp.Evaluate("!!"+expr, &found)); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(expr, &nodes, chromedp.ByJSPath)); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

// Present reports whether c is attached to the document right now.
func (s *Session) Present(ctx context.Context, c selector.Candidate) (bool, error) {
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(presenceExpr(c), &found)); err != nil {
		return false, fmt.Errorf("presence check failed for '%s': %w", c, err)
	}
	return found, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, node *cdp.Node) error {
	if err := s.run(ctx, dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID)); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, node *cdp.Node) error {
	if err := s.run(ctx, chromedp.MouseClickNode(node)); err != nil {
		return fmt.Errorf("click action failed: %w", err)
	}
	return nil
}

func (s *Session) ScriptClick(ctx context.Context, node *cdp.Node) error {
	if err := s.callOn(ctx, node, scriptClick, nil); err != nil {
		return fmt.Errorf("script click failed: %w", err)
	}
	return nil
}

// Fill clears the field, types text and reads the value back.
func (s *Session) Fill(ctx context.Context, node *cdp.Node, text string) error {
	s.logger.Debug("Filling field.", zap.Int("text_length", len(text)))

	if err := s.callOn(ctx, node, scriptClear, nil); err != nil {
		return fmt.Errorf("could not clear field: %w", err)
	}
	if err := s.run(ctx, chromedp.KeyEventNode(node, text)); err != nil {
		return fmt.Errorf("type action failed: %w", err)
	}

	var got string
	if err := s.callOn(ctx, node, scriptValue, &got); err != nil {
		return fmt.Errorf("could not read field value: %w", err)
	}
	if strings.TrimSpace(got) != strings.TrimSpace(text) {
		return fmt.Errorf("field holds %q after typing, want %q", got, text)
	}
	return nil
}

// TypeAtFocus selects the focused element's content and types over it.
func (s *Session) TypeAtFocus(ctx context.Context, text string) error {
	if err := s.run(ctx,
		chromedp.Evaluate(scriptSelectAll, nil),
		chromedp.KeyEvent(text),
	); err != nil {
		return fmt.Errorf("typing at focus failed: %w", err)
	}
	return nil
}

func (s *Session) PressEnter(ctx context.Context) error {
	if err := s.run(ctx, chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("enter key failed: %w", err)
	}
	return nil
}

// HTML navigates to url and returns the rendered document.
func (s *Session) HTML(ctx context.Context, url string) (string, error) {
	if err := s.Navigate(ctx, url); err != nil {
		return "", err
	}
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("could not read page HTML: %w", err)
	}
	return html, nil
}

// callOn runs the function declaration fn with node as this. A non-nil out
// receives the JSON-decoded return value.
func (s *Session) callOn(ctx context.Context, node *cdp.Node, fn string, out interface{}) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("could not resolve node: %w", err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script threw: %s", exc.Text)
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
}
