// Package enginetest provides an in-memory engine.Page for tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/xkilldash9x/linkfeed/internal/selector"
)

// Op names a Page method.
type Op string

const (
	OpNavigate    Op = "navigate"
	OpQuery       Op = "query"
	OpPresent     Op = "present"
	OpScroll      Op = "scroll"
	OpClick       Op = "click"
	OpScriptClick Op = "script_click"
	OpFill        Op = "fill"
	OpTypeAtFocus Op = "type_at_focus"
	OpPressEnter  Op = "press_enter"
)

// ErrDetached is a convenient interaction failure.
var ErrDetached = errors.New("node is detached from document")

// Call records one Page invocation.
type Call struct {
	Op Op
	// Selector is the canonical candidate string, or the selector the
	// node was found with for node operations.
	Selector string
	Scope    string
	Text     string
}

// Hook runs after a successful operation and may change the page.
type Hook func(p *FakePage, call Call)

type element struct {
	node    *cdp.Node
	scope   string
	visible time.Time
}

// FakePage is a scripted DOM. Elements are keyed by candidate string; a
// Query for a missing element blocks until its context ends, like a real
// driver waiting for a selector.
type FakePage struct {
	mu       sync.Mutex
	elements map[string]*element
	bySelID  map[cdp.NodeID]string
	failures map[string]error
	hooks    []Hook
	calls    []Call
	nextID   cdp.NodeID
}

func NewFakePage() *FakePage {
	return &FakePage{
		elements: make(map[string]*element),
		bySelID:  make(map[cdp.NodeID]string),
		failures: make(map[string]error),
	}
}

// Add makes candidates present anywhere on the page.
func (p *FakePage) Add(cands ...selector.Candidate) {
	for _, c := range cands {
		p.add(c, "", time.Time{})
	}
}

// AddWithin makes c present only inside the element matching scope.
func (p *FakePage) AddWithin(scope, c selector.Candidate) {
	p.add(c, scope.String(), time.Time{})
}

// AddAfter makes c present once d has elapsed.
func (p *FakePage) AddAfter(c selector.Candidate, d time.Duration) {
	p.add(c, "", time.Now().Add(d))
}

func (p *FakePage) add(c selector.Candidate, scope string, visible time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	key := c.String()
	p.elements[key] = &element{node: &cdp.Node{NodeID: p.nextID}, scope: scope, visible: visible}
	p.bySelID[p.nextID] = key
}

// Remove detaches c.
func (p *FakePage) Remove(c selector.Candidate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, c.String())
}

// Fail makes op return err when applied to the element found by c. Use the
// zero Candidate for operations that take no node.
func (p *FakePage) Fail(op Op, c selector.Candidate, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[failureKey(op, c.String())] = err
}

// FailText makes op return err when called with text.
func (p *FakePage) FailText(op Op, text string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[failureKey(op, "text="+text)] = err
}

// OnSuccess registers a hook run after every successful operation.
func (p *FakePage) OnSuccess(h Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
}

// Calls returns every recorded call, optionally filtered to ops.
func (p *FakePage) Calls(ops ...Op) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), p.calls...)
	}
	var out []Call
	for _, c := range p.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Selectors returns the Selector field of every call to op.
func (p *FakePage) Selectors(op Op) []string {
	var out []string
	for _, c := range p.Calls(op) {
		out = append(out, c.Selector)
	}
	return out
}

func failureKey(op Op, subject string) string {
	return string(op) + "|" + subject
}

// record appends the call and returns any scripted failure for it.
func (p *FakePage) record(call Call) error {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	err := p.failures[failureKey(call.Op, call.Selector)]
	if err == nil && call.Text != "" {
		err = p.failures[failureKey(call.Op, "text="+call.Text)]
	}
	hooks := append([]Hook(nil), p.hooks...)
	p.mu.Unlock()

	if err != nil {
		return err
	}
	for _, h := range hooks {
		h(p, call)
	}
	return nil
}

func (p *FakePage) lookup(key, scope string) (*cdp.Node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[key]
	if !ok || (!el.visible.IsZero() && time.Now().Before(el.visible)) {
		return nil, false
	}
	if scope != "" {
		// A scope that is not on the page falls back to the document.
		if _, scopePresent := p.elements[scope]; scopePresent && el.scope != scope {
			return nil, false
		}
	}
	return el.node, true
}

func (p *FakePage) selectorOf(node *cdp.Node) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if node == nil {
		return ""
	}
	return p.bySelID[node.NodeID]
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	return p.record(Call{Op: OpNavigate, Text: url})
}

func (p *FakePage) Query(ctx context.Context, target selector.Candidate, scope *selector.Candidate) (*cdp.Node, error) {
	call := Call{Op: OpQuery, Selector: target.String()}
	if scope != nil {
		call.Scope = scope.String()
	}
	if err := p.record(call); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if node, ok := p.lookup(call.Selector, call.Scope); ok {
			return node, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *FakePage) Present(ctx context.Context, c selector.Candidate) (bool, error) {
	if err := p.record(Call{Op: OpPresent, Selector: c.String()}); err != nil {
		return false, err
	}
	_, ok := p.lookup(c.String(), "")
	return ok, nil
}

func (p *FakePage) nodeOp(op Op, node *cdp.Node, text string) error {
	sel := p.selectorOf(node)
	if sel == "" {
		return fmt.Errorf("%s: unknown node", op)
	}
	if _, ok := p.lookup(sel, ""); !ok {
		return ErrDetached
	}
	return p.record(Call{Op: op, Selector: sel, Text: text})
}

func (p *FakePage) ScrollIntoView(ctx context.Context, node *cdp.Node) error {
	return p.nodeOp(OpScroll, node, "")
}

func (p *FakePage) Click(ctx context.Context, node *cdp.Node) error {
	return p.nodeOp(OpClick, node, "")
}

func (p *FakePage) ScriptClick(ctx context.Context, node *cdp.Node) error {
	return p.nodeOp(OpScriptClick, node, "")
}

func (p *FakePage) Fill(ctx context.Context, node *cdp.Node, text string) error {
	return p.nodeOp(OpFill, node, text)
}

func (p *FakePage) TypeAtFocus(ctx context.Context, text string) error {
	return p.record(Call{Op: OpTypeAtFocus, Text: text})
}

func (p *FakePage) PressEnter(ctx context.Context) error {
	return p.record(Call{Op: OpPressEnter})
}
