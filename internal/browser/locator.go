// internal/browser/locator.go
package browser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xkilldash9x/linkfeed/internal/selector"
)

// xpathFirst evaluates an XPath to its first node. 9 is FIRST_ORDERED_NODE_TYPE.
const xpathFirst = `document.evaluate(%s, %s, null, 9, null).singleNodeValue`

// visibleGuard drops elements without a layout box.
const visibleGuard = `(el => el && (el.offsetParent !== null || el.getClientRects().length > 0) ? el : null)(%s)`

// locatorExpr builds a script expression evaluating to the element for
// target, or null. With a scope the search is rooted at the first element
// matching it; a missing scope element falls back to the document.
func locatorExpr(target selector.Candidate, scope *selector.Candidate, visibleOnly bool) string {
	root := "document"
	if scope != nil {
		root = fmt.Sprintf("(%s || document)", findIn(*scope, "document", false))
	}
	expr := findIn(target, root, scope != nil)
	if visibleOnly {
		expr = fmt.Sprintf(visibleGuard, expr)
	}
	return expr
}

// presenceExpr evaluates to true when target is attached to the document.
func presenceExpr(target selector.Candidate) string {
	return "!!" + locatorExpr(target, nil, false)
}

func findIn(c selector.Candidate, root string, relative bool) string {
	if c.Strategy == selector.ByXPath {
		expr := c.Expr
		if relative && strings.HasPrefix(expr, "//") {
			// An absolute path ignores the context node.
			expr = "." + expr
		}
		return fmt.Sprintf(xpathFirst, jsString(expr), root)
	}
	return fmt.Sprintf("%s.querySelector(%s)", root, jsString(c.Expr))
}

func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshal only fails for invalid UTF-8, which it replaces anyway.
		return `""`
	}
	return string(b)
}
