package selector

import (
	"fmt"
	"strings"
)

// Strategy tells the driver how to evaluate a candidate expression.
type Strategy int

const (
	// ByCSS evaluates the expression with querySelector.
	ByCSS Strategy = iota
	// ByXPath evaluates the expression with document.evaluate. Used for
	// matching on visible text, which CSS cannot express.
	ByXPath
)

func (s Strategy) String() string {
	switch s {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

const xpathPrefix = "xpath:"

// Candidate is one way of finding an element.
type Candidate struct {
	Expr     string
	Strategy Strategy
	// Localized marks candidates that match on UI label text.
	Localized bool
}

// CSS returns a structural candidate.
func CSS(expr string) Candidate {
	return Candidate{Expr: expr, Strategy: ByCSS}
}

// XPath returns an XPath candidate.
func XPath(expr string) Candidate {
	return Candidate{Expr: expr, Strategy: ByXPath}
}

// Text returns a candidate matching a tag whose normalized text contains
// label. Use "*" for any tag.
func Text(tag, label string) Candidate {
	c := XPath(fmt.Sprintf("//%s[contains(normalize-space(.), %s)]", tag, xpathLiteral(label)))
	c.Localized = true
	return c
}

// Parse turns a configured expression into a Candidate. Expressions with an
// "xpath:" prefix or that look like a path ("//", "./", "(") are XPath;
// anything else is CSS.
func Parse(expr string) Candidate {
	expr = strings.TrimSpace(expr)
	if rest, ok := strings.CutPrefix(expr, xpathPrefix); ok {
		return XPath(strings.TrimSpace(rest))
	}
	if strings.HasPrefix(expr, "//") || strings.HasPrefix(expr, "./") || strings.HasPrefix(expr, "(") {
		return XPath(expr)
	}
	return CSS(expr)
}

// ParseAll parses every non-blank expression in exprs.
func ParseAll(exprs []string) []Candidate {
	out := make([]Candidate, 0, len(exprs))
	for _, e := range exprs {
		if strings.TrimSpace(e) == "" {
			continue
		}
		out = append(out, Parse(e))
	}
	return out
}

// String returns the canonical form accepted by Parse.
func (c Candidate) String() string {
	if c.Strategy == ByXPath {
		return xpathPrefix + c.Expr
	}
	return c.Expr
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	if len(quoted) == 1 {
		quoted = append(quoted, `""`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
