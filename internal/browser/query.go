package browser

import (
	"fmt"
	"strings"
)

// By is an element selection strategy.
type By string

const (
	ByXPath By = "xpath"
	ByCSS   By = "css"
	ByID    By = "id"
)

// Valid reports whether b is a supported strategy.
func (b By) Valid() bool {
	switch b {
	case ByXPath, ByCSS, ByID:
		return true
	}
	return false
}

// Query identifies zero or more DOM nodes. It is an immutable value; pages keep their
// queries as configuration and only derive new ones through Format.
type Query struct {
	By       By     `mapstructure:"by" yaml:"by"`
	Selector string `mapstructure:"selector" yaml:"selector"`
}

// XPath is shorthand for an XPath query.
func XPath(selector string) Query {
	return Query{By: ByXPath, Selector: selector}
}

// CSS is shorthand for a CSS selector query.
func CSS(selector string) Query {
	return Query{By: ByCSS, Selector: selector}
}

// Format treats the selector as a fmt template and returns the query with args applied.
// Used for index- and label-parameterized selectors such as breadcrumb positions.
func (q Query) Format(args ...any) Query {
	return Query{By: q.By, Selector: fmt.Sprintf(q.Selector, args...)}
}

func (q Query) String() string {
	return fmt.Sprintf("%s=%s", q.By, q.Selector)
}

// XPathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape sequences,
// so a string containing both quote kinds is assembled with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, `'`) {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, `'`)
	var b strings.Builder
	b.WriteString("concat(")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'")
		b.WriteString(part)
		b.WriteString("'")
	}
	b.WriteString(")")
	return b.String()
}
