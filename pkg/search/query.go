// Package search indexes ingested log lines and answers literal and
// regular-expression queries with lazy, restartable cursors.
package search

import (
	"fmt"
	"regexp"
	"strings"
)

// CompileError reports a malformed regular-expression query. The query
// never executes and never degrades to literal matching.
type CompileError struct {
	// Expr is the rejected expression.
	Expr string

	// Err is the underlying regexp error.
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling query %q: %v", e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Query is either a literal substring (with optional case folding) or
// a compiled regular expression.
type Query struct {
	literal  string
	foldCase bool
	re       *regexp.Regexp
}

// Literal builds a substring query. With foldCase the match is
// case-insensitive.
func Literal(text string, foldCase bool) Query {
	return Query{literal: text, foldCase: foldCase}
}

// Regexp compiles a regular-expression query. A malformed expression
// fails immediately with a CompileError.
func Regexp(expr string) (Query, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Query{}, &CompileError{Expr: expr, Err: err}
	}
	return Query{re: re}, nil
}

// IsRegexp reports whether the query is a compiled expression.
func (q Query) IsRegexp() bool {
	return q.re != nil
}

// Match reports whether one line matches the query.
func (q Query) Match(line string) bool {
	if q.re != nil {
		return q.re.MatchString(line)
	}
	if q.foldCase {
		return strings.Contains(strings.ToLower(line), strings.ToLower(q.literal))
	}
	return strings.Contains(line, q.literal)
}

// trigrams returns the lower-cased trigram set a matching line must
// contain, or nil when the query cannot prefilter (regexp queries and
// very short literals).
func (q Query) trigrams() []string {
	if q.re != nil {
		return nil
	}
	folded := strings.ToLower(q.literal)
	if len(folded) < 3 {
		return nil
	}
	seen := make(map[string]bool)
	var tris []string
	for i := 0; i+3 <= len(folded); i++ {
		t := folded[i : i+3]
		if !seen[t] {
			seen[t] = true
			tris = append(tris, t)
		}
	}
	return tris
}
