// Package query builds datastore-neutral query specs from request filters
// and renders them to SQL and BSON.
package query

// Predicate is one atomic filter condition. The set of implementations is
// closed: Equals, Range, SubstringCI and OneOf.
type Predicate interface {
	predicate()
}

// Equals matches records whose Field equals Value.
type Equals struct {
	Field string
	Value any
}

// Range matches records whose Field lies in the inclusive interval [Min, Max].
// A nil bound leaves that side open.
type Range struct {
	Field string
	Min   any
	Max   any
}

// SubstringCI matches records where any of Fields contains Term, ignoring case.
type SubstringCI struct {
	Fields []string
	Term   string
}

// OneOf matches records whose Field is any of Values. Empty Values matches nothing.
type OneOf struct {
	Field  string
	Values []any
}

func (Equals) predicate()      {}
func (Range) predicate()       {}
func (SubstringCI) predicate() {}
func (OneOf) predicate()       {}

// Values converts a typed slice to the []any held by OneOf.
func Values[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
