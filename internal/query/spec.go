package query

import (
	"math"
	"sort"
)

// RankTable orders a field by an explicit value-to-rank mapping instead of
// lexical order. Unlisted values get Default.
type RankTable struct {
	Ranks   map[string]int
	Default int
}

// Of returns the rank of v.
func (t *RankTable) Of(v string) int {
	if r, ok := t.Ranks[v]; ok {
		return r
	}
	return t.Default
}

type rankEntry struct {
	Value string
	Rank  int
}

// entries returns the table ordered by rank then value, so renderings are stable.
func (t *RankTable) entries() []rankEntry {
	out := make([]rankEntry, 0, len(t.Ranks))
	for v, r := range t.Ranks {
		out = append(out, rankEntry{Value: v, Rank: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// StatusRank puts featured listings ahead of active ones.
var StatusRank = &RankTable{
	Ranks:   map[string]int{"featured": 0, "active": 1},
	Default: 2,
}

// Sort is one ordering key. When Rank is set the key is the rank of the
// field value, ascending, and Desc is ignored.
type Sort struct {
	Field string
	Desc  bool
	Rank  *RankTable
}

func Asc(field string) Sort  { return Sort{Field: field} }
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

// ByRank orders field by table.
func ByRank(field string, table *RankTable) Sort { return Sort{Field: field, Rank: table} }

// Spec is the resolved query for one request: a conjunction of predicates,
// ordered sort keys and a page window. Limit 0 disables the window.
type Spec struct {
	Predicates []Predicate
	Sorts      []Sort
	Page       int
	Limit      int
}

// Offset is the zero-based index of the first row of the page. It saturates
// at math.MaxInt instead of overflowing.
func (s Spec) Offset() int {
	if s.Limit <= 0 || s.Page <= 1 {
		return 0
	}
	if s.Page-1 > math.MaxInt/s.Limit {
		return math.MaxInt
	}
	return (s.Page - 1) * s.Limit
}

// Scoped returns a copy of s with base placed ahead of its own predicates.
func (s Spec) Scoped(base []Predicate) Spec {
	preds := make([]Predicate, 0, len(base)+len(s.Predicates))
	preds = append(preds, base...)
	preds = append(preds, s.Predicates...)
	s.Predicates = preds
	return s
}

// And returns a copy of s with extra predicates appended.
func (s Spec) And(extra ...Predicate) Spec {
	preds := make([]Predicate, 0, len(s.Predicates)+len(extra))
	preds = append(preds, s.Predicates...)
	preds = append(preds, extra...)
	s.Predicates = preds
	return s
}

// Unwindowed returns a copy of s without sorting or paging, for counts.
func (s Spec) Unwindowed() Spec {
	s.Sorts = nil
	s.Page = 0
	s.Limit = 0
	return s
}

// Pagination is the page metadata returned beside a page of results.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes total pages as ceil(total/limit).
func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return p
}
