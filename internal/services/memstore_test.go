package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

// memListings evaluates query specs against rows held in memory. Only the
// read path and the view counter are implemented.
type memListings struct {
	store.ListingStore

	mu   sync.Mutex
	rows []models.Listing
}

func (m *memListings) Find(_ context.Context, spec query.Spec) ([]models.Listing, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []models.Listing
	for _, l := range m.rows {
		ok := true
		for _, p := range spec.Predicates {
			if !matches(l, p) {
				ok = false
				break
			}
		}
		if ok {
			hits = append(hits, l)
		}
	}
	slices.SortStableFunc(hits, func(a, b models.Listing) int {
		for _, s := range spec.Sorts {
			if c := compareBy(a, b, s); c != 0 {
				return c
			}
		}
		return 0
	})

	total := int64(len(hits))
	if spec.Limit > 0 {
		start := min(spec.Offset(), len(hits))
		end := min(start+spec.Limit, len(hits))
		hits = hits[start:end]
	}
	return hits, total, nil
}

func (m *memListings) IncrementViewCounts(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if slices.Contains(ids, m.rows[i].ID) {
			m.rows[i].ViewCount++
		}
	}
	return nil
}

func (m *memListings) viewCount(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.rows {
		if l.ID == id {
			return l.ViewCount
		}
	}
	return -1
}

func field(l models.Listing, name string) any {
	switch name {
	case models.ListingFieldID:
		return l.ID
	case models.ListingFieldTitle:
		return l.Title
	case models.ListingFieldType:
		return string(l.Type)
	case models.ListingFieldListingType:
		return string(l.ListingType)
	case models.ListingFieldPrice:
		return l.Price
	case models.ListingFieldSize:
		return l.SizeSqm
	case models.ListingFieldLocation:
		return l.Location
	case models.ListingFieldCity:
		return l.City
	case models.ListingFieldProvince:
		return l.Province
	case models.ListingFieldStatus:
		return string(l.Status)
	case models.ListingFieldViewCount:
		return float64(l.ViewCount)
	case models.ListingFieldAgentID:
		return l.AgentID
	case models.ListingFieldCreatedAt:
		return float64(l.CreatedAt.UnixNano())
	}
	panic("memListings: unknown field " + name)
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	panic(fmt.Sprintf("memListings: not a number %T", v))
}

func matches(l models.Listing, p query.Predicate) bool {
	switch p := p.(type) {
	case query.Equals:
		return fmt.Sprint(field(l, p.Field)) == fmt.Sprint(p.Value)
	case query.Range:
		v := number(field(l, p.Field))
		if p.Min != nil && v < number(p.Min) {
			return false
		}
		return p.Max == nil || v <= number(p.Max)
	case query.SubstringCI:
		for _, f := range p.Fields {
			if strings.Contains(strings.ToLower(fmt.Sprint(field(l, f))), strings.ToLower(p.Term)) {
				return true
			}
		}
		return false
	case query.OneOf:
		v := fmt.Sprint(field(l, p.Field))
		for _, want := range p.Values {
			if fmt.Sprint(want) == v {
				return true
			}
		}
		return false
	}
	panic(fmt.Sprintf("memListings: unknown predicate %T", p))
}

func compareBy(a, b models.Listing, s query.Sort) int {
	var c int
	if s.Rank != nil {
		c = s.Rank.Of(fmt.Sprint(field(a, s.Field))) - s.Rank.Of(fmt.Sprint(field(b, s.Field)))
	} else {
		va, vb := field(a, s.Field), field(b, s.Field)
		switch x := va.(type) {
		case float64:
			c = cmpFloat(x, vb.(float64))
		default:
			c = strings.Compare(fmt.Sprint(va), fmt.Sprint(vb))
		}
	}
	if s.Desc {
		return -c
	}
	return c
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
