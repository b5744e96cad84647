package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"propflow/api/internal/apperr"
)

const (
	DefaultPublicLimit = 12
	DefaultAdminLimit  = 20
	MaxLimit           = 50
	// MaxPage keeps (page-1)*limit well inside int for any clamped limit.
	MaxPage = 1_000_000_000
)

func parsePage(v url.Values) (int, error) {
	raw := strings.TrimSpace(v.Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, apperr.Validationf("page must be an integer >= 1")
	}
	return min(page, MaxPage), nil
}

// parseLimit applies the default when absent and clamps to MaxLimit.
func parseLimit(v url.Values, def int) (int, error) {
	raw := strings.TrimSpace(v.Get("limit"))
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperr.Validationf("limit must be an integer >= 1")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}

// parseNumber accepts finite decimal numbers only. NaN, infinities and hex
// floats are rejected.
func parseNumber(v url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	if strings.ContainsAny(raw, "xX_") {
		return nil, apperr.Validationf("%s must be numeric", key)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperr.Validationf("%s must be numeric", key)
	}
	return &f, nil
}

func parseBool(v url.Values, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Validationf("%s must be true or false", key)
	}
	return b, nil
}

// parseEnum returns the trimmed value of key, which must satisfy valid when present.
func parseEnum(v url.Values, key string, valid func(string) bool) (string, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return "", nil
	}
	if !valid(raw) {
		return "", apperr.Validationf("invalid %s", key)
	}
	return raw, nil
}

func parseID(v url.Values, key string) (string, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Validationf("%s must be a UUID", key)
	}
	return id.String(), nil
}

// rangeOf builds a Range from optional bounds, or nil when both are absent.
func rangeOf(field string, lo, hi *float64) Predicate {
	if lo == nil && hi == nil {
		return nil
	}
	r := Range{Field: field}
	if lo != nil {
		r.Min = *lo
	}
	if hi != nil {
		r.Max = *hi
	}
	return r
}
