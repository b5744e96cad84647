package query

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
)

const dialectPostgres = "postgres"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQLWhere renders a predicate conjunction as a goqu expression.
func SQLWhere(preds []Predicate) (exp.ExpressionList, error) {
	parts := make([]exp.Expression, 0, len(preds))
	for _, p := range preds {
		e, err := sqlExpression(p)
		if err != nil {
			return nil, err
		}
		if e != nil {
			parts = append(parts, e)
		}
	}
	return goqu.And(parts...), nil
}

func sqlExpression(p Predicate) (exp.Expression, error) {
	switch p := p.(type) {
	case Equals:
		return goqu.C(p.Field).Eq(p.Value), nil
	case Range:
		var parts []exp.Expression
		if p.Min != nil {
			parts = append(parts, goqu.C(p.Field).Gte(p.Min))
		}
		if p.Max != nil {
			parts = append(parts, goqu.C(p.Field).Lte(p.Max))
		}
		if len(parts) == 0 {
			return nil, nil
		}
		return goqu.And(parts...), nil
	case SubstringCI:
		if len(p.Fields) == 0 {
			return nil, fmt.Errorf("substring predicate without fields")
		}
		pattern := "%" + likeEscaper.Replace(p.Term) + "%"
		ors := make([]exp.Expression, len(p.Fields))
		for i, f := range p.Fields {
			ors[i] = goqu.C(f).ILike(pattern)
		}
		return goqu.Or(ors...), nil
	case OneOf:
		if len(p.Values) == 0 {
			return goqu.L("FALSE"), nil
		}
		return goqu.C(p.Field).In(p.Values...), nil
	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

// SQLOrder renders sort keys. Rank keys become a CASE over the rank table.
func SQLOrder(sorts []Sort) []exp.OrderedExpression {
	out := make([]exp.OrderedExpression, 0, len(sorts))
	for _, s := range sorts {
		if s.Rank != nil {
			c := goqu.Case().Value(goqu.C(s.Field))
			for _, e := range s.Rank.entries() {
				c = c.When(e.Value, goqu.Cast(goqu.V(e.Rank), "INTEGER"))
			}
			out = append(out, c.Else(goqu.Cast(goqu.V(s.Rank.Default), "INTEGER")).Asc())
			continue
		}
		if s.Desc {
			out = append(out, goqu.I(s.Field).Desc())
		} else {
			out = append(out, goqu.I(s.Field).Asc())
		}
	}
	return out
}

// SelectSQL renders a prepared SELECT of columns from table for spec.
func SelectSQL(table string, columns []any, spec Spec) (string, []any, error) {
	where, err := SQLWhere(spec.Predicates)
	if err != nil {
		return "", nil, err
	}
	ds := goqu.Dialect(dialectPostgres).
		From(table).
		Prepared(true).
		Select(columns...).
		Where(where)
	if order := SQLOrder(spec.Sorts); len(order) > 0 {
		ds = ds.Order(order...)
	}
	if spec.Limit > 0 {
		ds = ds.Limit(uint(spec.Limit)).Offset(uint(spec.Offset()))
	}
	return ds.ToSQL()
}

// CountSQL renders a prepared exact count of the rows matching spec.
func CountSQL(table string, spec Spec) (string, []any, error) {
	where, err := SQLWhere(spec.Predicates)
	if err != nil {
		return "", nil, err
	}
	return goqu.Dialect(dialectPostgres).
		From(table).
		Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(where).
		ToSQL()
}
