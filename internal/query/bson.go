package query

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const rankFieldPrefix = "_rank_"

// bsonField maps a logical field to its document key.
func bsonField(f string) string {
	if f == "id" {
		return "_id"
	}
	return f
}

// BSONFilter renders a predicate conjunction as a mongo filter document.
func BSONFilter(preds []Predicate) (bson.D, error) {
	parts := make(bson.A, 0, len(preds))
	for _, p := range preds {
		d, err := bsonExpression(p)
		if err != nil {
			return nil, err
		}
		if d != nil {
			parts = append(parts, d)
		}
	}
	if len(parts) == 0 {
		return bson.D{}, nil
	}
	return bson.D{{Key: "$and", Value: parts}}, nil
}

func bsonExpression(p Predicate) (bson.D, error) {
	switch p := p.(type) {
	case Equals:
		return bson.D{{Key: bsonField(p.Field), Value: p.Value}}, nil
	case Range:
		var bounds bson.D
		if p.Min != nil {
			bounds = append(bounds, bson.E{Key: "$gte", Value: p.Min})
		}
		if p.Max != nil {
			bounds = append(bounds, bson.E{Key: "$lte", Value: p.Max})
		}
		if len(bounds) == 0 {
			return nil, nil
		}
		return bson.D{{Key: bsonField(p.Field), Value: bounds}}, nil
	case SubstringCI:
		if len(p.Fields) == 0 {
			return nil, fmt.Errorf("substring predicate without fields")
		}
		re := primitive.Regex{Pattern: regexp.QuoteMeta(p.Term), Options: "i"}
		ors := make(bson.A, len(p.Fields))
		for i, f := range p.Fields {
			ors[i] = bson.D{{Key: bsonField(f), Value: re}}
		}
		return bson.D{{Key: "$or", Value: ors}}, nil
	case OneOf:
		vals := p.Values
		if vals == nil {
			vals = []any{}
		}
		return bson.D{{Key: bsonField(p.Field), Value: bson.D{{Key: "$in", Value: vals}}}}, nil
	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

// BSONPipeline renders spec as an aggregation: match, computed rank fields,
// sort, window, then the rank fields are removed again.
func BSONPipeline(spec Spec) (mongo.Pipeline, error) {
	filter, err := BSONFilter(spec.Predicates)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: filter}}}

	var (
		rankFields bson.D
		rankNames  bson.A
		order      bson.D
	)
	for _, s := range spec.Sorts {
		field := bsonField(s.Field)
		if s.Rank != nil {
			name := rankFieldPrefix + s.Field
			branches := bson.A{}
			for _, e := range s.Rank.entries() {
				branches = append(branches, bson.D{
					{Key: "case", Value: bson.D{{Key: "$eq", Value: bson.A{"$" + field, e.Value}}}},
					{Key: "then", Value: e.Rank},
				})
			}
			rankFields = append(rankFields, bson.E{Key: name, Value: bson.D{{Key: "$switch", Value: bson.D{
				{Key: "branches", Value: branches},
				{Key: "default", Value: s.Rank.Default},
			}}}})
			rankNames = append(rankNames, name)
			order = append(order, bson.E{Key: name, Value: 1})
			continue
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		order = append(order, bson.E{Key: field, Value: dir})
	}

	if len(rankFields) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: rankFields}})
	}
	if len(order) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: order}})
	}
	if spec.Limit > 0 {
		if off := spec.Offset(); off > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(off)}})
		}
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(spec.Limit)}})
	}
	if len(rankNames) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: rankNames}})
	}
	return pipeline, nil
}
