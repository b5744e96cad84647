package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBSONFilter_Empty(t *testing.T) {
	f, err := BSONFilter(nil)
	require.NoError(t, err)
	assert.Equal(t, bson.D{}, f)
}

func TestBSONFilter_PredicateKinds(t *testing.T) {
	f, err := BSONFilter([]Predicate{
		Equals{Field: "id", Value: "abc"},
		Range{Field: "price", Min: 10.0},
		SubstringCI{Fields: []string{"title", "city"}, Term: "a.b"},
		OneOf{Field: "status"},
	})
	require.NoError(t, err)

	re := primitive.Regex{Pattern: `a\.b`, Options: "i"}
	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "_id", Value: "abc"}},
		bson.D{{Key: "price", Value: bson.D{{Key: "$gte", Value: 10.0}}}},
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: re}},
			bson.D{{Key: "city", Value: re}},
		}}},
		bson.D{{Key: "status", Value: bson.D{{Key: "$in", Value: []any{}}}}},
	}}}
	assert.Equal(t, want, f)
}

func stageKeys(p []bson.D) []string {
	keys := make([]string, len(p))
	for i, stage := range p {
		keys[i] = stage[0].Key
	}
	return keys
}

func TestBSONPipeline_RankSortAndWindow(t *testing.T) {
	spec := Spec{
		Sorts: []Sort{Asc("price"), ByRank("status", StatusRank)},
		Page:  2,
		Limit: 12,
	}

	p, err := BSONPipeline(spec)
	require.NoError(t, err)

	assert.Equal(t, []string{"$match", "$addFields", "$sort", "$skip", "$limit", "$unset"}, stageKeys(p))
	assert.Equal(t, bson.D{{Key: "price", Value: 1}, {Key: "_rank_status", Value: 1}}, p[2][0].Value)
	assert.Equal(t, int64(12), p[3][0].Value)
	assert.Equal(t, int64(12), p[4][0].Value)
}

func TestBSONPipeline_FirstPageHasNoSkip(t *testing.T) {
	p, err := BSONPipeline(Spec{Sorts: []Sort{Desc("view_count")}, Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []string{"$match", "$sort", "$limit"}, stageKeys(p))
	assert.Equal(t, bson.D{{Key: "view_count", Value: -1}}, p[1][0].Value)
}
