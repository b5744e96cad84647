package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propflow/api/internal/db"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
	"propflow/api/internal/utils"
)

func setup(t *testing.T) store.Stores {
	t.Helper()
	database := utils.SetupTestMongo(t, "propflow_test",
		listingsCollection, enquiriesCollection, usersCollection, credentialsCollection, chatLogsCollection)
	require.NoError(t, EnsureIndexes(context.Background(), database))
	s := New(&db.Mongo{Client: database.Client(), Database: database})
	s.Close = func() {}
	return s
}

func listing(agentID, title string, status models.ListingStatus, created time.Time) *models.Listing {
	return &models.Listing{
		ID: utils.NewID(), Title: title, Type: models.PropertyRetail, ListingType: models.ListingForSale,
		Price: 2500000, PriceUnit: "total", SizeSqm: 300, Location: "Canal Walk", City: "Cape Town",
		Province: "Western Cape", Features: map[string]any{}, Images: []string{}, Status: status,
		AgentID: agentID, CreatedBy: agentID, CreatedAt: created, UpdatedAt: created,
	}
}

func TestListingStore_RankedPipeline(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	active := listing("a1", "Newest active", models.StatusActive, now)
	featured := listing("a1", "Older featured", models.StatusFeatured, now.Add(-time.Hour))
	draft := listing("a1", "Hidden draft", models.StatusDraft, now.Add(time.Hour))
	for _, l := range []*models.Listing{active, featured, draft} {
		require.NoError(t, s.Listings.Insert(ctx, l))
	}

	spec := query.Spec{
		Predicates: []query.Predicate{query.OneOf{Field: "status", Values: []any{"active", "featured"}}},
		Sorts:      []query.Sort{query.Desc("created_at"), query.ByRank("status", query.StatusRank)},
		Page:       1,
		Limit:      1,
	}
	rows, total, err := s.Listings.Find(ctx, spec)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 1)
	assert.Equal(t, active.ID, rows[0].ID)

	spec.Sorts = []query.Sort{query.ByRank("status", query.StatusRank), query.Desc("created_at")}
	rows, _, err = s.Listings.Find(ctx, spec)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, featured.ID, rows[0].ID)
}

func TestListingStore_CountersAndOwner(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	l := listing("a9", "Counter listing", models.StatusActive, time.Now().UTC())
	require.NoError(t, s.Listings.Insert(ctx, l))

	require.NoError(t, s.Listings.IncrementViewCounts(ctx, []string{l.ID}))
	require.NoError(t, s.Listings.IncrementEnquiryCount(ctx, l.ID))
	got, err := s.Listings.FindByID(ctx, l.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ViewCount)
	assert.EqualValues(t, 1, got.EnquiryCount)

	owner, err := s.ListingOwners.OwnerOf(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "a9", owner)

	assert.ErrorIs(t, s.Listings.IncrementEnquiryCount(ctx, utils.NewID()), store.ErrNotFound)

	groups, err := s.Listings.GroupCount(ctx, nil, "type")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"retail": 1}, groups)
}

func TestCredentialStore_CaseInsensitiveEmail(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Credentials.Save(ctx, &models.Credentials{UserID: "u1", Email: "Agent@PropFlow.test", PasswordHash: "h1"}))
	require.NoError(t, s.Credentials.Save(ctx, &models.Credentials{UserID: "u1", Email: "agent@propflow.test", PasswordHash: "h2"}))

	c, err := s.Credentials.FindByEmail(ctx, "AGENT@propflow.test")
	require.NoError(t, err)
	assert.Equal(t, "h2", c.PasswordHash)

	_, err = s.Credentials.FindByEmail(ctx, "nobody@propflow.test")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
