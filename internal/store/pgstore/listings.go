package pgstore

import (
	"context"
	"fmt"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

var listingColumns = []string{
	models.ListingFieldID, models.ListingFieldTitle, models.ListingFieldType, models.ListingFieldListingType,
	models.ListingFieldPrice, models.ListingFieldPriceUnit, models.ListingFieldSize, models.ListingFieldLocation,
	models.ListingFieldCity, models.ListingFieldProvince, models.ListingFieldDescription, models.ListingFieldFeatures,
	models.ListingFieldImages, models.ListingFieldStatus, models.ListingFieldViewCount, models.ListingFieldEnquiryCount,
	models.ListingFieldAgentID, models.ListingFieldCreatedBy, models.ListingFieldCreatedAt, models.ListingFieldUpdatedAt,
}

// ListingStore is the postgres listing table.
type ListingStore struct {
	pool conn
}

var (
	_ store.ListingStore = (*ListingStore)(nil)
	_ store.OwnerLookup  = (*ListingStore)(nil)
)

func (s *ListingStore) Find(ctx context.Context, spec query.Spec) ([]models.Listing, int64, error) {
	return findPage[models.Listing](ctx, s.pool, listingsTable, listingColumns, spec)
}

func (s *ListingStore) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+identifiers(listingColumns)+" FROM listings WHERE id = $1", id)
	return collectOne[models.Listing](rows, err)
}

func (s *ListingStore) Insert(ctx context.Context, l *models.Listing) error {
	_, err := s.pool.Exec(ctx, insertSQL(listingsTable, listingColumns),
		l.ID, l.Title, l.Type, l.ListingType,
		l.Price, l.PriceUnit, l.SizeSqm, l.Location,
		l.City, l.Province, l.Description, l.Features,
		l.Images, l.Status, l.ViewCount, l.EnquiryCount,
		l.AgentID, l.CreatedBy, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert listing %s: %w", l.ID, translate(err))
	}
	return nil
}

func (s *ListingStore) Update(ctx context.Context, id string, fields map[string]any) (*models.Listing, error) {
	sql, args := updateSQL(listingsTable, id, fields, listingColumns)
	rows, err := s.pool.Query(ctx, sql, args...)
	return collectOne[models.Listing](rows, err)
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM listings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *ListingStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	return count(ctx, s.pool, listingsTable, preds)
}

// IncrementViewCounts bumps view_count by one on every listed id in a single
// statement. It is attempted once: a write that timed out may still have
// been applied.
func (s *ListingStore) IncrementViewCounts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, "UPDATE listings SET view_count = view_count + 1 WHERE id = ANY($1::uuid[])", ids)
	if err != nil {
		return fmt.Errorf("failed to increment view counts: %w", err)
	}
	return nil
}

func (s *ListingStore) IncrementEnquiryCount(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE listings SET enquiry_count = enquiry_count + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment enquiry count of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *ListingStore) GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error) {
	return groupCount(ctx, s.pool, listingsTable, preds, field)
}

func (s *ListingStore) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, s.pool, listingsTable, id)
}
