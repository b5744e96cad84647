package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

var enquiryColumns = []string{
	"id", "listing_id", "agent_id", "user_id", "name", "email", "phone", "message",
	"viewing_requested", "viewing_date", "status", "created_at", "updated_at",
}

// EnquiryStore is the postgres enquiry table.
type EnquiryStore struct {
	pool *pgxpool.Pool
}

var (
	_ store.EnquiryStore = (*EnquiryStore)(nil)
	_ store.OwnerLookup  = (*EnquiryStore)(nil)
)

func (s *EnquiryStore) Find(ctx context.Context, spec query.Spec) ([]models.Enquiry, int64, error) {
	return findPage[models.Enquiry](ctx, s.pool, enquiriesTable, enquiryColumns, spec)
}

func (s *EnquiryStore) Insert(ctx context.Context, e *models.Enquiry) error {
	_, err := s.pool.Exec(ctx, insertSQL(enquiriesTable, enquiryColumns),
		e.ID, e.ListingID, e.AgentID, e.UserID, e.Name, e.Email, e.Phone, e.Message,
		e.ViewingRequested, e.ViewingDate, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert enquiry %s: %w", e.ID, translate(err))
	}
	return nil
}

func (s *EnquiryStore) UpdateStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	sql, args := updateSQL(enquiriesTable, id, map[string]any{models.EnquiryFieldStatus: status}, enquiryColumns)
	rows, err := s.pool.Query(ctx, sql, args...)
	return collectOne[models.Enquiry](rows, err)
}

func (s *EnquiryStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	return count(ctx, s.pool, enquiriesTable, preds)
}

func (s *EnquiryStore) CreatedSince(ctx context.Context, preds []query.Predicate, since time.Time) ([]time.Time, error) {
	spec := query.Spec{Predicates: preds}.And(query.Range{Field: models.EnquiryFieldCreatedAt, Min: since})
	sql, args, err := query.SelectSQL(enquiriesTable, columnList([]string{models.EnquiryFieldCreatedAt}), spec)
	if err != nil {
		return nil, fmt.Errorf("failed to render enquiry timeline: %w", err)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enquiry timeline: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan enquiry timeline: %w", err)
		}
		out = append(out, at)
	}
	return out, rows.Err()
}

func (s *EnquiryStore) GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error) {
	return groupCount(ctx, s.pool, enquiriesTable, preds, field)
}

func (s *EnquiryStore) OwnerOf(ctx context.Context, id string) (string, error) {
	return ownerOf(ctx, s.pool, enquiriesTable, id)
}
