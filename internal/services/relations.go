package services

import (
	"context"
	"fmt"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

// byID builds a single unwindowed OneOf read over ids.
func byID(ids []string) query.Spec {
	return query.Spec{Predicates: []query.Predicate{query.OneOf{Field: "id", Values: query.Values(ids)}}}
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func loadUsers(ctx context.Context, users store.UserStore, ids []string) (map[string]*models.User, error) {
	ids = uniq(ids)
	out := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := users.Find(ctx, byID(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// attachAgents sets Listing.Agent on every listing of the page with one read.
// Contact email is included only when withEmail is set.
func attachAgents(ctx context.Context, users store.UserStore, ls []models.Listing, withEmail bool) error {
	ids := make([]string, len(ls))
	for i := range ls {
		ids[i] = ls[i].AgentID
	}
	byUser, err := loadUsers(ctx, users, ids)
	if err != nil {
		return err
	}
	for i := range ls {
		if u, ok := byUser[ls[i].AgentID]; ok {
			ls[i].Agent = u.Summary()
			if !withEmail {
				ls[i].Agent.Email = ""
			}
		}
	}
	return nil
}

// attachEnquiryRelations sets the listing and agent summaries of a page of
// enquiries. Enquiries whose listing was deleted keep a nil Listing.
func attachEnquiryRelations(ctx context.Context, listings store.ListingStore, users store.UserStore, es []models.Enquiry) error {
	listingIDs := make([]string, len(es))
	agentIDs := make([]string, len(es))
	for i := range es {
		listingIDs[i] = es[i].ListingID
		agentIDs[i] = es[i].AgentID
	}

	byListing := map[string]*models.Listing{}
	if ids := uniq(listingIDs); len(ids) > 0 {
		rows, _, err := listings.Find(ctx, byID(ids))
		if err != nil {
			return fmt.Errorf("failed to load listings: %w", err)
		}
		for i := range rows {
			byListing[rows[i].ID] = &rows[i]
		}
	}
	byUser, err := loadUsers(ctx, users, agentIDs)
	if err != nil {
		return err
	}

	for i := range es {
		if l, ok := byListing[es[i].ListingID]; ok {
			es[i].Listing = l.Summary()
		}
		if u, ok := byUser[es[i].AgentID]; ok {
			es[i].Agent = &models.AgentSummary{ID: u.ID, FullName: u.FullName}
		}
	}
	return nil
}
