// Package pgstore implements the store contracts on PostgreSQL through pgx,
// rendering query specs with goqu.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"propflow/api/internal/db"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

const (
	listingsTable  = "listings"
	enquiriesTable = "enquiries"
	usersTable     = "users"
	chatLogsTable  = "chat_logs"
)

// conn is the part of *pgxpool.Pool the stores use.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

//go:embed schema.sql
var schema string

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// New wires every store onto pool.
func New(pool *pgxpool.Pool) store.Stores {
	listings := &ListingStore{pool: pool}
	enquiries := &EnquiryStore{pool: pool}
	return store.Stores{
		Listings:      listings,
		Enquiries:     enquiries,
		Users:         &UserStore{pool: pool},
		Credentials:   &CredentialStore{pool: pool},
		ChatLogs:      &ChatLogStore{pool: pool},
		ListingOwners: listings,
		EnquiryOwners: enquiries,
		Close:         pool.Close,
	}
}

func columnList(cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = goqu.C(c)
	}
	return out
}

func identifiers(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ph, ", ")
}

// insertSQL renders INSERT INTO table (cols) VALUES ($1..$n).
func insertSQL(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, identifiers(cols), placeholders(len(cols)))
}

// updateSQL renders an UPDATE of fields on the row id, returning the given
// columns. Field names must come from an allow-list.
func updateSQL(table, id string, fields map[string]any, returning []string) (string, []any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), i+1))
		args = append(args, fields[k])
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), identifiers(returning)), args
}

// findPage reads one page and the exact total inside a single read-only
// snapshot so both agree.
func findPage[T any](ctx context.Context, pool conn, table string, cols []string, spec query.Spec) ([]T, int64, error) {
	selectSQL, selectArgs, err := query.SelectSQL(table, columnList(cols), spec)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to render %s query: %w", table, err)
	}
	countSQL, countArgs, err := query.CountSQL(table, spec.Unwindowed())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to render %s count: %w", table, err)
	}

	var (
		out   []T
		total int64
	)
	// Read-only, so transient failures are safe to retry.
	err = db.Try(ctx, func(ctx context.Context) error {
		return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, selectSQL, selectArgs...)
			if err != nil {
				return err
			}
			out, err = pgx.CollectRows(rows, pgx.RowToStructByName[T])
			if err != nil {
				return err
			}
			return tx.QueryRow(ctx, countSQL, countArgs...).Scan(&total)
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", table, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, total, nil
}

func count(ctx context.Context, pool conn, table string, preds []query.Predicate) (int64, error) {
	sql, args, err := query.CountSQL(table, query.Spec{Predicates: preds})
	if err != nil {
		return 0, fmt.Errorf("failed to render %s count: %w", table, err)
	}
	var n int64
	if err := pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func groupCount(ctx context.Context, pool conn, table string, preds []query.Predicate, field string) (map[string]int64, error) {
	where, err := query.SQLWhere(preds)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s filter: %w", table, err)
	}
	sql, args, err := goqu.Dialect("postgres").
		From(table).
		Prepared(true).
		Select(goqu.C(field), goqu.COUNT(goqu.Star())).
		Where(where).
		GroupBy(goqu.C(field)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to render %s grouping: %w", table, err)
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group %s by %s: %w", table, field, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s group: %w", table, err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

func ownerOf(ctx context.Context, pool conn, table, id string) (string, error) {
	var owner string
	err := pool.QueryRow(ctx, "SELECT agent_id FROM "+table+" WHERE id = $1", id).Scan(&owner)
	if err != nil {
		return "", translate(err)
	}
	return owner, nil
}

func collectOne[T any](rows pgx.Rows, err error) (*T, error) {
	if err != nil {
		return nil, translate(err)
	}
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, translate(err)
	}
	return v, nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return store.ErrNotFound
	case db.IsPostgresDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return err
	}
}
