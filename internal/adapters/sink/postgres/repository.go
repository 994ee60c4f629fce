// Package postgres is a sink that writes batches straight into Postgres.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/domain/model"
)

// DB is the subset of pgxpool.Pool the sink needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

var storedColumns = []string{"id::text", "food_name", "disposal_mass", "location", "session_id", "created_at"}

// Repository inserts food-waste batches with a single multi-row statement.
type Repository struct {
	db DB
}

// NewRepository wraps db.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

func buildInsert(table string, records []model.Record) (string, []any, error) {
	builder := squirrel.
		Insert(table).
		Columns("food_name", "disposal_mass", "location", "session_id").
		PlaceholderFormat(squirrel.Dollar).
		Suffix("RETURNING " + strings.Join(storedColumns, ", "))
	for _, r := range records {
		builder = builder.Values(r.FoodName, r.DisposalMass, nullableText(r.Location), r.SessionID)
	}
	return builder.ToSql()
}

func buildRecent(table string, since time.Time, limit int) (string, []any, error) {
	builder := squirrel.
		Select(storedColumns...).
		From(table).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return builder.ToSql()
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Insert writes records in one statement and returns the inserted rows.
func (r *Repository) Insert(ctx context.Context, table string, records []model.Record) ([]model.StoredRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	query, args, err := buildInsert(table, records)
	if err != nil {
		return nil, fmt.Errorf("%w: build insert: %w", sink.ErrInsert, err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrInsert, err)
	}
	stored, err := scanStored(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrInsert, err)
	}
	return stored, nil
}

// Recent returns rows created at or after since, newest first.
func (r *Repository) Recent(ctx context.Context, table string, since time.Time, limit int) ([]model.StoredRecord, error) {
	query, args, err := buildRecent(table, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %w", sink.ErrRead, err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrRead, err)
	}
	stored, err := scanStored(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sink.ErrRead, err)
	}
	return stored, nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context, _ string) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", sink.ErrPing, err)
	}
	return nil
}

func scanStored(rows pgx.Rows) ([]model.StoredRecord, error) {
	defer rows.Close()
	var out []model.StoredRecord
	for rows.Next() {
		var (
			rec      model.StoredRecord
			location *string
		)
		if err := rows.Scan(&rec.ID, &rec.FoodName, &rec.DisposalMass, &location, &rec.SessionID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if location != nil {
			rec.Location = *location
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
