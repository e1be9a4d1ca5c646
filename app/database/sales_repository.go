package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/market-comb/app/market"
)

// SalesRepository handles database operations for reposted listings
type SalesRepository struct {
	q       querier
	dialect Dialect
}

func NewSalesRepository(q querier, dialect Dialect) *SalesRepository {
	return &SalesRepository{q: q, dialect: dialect}
}

// FindRecentUnstructured returns the id of an unstructured record by author
// created after since, or "" when there is none.
func (r *SalesRepository) FindRecentUnstructured(ctx context.Context, author string, since time.Time) (string, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `
		SELECT id FROM sales_threads
		WHERE author = ? AND unstructured = 1 AND created > ?
		LIMIT 1
	`, author, since.Unix()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storeError("check recent listings", err)
	}
	return id, nil
}

func (r *SalesRepository) Insert(ctx context.Context, rec market.Record) error {
	data, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	_, err = r.q.ExecContext(ctx, `
		INSERT INTO sales_threads (id, author, created, unstructured, approved, promoted, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Author, rec.CreatedAt.Unix(),
		boolToInt(rec.Unstructured), boolToInt(rec.Approved), boolToInt(rec.Promoted),
		string(data))
	if err != nil {
		return storeError("insert listing", err)
	}
	return nil
}

// ListExpired returns records created strictly before cutoff. Only id, author
// and creation time are populated.
func (r *SalesRepository) ListExpired(ctx context.Context, cutoff time.Time) ([]market.Record, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, author, created FROM sales_threads
		WHERE created < ?
		ORDER BY created
	`, cutoff.Unix())
	if err != nil {
		return nil, storeError("list expired listings", err)
	}
	defer rows.Close()

	var records []market.Record
	for rows.Next() {
		var rec market.Record
		var created int64
		if err := rows.Scan(&rec.ID, &rec.Author, &created); err != nil {
			return nil, storeError("scan expired listing", err)
		}
		rec.CreatedAt = time.Unix(created, 0)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate expired listings", err)
	}
	return records, nil
}

// DeleteByIDs removes the given records in one statement.
func (r *SalesRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := r.q.ExecContext(ctx, "DELETE FROM sales_threads WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, storeError("delete listings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError("count deleted listings", err)
	}
	return n, nil
}

// ListApproved returns approved records, newest first. Rows with an
// unreadable payload are skipped.
func (r *SalesRepository) ListApproved(ctx context.Context) ([]market.Record, error) {
	return r.list(ctx, "WHERE approved = 1", 0)
}

// ListRecent returns up to limit records regardless of state, newest first.
func (r *SalesRepository) ListRecent(ctx context.Context, limit int) ([]market.Record, error) {
	return r.list(ctx, "", limit)
}

func (r *SalesRepository) list(ctx context.Context, where string, limit int) ([]market.Record, error) {
	query := "SELECT id, author, created, unstructured, approved, promoted, data FROM sales_threads " +
		where + " ORDER BY created DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list listings", err)
	}
	defer rows.Close()

	var records []market.Record
	for rows.Next() {
		var rec market.Record
		var created int64
		var unstructured, approved, promoted int
		var data string
		if err := rows.Scan(&rec.ID, &rec.Author, &created, &unstructured, &approved, &promoted, &data); err != nil {
			return nil, storeError("scan listing", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Payload); err != nil {
			slog.Warn("Skipping listing with unreadable payload", "id", rec.ID, "error", err)
			continue
		}
		rec.CreatedAt = time.Unix(created, 0)
		rec.Unstructured = unstructured != 0
		rec.Approved = approved != 0
		rec.Promoted = promoted != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate listings", err)
	}
	return records, nil
}

// SetPromoted flips the promoted flag. It reports false when no record matched.
func (r *SalesRepository) SetPromoted(ctx context.Context, id string, promoted bool) (bool, error) {
	res, err := r.q.ExecContext(ctx, "UPDATE sales_threads SET promoted = ? WHERE id = ?", boolToInt(promoted), id)
	if err != nil {
		return false, storeError("update listing", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError("update listing", err)
	}
	// MySQL reports zero affected rows when the value is unchanged.
	if n == 0 && r.dialect.Name == MySQL.Name {
		var exists int
		err := r.q.QueryRowContext(ctx, "SELECT 1 FROM sales_threads WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, storeError("update listing", err)
		}
		return true, nil
	}
	return n > 0, nil
}

// GetStats returns total, approved and promoted record counts.
func (r *SalesRepository) GetStats(ctx context.Context) (total, approved, promoted int, err error) {
	err = r.q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN approved = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN promoted = 1 THEN 1 ELSE 0 END), 0)
		FROM sales_threads
	`).Scan(&total, &approved, &promoted)
	if err != nil {
		return 0, 0, 0, storeError("get listing stats", err)
	}
	return total, approved, promoted, nil
}
