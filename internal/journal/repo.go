package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/pastename/internal/models"
)

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 50

// Store defines the journal operations consumers depend on.
type Store interface {
	Record(ctx context.Context, n models.Notice) (int64, error)
	Recent(ctx context.Context, limit int, level string) ([]models.Notice, error)
	Prune(ctx context.Context, keep int) (int64, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Record appends a notice and returns its id.
func (db *DB) Record(ctx context.Context, n models.Notice) (int64, error) {
	at := n.At
	if at.IsZero() {
		at = time.Now()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO notices (level, message, old_name, new_name, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.Level, n.Message, n.OldName, n.NewName, n.Document, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("journal: record: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit notices, newest first. A non-empty level filters
// by notice level.
func (db *DB) Recent(ctx context.Context, limit int, level string) ([]models.Notice, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `SELECT id, level, message, old_name, new_name, document, created_at FROM notices`
	args := []any{}
	if level != "" {
		query += ` WHERE level = ?`
		args = append(args, level)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []models.Notice
	for rows.Next() {
		var n models.Notice
		if err := rows.Scan(&n.ID, &n.Level, &n.Message, &n.OldName, &n.NewName, &n.Document, &n.At); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep notices and reports how many went.
func (db *DB) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM notices
		WHERE id NOT IN (SELECT id FROM notices ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return res.RowsAffected()
}
