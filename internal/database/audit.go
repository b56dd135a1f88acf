package database

import (
	"context"
	"fmt"

	"fairway/internal/models"
)

// InsertAuditEntry writes a standalone audit entry outside any engine
// transaction. Engine mutations write their entries transactionally via the
// booking and bay methods instead.
func (db *DB) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	query := `INSERT INTO audit_log (entry_id, action, actor_id, actor_name, timestamp,
                  object_type, object_id, object_name, previous_value, new_value)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		entry.EntryID, entry.Action, entry.ActorID, entry.ActorName, entry.Timestamp,
		entry.ObjectType, entry.ObjectID, entry.ObjectName, entry.PreviousValue, entry.NewValue,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}

// ListAuditEntries returns recent entries, newest first. objectType and
// objectID filter when non-zero.
func (db *DB) ListAuditEntries(ctx context.Context, objectType string, objectID int64, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = models.DefaultAuditPageSize
	}

	query := `SELECT id, entry_id, action, actor_id, actor_name, timestamp,
                     object_type, object_id, object_name, previous_value, new_value
              FROM audit_log`
	var args []any
	switch {
	case objectType != "" && objectID != 0:
		query += ` WHERE object_type = ? AND object_id = ?`
		args = append(args, objectType, objectID)
	case objectType != "":
		query += ` WHERE object_type = ?`
		args = append(args, objectType)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		err := rows.Scan(&e.ID, &e.EntryID, &e.Action, &e.ActorID, &e.ActorName,
			&e.Timestamp, &e.ObjectType, &e.ObjectID, &e.ObjectName,
			&e.PreviousValue, &e.NewValue)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
