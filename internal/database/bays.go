package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fairway/internal/models"
)

const bayColumns = `id, name, description, status, sort_order, is_active, created_at, updated_at`

func scanBay(row rowScanner) (*models.Bay, error) {
	bay := &models.Bay{}
	err := row.Scan(&bay.ID, &bay.Name, &bay.Description, &bay.Status,
		&bay.SortOrder, &bay.IsActive, &bay.CreatedAt, &bay.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return bay, nil
}

func (db *DB) GetBays(ctx context.Context) ([]*models.Bay, error) {
	query := `SELECT ` + bayColumns + ` FROM bays WHERE is_active = 1 ORDER BY sort_order, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get bays: %w", err)
	}
	defer rows.Close()

	var bays []*models.Bay
	for rows.Next() {
		bay, err := scanBay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bay: %w", err)
		}
		bays = append(bays, bay)
	}
	return bays, rows.Err()
}

func (db *DB) GetBayByID(ctx context.Context, id int64) (*models.Bay, error) {
	bay, err := scanBay(db.QueryRowContext(ctx,
		`SELECT `+bayColumns+` FROM bays WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bay %d: %w", id, err)
	}
	return bay, nil
}

func (db *DB) GetBayByName(ctx context.Context, name string) (*models.Bay, error) {
	bay, err := scanBay(db.QueryRowContext(ctx,
		`SELECT `+bayColumns+` FROM bays WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bay %q: %w", name, err)
	}
	return bay, nil
}

// UpsertBay inserts or refreshes a seeded bay. The status column is owned by
// the engine and is deliberately left alone on update.
func (db *DB) UpsertBay(ctx context.Context, bay *models.Bay) error {
	now := time.Now()
	status := bay.Status
	if status == "" {
		status = models.BayStatusAvailable
	}
	query := `INSERT INTO bays (id, name, description, status, sort_order, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  description = excluded.description,
                  sort_order = excluded.sort_order,
                  is_active = excluded.is_active,
                  updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		bay.ID, bay.Name, bay.Description, status, bay.SortOrder, bay.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("upsert bay %q: %w", bay.Name, err)
	}

	stored, err := db.GetBayByID(ctx, bay.ID)
	if err != nil {
		return err
	}
	*bay = *stored
	db.cacheBay(*stored)
	return nil
}

// SetBayMaintenance flips a bay in or out of maintenance and records the
// change. Clearing maintenance recomputes the derived status from the bay's
// blocking bookings.
func (db *DB) SetBayMaintenance(ctx context.Context, bayID int64, on bool, audit *models.AuditEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bays WHERE id = ?`, bayID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBayNotFound
	}
	if err != nil {
		return fmt.Errorf("load bay: %w", err)
	}

	var next string
	if on {
		next = models.BayStatusMaintenance
		if _, err := tx.ExecContext(ctx,
			`UPDATE bays SET status = ?, updated_at = ? WHERE id = ?`,
			next, time.Now(), bayID); err != nil {
			return fmt.Errorf("set maintenance: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bays SET status = ?, updated_at = ? WHERE id = ?`,
			models.BayStatusAvailable, time.Now(), bayID); err != nil {
			return fmt.Errorf("clear maintenance: %w", err)
		}
		if next, err = recomputeBayStatusTx(ctx, tx, bayID); err != nil {
			return err
		}
	}

	if audit != nil {
		// The audited new value is the post-transition status, which on the
		// clear path is only known after the recompute above.
		audit.NewValue = models.EncodeDiff(map[string]any{"status": next})
	}
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit maintenance change: %w", err)
	}
	db.cacheBayStatus(bayID, next)
	return nil
}

// AvailableBays returns active, non-maintenance bays with no blocking
// booking overlapping [start, end).
func (db *DB) AvailableBays(ctx context.Context, start, end time.Time) ([]*models.Bay, error) {
	query := `SELECT ` + bayColumns + ` FROM bays b
              WHERE b.is_active = 1 AND b.status != ?
              AND NOT EXISTS (
                  SELECT 1 FROM bookings bk
                  WHERE bk.bay_id = b.id AND bk.status IN (?, ?)
                  AND bk.start_time < ? AND ? < bk.end_time
              )
              ORDER BY b.sort_order, b.id`
	rows, err := db.QueryContext(ctx, query, models.BayStatusMaintenance,
		models.StatusConfirmed, models.StatusCheckedIn, fmtTime(end), fmtTime(start))
	if err != nil {
		return nil, fmt.Errorf("available bays: %w", err)
	}
	defer rows.Close()

	var bays []*models.Bay
	for rows.Next() {
		bay, err := scanBay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bay: %w", err)
		}
		bays = append(bays, bay)
	}
	return bays, rows.Err()
}
