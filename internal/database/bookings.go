package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fairway/internal/models"
)

const bookingColumns = `id, member_id, member_name, bay_id, bay_name, start_time, end_time,
	status, payment_method, payment_status, payment_amount, notes, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var startStr, endStr string
	err := row.Scan(
		&b.ID, &b.MemberID, &b.MemberName, &b.BayID, &b.BayName, &startStr, &endStr,
		&b.Status, &b.PaymentMethod, &b.PaymentStatus, &b.PaymentAmount, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if b.StartTime, err = parseTime(startStr); err != nil {
		return nil, err
	}
	if b.EndTime, err = parseTime(endStr); err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return booking, nil
}

// countConflictsTx counts blocking bookings on the bay overlapping the
// half-open window [start, end), excluding excludeID. Runs against the
// transaction so concurrent writers are serialized by sqlite.
func countConflictsTx(ctx context.Context, tx *sql.Tx, bayID int64, start, end time.Time, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE bay_id = ? AND id != ? AND status IN (?, ?)
              AND start_time < ? AND ? < end_time`
	var count int
	err := tx.QueryRowContext(ctx, query, bayID, excludeID,
		models.StatusConfirmed, models.StatusCheckedIn,
		fmtTime(end), fmtTime(start)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conflicts: %w", err)
	}
	return count, nil
}

func countMemberBlockingTx(ctx context.Context, tx *sql.Tx, memberID, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE member_id = ? AND id != ? AND status IN (?, ?)`
	var count int
	err := tx.QueryRowContext(ctx, query, memberID, excludeID,
		models.StatusConfirmed, models.StatusCheckedIn).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count member blocking bookings: %w", err)
	}
	return count, nil
}

// recomputeBayStatusTx derives the bay status from its blocking bookings.
// Maintenance is sticky and never overwritten here.
func recomputeBayStatusTx(ctx context.Context, tx *sql.Tx, bayID int64) (string, error) {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT status FROM bays WHERE id = ?`, bayID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrBayNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load bay status: %w", err)
	}
	if current == models.BayStatusMaintenance {
		return current, nil
	}

	var checkedIn, confirmed int
	err = tx.QueryRowContext(ctx, `SELECT
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
        FROM bookings WHERE bay_id = ?`,
		models.StatusCheckedIn, models.StatusConfirmed, bayID).Scan(&checkedIn, &confirmed)
	if err != nil {
		return "", fmt.Errorf("count blocking bookings: %w", err)
	}

	next := models.BayStatusAvailable
	switch {
	case checkedIn > 0:
		next = models.BayStatusInUse
	case confirmed > 0:
		next = models.BayStatusBooked
	}

	if next != current {
		if _, err := tx.ExecContext(ctx,
			`UPDATE bays SET status = ?, updated_at = ? WHERE id = ?`,
			next, time.Now(), bayID); err != nil {
			return "", fmt.Errorf("update bay status: %w", err)
		}
	}
	return next, nil
}

func insertAuditTx(ctx context.Context, tx *sql.Tx, entry *models.AuditEntry) error {
	if entry == nil {
		return nil
	}
	query := `INSERT INTO audit_log (entry_id, action, actor_id, actor_name, timestamp,
                  object_type, object_id, object_name, previous_value, new_value)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, query,
		entry.EntryID, entry.Action, entry.ActorID, entry.ActorName, entry.Timestamp,
		entry.ObjectType, entry.ObjectID, entry.ObjectName, entry.PreviousValue, entry.NewValue,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	entry.ID, _ = result.LastInsertId()
	return nil
}

// CreateBooking validates and inserts a booking, updates the bay status and
// writes the audit entry in one transaction. The conflict and concurrency
// checks run inside the transaction: a pre-check outside it is advisory only.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking, maxConcurrent int, audit *models.AuditEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bayStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bays WHERE id = ?`, booking.BayID).Scan(&bayStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBayNotFound
	}
	if err != nil {
		return fmt.Errorf("load bay: %w", err)
	}
	if bayStatus == models.BayStatusMaintenance {
		return ErrBayMaintenance
	}

	conflicts, err := countConflictsTx(ctx, tx, booking.BayID, booking.StartTime, booking.EndTime, 0)
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return ErrBayConflict
	}

	if maxConcurrent > 0 {
		active, err := countMemberBlockingTx(ctx, tx, booking.MemberID, 0)
		if err != nil {
			return err
		}
		if active >= maxConcurrent {
			return ErrMemberLimit
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
            member_id, member_name, bay_id, bay_name, start_time, end_time,
            status, payment_method, payment_status, payment_amount, notes,
            created_at, updated_at, version
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.MemberID, booking.MemberName, booking.BayID, booking.BayName,
		fmtTime(booking.StartTime), fmtTime(booking.EndTime),
		models.StatusConfirmed, booking.PaymentMethod, booking.PaymentStatus,
		booking.PaymentAmount, booking.Notes, now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	booking.ID = id
	booking.Status = models.StatusConfirmed
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	newBayStatus, err := recomputeBayStatusTx(ctx, tx, booking.BayID)
	if err != nil {
		return err
	}

	if audit != nil {
		audit.ObjectID = id
	}
	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	db.cacheBayStatus(booking.BayID, newBayStatus)
	return nil
}

// UpdateBooking re-validates the booking as if it were new, excluding itself
// from conflict and concurrency checks, and moves both the old and the new
// bay status in the same transaction.
func (db *DB) UpdateBooking(ctx context.Context, booking *models.Booking, fromVersion int64, maxConcurrent int, audit *models.AuditEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var oldBayID, version int64
	var oldStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT bay_id, status, version FROM bookings WHERE id = ?`, booking.ID).
		Scan(&oldBayID, &oldStatus, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if version != fromVersion {
		return ErrVersionConflict
	}
	if !models.IsBlockingStatus(oldStatus) {
		return ErrInvalidTransition
	}

	var bayStatus string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bays WHERE id = ?`, booking.BayID).Scan(&bayStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBayNotFound
	}
	if err != nil {
		return fmt.Errorf("load bay: %w", err)
	}
	if bayStatus == models.BayStatusMaintenance && booking.BayID != oldBayID {
		return ErrBayMaintenance
	}

	conflicts, err := countConflictsTx(ctx, tx, booking.BayID, booking.StartTime, booking.EndTime, booking.ID)
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return ErrBayConflict
	}

	if maxConcurrent > 0 {
		active, err := countMemberBlockingTx(ctx, tx, booking.MemberID, booking.ID)
		if err != nil {
			return err
		}
		if active >= maxConcurrent {
			return ErrMemberLimit
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `UPDATE bookings SET
            member_id = ?, member_name = ?, bay_id = ?, bay_name = ?,
            start_time = ?, end_time = ?, payment_method = ?, payment_amount = ?,
            notes = ?, updated_at = ?, version = version + 1
        WHERE id = ? AND version = ?`,
		booking.MemberID, booking.MemberName, booking.BayID, booking.BayName,
		fmtTime(booking.StartTime), fmtTime(booking.EndTime),
		booking.PaymentMethod, booking.PaymentAmount, booking.Notes,
		now, booking.ID, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrVersionConflict
	}
	booking.UpdatedAt = now
	booking.Version = fromVersion + 1

	newBayStatus, err := recomputeBayStatusTx(ctx, tx, booking.BayID)
	if err != nil {
		return err
	}
	oldBayStatus := newBayStatus
	if oldBayID != booking.BayID {
		if oldBayStatus, err = recomputeBayStatusTx(ctx, tx, oldBayID); err != nil {
			return err
		}
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking update: %w", err)
	}
	db.cacheBayStatus(booking.BayID, newBayStatus)
	if oldBayID != booking.BayID {
		db.cacheBayStatus(oldBayID, oldBayStatus)
	}
	return nil
}

// TransitionBookingStatus applies a lifecycle transition with an optimistic
// version check. When refundPayment is set and the booking was paid, the
// payment flips to refunded in the same transaction.
func (db *DB) TransitionBookingStatus(ctx context.Context, id, fromVersion int64, status string, refundPayment bool, audit *models.AuditEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bayID int64
	var currentStatus, paymentStatus string
	err = tx.QueryRowContext(ctx,
		`SELECT bay_id, status, payment_status FROM bookings WHERE id = ?`, id).
		Scan(&bayID, &currentStatus, &paymentStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}

	if !models.CanTransition(currentStatus, status) {
		return ErrInvalidTransition
	}

	newPaymentStatus := paymentStatus
	if refundPayment && paymentStatus == models.PaymentStatusPaid {
		newPaymentStatus = models.PaymentStatusRefunded
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_status = ?, version = version + 1, updated_at = ?
         WHERE id = ? AND version = ?`,
		status, newPaymentStatus, time.Now(), id, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrVersionConflict
	}

	bayStatus, err := recomputeBayStatusTx(ctx, tx, bayID)
	if err != nil {
		return err
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status transition: %w", err)
	}
	db.cacheBayStatus(bayID, bayStatus)
	return nil
}

// ExtendBooking pushes a checked-in booking's end time out. The conflict
// check runs against the extended window so the extension cannot silently
// overlap a later blocking booking on the same bay.
func (db *DB) ExtendBooking(ctx context.Context, id, fromVersion int64, newEnd time.Time, audit *models.AuditEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var bayID int64
	var status, startStr string
	err = tx.QueryRowContext(ctx,
		`SELECT bay_id, status, start_time FROM bookings WHERE id = ?`, id).
		Scan(&bayID, &status, &startStr)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBookingNotFound
	}
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if status != models.StatusCheckedIn {
		return ErrInvalidTransition
	}

	start, err := parseTime(startStr)
	if err != nil {
		return err
	}

	conflicts, err := countConflictsTx(ctx, tx, bayID, start, newEnd, id)
	if err != nil {
		return err
	}
	if conflicts > 0 {
		return ErrBayConflict
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET end_time = ?, version = version + 1, updated_at = ?
         WHERE id = ? AND version = ?`,
		fmtTime(newEnd), time.Now(), id, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("extend booking: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrVersionConflict
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit extension: %w", err)
	}
	return nil
}

// CountConflicts is the advisory (outside-transaction) form of the conflict
// check, used for pre-validation and availability displays.
func (db *DB) CountConflicts(ctx context.Context, bayID int64, start, end time.Time, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE bay_id = ? AND id != ? AND status IN (?, ?)
              AND start_time < ? AND ? < end_time`
	var count int
	err := db.QueryRowContext(ctx, query, bayID, excludeID,
		models.StatusConfirmed, models.StatusCheckedIn,
		fmtTime(end), fmtTime(start)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conflicts: %w", err)
	}
	return count, nil
}

func (db *DB) CountMemberBlocking(ctx context.Context, memberID, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE member_id = ? AND id != ? AND status IN (?, ?)`
	var count int
	err := db.QueryRowContext(ctx, query, memberID, excludeID,
		models.StatusConfirmed, models.StatusCheckedIn).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count member blocking bookings: %w", err)
	}
	return count, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBookingsByRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE start_time < ? AND ? < end_time
              ORDER BY start_time ASC, id ASC`
	return db.queryBookings(ctx, query, fmtTime(end), fmtTime(start))
}

func (db *DB) GetMemberBookings(ctx context.Context, memberID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE member_id = ? ORDER BY start_time DESC, id DESC`
	return db.queryBookings(ctx, query, memberID)
}

// GetBayBookingsForDay returns the blocking bookings touching the
// [dayStart, dayEnd) window. Callers pass the facility-local day bounds.
func (db *DB) GetBayBookingsForDay(ctx context.Context, bayID int64, dayStart, dayEnd time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE bay_id = ? AND status IN (?, ?)
              AND start_time < ? AND ? < end_time
              ORDER BY start_time ASC`
	return db.queryBookings(ctx, query, bayID,
		models.StatusConfirmed, models.StatusCheckedIn,
		fmtTime(dayEnd), fmtTime(dayStart))
}

// ExpiredCheckIns lists checked-in bookings whose end time has passed.
func (db *DB) ExpiredCheckIns(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE status = ? AND end_time <= ?
              ORDER BY end_time ASC`
	return db.queryBookings(ctx, query, models.StatusCheckedIn, fmtTime(now))
}
