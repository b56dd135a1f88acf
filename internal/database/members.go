package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fairway/internal/models"
)

const memberColumns = `id, full_name, phone, email, status, membership_expiry, created_at, updated_at`

func scanMember(row rowScanner) (*models.Member, error) {
	m := &models.Member{}
	var expiry sql.NullTime
	err := row.Scan(&m.ID, &m.FullName, &m.Phone, &m.Email, &m.Status,
		&expiry, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		m.MembershipExpiry = expiry.Time
	}
	return m, nil
}

func (db *DB) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	member, err := scanMember(db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get member %d: %w", id, err)
	}
	return member, nil
}

func (db *DB) GetMembers(ctx context.Context) ([]*models.Member, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("get members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpsertMember mirrors a record from the external member directory. Member
// ids are owned by that directory, so inserts carry the id.
func (db *DB) UpsertMember(ctx context.Context, member *models.Member) error {
	now := time.Now()
	var expiry any
	if !member.MembershipExpiry.IsZero() {
		expiry = member.MembershipExpiry
	}
	query := `INSERT INTO members (id, full_name, phone, email, status, membership_expiry, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  full_name = excluded.full_name,
                  phone = COALESCE(excluded.phone, phone),
                  email = COALESCE(excluded.email, email),
                  status = excluded.status,
                  membership_expiry = excluded.membership_expiry,
                  updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		member.ID, member.FullName, member.Phone, member.Email, member.Status,
		expiry, now, now)
	if err != nil {
		return fmt.Errorf("upsert member %d: %w", member.ID, err)
	}
	member.UpdatedAt = now
	return nil
}
