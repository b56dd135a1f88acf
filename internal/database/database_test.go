package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fairway/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedBay(t *testing.T, db *DB, id int64, name string) *models.Bay {
	bay := &models.Bay{ID: id, Name: name, SortOrder: id, IsActive: true}
	require.NoError(t, db.UpsertBay(context.Background(), bay))
	return bay
}

func seedMember(t *testing.T, db *DB, id int64, name string) *models.Member {
	member := &models.Member{ID: id, FullName: name, Status: models.MemberStatusActive}
	require.NoError(t, db.UpsertMember(context.Background(), member))
	return member
}

func testAudit(action string, actor models.Actor) *models.AuditEntry {
	return &models.AuditEntry{
		EntryID:    uuid.NewString(),
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		Timestamp:  time.Now(),
		ObjectType: models.ObjectTypeBooking,
	}
}

func TestNewDBReopen(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "data", "fairway.db")

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)

	seedBay(t, db, 1, "Bay 1")
	require.NoError(t, db.Close())

	// Schema and data survive a reopen
	db2, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db2.Close()

	bay, err := db2.GetBayByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Bay 1", bay.Name)
	assert.Equal(t, models.BayStatusAvailable, bay.Status)
}

func TestTimeRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	local := time.Date(2026, 3, 2, 9, 0, 0, 0, loc)
	stored := fmtTime(local)

	parsed, err := parseTime(stored)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(local), "stored time should round-trip as the same instant")
	assert.Equal(t, time.UTC, parsed.Location())
}
