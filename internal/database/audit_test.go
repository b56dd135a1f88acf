package database

import (
	"context"
	"testing"
	"time"

	"fairway/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAuditEntries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := &models.AuditEntry{
			EntryID:    uuid.NewString(),
			Action:     models.AuditActionUpdate,
			ActorID:    5,
			ActorName:  "staff",
			Timestamp:  time.Now(),
			ObjectType: models.ObjectTypeBooking,
			ObjectID:   int64(i + 1),
			NewValue:   models.EncodeDiff(map[string]any{"status": "checked-in"}),
		}
		require.NoError(t, db.InsertAuditEntry(ctx, entry))
		require.NotZero(t, entry.ID)
	}
	bayEntry := &models.AuditEntry{
		EntryID:    uuid.NewString(),
		Action:     models.AuditActionUpdate,
		ActorID:    5,
		ActorName:  "staff",
		Timestamp:  time.Now(),
		ObjectType: models.ObjectTypeBay,
		ObjectID:   1,
	}
	require.NoError(t, db.InsertAuditEntry(ctx, bayEntry))

	// Unfiltered, newest first
	entries, err := db.ListAuditEntries(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, models.ObjectTypeBay, entries[0].ObjectType)

	// Filter by object type
	entries, err = db.ListAuditEntries(ctx, models.ObjectTypeBooking, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Filter by object
	entries, err = db.ListAuditEntries(ctx, models.ObjectTypeBooking, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ObjectID)

	// Limit applies
	entries, err = db.ListAuditEntries(ctx, "", 0, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAuditRollsBackWithBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seedBay(t, db, 1, "Bay 1")
	require.NoError(t, db.CreateBooking(ctx, newBooking(100, 1, tenAM, elevAM), 0, nil))

	// A rejected create must not leave an audit entry behind
	audit := testAudit(models.AuditActionCreate, models.SystemActor)
	err := db.CreateBooking(ctx, newBooking(200, 1, tenAM, elevAM), 0, audit)
	require.ErrorIs(t, err, ErrBayConflict)

	entries, err := db.ListAuditEntries(ctx, models.ObjectTypeBooking, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
