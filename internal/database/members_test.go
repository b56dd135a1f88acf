package database

import (
	"context"
	"testing"
	"time"

	"fairway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertMember(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	expiry := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	member := &models.Member{
		ID:               42,
		FullName:         "Alice Khan",
		Phone:            "555-0101",
		Email:            "alice@example.com",
		Status:           models.MemberStatusActive,
		MembershipExpiry: expiry,
	}
	require.NoError(t, db.UpsertMember(ctx, member))

	got, err := db.GetMember(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Alice Khan", got.FullName)
	assert.True(t, got.MembershipExpiry.Equal(expiry))

	// Directory sync with a changed name keeps the id stable
	member.FullName = "Alice Khan-Reyes"
	require.NoError(t, db.UpsertMember(ctx, member))

	got, err = db.GetMember(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Alice Khan-Reyes", got.FullName)

	members, err := db.GetMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestUpsertMemberNoExpiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	member := &models.Member{ID: 7, FullName: "Bob", Status: models.MemberStatusActive}
	require.NoError(t, db.UpsertMember(ctx, member))

	got, err := db.GetMember(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got.MembershipExpiry.IsZero())
	assert.True(t, got.ActiveAt(time.Now()))
}

func TestGetMemberNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetMember(context.Background(), 999)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
