package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbd888/jobchain/internal/testutil"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	u := &User{Email: "PG@Example.com", Name: "PG User", WalletAddress: "0xABCDEF0123456789012345678901234567890123"}
	require.NoError(t, store.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "pg@example.com", got.Email)
	require.Equal(t, "0xabcdef0123456789012345678901234567890123", got.WalletAddress)

	dup := &User{Email: "pg@example.com", Name: "Other", WalletAddress: "0x1111111111111111111111111111111111111111"}
	require.ErrorIs(t, store.Create(ctx, dup), ErrUserExists)

	require.NoError(t, store.UpdateScore(ctx, u.ID, RoleClient, 4.0, 3))
	got, err = store.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 4.0, got.ClientScore)
	require.Equal(t, int64(3), got.ClientReviews)

	_, err = store.Get(ctx, "usr_missing")
	require.True(t, errors.Is(err, ErrUserNotFound))
}
