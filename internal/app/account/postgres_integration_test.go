package account_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"lanchat/internal/app/account"
	"lanchat/internal/app/db"
	"lanchat/internal/pkg/randx"
)

// Runs only when TEST_DATABASE_URL points at a disposable Postgres.
func TestPostgresRepository_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	req := require.New(t)

	pool, err := db.NewPool(ctx, dsn)
	req.NoError(err)
	t.Cleanup(pool.Close)

	repo := account.NewPostgresRepository(pool)
	id := "it_" + randx.GroupID()

	exists, err := repo.Exists(ctx, id)
	req.NoError(err)
	req.False(exists)

	req.NoError(repo.Create(ctx, id, "hash-1"))
	req.ErrorIs(repo.Create(ctx, id, "hash-2"), account.ErrAlreadyExists)

	hash, err := repo.PasswordHash(ctx, id)
	req.NoError(err)
	req.Equal("hash-1", hash)

	req.NoError(repo.UpdatePassword(ctx, id, "hash-3"))
	hash, err = repo.PasswordHash(ctx, id)
	req.NoError(err)
	req.Equal("hash-3", hash)

	_, err = repo.PasswordHash(ctx, id+"_missing")
	req.ErrorIs(err, account.ErrNotFound)
	req.ErrorIs(repo.UpdatePassword(ctx, id+"_missing", "x"), account.ErrNotFound)
}
