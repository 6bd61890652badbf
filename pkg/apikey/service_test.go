package apikey_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/apikey"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	secret, prefix, hash, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, "ff_"))
	assert.Len(t, secret, 3+64)
	assert.Len(t, prefix, 12)
	assert.True(t, strings.HasPrefix(secret, prefix))
	assert.Equal(t, apikey.HashSecret(secret), hash)
	assert.True(t, apikey.ValidFormat(secret))
}

func TestValidFormat(t *testing.T) {
	t.Parallel()

	assert.False(t, apikey.ValidFormat(""))
	assert.False(t, apikey.ValidFormat("ff_short"))
	assert.False(t, apikey.ValidFormat("sk_"+strings.Repeat("ab", 32)))
	assert.False(t, apikey.ValidFormat("ff_"+strings.Repeat("zz", 32)))
	assert.True(t, apikey.ValidFormat("ff_"+strings.Repeat("ab", 32)))
}

func TestServiceLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create returns secret once", func(t *testing.T) {
		t.Parallel()

		svc := apikey.NewService(apikey.NewMemoryStore())
		key, err := svc.Create(ctx, "ci-deploy")
		require.NoError(t, err)
		assert.NotEmpty(t, key.Secret)

		listed, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Empty(t, listed[0].Secret)
		assert.Empty(t, listed[0].Hash)
		assert.Equal(t, key.Prefix, listed[0].Prefix)
	})

	t.Run("create requires a name", func(t *testing.T) {
		t.Parallel()

		svc := apikey.NewService(apikey.NewMemoryStore())
		_, err := svc.Create(ctx, "")
		assert.ErrorIs(t, err, apikey.ErrNameRequired)
	})

	t.Run("verify accepts the issued secret and stamps usage", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		svc := apikey.NewService(apikey.NewMemoryStore(), apikey.WithClock(func() time.Time { return now }))

		created, err := svc.Create(ctx, "ci-deploy")
		require.NoError(t, err)

		verified, err := svc.Verify(ctx, created.Secret)
		require.NoError(t, err)
		assert.Equal(t, created.ID, verified.ID)
		require.NotNil(t, verified.LastUsedAt)
		assert.Equal(t, now, *verified.LastUsedAt)
	})

	t.Run("verify rejects unknown and malformed secrets", func(t *testing.T) {
		t.Parallel()

		svc := apikey.NewService(apikey.NewMemoryStore())
		_, err := svc.Verify(ctx, "ff_"+strings.Repeat("ab", 32))
		assert.ErrorIs(t, err, apikey.ErrInvalidKey)

		_, err = svc.Verify(ctx, "garbage")
		assert.ErrorIs(t, err, apikey.ErrInvalidKey)
	})

	t.Run("revoked keys no longer verify", func(t *testing.T) {
		t.Parallel()

		svc := apikey.NewService(apikey.NewMemoryStore())
		created, err := svc.Create(ctx, "ci-deploy")
		require.NoError(t, err)

		require.NoError(t, svc.Revoke(ctx, created.ID))
		_, err = svc.Verify(ctx, created.Secret)
		assert.ErrorIs(t, err, apikey.ErrKeyRevoked)

		// Re-revoking is a no-op.
		require.NoError(t, svc.Revoke(ctx, created.ID))
	})

	t.Run("rotate revokes the old key and issues a replacement", func(t *testing.T) {
		t.Parallel()

		svc := apikey.NewService(apikey.NewMemoryStore())
		old, err := svc.Create(ctx, "ci-deploy")
		require.NoError(t, err)

		fresh, err := svc.Rotate(ctx, old.ID)
		require.NoError(t, err)
		assert.NotEqual(t, old.ID, fresh.ID)
		assert.Equal(t, "ci-deploy", fresh.Name)
		assert.NotEmpty(t, fresh.Secret)

		_, err = svc.Verify(ctx, old.Secret)
		assert.ErrorIs(t, err, apikey.ErrKeyRevoked)

		_, err = svc.Verify(ctx, fresh.Secret)
		require.NoError(t, err)
	})

	t.Run("revoke unknown key", func(t *testing.T) {
		t.Parallel()

		svc := apikey.NewService(apikey.NewMemoryStore())
		err := svc.Revoke(ctx, "missing")
		assert.ErrorIs(t, err, apikey.ErrKeyNotFound)
	})
}
