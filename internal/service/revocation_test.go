package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
)

func TestMemoryDenylist(t *testing.T) {
	d := service.NewMemoryDenylist()
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "live", time.Now().Add(time.Hour)))
	require.NoError(t, d.Revoke(ctx, "stale", time.Now().Add(-time.Hour)))

	revoked, err := d.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = d.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}
