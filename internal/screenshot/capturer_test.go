package screenshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1})
	require.Error(t, err)

	c, err := New(Config{MaxParallel: 2})
	require.NoError(t, err)
	defer c.Close()
	require.Equal(t, 2, cap(c.limiter))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	c, err := New(Config{})
	require.NoError(t, err)
	defer c.Close()

	require.Nil(t, c.limiter)
	require.Equal(t, 30*time.Second, c.cfg.NavigationTimeout)
	require.Equal(t, 1280, c.cfg.Width)
	require.Equal(t, 800, c.cfg.Height)
}

func TestAcquireRespectsContext(t *testing.T) {
	t.Parallel()

	c, err := New(Config{MaxParallel: 1})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, c.acquire(ctx))

	c.release()
	require.NoError(t, c.acquire(context.Background()))
	c.release()
}
