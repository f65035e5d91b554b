package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := payload{Name: "draft", Items: []string{"a"}}
	require.NoError(t, s.Set(ctx, "k", in, time.Minute))
	in.Items[0] = "mutated"

	var out payload
	require.NoError(t, s.Get(ctx, "k", &out))
	assert.Equal(t, []string{"a"}, out.Items)

	require.NoError(t, s.Delete(ctx, "k"))
	assert.True(t, errors.Is(s.Get(ctx, "k", &out), ErrMiss))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", payload{Name: "x"}, time.Minute))
	require.NoError(t, s.Set(ctx, "forever", payload{Name: "y"}, 0))

	now = now.Add(2 * time.Minute)
	var out payload
	assert.True(t, errors.Is(s.Get(ctx, "k", &out), ErrMiss))
	require.NoError(t, s.Get(ctx, "forever", &out))
	assert.Equal(t, "y", out.Name)
}

// TestRedisStoreIntegration needs a redis on localhost and is skipped otherwise.
func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore("localhost:6379", "", 0, "dispatch-test:")
	defer s.Close()
	if err := s.Ping(ctx); err != nil {
		t.Skip("Skipping redis integration test: redis not available")
	}

	require.NoError(t, s.Set(ctx, "k", payload{Name: "draft"}, time.Minute))
	var out payload
	require.NoError(t, s.Get(ctx, "k", &out))
	assert.Equal(t, "draft", out.Name)

	require.NoError(t, s.Delete(ctx, "k"))
	assert.True(t, errors.Is(s.Get(ctx, "k", &out), ErrMiss))
}
