package tokens

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gofood/internal/common"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, err := s.AccessToken(ctx)
	require.NoError(t, err)
	require.Empty(t, a)

	require.NoError(t, s.SetTokens(ctx, "A1", "R1"))
	a, _ = s.AccessToken(ctx)
	r, _ := s.RefreshToken(ctx)
	require.Equal(t, "A1", a)
	require.Equal(t, "R1", r)

	require.NoError(t, s.ClearAllTokens(ctx))
	a, _ = s.AccessToken(ctx)
	r, _ = s.RefreshToken(ctx)
	require.Empty(t, a)
	require.Empty(t, r)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetTokens(ctx, "A", "R")
		}()
		go func() {
			defer wg.Done()
			_, _ = s.AccessToken(ctx)
		}()
	}
	wg.Wait()

	a, _ := s.AccessToken(ctx)
	require.Equal(t, "A", a)
}

func TestPair_Validate(t *testing.T) {
	require.NoError(t, Pair{AccessToken: "a", RefreshToken: "r"}.Validate())
	require.ErrorIs(t, Pair{AccessToken: "a"}.Validate(), common.ErrInvalidTokenPair)
	require.ErrorIs(t, Pair{AccessToken: " ", RefreshToken: "r"}.Validate(), common.ErrInvalidTokenPair)
}
