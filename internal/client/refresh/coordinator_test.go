package refresh

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
)

type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	pair    tokens.Pair
	err     error

	mu       sync.Mutex
	lastSeen string
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.lastSeen = refreshToken
	f.mu.Unlock()

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return tokens.Pair{}, ctx.Err()
		}
	}
	return f.pair, f.err
}

type countingStore struct {
	*tokens.MemoryStore
	sets   atomic.Int32
	clears atomic.Int32
}

func (s *countingStore) SetTokens(ctx context.Context, access, refresh string) error {
	s.sets.Add(1)
	return s.MemoryStore.SetTokens(ctx, access, refresh)
}

func (s *countingStore) ClearAllTokens(ctx context.Context) error {
	s.clears.Add(1)
	return s.MemoryStore.ClearAllTokens(ctx)
}

func newStore(t *testing.T, access, refresh string) *countingStore {
	t.Helper()
	s := &countingStore{MemoryStore: tokens.NewMemoryStore()}
	if access != "" || refresh != "" {
		require.NoError(t, s.MemoryStore.SetTokens(context.Background(), access, refresh))
	}
	return s
}

func newRequest() *transport.Request {
	return transport.NewRequest(http.MethodGet, "http://api/orders", nil)
}

// replayRecorder answers every replay with 200 and remembers the tokens it saw.
type replayRecorder struct {
	mu     sync.Mutex
	tokens []string
}

func (r *replayRecorder) replay(ctx context.Context, req *transport.Request, token string) (*transport.Response, error) {
	r.mu.Lock()
	r.tokens = append(r.tokens, token)
	r.mu.Unlock()
	return &transport.Response{Status: http.StatusOK, Body: []byte(`{}`)}, nil
}

func (r *replayRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tokens...)
}

func waitPending(t *testing.T, c *Coordinator, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Pending() == n }, 2*time.Second, time.Millisecond)
}

func TestRecover_SingleFlightFanOutSuccess(t *testing.T) {
	const n = 10
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{release: make(chan struct{}), pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}
	c := NewCoordinator(store, ref, time.Second, nil)
	rec := &replayRecorder{}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.Recover(context.Background(), newRequest(), rec.replay)
			if err == nil && resp.Status != http.StatusOK {
				err = errors.New("unexpected status")
			}
			errs <- err
		}()
	}

	waitPending(t, c, n)
	assert.Equal(t, RefreshInFlight, c.State())
	close(ref.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, ref.calls.Load())
	assert.Equal(t, "R1", ref.lastSeen)
	assert.Len(t, rec.seen(), n)
	for _, tok := range rec.seen() {
		assert.Equal(t, "A2", tok)
	}

	access, _ := store.AccessToken(context.Background())
	refresh, _ := store.RefreshToken(context.Background())
	assert.Equal(t, "A2", access)
	assert.Equal(t, "R2", refresh)
	assert.EqualValues(t, 1, store.sets.Load())
	assert.EqualValues(t, 0, store.clears.Load())
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, Stats{Started: 1, Succeeded: 1}, c.Stats())
}

func TestRecover_FanOutFailure(t *testing.T) {
	const n = 5
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{release: make(chan struct{}), err: errors.New("refresh endpoint returned 401")}
	c := NewCoordinator(store, ref, time.Second, nil)

	var replays atomic.Int32
	replay := func(ctx context.Context, req *transport.Request, token string) (*transport.Response, error) {
		replays.Add(1)
		return nil, errors.New("must not replay")
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Recover(context.Background(), newRequest(), replay)
			errs <- err
		}()
	}
	waitPending(t, c, n)
	close(ref.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, apierror.ErrSessionExpired)
		assert.NotErrorIs(t, err, apierror.ErrUnauthorized)
	}
	assert.Zero(t, replays.Load())
	assert.EqualValues(t, 1, ref.calls.Load())
	assert.EqualValues(t, 1, store.clears.Load())

	access, _ := store.AccessToken(context.Background())
	assert.Empty(t, access)
	assert.Equal(t, Idle, c.State())
}

func TestRecover_RetriedRequestIsTerminal(t *testing.T) {
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}
	c := NewCoordinator(store, ref, time.Second, nil)

	req := newRequest()
	req.Retried = true
	_, err := c.Recover(context.Background(), req, (&replayRecorder{}).replay)

	assert.ErrorIs(t, err, apierror.ErrSessionExpired)
	assert.Zero(t, ref.calls.Load())
	assert.Equal(t, Idle, c.State())
	assert.Zero(t, store.clears.Load())
}

func TestRecover_MarksRequestRetried(t *testing.T) {
	c := NewCoordinator(newStore(t, "A1", "R1"), &fakeRefresher{pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}, time.Second, nil)

	var replayed *transport.Request
	replay := func(ctx context.Context, req *transport.Request, token string) (*transport.Response, error) {
		replayed = req
		return &transport.Response{Status: http.StatusOK}, nil
	}

	req := newRequest()
	_, err := c.Recover(context.Background(), req, replay)
	require.NoError(t, err)
	assert.Same(t, req, replayed)
	assert.True(t, req.Retried)
}

func TestRecover_TokensPersistedBeforeReplay(t *testing.T) {
	store := newStore(t, "A1", "R1")
	c := NewCoordinator(store, &fakeRefresher{pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}, time.Second, nil)

	replay := func(ctx context.Context, req *transport.Request, token string) (*transport.Response, error) {
		stored, err := store.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, token, stored)
		return &transport.Response{Status: http.StatusOK}, nil
	}
	_, err := c.Recover(context.Background(), newRequest(), replay)
	require.NoError(t, err)
}

func TestRecover_FailureClearsBeforeReject(t *testing.T) {
	store := newStore(t, "A1", "R1")
	c := NewCoordinator(store, &fakeRefresher{err: errors.New("boom")}, time.Second, nil)

	_, err := c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)
	require.ErrorIs(t, err, apierror.ErrSessionExpired)

	// by the time the waiter sees the rejection the store is already empty
	refresh, _ := store.RefreshToken(context.Background())
	assert.Empty(t, refresh)
}

func TestRecover_NoRefreshToken(t *testing.T) {
	store := newStore(t, "", "")
	ref := &fakeRefresher{}
	c := NewCoordinator(store, ref, time.Second, nil)

	_, err := c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)

	assert.ErrorIs(t, err, apierror.ErrSessionExpired)
	assert.ErrorIs(t, err, common.ErrNoRefreshToken)
	assert.Zero(t, ref.calls.Load())
	assert.EqualValues(t, 1, store.clears.Load())
}

func TestRecover_IncompletePairIsFailure(t *testing.T) {
	store := newStore(t, "A1", "R1")
	c := NewCoordinator(store, &fakeRefresher{pair: tokens.Pair{AccessToken: "A2"}}, time.Second, nil)

	_, err := c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)

	assert.ErrorIs(t, err, apierror.ErrSessionExpired)
	assert.ErrorIs(t, err, common.ErrInvalidRefreshResponse)
	assert.Zero(t, store.sets.Load())
	assert.EqualValues(t, 1, store.clears.Load())
}

func TestRecover_RefreshTimeout(t *testing.T) {
	store := newStore(t, "A1", "R1")
	// never released: the refresh only ends when its own deadline fires
	ref := &fakeRefresher{release: make(chan struct{})}
	c := NewCoordinator(store, ref, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)

	assert.ErrorIs(t, err, apierror.ErrSessionExpired)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, store.clears.Load())
	assert.Equal(t, Idle, c.State())
}

func TestRecover_RefreshOutlivesInitiatorCancel(t *testing.T) {
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{release: make(chan struct{}), pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}
	c := NewCoordinator(store, ref, time.Second, nil)
	rec := &replayRecorder{}

	initiatorCtx, cancel := context.WithCancel(context.Background())
	initiatorErr := make(chan error, 1)
	go func() {
		_, err := c.Recover(initiatorCtx, newRequest(), rec.replay)
		initiatorErr <- err
	}()
	waitPending(t, c, 1)

	otherErr := make(chan error, 1)
	go func() {
		_, err := c.Recover(context.Background(), newRequest(), rec.replay)
		otherErr <- err
	}()
	waitPending(t, c, 2)

	cancel()
	err := <-initiatorErr
	assert.ErrorIs(t, err, apierror.ErrNetwork)
	waitPending(t, c, 1)

	close(ref.release)
	require.NoError(t, <-otherErr)
	assert.Equal(t, []string{"A2"}, rec.seen())
	assert.EqualValues(t, 1, ref.calls.Load())
}

func TestClearPendingRefresh(t *testing.T) {
	const n = 4
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{release: make(chan struct{}), pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}
	c := NewCoordinator(store, ref, time.Second, nil)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)
			errs <- err
		}()
	}
	waitPending(t, c, n)

	assert.Equal(t, n, c.ClearPendingRefresh())
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, apierror.ErrSessionExpired)
		assert.ErrorIs(t, err, common.ErrRefreshCancelled)
	}
	assert.Equal(t, Idle, c.State())
	assert.Zero(t, c.ClearPendingRefresh())

	// Whatever the cancelled call returns must not reach the store.
	close(ref.release)
	require.Eventually(t, func() bool { return c.Stats().Discarded == 1 }, 2*time.Second, time.Millisecond)
	access, _ := store.AccessToken(context.Background())
	assert.Equal(t, "A1", access)
	assert.Zero(t, store.sets.Load())
	assert.Zero(t, store.clears.Load())
}

func TestClearPendingRefresh_Idle(t *testing.T) {
	c := NewCoordinator(newStore(t, "", ""), &fakeRefresher{}, 0, nil)
	assert.Zero(t, c.ClearPendingRefresh())
	assert.Equal(t, Idle, c.State())
}

func TestRecover_SequentialCycles(t *testing.T) {
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}
	c := NewCoordinator(store, ref, time.Second, nil)
	rec := &replayRecorder{}

	_, err := c.Recover(context.Background(), newRequest(), rec.replay)
	require.NoError(t, err)
	_, err = c.Recover(context.Background(), newRequest(), rec.replay)
	require.NoError(t, err)

	assert.EqualValues(t, 2, ref.calls.Load())
	assert.Equal(t, "R2", ref.lastSeen)
	assert.EqualValues(t, 2, c.Stats().Succeeded)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "refresh_in_flight", RefreshInFlight.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestRecover_RefreshTimeoutClearsSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := tokens.OpenSQLiteStore(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.SetTokens(ctx, "A1", "R1"))

	c := NewCoordinator(store, &fakeRefresher{release: make(chan struct{})}, 50*time.Millisecond, nil)

	_, err = c.Recover(ctx, newRequest(), (&replayRecorder{}).replay)
	assert.ErrorIs(t, err, apierror.ErrSessionExpired)

	access, err := store.AccessToken(ctx)
	require.NoError(t, err)
	refresh, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

// deadlineStore fails writes on a done context, like a database-backed store.
type deadlineStore struct {
	*tokens.MemoryStore
}

func (s deadlineStore) SetTokens(ctx context.Context, access, refresh string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.SetTokens(ctx, access, refresh)
}

func (s deadlineStore) ClearAllTokens(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.ClearAllTokens(ctx)
}

// lateRefresher answers only after the refresh deadline has fired.
type lateRefresher struct {
	pair tokens.Pair
}

func (r lateRefresher) Refresh(ctx context.Context, _ string) (tokens.Pair, error) {
	<-ctx.Done()
	return r.pair, nil
}

func TestRecover_LateSuccessStillPersisted(t *testing.T) {
	ctx := context.Background()
	store := deadlineStore{MemoryStore: tokens.NewMemoryStore()}
	require.NoError(t, store.SetTokens(ctx, "A1", "R1"))
	c := NewCoordinator(store, lateRefresher{pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}, 20*time.Millisecond, nil)
	rec := &replayRecorder{}

	_, err := c.Recover(ctx, newRequest(), rec.replay)
	require.NoError(t, err)

	assert.Equal(t, []string{"A2"}, rec.seen())
	refresh, _ := store.RefreshToken(ctx)
	assert.Equal(t, "R2", refresh)
}

func TestReset_RejectsWaitersAndStoresPair(t *testing.T) {
	const n = 3
	store := newStore(t, "A1", "R1")
	ref := &fakeRefresher{release: make(chan struct{}), pair: tokens.Pair{AccessToken: "A2", RefreshToken: "R2"}}
	c := NewCoordinator(store, ref, time.Second, nil)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)
			errs <- err
		}()
	}
	waitPending(t, c, n)

	rejected, err := c.Reset(context.Background(), tokens.Pair{AccessToken: "L1", RefreshToken: "LR1"})
	require.NoError(t, err)
	assert.Equal(t, n, rejected)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, apierror.ErrSessionExpired)
	}
	assert.Equal(t, Idle, c.State())

	// the old cycle finishing late must not replace the new session
	close(ref.release)
	require.Eventually(t, func() bool { return c.Stats().Discarded == 1 }, 2*time.Second, time.Millisecond)
	access, _ := store.AccessToken(context.Background())
	refresh, _ := store.RefreshToken(context.Background())
	assert.Equal(t, "L1", access)
	assert.Equal(t, "LR1", refresh)

	// a new cycle starts from the new refresh token
	ref.pair = tokens.Pair{AccessToken: "L2", RefreshToken: "LR2"}
	_, err = c.Recover(context.Background(), newRequest(), (&replayRecorder{}).replay)
	require.NoError(t, err)
	ref.mu.Lock()
	assert.Equal(t, "LR1", ref.lastSeen)
	ref.mu.Unlock()
}

func TestReset_ZeroPairClears(t *testing.T) {
	store := newStore(t, "A1", "R1")
	c := NewCoordinator(store, &fakeRefresher{}, 0, nil)

	rejected, err := c.Reset(context.Background(), tokens.Pair{})
	require.NoError(t, err)
	assert.Zero(t, rejected)
	assert.EqualValues(t, 1, store.clears.Load())
	access, _ := store.AccessToken(context.Background())
	assert.Empty(t, access)
}
