package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
	"github.com/dmitrijs2005/gofood/internal/logging"
)

// DefaultTimeout bounds a single refresh call.
const DefaultTimeout = 10 * time.Second

// storeTimeout bounds the token writes that settle a cycle. They run after
// the refresh deadline may already have fired.
const storeTimeout = 5 * time.Second

// State of the coordinator.
type State int

const (
	Idle State = iota
	RefreshInFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RefreshInFlight:
		return "refresh_in_flight"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Refresher exchanges a refresh token for a new pair. It must not go through
// the refresh protocol itself.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error)
}

// ReplayFunc re-sends req with the given access token. It runs on the
// waiter's goroutine.
type ReplayFunc func(ctx context.Context, req *transport.Request, accessToken string) (*transport.Response, error)

type result struct {
	token string
	err   error
}

type waiter struct {
	req *transport.Request
	ch  chan result
}

// flight is the state of one refresh cycle. It is reachable through
// Coordinator.flight only while the cycle is pending; whoever detaches it
// (completion or ClearPendingRefresh) owns its waiters from then on.
type flight struct {
	waiters []*waiter
	cancel  context.CancelFunc
}

// Stats are cumulative counters, mostly for logs and tests.
type Stats struct {
	Started   int64
	Succeeded int64
	Failed    int64
	Discarded int64
}

// Coordinator owns the single-flight refresh state. The zero value is not
// usable; create it with NewCoordinator.
type Coordinator struct {
	store     tokens.Store
	refresher Refresher
	timeout   time.Duration
	log       logging.Logger

	mu     sync.Mutex
	flight *flight

	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	discarded atomic.Int64
}

func NewCoordinator(store tokens.Store, refresher Refresher, timeout time.Duration, log logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Coordinator{
		store:     store,
		refresher: refresher,
		timeout:   timeout,
		log:       log.With("component", "refresh"),
	}
}

// Recover handles a request that was rejected with 401. It blocks until the
// refresh cycle resolves and then either returns the replay's outcome or a
// SessionExpired error. Cancelling ctx abandons the wait without affecting
// the other waiters.
func (c *Coordinator) Recover(ctx context.Context, req *transport.Request, replay ReplayFunc) (*transport.Response, error) {
	if req.Retried {
		c.log.Warn(ctx, "request rejected again after refresh", "method", req.Method, "url", req.URL)
		return nil, apierror.SessionExpired(nil)
	}
	req.Retried = true

	w := &waiter{req: req, ch: make(chan result, 1)}

	c.mu.Lock()
	f := c.flight
	if f == nil {
		f = c.startLocked(ctx)
	}
	f.waiters = append(f.waiters, w)
	c.mu.Unlock()

	select {
	case res := <-w.ch:
		if res.err != nil {
			return nil, res.err
		}
		return replay(ctx, req, res.token)
	case <-ctx.Done():
		c.abandon(f, w)
		return nil, apierror.FromError(ctx.Err(), false)
	}
}

// ClearPendingRefresh cancels the current cycle, if any, rejecting its
// waiters with SessionExpired. It returns the number of rejected waiters and
// is safe to call repeatedly.
func (c *Coordinator) ClearPendingRefresh() int {
	c.mu.Lock()
	f := c.flight
	c.flight = nil
	c.mu.Unlock()

	if f == nil {
		return 0
	}

	f.cancel()
	c.resolve(f, result{err: apierror.SessionExpired(common.ErrRefreshCancelled)})
	c.log.Info(context.Background(), "pending refresh cleared", "waiters", len(f.waiters))
	return len(f.waiters)
}

// Reset replaces the session: it cancels the current cycle, if any, and
// writes pair to the store while holding the coordinator lock, so no cycle
// can read the old refresh token in between or overwrite pair later. A zero
// pair clears the store. The rejected waiters fail with SessionExpired even
// when the store write fails.
func (c *Coordinator) Reset(ctx context.Context, pair tokens.Pair) (int, error) {
	c.mu.Lock()
	f := c.flight
	c.flight = nil
	var err error
	if pair == (tokens.Pair{}) {
		err = c.store.ClearAllTokens(ctx)
	} else {
		err = c.store.SetTokens(ctx, pair.AccessToken, pair.RefreshToken)
	}
	c.mu.Unlock()

	n := 0
	if f != nil {
		f.cancel()
		c.resolve(f, result{err: apierror.SessionExpired(common.ErrRefreshCancelled)})
		n = len(f.waiters)
		c.log.Info(ctx, "pending refresh reset", "waiters", n)
	}
	return n, err
}

// State reports whether a refresh is currently in flight.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flight != nil {
		return RefreshInFlight
	}
	return Idle
}

// Pending returns the number of requests waiting on the current cycle.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flight == nil {
		return 0
	}
	return len(c.flight.waiters)
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Started:   c.started.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Discarded: c.discarded.Load(),
	}
}

// startLocked creates the flight and launches the refresh call. The call is
// detached from the initiating request: it must outlive that request's
// cancellation because other waiters depend on it. c.mu must be held.
func (c *Coordinator) startLocked(ctx context.Context) *flight {
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	f := &flight{cancel: cancel}
	c.flight = f
	c.started.Add(1)

	c.log.Info(ctx, "token refresh started")
	go c.run(refreshCtx, f)
	return f
}

func (c *Coordinator) run(ctx context.Context, f *flight) {
	defer f.cancel()

	pair, refreshErr := c.refresh(ctx)

	c.mu.Lock()
	if c.flight != f {
		// cleared while the call was in flight
		c.mu.Unlock()
		c.discarded.Add(1)
		c.log.Info(ctx, "refresh result discarded after clear", "refresh_failed", refreshErr != nil)
		return
	}

	// Persist before detaching so that a concurrent clear cannot interleave
	// and no waiter observes the old pair after release.
	refreshErr = c.settleLocked(ctx, pair, refreshErr)
	c.flight = nil
	c.mu.Unlock()

	if refreshErr != nil {
		c.failed.Add(1)
		c.log.Warn(ctx, "token refresh failed", "error", refreshErr, "waiters", len(f.waiters))
		c.resolve(f, result{err: apierror.SessionExpired(refreshErr)})
		return
	}

	c.succeeded.Add(1)
	args := []any{"waiters", len(f.waiters), "access_token", logging.RedactToken(pair.AccessToken)}
	if exp, ok := tokens.ExpiresAt(pair.AccessToken); ok {
		args = append(args, "expires_at", exp)
	}
	c.log.Info(ctx, "token refresh succeeded", args...)
	c.resolve(f, result{token: pair.AccessToken})
}

// settleLocked writes the outcome of a cycle to the store: the new pair on
// success, an empty store on failure. The writes do not inherit the refresh
// deadline, so a timed-out cycle still clears. c.mu must be held.
func (c *Coordinator) settleLocked(ctx context.Context, pair tokens.Pair, refreshErr error) error {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if refreshErr == nil {
		if err := c.store.SetTokens(storeCtx, pair.AccessToken, pair.RefreshToken); err != nil {
			refreshErr = fmt.Errorf("persist tokens: %w", err)
		}
	}
	if refreshErr != nil {
		if err := c.store.ClearAllTokens(storeCtx); err != nil {
			c.log.Error(ctx, "failed to clear tokens", "error", err)
		}
	}
	return refreshErr
}

func (c *Coordinator) refresh(ctx context.Context) (tokens.Pair, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return tokens.Pair{}, common.ErrNoRefreshToken
	}

	pair, err := c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return tokens.Pair{}, err
	}
	if err := pair.Validate(); err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: %w", common.ErrInvalidRefreshResponse, err)
	}
	return pair, nil
}

// resolve signals every waiter of a detached flight exactly once.
func (c *Coordinator) resolve(f *flight, res result) {
	for _, w := range f.waiters {
		w.ch <- res
	}
}

func (c *Coordinator) abandon(f *flight, w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flight != f {
		return
	}
	for i, candidate := range f.waiters {
		if candidate == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}
