package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/common"
)

const (
	DefaultEmail    = "courier@example.com"
	DefaultPassword = "correct horse"
)

type Option func(*Server)

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// Server is the fake API. Create it with New; it is closed by t.Cleanup when
// started through NewTest, or by Close otherwise.
type Server struct {
	*httptest.Server

	secret    []byte
	accessTTL time.Duration

	mu            sync.Mutex
	users         map[string]string // email -> password
	refreshTokens map[string]string // live refresh token -> email
	generation    int
	refreshGate   chan struct{}
	refreshStatus int
	rejectAll     bool
	hits          map[string]int
	lastHeaders   map[string]http.Header

	refreshCalls atomic.Int32
	inRefresh    atomic.Int32

	restaurants []Restaurant
	orders      []Order
}

func New(opts ...Option) *Server {
	s := &Server{
		secret:        common.GenerateRandByteArray(32),
		accessTTL:     15 * time.Minute,
		users:         map[string]string{DefaultEmail: DefaultPassword},
		refreshTokens: make(map[string]string),
		hits:          make(map[string]int),
		lastHeaders:   make(map[string]http.Header),
		restaurants:   seedRestaurants(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// NewTest starts a server that is closed when the test ends.
func NewTest(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := New(opts...)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", s.login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", s.refresh).Methods(http.MethodPost)
	auth.Handle("/logout", s.protected(http.HandlerFunc(s.logout))).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(s.protected)
	api.HandleFunc("/me", s.me).Methods(http.MethodGet)
	api.HandleFunc("/restaurants", s.listRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id}", s.getRestaurant).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.updateOrder).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/orders/{id}", s.deleteOrder).Methods(http.MethodDelete)
	api.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "", "")
	}).Methods(http.MethodGet)
	api.HandleFunc("/busy", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "SLOW_DOWN", "Too many orders, slow down")
	}).Methods(http.MethodGet)
	api.HandleFunc("/admin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin only"})
	}).Methods(http.MethodGet)

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.lastHeaders[r.URL.Path] = r.Header.Clone()
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// AddUser registers credentials accepted by /auth/login.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// Issue mints a valid pair for email without going through /auth/login.
func (s *Server) Issue(email string) tokens.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, err := s.issueLocked(email)
	if err != nil {
		panic(err)
	}
	return pair
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

// GateRefresh makes the refresh endpoint block until the returned func is
// called.
func (s *Server) GateRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores
// normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatus = status
}

// RejectAllTokens makes the protected routes answer 401 regardless of the
// token, fresh ones included.
func (s *Server) RejectAllTokens(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectAll = reject
}

func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// RefreshesInProgress counts refresh requests currently held by the gate.
func (s *Server) RefreshesInProgress() int {
	return int(s.inRefresh.Load())
}

func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Server) LastHeader(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeaders[path].Clone()
}

// LiveRefreshTokens is the number of refresh tokens the server would accept.
func (s *Server) LiveRefreshTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refreshTokens)
}
