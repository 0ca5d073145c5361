package apitest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/common"
)

type contextKey string

const emailContextKey contextKey = "email"

var errStaleToken = errors.New("token from an expired generation")

type claims struct {
	jwt.RegisteredClaims
	Generation int `json:"gen"`
}

func (s *Server) issueLocked(email string) (tokens.Pair, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Generation: s.generation,
	})
	access, err := token.SignedString(s.secret)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("refresh token: %w", err)
	}
	s.refreshTokens[refresh] = email
	return tokens.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) verify(tokenString string) (string, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Generation != s.generation {
		return "", errStaleToken
	}
	return c.Subject, nil
}

func (s *Server) protected(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		rejectAll := s.rejectAll
		s.mu.Unlock()

		header := r.Header.Get(common.AuthorizationHeaderName)
		if header == "" || !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, http.StatusUnauthorized, "", "")
			return
		}
		if rejectAll {
			writeError(w, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked")
			return
		}

		email, err := s.verify(strings.TrimPrefix(header, common.BearerPrefix))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), emailContextKey, email)))
	})
}

func emailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(emailContextKey).(string)
	return email
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Malformed request body")
		return
	}
	if in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": []string{"email should not be empty", "password should not be empty"},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if want, ok := s.users[in.Email]; !ok || want != in.Password {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	pair, err := s.issueLocked(in.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()
	if gate != nil {
		s.inRefresh.Add(1)
		select {
		case <-gate:
		case <-r.Context().Done():
		}
		s.inRefresh.Add(-1)
	}

	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshStatus != 0 {
		writeError(w, s.refreshStatus, "", "")
		return
	}
	email, ok := s.refreshTokens[in.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
		return
	}
	// rotation: a refresh token is good for one exchange
	delete(s.refreshTokens, in.RefreshToken)

	pair, err := s.issueLocked(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	email := emailFromContext(r.Context())
	s.mu.Lock()
	for token, owner := range s.refreshTokens {
		if owner == email {
			delete(s.refreshTokens, token)
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
