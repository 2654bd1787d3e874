// Package api implements the UniLink public API service.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/unilink-net/unilink/internal/httpx"
	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

// Env is the request environment shared by all handlers.
type Env struct {
	// DB is the database connection.
	DB *gorm.DB

	limits *rateLimiters
}

// NewEnv returns a new request environment backed by the given database.
func NewEnv(db *gorm.DB) *Env {
	return &Env{
		DB:     db,
		limits: newRateLimiters(),
	}
}

// authenticate authenticates the bearer token attached to the request and,
// if successful, returns the token with its application and user resolved.
func (e *Env) authenticate(r *http.Request) (*models.Token, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, httpx.Error(http.StatusUnauthorized, "unauthorized", errors.New("missing or malformed authorization header"))
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	token, err := models.NewTokens(e.DB).Authenticate(raw)
	switch {
	case err == nil:
	case errors.Is(err, models.ErrTokenExpired):
		return nil, httpx.Error(http.StatusUnauthorized, "token_expired", err)
	case errors.Is(err, models.ErrTokenRevoked), errors.Is(err, gorm.ErrRecordNotFound):
		return nil, httpx.Error(http.StatusUnauthorized, "invalid_token", err)
	default:
		return nil, err
	}

	if !e.limits.allow(token.Application) {
		return nil, httpx.Error(http.StatusTooManyRequests, "rate_limited", fmt.Errorf("application %s exceeded its rate limit", token.Application.ClientID))
	}

	// best effort, a lost last-used update never fails the request
	models.NewTokens(e.DB).Touch(token)
	return token, nil
}

// authorize authenticates the request and requires the given scope. Scope
// checks are per endpoint; holding a valid token alone grants nothing.
func (e *Env) authorize(r *http.Request, scope string) (*models.Token, error) {
	token, err := e.authenticate(r)
	if err != nil {
		return nil, err
	}
	if !token.HasScope(scope) {
		return nil, httpx.Error(http.StatusForbidden, "insufficient_scope", fmt.Errorf("token lacks scope %q", scope))
	}
	return token, nil
}

// logUsage appends one usage-log row for the call. Best effort only.
func (e *Env) logUsage(r *http.Request, token *models.Token, status int) {
	models.NewUsageLogs(e.DB).Append(&models.UsageLog{
		TokenID:       token.ID,
		ApplicationID: token.ApplicationID,
		Endpoint:      r.URL.Path,
		Method:        r.Method,
		StatusCode:    status,
		RemoteAddr:    r.RemoteAddr,
		UserAgent:     r.UserAgent(),
	})
}
