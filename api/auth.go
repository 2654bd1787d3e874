package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/unilink-net/unilink/internal/httpx"
	"github.com/unilink-net/unilink/internal/to"
	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

// tokenTTL is how long an issued access token is valid.
const tokenTTL = 24 * time.Hour

// TokenCreate exchanges verified client credentials for a bearer token.
// Only the client_credentials grant is implemented; every call issues a new
// token row carrying the application's full scope set.
func TokenCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		ClientID     string `json:"client_id" schema:"client_id"`
		ClientSecret string `json:"client_secret" schema:"client_secret"`
		GrantType    string `json:"grant_type" schema:"grant_type"`
		Code         string `json:"code" schema:"code"`
		RedirectURI  string `json:"redirect_uri" schema:"redirect_uri"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}

	app, err := verifyClient(env, params.ClientID, params.ClientSecret)
	if err != nil {
		return err
	}

	if params.GrantType != "client_credentials" {
		return httpx.Error(http.StatusBadRequest, "unsupported_grant_type", fmt.Errorf("unsupported grant type: %q", params.GrantType))
	}

	token, raw, err := models.NewTokens(env.DB).Issue(app, tokenTTL)
	if err != nil {
		return err
	}

	// the raw token leaves the process exactly once, here
	return to.JSON(w, map[string]any{
		"access_token": raw,
		"token_type":   token.TokenType,
		"expires_in":   int(tokenTTL.Seconds()),
		"scope":        token.Scope,
	})
}

// TokenRevoke marks a token revoked. The presented client credentials must
// belong to the application the token was issued to. The row is kept for
// the audit trail.
func TokenRevoke(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		ClientID     string `json:"client_id" schema:"client_id"`
		ClientSecret string `json:"client_secret" schema:"client_secret"`
		Token        string `json:"token" schema:"token"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}

	app, err := verifyClient(env, params.ClientID, params.ClientSecret)
	if err != nil {
		return err
	}

	token, err := models.NewTokens(env.DB).FindByRaw(params.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusUnauthorized, "invalid_token", err)
		}
		return err
	}
	if token.ApplicationID != app.ID {
		return httpx.Error(http.StatusUnauthorized, "invalid_token", errors.New("token does not belong to this application"))
	}
	if err := models.NewTokens(env.DB).Revoke(token); err != nil {
		return err
	}
	return to.JSON(w, map[string]any{})
}

// verifyClient resolves client credentials to an active application. The
// secret comparison is constant time.
func verifyClient(env *Env, clientID, clientSecret string) (*models.Application, error) {
	app, err := models.NewApplications(env.DB).FindByClientID(clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.Error(http.StatusUnauthorized, "invalid_client", err)
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(app.ClientSecret), []byte(clientSecret)) != 1 {
		return nil, httpx.Error(http.StatusUnauthorized, "invalid_client", errors.New("client secret mismatch"))
	}
	if !app.Active {
		return nil, httpx.Error(http.StatusUnauthorized, "invalid_client", errors.New("application is deactivated"))
	}
	return app, nil
}
