package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/unilink-net/unilink/internal/httpx"
	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/internal/to"
	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

// CredentialsIndex lists the credentials owned by a user, defaulting to the
// token's own user. Requires scope credentials:read.
func CredentialsIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authorize(r, "credentials:read")
	if err != nil {
		return err
	}

	var params struct {
		UserID string `schema:"user_id"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	userID := token.UserID
	if params.UserID != "" {
		id, err := strconv.ParseUint(params.UserID, 10, 64)
		if err != nil {
			return httpx.Error(http.StatusBadRequest, "invalid_request", err)
		}
		userID = snowflake.ID(id)
	}

	credentials, err := models.NewCredentials(env.DB).FindByUser(userID)
	if err != nil {
		return err
	}

	results := make([]map[string]any, 0, len(credentials))
	for i := range credentials {
		results = append(results, serialiseCredential(&credentials[i], token))
	}

	env.logUsage(r, token, http.StatusOK)
	return to.JSON(w, map[string]any{
		"credentials": results,
	})
}

// CredentialsVerify returns a verification result for a credential without
// mutating the underlying record; it is a presentation action, not a state
// transition. Requires scope credentials:verify.
func CredentialsVerify(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authorize(r, "credentials:verify")
	if err != nil {
		return err
	}

	var params struct {
		CredentialID       string `json:"credential_id" schema:"credential_id"`
		VerificationMethod string `json:"verification_method" schema:"verification_method"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	id, err := strconv.ParseUint(params.CredentialID, 10, 64)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid_request", err)
	}
	method := params.VerificationMethod
	if method == "" {
		method = "content_hash"
	}

	credential, err := models.NewCredentials(env.DB).Find(snowflake.ID(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			env.logUsage(r, token, http.StatusNotFound)
			return httpx.Error(http.StatusNotFound, "credential_not_found", err)
		}
		return err
	}

	env.logUsage(r, token, http.StatusOK)
	return to.JSON(w, map[string]any{
		"credential_id": strconv.FormatUint(uint64(credential.ID), 10),
		"status":        credential.Status,
		"method":        method,
		"verified_at":   time.Now().UTC().Format(time.RFC3339),
		"issuer":        credential.Issuer,
		"type":          credential.Type,
		"content_hash":  credential.ContentHash,
	})
}

// serialiseCredential maps a credential to its reduced API field set. The
// content hash is only included for the credential's owner.
func serialiseCredential(c *models.Credential, token *models.Token) map[string]any {
	result := map[string]any{
		"id":        strconv.FormatUint(uint64(c.ID), 10),
		"type":      c.Type,
		"title":     c.Title,
		"issuer":    c.Issuer,
		"issued_on": c.IssuedOn.Format("2006-01-02"),
		"status":    c.Status,
	}
	if c.UserID == token.UserID {
		result["content_hash"] = c.ContentHash
	}
	return result
}
