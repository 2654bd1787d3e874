package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

func TestProfilesShow(t *testing.T) {
	db := setupTestDB(t)

	t.Run("defaults to the token's own user", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		user := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, user)
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "GET", "/users/profile", raw, "")
		require.Equal(http.StatusOK, rec.Code)

		resp := decodeBody(t, rec)
		require.Equal("alice", resp["display_name"])
		require.Equal("Example State University", resp["university"])
		require.Equal(float64(2020), resp["graduation_year"])
		// the public subset never includes an email
		require.NotContains(resp, "email")
	})

	t.Run("looks up another user by id", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		bob := mockUser(t, tx, "bob")
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "GET", fmt.Sprintf("/users/profile/%d", bob.ID), raw, "")
		require.Equal(http.StatusOK, rec.Code)
		require.Equal("bob", decodeBody(t, rec)["display_name"])
	})

	t.Run("unknown user id", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		user := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, user)
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "GET", "/users/profile/12345", raw, "")
		require.Equal(http.StatusNotFound, rec.Code)
		require.Equal("profile_not_found", decodeBody(t, rec)["error"])
	})

	t.Run("another user's private profile reads as not found", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		bob := mockUser(t, tx, "bob")
		require.NoError(tx.Model(&models.Profile{}).Where("user_id = ?", bob.ID).UpdateColumn("public", false).Error)
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "GET", fmt.Sprintf("/users/profile/%d", bob.ID), raw, "")
		require.Equal(http.StatusNotFound, rec.Code)
	})
}

func TestDirectoryIndex(t *testing.T) {
	db := setupTestDB(t)

	t.Run("filters and reports the returned count as total", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		bob := mockUser(t, tx, "bob")
		require.NoError(tx.Model(&models.Profile{}).Where("user_id = ?", bob.ID).UpdateColumn("university", "Polytechnic Institute").Error)
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "GET", "/users/directory?university=example+state", raw, "")
		require.Equal(http.StatusOK, rec.Code)

		resp := decodeBody(t, rec)
		profiles := resp["profiles"].([]any)
		require.Len(profiles, 1)
		require.Equal(float64(1), resp["total"])
	})

	t.Run("limit caps the page and the reported total", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		for _, name := range []string{"alice", "bob", "carol"} {
			mockUser(t, tx, name)
		}
		app := mockApplication(t, tx, mockUser(t, tx, "dave"))
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "GET", "/users/directory?limit=2", raw, "")
		require.Equal(http.StatusOK, rec.Code)

		resp := decodeBody(t, rec)
		require.Len(resp["profiles"].([]any), 2)
		// total mirrors the page size, not the population
		require.Equal(float64(2), resp["total"])
	})
}

func TestCredentials(t *testing.T) {
	db := setupTestDB(t)

	mockCredential := func(t *testing.T, tx *gorm.DB, user *models.User, title string) *models.Credential {
		t.Helper()
		credential := &models.Credential{
			ID:          snowflake.Now(),
			UserID:      user.ID,
			Type:        "degree",
			Title:       title,
			Issuer:      "Example State University",
			ContentHash: "deadbeef",
		}
		require.NoError(t, tx.Create(credential).Error)
		return credential
	}

	t.Run("list includes the content hash only for the owner", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		bob := mockUser(t, tx, "bob")
		mockCredential(t, tx, alice, "BSc Computer Science")
		mockCredential(t, tx, bob, "MBA")

		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)
		h := testRouter(NewEnv(tx))

		rec := doJSON(t, h, "GET", "/credentials/list", raw, "")
		require.Equal(http.StatusOK, rec.Code)
		own := decodeBody(t, rec)["credentials"].([]any)
		require.Len(own, 1)
		require.Contains(own[0].(map[string]any), "content_hash")

		rec = doJSON(t, h, "GET", fmt.Sprintf("/credentials/list?user_id=%d", bob.ID), raw, "")
		require.Equal(http.StatusOK, rec.Code)
		others := decodeBody(t, rec)["credentials"].([]any)
		require.Len(others, 1)
		require.NotContains(others[0].(map[string]any), "content_hash")
	})

	t.Run("verify returns a result without mutating the credential", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		credential := mockCredential(t, tx, alice, "BSc Computer Science")
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		body := fmt.Sprintf(`{"credential_id":"%d","verification_method":"registry_lookup"}`, credential.ID)
		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/credentials/verify", raw, body)
		require.Equal(http.StatusOK, rec.Code)

		resp := decodeBody(t, rec)
		require.Equal("registry_lookup", resp["method"])
		require.Equal("Example State University", resp["issuer"])
		require.Equal("deadbeef", resp["content_hash"])
		require.NotEmpty(resp["verified_at"])

		var found models.Credential
		require.NoError(tx.First(&found, credential.ID).Error)
		require.Equal(credential.UpdatedAt.Unix(), found.UpdatedAt.Unix())
		require.Equal(credential.Status, found.Status)
	})

	t.Run("verify of a nonexistent credential", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/credentials/verify", raw, `{"credential_id":"12345"}`)
		require.Equal(http.StatusNotFound, rec.Code)
		require.Equal("credential_not_found", decodeBody(t, rec)["error"])
	})
}

func TestWebhookEndpointsAPI(t *testing.T) {
	db := setupTestDB(t)

	t.Run("create generates a secret when none is supplied", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		body := `{"url":"https://example.com/hook","events":["credential.issued"]}`
		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/webhooks", raw, body)
		require.Equal(http.StatusCreated, rec.Code)

		resp := decodeBody(t, rec)
		require.NotEmpty(resp["secret"])
		require.Equal(true, resp["active"])
	})

	t.Run("create rejects unknown event types", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, alice)
		raw := issueToken(t, tx, app)

		body := `{"url":"https://example.com/hook","events":["credential.misplaced"]}`
		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/webhooks", raw, body)
		require.Equal(http.StatusBadRequest, rec.Code)
		require.Equal("invalid_request", decodeBody(t, rec)["error"])
	})

	t.Run("update of another application's endpoint reads as not found", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		acme := mockApplication(t, tx, alice)
		globex := mockApplication(t, tx, alice)
		endpoint, err := models.NewWebhookEndpoints(tx).Create(acme.ID, "https://example.com/hook", []string{"credential.issued"}, "whsec_1")
		require.NoError(err)

		raw := issueToken(t, tx, globex)
		rec := doJSON(t, testRouter(NewEnv(tx)), "PATCH", fmt.Sprintf("/webhooks/%d", endpoint.ID), raw, `{"active":false}`)
		require.Equal(http.StatusNotFound, rec.Code)
		require.Equal("webhook_not_found", decodeBody(t, rec)["error"])
	})
}

func TestWebhookDispatchAPI(t *testing.T) {
	db := setupTestDB(t)

	t.Run("reports delivery failure in the body, not as an error", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		alice := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, alice)
		endpoint, err := models.NewWebhookEndpoints(tx).Create(app.ID, srv.URL, []string{"credential.issued"}, "whsec_1")
		require.NoError(err)

		body := fmt.Sprintf(`{"webhook_id":"%d","event_type":"credential.issued","payload":{"credential_id":"42"}}`, endpoint.ID)
		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/webhook-dispatch", "", body)
		require.Equal(http.StatusOK, rec.Code)

		resp := decodeBody(t, rec)
		require.Equal(false, resp["success"])
		require.Equal(float64(http.StatusServiceUnavailable), resp["status"])
		require.NotEmpty(resp["delivery_id"])
	})

	t.Run("unsubscribed event type", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		alice := mockUser(t, tx, "alice")
		app := mockApplication(t, tx, alice)
		endpoint, err := models.NewWebhookEndpoints(tx).Create(app.ID, "https://example.com/hook", []string{"credential.issued"}, "whsec_1")
		require.NoError(err)

		body := fmt.Sprintf(`{"webhook_id":"%d","event_type":"credential.revoked","payload":{}}`, endpoint.ID)
		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/webhook-dispatch", "", body)
		require.Equal(http.StatusBadRequest, rec.Code)
		require.Equal("event_not_subscribed", decodeBody(t, rec)["error"])
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		require := require.New(t)
		tx := db.Begin()
		defer tx.Rollback()

		rec := doJSON(t, testRouter(NewEnv(tx)), "POST", "/webhook-dispatch", "", `{"webhook_id":"12345","event_type":"credential.issued","payload":{}}`)
		require.Equal(http.StatusNotFound, rec.Code)
		require.Equal("webhook_not_found", decodeBody(t, rec)["error"])
	})
}
