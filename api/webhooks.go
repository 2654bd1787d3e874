package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/unilink-net/unilink/internal/httpx"
	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/internal/to"
	"github.com/unilink-net/unilink/models"
	"github.com/unilink-net/unilink/webhooks"
	"gorm.io/gorm"
)

// WebhooksIndex lists the webhook endpoints registered by the token's
// application.
func WebhooksIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authenticate(r)
	if err != nil {
		return err
	}

	endpoints, err := models.NewWebhookEndpoints(env.DB).FindByApplication(token.ApplicationID)
	if err != nil {
		return err
	}
	results := make([]map[string]any, 0, len(endpoints))
	for i := range endpoints {
		results = append(results, serialiseEndpoint(&endpoints[i]))
	}

	env.logUsage(r, token, http.StatusOK)
	return to.JSON(w, map[string]any{
		"webhooks": results,
	})
}

// WebhooksCreate registers a webhook endpoint for the token's application.
// A secret is generated when the caller does not supply one.
func WebhooksCreate(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authenticate(r)
	if err != nil {
		return err
	}

	var params struct {
		URL    string   `json:"url"`
		Events []string `json:"events"`
		Secret string   `json:"secret"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	if params.Secret == "" {
		params.Secret = "whsec_" + uuid.New().String()
	}

	endpoint, err := models.NewWebhookEndpoints(env.DB).Create(token.ApplicationID, params.URL, params.Events, params.Secret)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return httpx.Error(http.StatusBadRequest, "invalid_request", err)
		}
		return err
	}

	env.logUsage(r, token, http.StatusCreated)
	return to.JSONStatus(w, http.StatusCreated, serialiseEndpoint(endpoint))
}

// WebhooksUpdate applies a partial update to one of the application's own
// webhook endpoints.
func WebhooksUpdate(env *Env, w http.ResponseWriter, r *http.Request) error {
	token, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid_request", err)
	}

	var params struct {
		URL    *string  `json:"url"`
		Events []string `json:"events"`
		Active *bool    `json:"active"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}

	endpoint, err := models.NewWebhookEndpoints(env.DB).Update(snowflake.ID(id), token.ApplicationID, models.WebhookEndpointFields{
		URL:    params.URL,
		Events: params.Events,
		Active: params.Active,
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return httpx.Error(http.StatusNotFound, "webhook_not_found", err)
		case errors.Is(err, models.ErrValidation):
			return httpx.Error(http.StatusBadRequest, "invalid_request", err)
		}
		return err
	}

	env.logUsage(r, token, http.StatusOK)
	return to.JSON(w, serialiseEndpoint(endpoint))
}

// WebhookDispatch triggers a delivery to a single endpoint. It is an
// internal endpoint for event producers; delivery failure is reported in
// the response body, never as an error, so producers are never blocked.
func WebhookDispatch(env *Env, w http.ResponseWriter, r *http.Request) error {
	var params struct {
		WebhookID string        `json:"webhook_id"`
		EventType string        `json:"event_type"`
		Payload   json.RawValue `json:"payload"`
	}
	if err := json.UnmarshalFull(r.Body, &params); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid_request", err)
	}
	id, err := strconv.ParseUint(params.WebhookID, 10, 64)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid_request", err)
	}

	result, err := webhooks.Dispatch(r.Context(), env.DB, snowflake.ID(id), params.EventType, params.Payload)
	if err != nil {
		switch {
		case errors.Is(err, webhooks.ErrEndpointNotFound):
			return httpx.Error(http.StatusNotFound, "webhook_not_found", err)
		case errors.Is(err, webhooks.ErrNotSubscribed):
			return httpx.Error(http.StatusBadRequest, "event_not_subscribed", err)
		}
		return err
	}

	return to.JSON(w, map[string]any{
		"success":     result.Success,
		"status":      result.Status,
		"delivery_id": strconv.FormatUint(uint64(result.DeliveryID), 10),
	})
}

func serialiseEndpoint(e *models.WebhookEndpoint) map[string]any {
	return map[string]any{
		"id":     strconv.FormatUint(uint64(e.ID), 10),
		"url":    e.URL,
		"events": e.EventList(),
		"secret": e.Secret,
		"active": e.Active,
	}
}
