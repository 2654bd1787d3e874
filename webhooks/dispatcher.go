// Package webhooks delivers event payloads to subscriber registered URLs
// and retries the ones that did not get through.
package webhooks

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/unilink-net/unilink/internal/snowflake"
	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

// ErrEndpointNotFound is returned when the endpoint does not exist or has
// been deactivated.
var ErrEndpointNotFound = errors.New("webhook endpoint not found")

// ErrNotSubscribed is returned when the endpoint has not subscribed to the
// event type. No delivery row is recorded and no network call is made.
var ErrNotSubscribed = errors.New("endpoint is not subscribed to event type")

// deliveryTimeout bounds each outbound POST. A timeout is recorded as a
// failed attempt eligible for retry.
const deliveryTimeout = 10 * time.Second

// Header names attached to every outbound delivery.
const (
	HeaderEvent     = "X-UniLink-Event"
	HeaderSignature = "X-UniLink-Signature"
	HeaderSecret    = "X-Webhook-Secret"
)

// A Result reports the outcome of a dispatch to its trigger. Delivery
// failure is reported here, never as an error: a failed POST must not block
// the event that caused it.
type Result struct {
	Success    bool
	Status     int
	DeliveryID snowflake.ID
}

// Dispatch signs and POSTs the payload to the endpoint and records the
// outcome in the delivery ledger.
func Dispatch(ctx context.Context, db *gorm.DB, endpointID snowflake.ID, eventType string, payload []byte) (*Result, error) {
	endpoint, err := models.NewWebhookEndpoints(db).Find(endpointID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEndpointNotFound
		}
		return nil, err
	}
	if !endpoint.Active {
		return nil, ErrEndpointNotFound
	}
	if !endpoint.SubscribesTo(eventType) {
		return nil, ErrNotSubscribed
	}

	status, body, err := post(ctx, endpoint, eventType, payload)
	if err != nil {
		// transport failure: no status was observed, keep the error text
		// as the response body for the ledger
		status, body = 0, err.Error()
	}
	success := succeeded(status)

	delivery := &models.WebhookDelivery{
		ID:                snowflake.Now(),
		WebhookEndpointID: endpoint.ID,
		EventType:         eventType,
		Payload:           string(payload),
		ResponseStatus:    &status,
		ResponseBody:      &body,
		AttemptCount:      1,
	}
	if success {
		now := time.Now()
		delivery.DeliveredAt = &now
	}
	if err := models.NewWebhookDeliveries(db).Record(delivery); err != nil {
		return nil, err
	}
	return &Result{Success: success, Status: status, DeliveryID: delivery.ID}, nil
}

// post signs and sends one delivery attempt. A non-2xx response is not an
// error; the status and body are returned for the ledger.
func post(ctx context.Context, endpoint *models.WebhookEndpoint, eventType string, payload []byte) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	var status int
	var body string
	err := requests.URL(endpoint.URL).
		ContentType("application/json").
		Header(HeaderEvent, eventType).
		Header(HeaderSignature, Sign(endpoint.Secret, payload)).
		Header(HeaderSecret, endpoint.Secret).
		BodyBytes(payload).
		AddValidator(func(res *http.Response) error {
			status = res.StatusCode
			return nil
		}).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return 0, "", err
	}
	return status, body, nil
}

func succeeded(status int) bool {
	return status >= 200 && status < 300
}
