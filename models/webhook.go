package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
)

// EventTypes lists the event types a webhook endpoint may subscribe to.
var EventTypes = []string{
	"credential.issued",
	"credential.revoked",
	"profile.updated",
	"connection.created",
	"event.registered",
	"job.posted",
}

// KnownEventType reports whether the given event type exists.
func KnownEventType(event string) bool {
	for _, e := range EventTypes {
		if e == event {
			return true
		}
	}
	return false
}

// A WebhookEndpoint is an outbound webhook subscription.
// A WebhookEndpoint belongs to an Application.
// Outbound payloads are signed with the endpoint's secret so the receiver
// can verify authenticity.
type WebhookEndpoint struct {
	snowflake.ID  `gorm:"primarykey;autoIncrement:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ApplicationID snowflake.ID `gorm:"not null;index"`
	Application   *Application `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	URL           string       `gorm:"size:255;not null"`
	// Events is the space separated set of subscribed event types. An
	// endpoint never receives an event type it has not subscribed to.
	Events string `gorm:"size:255;not null"`
	Secret string `gorm:"size:64;not null"`
	Active bool   `gorm:"not null;default:true"`
}

// SubscribesTo reports whether the endpoint subscribes to the given event
// type.
func (e *WebhookEndpoint) SubscribesTo(event string) bool {
	for _, s := range strings.Fields(e.Events) {
		if s == event {
			return true
		}
	}
	return false
}

// EventList returns the subscribed event types as a slice.
func (e *WebhookEndpoint) EventList() []string {
	return strings.Fields(e.Events)
}

type WebhookEndpoints struct {
	db *gorm.DB
}

func NewWebhookEndpoints(db *gorm.DB) *WebhookEndpoints {
	return &WebhookEndpoints{db: db}
}

// Create registers a webhook endpoint for the given application. The URL
// must be absolute http(s) and events must be a non-empty set of known
// event types.
func (w *WebhookEndpoints) Create(applicationID snowflake.ID, rawurl string, events []string, secret string) (*WebhookEndpoint, error) {
	if err := validateWebhookURL(rawurl); err != nil {
		return nil, err
	}
	if err := validateEvents(events); err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrValidation)
	}
	endpoint := &WebhookEndpoint{
		ID:            snowflake.Now(),
		ApplicationID: applicationID,
		URL:           rawurl,
		Events:        strings.Join(events, " "),
		Secret:        secret,
		Active:        true,
	}
	if err := w.db.Create(endpoint).Error; err != nil {
		return nil, err
	}
	return endpoint, nil
}

// WebhookEndpointFields holds the mutable fields of an endpoint. Nil fields
// are left unchanged.
type WebhookEndpointFields struct {
	URL    *string
	Events []string
	Active *bool
}

// Update applies the given fields to an endpoint owned by the given
// application.
func (w *WebhookEndpoints) Update(id, applicationID snowflake.ID, fields WebhookEndpointFields) (*WebhookEndpoint, error) {
	var endpoint WebhookEndpoint
	if err := w.db.Where("application_id = ?", applicationID).First(&endpoint, id).Error; err != nil {
		return nil, err
	}
	if fields.URL != nil {
		if err := validateWebhookURL(*fields.URL); err != nil {
			return nil, err
		}
		endpoint.URL = *fields.URL
	}
	if fields.Events != nil {
		if err := validateEvents(fields.Events); err != nil {
			return nil, err
		}
		endpoint.Events = strings.Join(fields.Events, " ")
	}
	if fields.Active != nil {
		endpoint.Active = *fields.Active
	}
	if err := w.db.Save(&endpoint).Error; err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// Find returns the endpoint with the given id.
func (w *WebhookEndpoints) Find(id snowflake.ID) (*WebhookEndpoint, error) {
	var endpoint WebhookEndpoint
	if err := w.db.First(&endpoint, id).Error; err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// FindByApplication returns all endpoints registered by the given
// application.
func (w *WebhookEndpoints) FindByApplication(applicationID snowflake.ID) ([]WebhookEndpoint, error) {
	var endpoints []WebhookEndpoint
	if err := w.db.Where("application_id = ?", applicationID).Find(&endpoints).Error; err != nil {
		return nil, err
	}
	return endpoints, nil
}

func validateWebhookURL(rawurl string) error {
	u, err := url.Parse(rawurl)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: delivery url must be absolute http or https", ErrValidation)
	}
	return nil
}

func validateEvents(events []string) error {
	if len(events) == 0 {
		return fmt.Errorf("%w: at least one event type is required", ErrValidation)
	}
	for _, e := range events {
		if !KnownEventType(e) {
			return fmt.Errorf("%w: unknown event type %q", ErrValidation, e)
		}
	}
	return nil
}
