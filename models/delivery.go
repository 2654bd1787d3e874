package models

import (
	"time"

	"github.com/unilink-net/unilink/internal/snowflake"
	"gorm.io/gorm"
)

// MaxDeliveryAttempts is the hard ceiling on webhook delivery attempts,
// counting the initial dispatch.
const MaxDeliveryAttempts = 3

// A WebhookDelivery records one webhook payload and the attempts made to
// deliver it. Rows are appended and updated in place, never deleted; the
// ledger is the audit trail that drives retry selection.
type WebhookDelivery struct {
	snowflake.ID      `gorm:"primarykey;autoIncrement:false"`
	CreatedAt         time.Time
	WebhookEndpointID snowflake.ID     `gorm:"not null;index"`
	WebhookEndpoint   *WebhookEndpoint `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	EventType         string           `gorm:"size:64;not null"`
	Payload           string           `gorm:"not null"`
	ResponseStatus    *int
	ResponseBody      *string
	AttemptCount      int `gorm:"not null;default:1"`
	// DeliveredAt is set if and only if a success range response was
	// observed.
	DeliveredAt *time.Time
}

// Delivered reports whether the payload has reached the receiver.
func (d *WebhookDelivery) Delivered() bool {
	return d.DeliveredAt != nil
}

// Exhausted reports whether the delivery has used up its attempt budget
// without succeeding.
func (d *WebhookDelivery) Exhausted() bool {
	return d.DeliveredAt == nil && d.AttemptCount >= MaxDeliveryAttempts
}

type WebhookDeliveries struct {
	db *gorm.DB
}

func NewWebhookDeliveries(db *gorm.DB) *WebhookDeliveries {
	return &WebhookDeliveries{db: db}
}

// Record inserts the delivery row created by the initial dispatch.
func (w *WebhookDeliveries) Record(d *WebhookDelivery) error {
	return w.db.Create(d).Error
}

// Claim increments the delivery's attempt count, gated on the attempt count
// the caller observed. It reports false when another sweep claimed the row
// first, making retries idempotent per row.
func (w *WebhookDeliveries) Claim(d *WebhookDelivery) (bool, error) {
	res := w.db.Model(&WebhookDelivery{}).
		Where("id = ? AND attempt_count = ? AND delivered_at IS NULL", d.ID, d.AttemptCount).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	d.AttemptCount++
	return true, nil
}

// RecordAttempt stores the outcome of a delivery attempt. DeliveredAt is set
// only on a success range response.
func (w *WebhookDeliveries) RecordAttempt(d *WebhookDelivery, status int, body string, success bool) error {
	d.ResponseStatus = &status
	d.ResponseBody = &body
	columns := map[string]interface{}{
		"response_status": status,
		"response_body":   body,
	}
	if success {
		now := time.Now()
		d.DeliveredAt = &now
		columns["delivered_at"] = now
	}
	return w.db.Model(d).UpdateColumns(columns).Error
}

// Find returns the delivery with the given id.
func (w *WebhookDeliveries) Find(id snowflake.ID) (*WebhookDelivery, error) {
	var delivery WebhookDelivery
	if err := w.db.First(&delivery, id).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// Failed returns deliveries that have exhausted their attempt budget without
// succeeding. They are reported for operators, never retried or deleted.
func (w *WebhookDeliveries) Failed() ([]WebhookDelivery, error) {
	var deliveries []WebhookDelivery
	err := w.db.Preload("WebhookEndpoint").
		Where("delivered_at IS NULL AND attempt_count >= ?", MaxDeliveryAttempts).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
