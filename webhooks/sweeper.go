package webhooks

import (
	"context"
	"time"

	"github.com/unilink-net/unilink/models"
	"gorm.io/gorm"
)

// A SweepResult summarises one sweep over the delivery ledger.
type SweepResult struct {
	// Selected counts rows claimed for a retry.
	Selected int
	// Delivered counts retries that got a success response.
	Delivered int
}

// Sweep makes one pass over deliveries that have not succeeded and are under
// the attempt ceiling, re-posting each and recording the outcome. Each row is
// claimed with a conditional update on its attempt count, so concurrent
// sweeps never retry the same row twice.
func Sweep(ctx context.Context, db *gorm.DB) (SweepResult, error) {
	var result SweepResult
	db = db.WithContext(ctx)
	deliveries := models.NewWebhookDeliveries(db)

	var pending []models.WebhookDelivery
	err := db.Scopes(pendingScope).FindInBatches(&pending, 100, func(tx *gorm.DB, batch int) error {
		for i := range pending {
			delivery := &pending[i]
			claimed, err := deliveries.Claim(delivery)
			if err != nil {
				return err
			}
			if !claimed {
				// another sweep got there first
				continue
			}
			result.Selected++
			if retry(ctx, deliveries, delivery) {
				result.Delivered++
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		return nil
	}).Error
	return result, err
}

func pendingScope(db *gorm.DB) *gorm.DB {
	return db.Preload("WebhookEndpoint").
		Where("delivered_at IS NULL AND attempt_count < ?", models.MaxDeliveryAttempts)
}

// retry re-runs the dispatch POST for a claimed delivery and records the
// attempt. It reports whether the delivery succeeded; errors writing the
// ledger are recorded on a best-effort basis only.
func retry(ctx context.Context, deliveries *models.WebhookDeliveries, delivery *models.WebhookDelivery) bool {
	endpoint := delivery.WebhookEndpoint
	if endpoint == nil || !endpoint.Active {
		deliveries.RecordAttempt(delivery, 0, "webhook endpoint is inactive", false)
		return false
	}

	status, body, err := post(ctx, endpoint, delivery.EventType, []byte(delivery.Payload))
	if err != nil {
		status, body = 0, err.Error()
	}
	success := succeeded(status)
	deliveries.RecordAttempt(delivery, status, body, success)
	return success
}

// Failed returns the deliveries that exhausted their attempt budget without
// ever succeeding, for operator visibility. They are never retried again.
func Failed(db *gorm.DB) ([]models.WebhookDelivery, error) {
	return models.NewWebhookDeliveries(db).Failed()
}

// Age returns how long a delivery has been outstanding.
func Age(delivery *models.WebhookDelivery) time.Duration {
	return time.Since(delivery.CreatedAt)
}
