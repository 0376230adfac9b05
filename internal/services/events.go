package services

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Routing keys of the domain events the services emit.
const (
	EventUserRegistered          = "user.registered"
	EventPredictionBatchComplete = "prediction.batch_completed"
)

// EventPublisher delivers domain events. A nil publisher disables events.
type EventPublisher interface {
	PublishEvent(routingKey string, payload map[string]any) error
}

// publishEvent stamps payload with an id and timestamp and hands it to p.
// Delivery failures are logged and never surface to the caller.
func publishEvent(p EventPublisher, routingKey string, payload map[string]any) {
	if p == nil {
		return
	}
	payload["event_id"] = uuid.NewString()
	payload["occurred_at"] = time.Now().UTC().Format(time.RFC3339)
	if err := p.PublishEvent(routingKey, payload); err != nil {
		log.WithError(err).WithField("event", routingKey).Warn("failed to publish event")
	}
}
