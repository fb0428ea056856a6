package service

import (
	"context"
	"fmt"

	"example.com/cloudpanel/internal/cache"
	"example.com/cloudpanel/internal/models"

	"github.com/sirupsen/logrus"
)

// Channel key prefixes. Subscribers compose the same keys client-side, so the
// composition rules here are part of the wire contract.
const (
	ownerActionChannelPrefix = "action"
	asyncChannelPrefix       = "async"
	errorChannelPrefix       = "error"
	alertChannelPrefix       = "alert"
	resourceChannelPrefix    = "resource"
)

// OwnerActionChannel is the coarse per-owner dashboard feed
func OwnerActionChannel(ownerID uint) string {
	return fmt.Sprintf("%s:%d", ownerActionChannelPrefix, ownerID)
}

// ActionResourceChannel is the fine-grained per-resource action feed
func ActionResourceChannel(eventName string, ownerID uint, resourceUUID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", ownerActionChannelPrefix, eventName, ownerID, resourceUUID)
}

// AsyncChannel carries terminal success notices for async jobs
func AsyncChannel(eventName string, ownerID uint, resourceUUID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", asyncChannelPrefix, eventName, ownerID, resourceUUID)
}

// ErrorChannel carries terminal failure notices for async jobs
func ErrorChannel(eventName string, ownerID uint, resourceUUID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", errorChannelPrefix, eventName, ownerID, resourceUUID)
}

// AlertChannel is the global feed for system alerts
func AlertChannel(eventName string) string {
	return fmt.Sprintf("%s:%s", alertChannelPrefix, eventName)
}

// ResourceChannel is the per-resource feed used when no event name is set
func ResourceChannel(resourceUUID string) string {
	return fmt.Sprintf("%s:%s", resourceChannelPrefix, resourceUUID)
}

// WebsocketService routes a persisted event to its subscriber channels. It
// holds no state and is a pure transformation from an event to a set of
// publish calls, so it is safely re-entrant. Publishing is fire-and-forget:
// transport failures are logged and dropped, never propagated, and the
// durable event ledger covers missed pushes through the polling queries.
type WebsocketService interface {
	HandleEventAction(ctx context.Context, event *models.Event)
}

// websocketService implements WebsocketService
type websocketService struct {
	cache cache.RedisClient
	log   *logrus.Logger
}

// NewWebsocketService creates a new websocket fan-out service
func NewWebsocketService(cache cache.RedisClient, log *logrus.Logger) WebsocketService {
	return &websocketService{
		cache: cache,
		log:   log,
	}
}

// HandleEventAction computes the destination channels for a persisted event
// and publishes to each. Callers must only pass events that were durably
// saved; an event that failed to persist is never pushed.
func (s *websocketService) HandleEventAction(ctx context.Context, event *models.Event) {
	// Events without a name cannot be routed by type; subscribers watching
	// the affected resource still get the raw message.
	if event.EventName == "" {
		if event.ResourceUUID != "" {
			s.publish(ctx, event, ResourceChannel(event.ResourceUUID), event.Message)
		}
		return
	}

	switch event.EventType {
	case models.EventTypeAction:
		if event.EventOwnerID != nil {
			s.publish(ctx, event, OwnerActionChannel(*event.EventOwnerID), event.Message)
			if event.ResourceUUID != "" {
				s.publish(ctx, event, ActionResourceChannel(event.EventName, *event.EventOwnerID, event.ResourceUUID), event.Message)
			}
		}

	case models.EventTypeAsync:
		s.routeAsync(ctx, event)

	case models.EventTypeAlert:
		s.publish(ctx, event, AlertChannel(event.EventName), event.Message)

	default:
		s.log.WithFields(logrus.Fields{
			"event_uuid": event.UUID,
			"event_type": event.EventType,
		}).Warn("Unknown event type, not routed")
	}
}

// routeAsync routes ASYNC events by status. Intermediate statuses are
// suppressed to keep the push feeds free of noisy in-progress updates.
func (s *websocketService) routeAsync(ctx context.Context, event *models.Event) {
	switch event.Status {
	case models.EventStatusSucceeded:
		if event.EventOwnerID != nil && event.ResourceUUID != "" {
			// Success notices carry the status only; the resource detail view
			// refetches whatever it needs.
			s.publish(ctx, event, AsyncChannel(event.EventName, *event.EventOwnerID, event.ResourceUUID), string(event.Status))
			return
		}
		s.degradeToOwner(ctx, event)

	case models.EventStatusFailed:
		if event.EventOwnerID != nil && event.ResourceUUID != "" {
			s.publish(ctx, event, ErrorChannel(event.EventName, *event.EventOwnerID, event.ResourceUUID), event.Message)
			return
		}
		s.degradeToOwner(ctx, event)

	case models.EventStatusCreated, models.EventStatusInProgress:
		// suppressed

	default:
		s.log.WithFields(logrus.Fields{
			"event_uuid": event.UUID,
			"status":     event.Status,
		}).Warn("Unknown async event status, not routed")
	}
}

// degradeToOwner falls back to the owner feed for terminal async events that
// carry no resource uuid
func (s *websocketService) degradeToOwner(ctx context.Context, event *models.Event) {
	if event.EventOwnerID == nil {
		return
	}
	s.publish(ctx, event, OwnerActionChannel(*event.EventOwnerID), event.Message)
}

// publish sends one payload to one channel, containing any transport failure
func (s *websocketService) publish(ctx context.Context, event *models.Event, channel, payload string) {
	if err := s.cache.Publish(ctx, channel, payload); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"channel":    channel,
			"event_uuid": event.UUID,
		}).Error("Failed to publish event to channel")
		return
	}
	s.log.WithFields(logrus.Fields{
		"channel":    channel,
		"event_uuid": event.UUID,
	}).Debug("Published event to channel")
}
