package service

import (
	"context"
	"fmt"

	"example.com/cloudpanel/internal/messaging"
	"example.com/cloudpanel/internal/models"

	"github.com/sirupsen/logrus"
)

// EmailJob is the message placed on the email queue for the notification
// mailer. Template rendering and delivery happen downstream.
type EmailJob struct {
	Template     string `json:"template"`
	OwnerID      uint   `json:"owner_id"`
	EventName    string `json:"event"`
	EventUUID    string `json:"event_uuid"`
	ResourceUUID string `json:"resource_uuid,omitempty"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}

// EmailJobService enqueues notification emails for terminal events. The
// mailer consuming the queue is a separate service.
type EmailJobService interface {
	EnqueueTerminalNotice(ctx context.Context, event *models.Event) error
}

// emailJobService implements EmailJobService
type emailJobService struct {
	bus       messaging.Client
	queueName string
	log       *logrus.Logger
}

// NewEmailJobService creates a new email job service
func NewEmailJobService(bus messaging.Client, queueName string, log *logrus.Logger) EmailJobService {
	return &emailJobService{
		bus:       bus,
		queueName: queueName,
		log:       log,
	}
}

// EnqueueTerminalNotice places an email job for an owned terminal event.
// Events without an owner have nobody to mail and are skipped.
func (s *emailJobService) EnqueueTerminalNotice(ctx context.Context, event *models.Event) error {
	if !event.Status.IsTerminal() || event.EventOwnerID == nil {
		return nil
	}

	template := "event-succeeded"
	subject := fmt.Sprintf("%s completed", event.EventName)
	if event.Status == models.EventStatusFailed {
		template = "event-failed"
		subject = fmt.Sprintf("%s failed", event.EventName)
	}

	job := &EmailJob{
		Template:     template,
		OwnerID:      *event.EventOwnerID,
		EventName:    event.EventName,
		EventUUID:    event.UUID,
		ResourceUUID: event.ResourceUUID,
		Subject:      subject,
		Body:         event.Message,
	}

	if err := s.bus.PublishMessage(ctx, s.queueName, job); err != nil {
		return fmt.Errorf("failed to enqueue email job: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"event_uuid": event.UUID,
		"owner_id":   *event.EventOwnerID,
		"template":   template,
	}).Debug("Email job enqueued")
	return nil
}
