// Package notification mails patients when one of their appointments changes.
// It consumes the events the outbox processor publishes.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/pkg/event"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type Subscriber struct {
	broker  messaging.Broker
	channel string
	mailer  email.Service
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewSubscriber(broker messaging.Broker, channel string, mailer email.Service, log *logger.Logger, m *metrics.Metrics) *Subscriber {
	return &Subscriber{
		broker:  broker,
		channel: channel,
		mailer:  mailer,
		logger:  log.With("component", "notification_subscriber"),
		metrics: m,
	}
}

// Run blocks until ctx is done or the subscription ends. A message that
// fails is logged and dropped; the outbox already guarantees it was published.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs, err := s.broker.Subscribe(ctx, s.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	s.logger.Info("Notification subscriber started", "channel", s.channel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			var msg messaging.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.logger.Error(err, "Failed to decode message")
				continue
			}
			if err := s.Handle(ctx, &msg); err != nil {
				s.logger.Error(err, "Failed to handle message", "message_id", msg.ID, "event_type", msg.Type)
			}
		}
	}
}

// Handle sends the notice for a single appointment event.
func (s *Subscriber) Handle(ctx context.Context, msg *messaging.Message) error {
	if !strings.HasPrefix(msg.Type, "appointment.") {
		return nil
	}

	evt, err := event.DecodeAppointment(msg.Payload)
	if err != nil {
		s.record(msg.Type, "invalid")
		return err
	}
	if evt.PatientEmail == "" {
		s.record(msg.Type, "skipped")
		return nil
	}

	notice := email.AppointmentNotice{
		EventType:   msg.Type,
		PatientName: evt.PatientName,
		Date:        evt.Date,
		TimeSlot:    evt.TimeSlot,
		Status:      string(evt.Status),
	}
	if err := s.mailer.SendAppointmentNotice(ctx, evt.PatientEmail, notice); err != nil {
		s.record(msg.Type, "failed")
		return fmt.Errorf("failed to send notice for appointment %s: %w", evt.AppointmentID, err)
	}

	s.record(msg.Type, "sent")
	return nil
}

func (s *Subscriber) record(eventType, status string) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(eventType, status).Inc()
	}
}
