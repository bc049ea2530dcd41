package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hungbv115/education-backend/internal/config"
	"github.com/hungbv115/education-backend/internal/notification"
	"github.com/hungbv115/education-backend/internal/repository"
	"go.uber.org/zap"
)

// OutboxService decouples notification dispatch from account mutations.
// Mutations enqueue a row; the worker polls, delivers and retries, so a
// transient mail failure cannot leave an unverifiable account stuck.
type OutboxService struct {
	outbox     repository.OutboxRepository
	dispatcher notification.Dispatcher
	cfg        config.OutboxConfig
	logger     *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(
	outbox repository.OutboxRepository,
	dispatcher notification.Dispatcher,
	cfg config.OutboxConfig,
	logger *zap.Logger,
) *OutboxService {
	return &OutboxService{
		outbox:     outbox,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Enqueue queues a message for asynchronous delivery
func (s *OutboxService) Enqueue(ctx context.Context, msg notification.Message) error {
	row := &repository.OutboxMessage{
		Recipient: msg.Recipient,
		Subject:   msg.Subject,
		Body:      msg.Body,
	}

	if err := s.outbox.Enqueue(ctx, row); err != nil {
		return fmt.Errorf("failed to enqueue message: %w", err)
	}

	return nil
}

// Run polls the outbox until the context is cancelled
func (s *OutboxService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval.Duration)
	defer ticker.Stop()

	s.logger.Info("Outbox worker started",
		zap.Duration("poll_interval", s.cfg.PollInterval.Duration),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			s.DispatchPending(ctx)
		}
	}
}

// DispatchPending delivers one batch of due messages. Delivery failures are
// recorded on the row and retried on a later pass.
func (s *OutboxService) DispatchPending(ctx context.Context) {
	messages, err := s.outbox.ClaimPending(ctx, s.cfg.BatchSize, s.cfg.MaxAttempts)
	if err != nil {
		s.logger.Error("failed to claim pending notifications", zap.Error(err))
		return
	}

	for _, msg := range messages {
		err := s.dispatcher.Send(ctx, notification.Message{
			Recipient: msg.Recipient,
			Subject:   msg.Subject,
			Body:      msg.Body,
		})
		if err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("outbox_id", msg.ID),
				zap.Int("attempts", msg.Attempts+1),
				zap.Error(err),
			)
			if markErr := s.outbox.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				s.logger.Error("failed to record delivery failure", zap.Error(markErr))
			}
			continue
		}

		if err := s.outbox.MarkSent(ctx, msg.ID); err != nil {
			s.logger.Error("failed to mark notification sent",
				zap.String("outbox_id", msg.ID),
				zap.Error(err),
			)
		}
	}
}
