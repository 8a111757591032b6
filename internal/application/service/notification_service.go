package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
)

// NotificationService serves the pull-only alert list shown after login.
type NotificationService interface {
	// ListAlerts returns the session user's pending-action rows, newest
	// first as stored.
	ListAlerts(ctx context.Context, session *auth.Session) ([]*entity.Notification, error)

	// CountAlerts returns the badge count for the session user.
	CountAlerts(ctx context.Context, session *auth.Session) (int, error)
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	logger           Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notificationRepo port.NotificationRepository, logger Logger) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

func (s *notificationServiceImpl) ListAlerts(ctx context.Context, session *auth.Session) ([]*entity.Notification, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}

	notifications, err := s.notificationRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		s.logger.Error("Failed to list alerts", "error", err, "user_id", session.UserID)
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return notifications, nil
}

func (s *notificationServiceImpl) CountAlerts(ctx context.Context, session *auth.Session) (int, error) {
	if !session.Valid(time.Now()) {
		return 0, auth.ErrNoSession
	}

	count, err := s.notificationRepo.CountByUser(ctx, session.UserID)
	if err != nil {
		s.logger.Error("Failed to count alerts", "error", err, "user_id", session.UserID)
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}
