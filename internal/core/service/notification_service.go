package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

type notificationService struct {
	repo ports.NotificationRepository
	log  zerolog.Logger
}

// NewNotificationService returns a NotificationService.
func NewNotificationService(repo ports.NotificationRepository, log zerolog.Logger) ports.NotificationService {
	return &notificationService{repo: repo, log: log}
}

func (s *notificationService) Persist(ctx context.Context, userID, message string) (*domain.Notification, error) {
	if userID == "" || strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("persist notification: %w", domain.Validationf("user id and message are required"))
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	return n, nil
}

// List returns the user's pending notifications, newest first.
func (s *notificationService) List(ctx context.Context, userID string) ([]*domain.Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkAsRead flags the notification as read and then removes it.
func (s *notificationService) MarkAsRead(ctx context.Context, userID, id string) error {
	if _, err := s.repo.MarkRead(ctx, userID, id); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("mark notification read: delete: %w", err)
	}
	s.log.Debug().Str("notification_id", id).Str("user_id", userID).Msg("notification read and removed")
	return nil
}
