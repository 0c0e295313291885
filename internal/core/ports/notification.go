package ports

import (
	"context"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// NotificationEmitter receives lifecycle and ledger events. Emission is best
// effort: it never blocks on delivery and never reports failure to the caller.
type NotificationEmitter interface {
	Emit(ctx context.Context, userID, message string)
}

// NotificationRepository persists notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	// ListByUser returns the user's notifications, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error)
	// MarkRead sets is_read on the user's notification and returns it.
	MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error)
	Delete(ctx context.Context, id string) error
}

// NotificationService stores and retires notifications.
type NotificationService interface {
	Persist(ctx context.Context, userID, message string) (*domain.Notification, error)
	List(ctx context.Context, userID string) ([]*domain.Notification, error)
	MarkAsRead(ctx context.Context, userID, id string) error
}
