package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// NotificationRepository keeps notifications outside the transactional state;
// notifications are written after the operations that cause them commit.
type NotificationRepository struct {
	mu    sync.Mutex
	items map[string]*domain.Notification
}

func newNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[string]*domain.Notification)}
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[n.ID]; exists {
		return domain.ErrConflict
	}
	r.items[n.ID] = cloneNotification(n)
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := []*domain.Notification{}
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, cloneNotification(n))
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.UserID != userID {
		return nil, domain.ErrNotificationNotFound
	}
	n.IsRead = true
	return cloneNotification(n), nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotificationNotFound
	}
	delete(r.items, id)
	return nil
}
