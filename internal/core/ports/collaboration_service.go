package ports

import (
	"context"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// CancellationDecision is the counterparty's answer to a cancellation request.
type CancellationDecision string

const (
	CancellationApproved CancellationDecision = "approved"
	CancellationDeclined CancellationDecision = "declined"
)

// RequestCollaborationInput proposes a relationship between a manager and an artist.
type RequestCollaborationInput struct {
	ManagerID string   `validate:"required"`
	ArtistID  string   `validate:"required"`
	Songs     []string `validate:"omitempty,dive,required"`
}

// CollaborationService drives the collaboration lifecycle.
type CollaborationService interface {
	Request(ctx context.Context, actor Actor, input RequestCollaborationInput) (*domain.Collaboration, error)
	Approve(ctx context.Context, actor Actor, id string) (*domain.Collaboration, error)
	Reject(ctx context.Context, actor Actor, id string) (*domain.Collaboration, error)
	RequestCancellation(ctx context.Context, actor Actor, id, reason string) (*domain.Collaboration, error)
	RespondToCancellation(ctx context.Context, actor Actor, id string, decision CancellationDecision) (*domain.Collaboration, error)
	AssignSongs(ctx context.Context, actor Actor, id string, songs []string) (*domain.Collaboration, error)
	Get(ctx context.Context, actor Actor, id string) (*domain.Collaboration, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Collaboration, error)
}
