package ports

import (
	"context"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

// CollaborationRepository persists collaborations. Collaborations are never deleted.
type CollaborationRepository interface {
	// Insert stores a new collaboration. Returns domain.ErrActiveCollaboration when
	// the store already holds an active collaboration for the same pair.
	Insert(ctx context.Context, c *domain.Collaboration) error
	FindByID(ctx context.Context, id string) (*domain.Collaboration, error)
	// FindActiveByPair returns domain.ErrCollaborationNotFound when the pair has
	// no active collaboration.
	FindActiveByPair(ctx context.Context, managerID, artistID string) (*domain.Collaboration, error)
	// FindUsableByArtistSong returns the usable collaboration of artistID that
	// manages songID, or domain.ErrCollaborationNotFound.
	FindUsableByArtistSong(ctx context.Context, artistID, songID string) (*domain.Collaboration, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Collaboration, error)
	CountActiveByUser(ctx context.Context, userID string) (int64, error)

	// CompareAndSwapStatus applies change only if the stored status still equals
	// from. It reports false when the status moved.
	CompareAndSwapStatus(ctx context.Context, id string, from domain.CollaborationStatus, change domain.CollaborationChange) (bool, error)
	// SetSongs replaces the song list only if the stored status is one of allowed.
	SetSongs(ctx context.Context, id string, songs []string, allowed []domain.CollaborationStatus) (bool, error)
}
