package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

type collaborationRepository struct{ v *view }

func (r *collaborationRepository) Insert(ctx context.Context, c *domain.Collaboration) error {
	return r.v.do(ctx, OpInsertCollaboration, func(st *state) error {
		if _, exists := st.collabs[c.ID]; exists {
			return domain.ErrConflict
		}
		if c.Status.IsActive() {
			for _, other := range st.collabs {
				if other.ManagerID == c.ManagerID && other.ArtistID == c.ArtistID && other.Status.IsActive() {
					return domain.ErrActiveCollaboration
				}
			}
		}
		st.collabs[c.ID] = cloneCollaboration(c)
		return nil
	})
}

func (r *collaborationRepository) FindByID(ctx context.Context, id string) (*domain.Collaboration, error) {
	var out *domain.Collaboration
	err := r.v.do(ctx, "", func(st *state) error {
		c, ok := st.collabs[id]
		if !ok {
			return domain.ErrCollaborationNotFound
		}
		out = cloneCollaboration(c)
		return nil
	})
	return out, err
}

func (r *collaborationRepository) FindActiveByPair(ctx context.Context, managerID, artistID string) (*domain.Collaboration, error) {
	var out *domain.Collaboration
	err := r.v.do(ctx, "", func(st *state) error {
		for _, c := range st.collabs {
			if c.ManagerID == managerID && c.ArtistID == artistID && c.Status.IsActive() {
				out = cloneCollaboration(c)
				return nil
			}
		}
		return domain.ErrCollaborationNotFound
	})
	return out, err
}

func (r *collaborationRepository) FindUsableByArtistSong(ctx context.Context, artistID, songID string) (*domain.Collaboration, error) {
	var out *domain.Collaboration
	err := r.v.do(ctx, "", func(st *state) error {
		for _, c := range sortedCollaborations(st) {
			if c.ArtistID == artistID && c.Status.IsUsable() && c.ManagesSong(songID) {
				out = cloneCollaboration(c)
				return nil
			}
		}
		return domain.ErrCollaborationNotFound
	})
	return out, err
}

func (r *collaborationRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Collaboration, error) {
	out := []*domain.Collaboration{}
	err := r.v.do(ctx, "", func(st *state) error {
		for _, c := range sortedCollaborations(st) {
			if c.HasParty(userID) {
				out = append(out, cloneCollaboration(c))
			}
		}
		return nil
	})
	return out, err
}

func (r *collaborationRepository) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.v.do(ctx, "", func(st *state) error {
		for _, c := range st.collabs {
			if c.HasParty(userID) && c.Status.IsActive() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *collaborationRepository) CompareAndSwapStatus(ctx context.Context, id string, from domain.CollaborationStatus, change domain.CollaborationChange) (bool, error) {
	swapped := false
	err := r.v.do(ctx, OpSwapCollaboration, func(st *state) error {
		c, ok := st.collabs[id]
		if !ok {
			return domain.ErrCollaborationNotFound
		}
		if c.Status != from {
			return nil
		}
		change.Apply(c)
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *collaborationRepository) SetSongs(ctx context.Context, id string, songs []string, allowed []domain.CollaborationStatus) (bool, error) {
	updated := false
	err := r.v.do(ctx, "", func(st *state) error {
		c, ok := st.collabs[id]
		if !ok {
			return domain.ErrCollaborationNotFound
		}
		if !slices.Contains(allowed, c.Status) {
			return nil
		}
		c.Songs = slices.Clone(songs)
		updated = true
		return nil
	})
	return updated, err
}

// sortedCollaborations orders by creation time, newest first.
func sortedCollaborations(st *state) []*domain.Collaboration {
	out := make([]*domain.Collaboration, 0, len(st.collabs))
	for _, c := range st.collabs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
