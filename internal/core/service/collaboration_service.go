package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/pkg/metrics"
	"github.com/soundledger/royalty-service/internal/pkg/validation"
)

type collaborationService struct {
	tx        ports.TxManager
	collabs   ports.CollaborationRepository
	notify    ports.NotificationEmitter
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewCollaborationService returns a CollaborationService.
func NewCollaborationService(
	tx ports.TxManager,
	collabs ports.CollaborationRepository,
	notify ports.NotificationEmitter,
	validator *validation.Validator,
	m *metrics.Metrics,
	log zerolog.Logger,
) ports.CollaborationService {
	return &collaborationService{
		tx:        tx,
		collabs:   collabs,
		notify:    notify,
		validator: validator,
		metrics:   m,
		log:       log,
	}
}

// Request opens a pending collaboration between a manager and an artist.
func (s *collaborationService) Request(ctx context.Context, actor ports.Actor, input ports.RequestCollaborationInput) (*domain.Collaboration, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("request collaboration: %w", err)
	}
	if input.ManagerID == input.ArtistID {
		return nil, fmt.Errorf("request collaboration: %w", domain.Validationf("manager and artist must differ"))
	}
	if !actor.IsAdmin() && actor.UserID != input.ManagerID && actor.UserID != input.ArtistID {
		return nil, fmt.Errorf("request collaboration: %w: only the manager or the artist may request", domain.ErrForbidden)
	}

	now := time.Now().UTC()
	c := &domain.Collaboration{
		ID:          uuid.NewString(),
		ManagerID:   input.ManagerID,
		ArtistID:    input.ArtistID,
		Status:      domain.CollabPending,
		RequestedBy: actor.UserID,
		Songs:       uniqueSongs(nil, input.Songs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := requireRole(ctx, repos.Accounts, input.ManagerID, domain.RoleManager); err != nil {
			return err
		}
		if err := requireRole(ctx, repos.Accounts, input.ArtistID, domain.RoleArtist); err != nil {
			return err
		}
		// Both parties are written so that a concurrent account deletion
		// either conflicts with this transaction or is seen by it.
		for _, id := range []string{input.ManagerID, input.ArtistID} {
			if err := repos.Accounts.TouchUser(ctx, id); err != nil {
				return err
			}
		}

		_, err := repos.Collaborations.FindActiveByPair(ctx, input.ManagerID, input.ArtistID)
		switch {
		case err == nil:
			return domain.ErrActiveCollaboration
		case !errors.Is(err, domain.ErrCollaborationNotFound):
			return err
		}
		return repos.Collaborations.Insert(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("request collaboration: %w", err)
	}

	s.metrics.Transition(string(c.Status))
	s.log.Info().Str("collaboration_id", c.ID).Str("manager_id", c.ManagerID).Str("artist_id", c.ArtistID).Msg("collaboration requested")

	for _, to := range notifyOthers(c, actor) {
		s.notify.Emit(ctx, to, fmt.Sprintf("New collaboration request %s awaiting your response.", c.ID))
	}
	return c, nil
}

func (s *collaborationService) Approve(ctx context.Context, actor ports.Actor, id string) (*domain.Collaboration, error) {
	c, err := s.transition(ctx, actor, id, domain.EventApprove, requireNotRequester, nil)
	if err != nil {
		return nil, fmt.Errorf("approve collaboration: %w", err)
	}
	s.emitBoth(ctx, c, "Collaboration %s has been approved.")
	return c, nil
}

func (s *collaborationService) Reject(ctx context.Context, actor ports.Actor, id string) (*domain.Collaboration, error) {
	c, err := s.transition(ctx, actor, id, domain.EventReject, requireNotRequester, nil)
	if err != nil {
		return nil, fmt.Errorf("reject collaboration: %w", err)
	}
	s.emitBoth(ctx, c, "Collaboration %s has been rejected.")
	return c, nil
}

// RequestCancellation opens the cancellation sub-negotiation. The reason is required.
func (s *collaborationService) RequestCancellation(ctx context.Context, actor ports.Actor, id, reason string) (*domain.Collaboration, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("request cancellation: %w", domain.Validationf("cancellation reason is required"))
	}

	by := actor.UserID
	c, err := s.transition(ctx, actor, id, domain.EventRequestCancellation, nil, func(ch *domain.CollaborationChange) {
		ch.CancellationReason = &reason
		ch.CancelRequestedBy = &by
	})
	if err != nil {
		return nil, fmt.Errorf("request cancellation: %w", err)
	}

	for _, to := range notifyOthers(c, actor) {
		s.notify.Emit(ctx, to, fmt.Sprintf("Cancellation of collaboration %s was requested: %s", c.ID, reason))
	}
	return c, nil
}

// RespondToCancellation approves or declines a pending cancellation. Only the
// party that did not ask for the cancellation may answer.
func (s *collaborationService) RespondToCancellation(ctx context.Context, actor ports.Actor, id string, decision ports.CancellationDecision) (*domain.Collaboration, error) {
	var event domain.CollaborationEvent
	switch decision {
	case ports.CancellationApproved:
		event = domain.EventApproveCancellation
	case ports.CancellationDeclined:
		event = domain.EventDeclineCancellation
	default:
		return nil, fmt.Errorf("respond to cancellation: %w", domain.Validationf("decision must be approved or declined, got %q", decision))
	}

	c, err := s.transition(ctx, actor, id, event, requireNotCancelRequester, nil)
	if err != nil {
		return nil, fmt.Errorf("respond to cancellation: %w", err)
	}

	if c.CancelRequestedBy != "" {
		s.notify.Emit(ctx, c.CancelRequestedBy, fmt.Sprintf("Your cancellation request for collaboration %s was %s.", c.ID, decision))
	}
	return c, nil
}

// AssignSongs adds songs to a usable collaboration. Already managed songs are ignored.
func (s *collaborationService) AssignSongs(ctx context.Context, actor ports.Actor, id string, songs []string) (*domain.Collaboration, error) {
	if len(songs) == 0 || slices.Contains(songs, "") {
		return nil, fmt.Errorf("assign songs: %w", domain.Validationf("songs must be a non-empty list of ids"))
	}

	var out *domain.Collaboration
	err := s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		c, err := repos.Collaborations.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeParty(c, actor); err != nil {
			return err
		}
		if !c.Status.IsUsable() {
			return fmt.Errorf("%w: songs cannot be assigned while %s", domain.ErrInvalidTransition, c.Status)
		}

		c.Songs = uniqueSongs(c.Songs, songs)
		ok, err := repos.Collaborations.SetSongs(ctx, id, c.Songs, []domain.CollaborationStatus{domain.CollabApproved, domain.CollabCancelDeclined})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: collaboration %s changed concurrently", domain.ErrInvalidTransition, id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign songs: %w", err)
	}

	s.log.Info().Str("collaboration_id", id).Int("songs", len(out.Songs)).Msg("songs assigned")
	return out, nil
}

func (s *collaborationService) Get(ctx context.Context, actor ports.Actor, id string) (*domain.Collaboration, error) {
	c, err := s.collabs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get collaboration: %w", err)
	}
	if err := authorizeParty(c, actor); err != nil {
		return nil, fmt.Errorf("get collaboration: %w", err)
	}
	return c, nil
}

func (s *collaborationService) ListForUser(ctx context.Context, userID string) ([]*domain.Collaboration, error) {
	list, err := s.collabs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list collaborations: %w", err)
	}
	return list, nil
}

type collabGuard func(c *domain.Collaboration, actor ports.Actor) error

// transition applies event to the collaboration with a compare-and-swap on its
// current status. A lost race reports ErrInvalidTransition.
func (s *collaborationService) transition(
	ctx context.Context,
	actor ports.Actor,
	id string,
	event domain.CollaborationEvent,
	guard collabGuard,
	decorate func(*domain.CollaborationChange),
) (*domain.Collaboration, error) {
	var out *domain.Collaboration
	err := s.tx.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		c, err := repos.Collaborations.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeParty(c, actor); err != nil {
			return err
		}

		to, err := c.Status.Next(event)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(c, actor); err != nil {
				return err
			}
		}

		change := domain.CollaborationChange{To: to, At: time.Now().UTC()}
		if decorate != nil {
			decorate(&change)
		}
		ok, err := repos.Collaborations.CompareAndSwapStatus(ctx, id, c.Status, change)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: collaboration %s is no longer %s", domain.ErrInvalidTransition, id, c.Status)
		}
		change.Apply(c)
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(out.Status))
	s.log.Info().
		Str("collaboration_id", id).
		Str("event", string(event)).
		Str("status", string(out.Status)).
		Str("actor", actor.UserID).
		Msg("collaboration transitioned")
	return out, nil
}

func (s *collaborationService) emitBoth(ctx context.Context, c *domain.Collaboration, format string) {
	msg := fmt.Sprintf(format, c.ID)
	s.notify.Emit(ctx, c.ArtistID, msg)
	s.notify.Emit(ctx, c.ManagerID, msg)
}

func authorizeParty(c *domain.Collaboration, actor ports.Actor) error {
	if actor.IsAdmin() || c.HasParty(actor.UserID) {
		return nil
	}
	return fmt.Errorf("%w: not a party to collaboration %s", domain.ErrForbidden, c.ID)
}

func requireNotRequester(c *domain.Collaboration, actor ports.Actor) error {
	if !actor.IsAdmin() && actor.UserID == c.RequestedBy {
		return fmt.Errorf("%w: the requester cannot answer their own request", domain.ErrForbidden)
	}
	return nil
}

func requireNotCancelRequester(c *domain.Collaboration, actor ports.Actor) error {
	if !actor.IsAdmin() && actor.UserID == c.CancelRequestedBy {
		return fmt.Errorf("%w: the cancellation requester cannot answer their own request", domain.ErrForbidden)
	}
	return nil
}

// requireRole checks that userID exists, holds role and has its profile.
func requireRole(ctx context.Context, accounts ports.AccountRepository, userID string, role domain.Role) error {
	user, err := accounts.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != role {
		return fmt.Errorf("%w: user %s is %s, not %s", domain.ErrRoleMismatch, userID, user.Role, role)
	}
	if role == domain.RoleManager {
		_, err = accounts.FindManagerProfile(ctx, userID)
	} else {
		_, err = accounts.FindArtistProfile(ctx, userID)
	}
	return err
}

// notifyOthers returns the parties other than actor.
func notifyOthers(c *domain.Collaboration, actor ports.Actor) []string {
	if c.HasParty(actor.UserID) {
		return []string{c.Counterparty(actor.UserID)}
	}
	return []string{c.ArtistID, c.ManagerID}
}

func uniqueSongs(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	for _, id := range append(slices.Clone(existing), add...) {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
