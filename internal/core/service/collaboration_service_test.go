package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/infrastructure/db/memory"
)

type pair struct {
	h       *harness
	artist  *domain.Account
	manager *domain.Account
}

func newPair(t *testing.T) *pair {
	t.Helper()
	h := newHarness(t)
	return &pair{h: h, artist: h.artist(t, "ana"), manager: h.manager(t, "max", "20")}
}

func (p *pair) request(t *testing.T, songs ...string) *domain.Collaboration {
	t.Helper()
	c, err := p.h.collabs.Request(context.Background(), actorOf(p.manager), ports.RequestCollaborationInput{
		ManagerID: p.manager.User.ID,
		ArtistID:  p.artist.User.ID,
		Songs:     songs,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return c
}

// drive moves a fresh collaboration into status using only valid transitions.
func (p *pair) drive(t *testing.T, status domain.CollaborationStatus) *domain.Collaboration {
	t.Helper()
	ctx := context.Background()
	a, m := actorOf(p.artist), actorOf(p.manager)
	c := p.request(t)

	step := func(c *domain.Collaboration, err error) *domain.Collaboration {
		t.Helper()
		if err != nil {
			t.Fatalf("drive to %s: %v", status, err)
		}
		return c
	}

	switch status {
	case domain.CollabPending:
	case domain.CollabRejected:
		c = step(p.h.collabs.Reject(ctx, a, c.ID))
	default:
		c = step(p.h.collabs.Approve(ctx, a, c.ID))
		if status == domain.CollabApproved {
			break
		}
		c = step(p.h.collabs.RequestCancellation(ctx, m, c.ID, "label change"))
		switch status {
		case domain.CollabCancelApproved:
			c = step(p.h.collabs.RespondToCancellation(ctx, a, c.ID, ports.CancellationApproved))
		case domain.CollabCancelDeclined:
			c = step(p.h.collabs.RespondToCancellation(ctx, a, c.ID, ports.CancellationDeclined))
		}
	}
	if c.Status != status {
		t.Fatalf("drive: wanted %s, reached %s", status, c.Status)
	}
	return c
}

func (p *pair) fire(ctx context.Context, event domain.CollaborationEvent, id string) (*domain.Collaboration, error) {
	a, m := actorOf(p.artist), actorOf(p.manager)
	switch event {
	case domain.EventApprove:
		return p.h.collabs.Approve(ctx, a, id)
	case domain.EventReject:
		return p.h.collabs.Reject(ctx, a, id)
	case domain.EventRequestCancellation:
		return p.h.collabs.RequestCancellation(ctx, m, id, "again")
	case domain.EventApproveCancellation:
		return p.h.collabs.RespondToCancellation(ctx, a, id, ports.CancellationApproved)
	default:
		return p.h.collabs.RespondToCancellation(ctx, a, id, ports.CancellationDeclined)
	}
}

func TestCollaborationService_InvalidPairsLeaveStatusUnchanged(t *testing.T) {
	ctx := context.Background()

	for _, from := range domain.CollaborationStatuses {
		for _, event := range domain.CollaborationEvents {
			if _, err := from.Next(event); err == nil {
				continue
			}
			t.Run(string(from)+"/"+string(event), func(t *testing.T) {
				p := newPair(t)
				c := p.drive(t, from)
				p.h.emitter.reset()

				if _, err := p.fire(ctx, event, c.ID); !errors.Is(err, domain.ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				got, err := p.h.collabs.Get(ctx, admin, c.ID)
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if got.Status != from {
					t.Fatalf("status changed from %s to %s", from, got.Status)
				}
				if n := len(p.h.emitter.recipients()); n != 0 {
					t.Fatalf("invalid transition emitted %d notifications", n)
				}
			})
		}
	}
}

func TestCollaborationService_CancellationRoundTrip(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	a, m := actorOf(p.artist), actorOf(p.manager)

	c := p.request(t)
	if c.Status != domain.CollabPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}

	c, err := p.h.collabs.Approve(ctx, a, c.ID)
	if err != nil || c.Status != domain.CollabApproved {
		t.Fatalf("approve: %v %v", c, err)
	}

	c, err = p.h.collabs.RequestCancellation(ctx, m, c.ID, "relocating")
	if err != nil {
		t.Fatalf("request cancellation: %v", err)
	}
	if c.Status != domain.CollabCancelRequested || c.CancellationReason != "relocating" || c.CancelRequestedBy != m.UserID {
		t.Fatalf("unexpected collaboration: %+v", c)
	}

	c, err = p.h.collabs.RespondToCancellation(ctx, a, c.ID, ports.CancellationDeclined)
	if err != nil || c.Status != domain.CollabCancelDeclined {
		t.Fatalf("decline: %v %v", c, err)
	}

	c, err = p.h.collabs.RequestCancellation(ctx, m, c.ID, "retry")
	if err != nil {
		t.Fatalf("second cancellation request: %v", err)
	}
	if c.Status != domain.CollabCancelRequested || c.CancellationReason != "retry" {
		t.Fatalf("unexpected collaboration: %+v", c)
	}

	stored, err := p.h.collabs.Get(ctx, a, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CancellationReason != "retry" {
		t.Fatalf("reason not persisted: %q", stored.CancellationReason)
	}
}

func TestCollaborationService_Notifications(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	a, m := actorOf(p.artist), actorOf(p.manager)
	c := p.request(t)

	p.h.emitter.reset()
	if _, err := p.h.collabs.Approve(ctx, a, c.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	got := p.h.emitter.recipients()
	if len(got) != 2 || !slices.Contains(got, a.UserID) || !slices.Contains(got, m.UserID) {
		t.Fatalf("approve should notify both parties, got %v", got)
	}

	p.h.emitter.reset()
	if _, err := p.h.collabs.RequestCancellation(ctx, a, c.ID, "done"); err != nil {
		t.Fatalf("RequestCancellation: %v", err)
	}
	if got := p.h.emitter.recipients(); !slices.Equal(got, []string{m.UserID}) {
		t.Fatalf("cancellation request should notify the counterparty only, got %v", got)
	}

	p.h.emitter.reset()
	if _, err := p.h.collabs.RespondToCancellation(ctx, m, c.ID, ports.CancellationApproved); err != nil {
		t.Fatalf("RespondToCancellation: %v", err)
	}
	if got := p.h.emitter.recipients(); !slices.Equal(got, []string{a.UserID}) {
		t.Fatalf("response should notify the cancellation requester, got %v", got)
	}
}

func TestCollaborationService_Request_Conflicts(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	c := p.request(t)

	in := ports.RequestCollaborationInput{ManagerID: p.manager.User.ID, ArtistID: p.artist.User.ID}
	if _, err := p.h.collabs.Request(ctx, actorOf(p.artist), in); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict while pending, got %v", err)
	}

	if _, err := p.h.collabs.Reject(ctx, actorOf(p.artist), c.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := p.h.collabs.Request(ctx, actorOf(p.artist), in); err != nil {
		t.Fatalf("request after rejection should succeed, got %v", err)
	}
}

func TestCollaborationService_Request_Guards(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()

	if _, err := p.h.collabs.Request(ctx, ports.Actor{UserID: "stranger", Role: domain.RoleArtist},
		ports.RequestCollaborationInput{ManagerID: p.manager.User.ID, ArtistID: p.artist.User.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := p.h.collabs.Request(ctx, admin,
		ports.RequestCollaborationInput{ManagerID: "missing", ArtistID: p.artist.User.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.h.collabs.Request(ctx, admin,
		ports.RequestCollaborationInput{ManagerID: p.artist.User.ID, ArtistID: p.manager.User.ID}); !errors.Is(err, domain.ErrRoleMismatch) {
		t.Fatalf("expected ErrRoleMismatch for swapped roles, got %v", err)
	}
}

func TestCollaborationService_Request_WritesBothParties(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	p.h.store.InjectFault(memory.OpTouchUser, errors.New("write conflict"))

	if _, err := p.h.collabs.Request(ctx, actorOf(p.manager), ports.RequestCollaborationInput{
		ManagerID: p.manager.User.ID,
		ArtistID:  p.artist.User.ID,
	}); err == nil {
		t.Fatalf("expected Request to fail when a party cannot be written")
	}
	p.h.store.ClearFaults()

	list, err := p.h.collabs.ListForUser(ctx, p.artist.User.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("failed request left %d collaboration(s) behind", len(list))
	}
}

func TestCollaborationService_RequestRacingDelete(t *testing.T) {
	for i := 0; i < 20; i++ {
		p := newPair(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		var reqErr, delErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, reqErr = p.h.collabs.Request(ctx, admin, ports.RequestCollaborationInput{
				ManagerID: p.manager.User.ID,
				ArtistID:  p.artist.User.ID,
			})
		}()
		go func() {
			defer wg.Done()
			delErr = p.h.accounts.DeleteAccount(ctx, p.artist.User.Username)
		}()
		wg.Wait()

		if (reqErr == nil) == (delErr == nil) {
			t.Fatalf("exactly one of request and delete must win: request=%v delete=%v", reqErr, delErr)
		}
		if reqErr == nil && !errors.Is(delErr, domain.ErrConflict) {
			t.Fatalf("delete after request should conflict, got %v", delErr)
		}
		if delErr == nil && !errors.Is(reqErr, domain.ErrNotFound) {
			t.Fatalf("request after delete should not find the artist, got %v", reqErr)
		}
	}
}

func TestCollaborationService_PartyChecks(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	c := p.request(t)

	if _, err := p.h.collabs.Approve(ctx, actorOf(p.manager), c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("requester approving own request: expected ErrForbidden, got %v", err)
	}
	if _, err := p.h.collabs.Approve(ctx, ports.Actor{UserID: "other", Role: domain.RoleArtist}, c.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-party: expected ErrForbidden, got %v", err)
	}
	if _, err := p.h.collabs.Approve(ctx, admin, c.ID); err != nil {
		t.Fatalf("admin approve: %v", err)
	}

	if _, err := p.h.collabs.RequestCancellation(ctx, actorOf(p.artist), c.ID, "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("blank reason: expected ErrValidation, got %v", err)
	}
	if _, err := p.h.collabs.RequestCancellation(ctx, actorOf(p.artist), c.ID, "moving on"); err != nil {
		t.Fatalf("RequestCancellation: %v", err)
	}
	if _, err := p.h.collabs.RespondToCancellation(ctx, actorOf(p.artist), c.ID, ports.CancellationApproved); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("cancel requester answering: expected ErrForbidden, got %v", err)
	}
	if _, err := p.h.collabs.RespondToCancellation(ctx, actorOf(p.manager), c.ID, "maybe"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown decision: expected ErrValidation, got %v", err)
	}
}

func TestCollaborationService_ConcurrentApproveAndReject(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	c := p.request(t)
	a := actorOf(p.artist)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		invalid   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = p.h.collabs.Approve(ctx, a, c.ID)
			} else {
				_, err = p.h.collabs.Reject(ctx, a, c.ID)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInvalidTransition):
				invalid++
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || invalid != 7 {
		t.Fatalf("expected exactly one winner, got %d successes and %d invalid", successes, invalid)
	}
}

func TestCollaborationService_AssignSongs(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	c := p.request(t, "s1")

	if _, err := p.h.collabs.AssignSongs(ctx, actorOf(p.manager), c.ID, []string{"s2"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("pending collaboration: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := p.h.collabs.Approve(ctx, actorOf(p.artist), c.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	got, err := p.h.collabs.AssignSongs(ctx, actorOf(p.manager), c.ID, []string{"s2", "s1", "s2"})
	if err != nil {
		t.Fatalf("AssignSongs: %v", err)
	}
	if !slices.Equal(got.Songs, []string{"s1", "s2"}) {
		t.Fatalf("unexpected songs: %v", got.Songs)
	}

	list, err := p.h.collabs.ListForUser(ctx, p.artist.User.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForUser: %v %v", list, err)
	}
}
