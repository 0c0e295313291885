package service

import (
	"context"
	"errors"
	"testing"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/infrastructure/db/memory"
)

func TestAccountService_CreateAccount_Artist(t *testing.T) {
	h := newHarness(t)
	acc := h.artist(t, "ana")

	if acc.User.ID == "" || acc.Artist == nil || acc.Manager != nil {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if !acc.User.IsActive || !acc.User.IsFirstLogin {
		t.Fatalf("new accounts must be active and in first-login state: %+v", acc.User)
	}

	got, err := h.accounts.GetAccount(context.Background(), "ana")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Artist == nil || got.Artist.UserID != acc.User.ID {
		t.Fatalf("profile not linked to user: %+v", got.Artist)
	}
}

func TestAccountService_CreateAccount_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := map[string]ports.CreateAccountInput{
		"admin role": {
			Username: "root", CredentialHash: "h", Role: domain.RoleAdmin,
			Profile: ports.ProfileInput{FullName: "Root", Email: "root@example.com"},
		},
		"missing email": {
			Username: "ana", CredentialHash: "h", Role: domain.RoleArtist,
			Profile: ports.ProfileInput{FullName: "Ana"},
		},
		"manager without commission": {
			Username: "max", CredentialHash: "h", Role: domain.RoleManager,
			Profile: ports.ProfileInput{FullName: "Max", Email: "max@example.com"},
		},
		"commission above 100": {
			Username: "max", CredentialHash: "h", Role: domain.RoleManager,
			Profile: ports.ProfileInput{FullName: "Max", Email: "max@example.com", CommissionPercentage: decPtr("101")},
		},
		"artist with company": {
			Username: "ana", CredentialHash: "h", Role: domain.RoleArtist,
			Profile: ports.ProfileInput{FullName: "Ana", Email: "ana@example.com", Company: "Acme"},
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := h.accounts.CreateAccount(ctx, in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestAccountService_CreateAccount_DuplicateUsername(t *testing.T) {
	h := newHarness(t)
	h.artist(t, "ana")

	_, err := h.accounts.CreateAccount(context.Background(), ports.CreateAccountInput{
		Username: "ana", CredentialHash: "h", Role: domain.RoleManager,
		Profile: ports.ProfileInput{FullName: "Ana", Email: "ana@example.com", CommissionPercentage: decPtr("10")},
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAccountService_CreateAccount_AtomicOnProfileFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	injected := errors.New("profile store unavailable")

	for _, op := range []string{memory.OpCreateArtistProfile, memory.OpCreateUser} {
		h.store.InjectFault(op, injected)
		_, err := h.accounts.CreateAccount(ctx, ports.CreateAccountInput{
			Username: "ana", CredentialHash: "h", Role: domain.RoleArtist,
			Profile: ports.ProfileInput{FullName: "Ana", Email: "ana@example.com"},
		})
		if !errors.Is(err, injected) {
			t.Fatalf("%s: expected injected error, got %v", op, err)
		}
		h.store.ClearFaults()

		if _, err := h.store.Repositories().Accounts.FindUserByUsername(ctx, "ana"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("%s: user survived a failed creation: %v", op, err)
		}
	}

	// The same username is still available afterwards.
	h.artist(t, "ana")
}

func TestAccountService_UpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.manager(t, "max", "20")

	acc, err := h.accounts.UpdateProfile(ctx, ports.UpdateProfileInput{
		Username:    "max",
		ClaimedRole: domain.RoleManager,
		Patch:       domain.ProfilePatch{Company: strPtr("Acme"), CommissionPercentage: decPtr("25")},
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if acc.Manager.Company != "Acme" || !acc.Manager.CommissionPercentage.Equal(dec("25")) {
		t.Fatalf("patch not applied: %+v", acc.Manager)
	}
	if acc.Manager.FullName != "max" {
		t.Fatalf("untouched field changed: %q", acc.Manager.FullName)
	}
}

func TestAccountService_UpdateProfile_RoleMismatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.artist(t, "ana")

	_, err := h.accounts.UpdateProfile(ctx, ports.UpdateProfileInput{
		Username: "ana", ClaimedRole: domain.RoleManager,
		Patch: domain.ProfilePatch{FullName: strPtr("Ana B")},
	})
	if !errors.Is(err, domain.ErrRoleMismatch) {
		t.Fatalf("claimed role: expected ErrRoleMismatch, got %v", err)
	}

	_, err = h.accounts.UpdateProfile(ctx, ports.UpdateProfileInput{
		Username: "ana", ClaimedRole: domain.RoleArtist,
		Patch: domain.ProfilePatch{CommissionPercentage: decPtr("10")},
	})
	if !errors.Is(err, domain.ErrRoleMismatch) {
		t.Fatalf("manager-only field: expected ErrRoleMismatch, got %v", err)
	}

	_, err = h.accounts.UpdateProfile(ctx, ports.UpdateProfileInput{
		Username: "ghost", ClaimedRole: domain.RoleArtist,
		Patch: domain.ProfilePatch{FullName: strPtr("Ghost")},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}
}

func TestAccountService_DeleteAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.artist(t, "ana")

	if err := h.accounts.DeleteAccount(ctx, "ana"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := h.accounts.GetAccount(ctx, "ana"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := h.accounts.DeleteAccount(ctx, "ana"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAccountService_DeleteAccount_RollsBackOnIdentityFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	acc := h.artist(t, "ana")
	h.store.InjectFault(memory.OpDeleteUser, errors.New("disk full"))

	if err := h.accounts.DeleteAccount(ctx, "ana"); err == nil {
		t.Fatalf("expected injected failure")
	}
	h.store.ClearFaults()

	if _, err := h.store.Repositories().Accounts.FindArtistProfile(ctx, acc.User.ID); err != nil {
		t.Fatalf("profile deletion was not rolled back: %v", err)
	}
}

func TestAccountService_DeleteAccount_BlockedByActiveCollaboration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.artist(t, "ana")
	m := h.manager(t, "max", "10")

	if _, err := h.collabs.Request(ctx, actorOf(m), ports.RequestCollaborationInput{ManagerID: m.User.ID, ArtistID: a.User.ID}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if err := h.accounts.DeleteAccount(ctx, "ana"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAccountService_UpdateCredentialAndSetActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.artist(t, "ana")

	if err := h.accounts.UpdateCredential(ctx, "ana", "new-hash"); err != nil {
		t.Fatalf("UpdateCredential: %v", err)
	}
	if err := h.accounts.SetActive(ctx, "ana", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	acc, err := h.accounts.GetAccount(ctx, "ana")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.User.CredentialHash != "new-hash" || acc.User.IsFirstLogin || acc.User.IsActive {
		t.Fatalf("unexpected user state: %+v", acc.User)
	}

	if err := h.accounts.UpdateCredential(ctx, "ana", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for empty hash, got %v", err)
	}
}
