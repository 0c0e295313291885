package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
	"github.com/soundledger/royalty-service/internal/infrastructure/db/memory"
	"github.com/soundledger/royalty-service/internal/pkg/validation"
)

// ---------------------------------------------------------------------------
// Recording emitter
// ---------------------------------------------------------------------------

type sentNotification struct {
	userID  string
	message string
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (e *recordingEmitter) Emit(_ context.Context, userID, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sentNotification{userID: userID, message: message})
}

func (e *recordingEmitter) recipients() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.sent))
	for _, n := range e.sent {
		out = append(out, n.userID)
	}
	return out
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = nil
}

// ---------------------------------------------------------------------------
// Harness wiring every service to one in-memory store
// ---------------------------------------------------------------------------

type harness struct {
	store    *memory.Store
	emitter  *recordingEmitter
	accounts ports.AccountService
	collabs  ports.CollaborationService
	ledger   ports.RoyaltyService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	emitter := &recordingEmitter{}
	v := validation.New()
	log := zerolog.Nop()

	return &harness{
		store:    store,
		emitter:  emitter,
		accounts: NewAccountService(store, repos.Accounts, v, nil, log),
		collabs:  NewCollaborationService(store, repos.Collaborations, emitter, v, nil, log),
		ledger:   NewRoyaltyService(store, repos, nil, emitter, v, nil, log),
	}
}

func (h *harness) artist(t *testing.T, username string) *domain.Account {
	t.Helper()
	acc, err := h.accounts.CreateAccount(context.Background(), ports.CreateAccountInput{
		Username:       username,
		CredentialHash: "hash",
		Role:           domain.RoleArtist,
		Profile:        ports.ProfileInput{FullName: username, Email: username + "@example.com", StageName: username},
	})
	if err != nil {
		t.Fatalf("create artist %s: %v", username, err)
	}
	return acc
}

func (h *harness) manager(t *testing.T, username, commission string) *domain.Account {
	t.Helper()
	pct := decimal.RequireFromString(commission)
	acc, err := h.accounts.CreateAccount(context.Background(), ports.CreateAccountInput{
		Username:       username,
		CredentialHash: "hash",
		Role:           domain.RoleManager,
		Profile:        ports.ProfileInput{FullName: username, Email: username + "@example.com", CommissionPercentage: &pct},
	})
	if err != nil {
		t.Fatalf("create manager %s: %v", username, err)
	}
	return acc
}

func actorOf(acc *domain.Account) ports.Actor {
	return ports.Actor{UserID: acc.User.ID, Role: acc.User.Role}
}

var admin = ports.Actor{UserID: "admin-1", Role: domain.RoleAdmin}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }
