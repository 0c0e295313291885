// Package memory is an in-process implementation of the persistence ports.
// It backs tests and the STORE_DRIVER=memory development mode.
//
// A single mutex serialises every operation. Transactions run against a deep
// copy of the state which replaces the live state only when the callback
// succeeds, so a failed or panicking callback leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// Operation names accepted by InjectFault.
const (
	OpCreateUser           = "CreateUser"
	OpUpdateUser           = "UpdateUser"
	OpDeleteUser           = "DeleteUser"
	OpTouchUser            = "TouchUser"
	OpCreateArtistProfile  = "CreateArtistProfile"
	OpUpdateArtistProfile  = "UpdateArtistProfile"
	OpDeleteArtistProfile  = "DeleteArtistProfile"
	OpCreateManagerProfile = "CreateManagerProfile"
	OpUpdateManagerProfile = "UpdateManagerProfile"
	OpDeleteManagerProfile = "DeleteManagerProfile"
	OpInsertCollaboration  = "InsertCollaboration"
	OpSwapCollaboration    = "CompareAndSwapStatus"
	OpAccrue               = "Accrue"
	OpSettleDue            = "SettleDue"
	OpInsertTransaction    = "InsertTransaction"
	OpSetTransactionStatus = "CompareAndSetStatus"
)

type state struct {
	users        map[string]*domain.User
	usernames    map[string]string
	artists      map[string]*domain.ArtistProfile
	managers     map[string]*domain.ManagerProfile
	collabs      map[string]*domain.Collaboration
	royalties    map[string]*domain.Royalty
	royaltyKeys  map[domain.RoyaltyKey]string
	transactions map[string]*domain.Transaction
}

func newState() *state {
	return &state{
		users:        make(map[string]*domain.User),
		usernames:    make(map[string]string),
		artists:      make(map[string]*domain.ArtistProfile),
		managers:     make(map[string]*domain.ManagerProfile),
		collabs:      make(map[string]*domain.Collaboration),
		royalties:    make(map[string]*domain.Royalty),
		royaltyKeys:  make(map[domain.RoyaltyKey]string),
		transactions: make(map[string]*domain.Transaction),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = cloneUser(v)
	}
	for k, v := range s.usernames {
		c.usernames[k] = v
	}
	for k, v := range s.artists {
		c.artists[k] = cloneArtist(v)
	}
	for k, v := range s.managers {
		c.managers[k] = cloneManager(v)
	}
	for k, v := range s.collabs {
		c.collabs[k] = cloneCollaboration(v)
	}
	for k, v := range s.royalties {
		c.royalties[k] = cloneRoyalty(v)
	}
	for k, v := range s.royaltyKeys {
		c.royaltyKeys[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = cloneTransaction(v)
	}
	return c
}

// Store holds the shared state.
type Store struct {
	mu sync.Mutex
	st *state

	faultMu sync.Mutex
	faults  map[string]error

	notifications *NotificationRepository
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		st:            newState(),
		faults:        make(map[string]error),
		notifications: newNotificationRepository(),
	}
}

// InjectFault makes every later call of op fail with err until ClearFaults.
func (s *Store) InjectFault(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes all injected faults.
func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

// Repositories returns auto-commit repositories. They must not be used from
// inside an Execute callback.
func (s *Store) Repositories() ports.Repositories {
	v := &view{store: s}
	return v.repositories()
}

// Notifications returns the notification repository.
func (s *Store) Notifications() *NotificationRepository { return s.notifications }

// Execute implements ports.TxManager.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	v := &view{store: s, tx: work}

	if err := fn(ctx, v.repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit aborted: %w", err)
	}
	s.st = work
	return nil
}

// view routes repository calls either to a transaction's working copy or,
// when tx is nil, to the live state under the store lock.
type view struct {
	store *Store
	tx    *state
}

func (v *view) repositories() ports.Repositories {
	return ports.Repositories{
		Accounts:       &accountRepository{v},
		Collaborations: &collaborationRepository{v},
		Royalties:      &royaltyRepository{v},
		Transactions:   &transactionRepository{v},
	}
}

func (v *view) do(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if op != "" {
		if err := v.store.fault(op); err != nil {
			return err
		}
	}
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.st)
}

var _ ports.TxManager = (*Store)(nil)
