package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

var errBoom = errors.New("boom")

func newUser(id, username string) *domain.User {
	return &domain.User{ID: id, Username: username, Role: domain.RoleArtist, IsActive: true}
}

func TestExecute_CommitsOnSuccess(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	err := s.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Accounts.CreateUser(ctx, newUser("u1", "ana")); err != nil {
			return err
		}
		return repos.Accounts.CreateArtistProfile(ctx, &domain.ArtistProfile{UserID: "u1", FullName: "Ana"})
	})
	require.NoError(t, err)

	u, err := s.Repositories().Accounts.FindUserByUsername(ctx, "ana")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	_, err = s.Repositories().Accounts.FindArtistProfile(ctx, "u1")
	require.NoError(t, err)
}

func TestExecute_RollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.InjectFault(OpCreateArtistProfile, errBoom)

	err := s.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Accounts.CreateUser(ctx, newUser("u1", "ana")); err != nil {
			return err
		}
		return repos.Accounts.CreateArtistProfile(ctx, &domain.ArtistProfile{UserID: "u1"})
	})
	require.ErrorIs(t, err, errBoom)

	_, err = s.Repositories().Accounts.FindUserByUsername(ctx, "ana")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestExecute_RollsBackOnPanic(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.Panics(t, func() {
		_ = s.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
			_ = repos.Accounts.CreateUser(ctx, newUser("u1", "ana"))
			panic("profile writer crashed")
		})
	})

	_, err := s.Repositories().Accounts.FindUserByID(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	// The lock must have been released.
	require.NoError(t, s.Repositories().Accounts.CreateUser(ctx, newUser("u2", "bea")))
}

func TestAccountRepository_DuplicateUsername(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Repositories().Accounts

	require.NoError(t, repo.CreateUser(ctx, newUser("u1", "ana")))
	require.ErrorIs(t, repo.CreateUser(ctx, newUser("u2", "ana")), domain.ErrConflict)
}

func TestAccountRepository_TouchUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Repositories().Accounts

	require.NoError(t, repo.CreateUser(ctx, newUser("u1", "ana")))
	require.NoError(t, repo.TouchUser(ctx, "u1"))
	require.NoError(t, repo.DeleteUser(ctx, "u1"))
	require.ErrorIs(t, repo.TouchUser(ctx, "u1"), domain.ErrUserNotFound)
}

func TestCollaborationRepository_ActivePairIsUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Repositories().Collaborations

	first := &domain.Collaboration{ID: "c1", ManagerID: "m", ArtistID: "a", Status: domain.CollabPending}
	require.NoError(t, repo.Insert(ctx, first))
	require.ErrorIs(t, repo.Insert(ctx, &domain.Collaboration{ID: "c2", ManagerID: "m", ArtistID: "a", Status: domain.CollabPending}), domain.ErrActiveCollaboration)

	ok, err := repo.CompareAndSwapStatus(ctx, "c1", domain.CollabPending, domain.CollaborationChange{To: domain.CollabRejected})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.CompareAndSwapStatus(ctx, "c1", domain.CollabPending, domain.CollaborationChange{To: domain.CollabApproved})
	require.NoError(t, err)
	require.False(t, ok, "status already moved")

	require.NoError(t, repo.Insert(ctx, &domain.Collaboration{ID: "c2", ManagerID: "m", ArtistID: "a", Status: domain.CollabPending}))
}

func TestRoyaltyRepository_ConcurrentAccruals(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Repositories().Royalties
	key := domain.RoyaltyKey{ArtistID: "a", SongID: "s", Period: "2024-01"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Accrue(ctx, key, decimal.RequireFromString("1.01"), time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	roy, err := repo.FindByKey(ctx, key)
	require.NoError(t, err)
	require.True(t, roy.TotalRoyalty.Equal(decimal.RequireFromString("50.50")))
	require.True(t, roy.RoyaltyDue.Equal(roy.TotalRoyalty))
	require.EqualValues(t, 50, roy.Version)
}

func TestRoyaltyRepository_SettleDueChecksVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Repositories().Royalties

	roy, err := repo.Accrue(ctx, domain.RoyaltyKey{ArtistID: "a", SongID: "s", Period: "p"}, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)

	ok, err := repo.SettleDue(ctx, roy.ID, roy.Version+1, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.SettleDue(ctx, roy.ID, roy.Version, decimal.NewFromInt(10), time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	got, err := repo.FindByID(ctx, roy.ID)
	require.NoError(t, err)
	require.True(t, got.RoyaltyDue.IsZero())
	require.True(t, got.Balanced())
}

func TestNotificationRepository_MarkReadScopedToOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Notifications()

	require.NoError(t, repo.Insert(ctx, &domain.Notification{ID: "n1", UserID: "u1", Message: "hi", CreatedAt: time.Now()}))

	_, err := repo.MarkRead(ctx, "u2", "n1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	n, err := repo.MarkRead(ctx, "u1", "n1")
	require.NoError(t, err)
	require.True(t, n.IsRead)
}
