package memory

import (
	"context"

	"github.com/soundledger/royalty-service/internal/core/domain"
)

type accountRepository struct{ v *view }

func (r *accountRepository) CreateUser(ctx context.Context, user *domain.User) error {
	return r.v.do(ctx, OpCreateUser, func(st *state) error {
		if _, taken := st.usernames[user.Username]; taken {
			return domain.ErrUserExists
		}
		if _, taken := st.users[user.ID]; taken {
			return domain.ErrUserExists
		}
		st.users[user.ID] = cloneUser(user)
		st.usernames[user.Username] = user.ID
		return nil
	})
}

func (r *accountRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, "", func(st *state) error {
		id, ok := st.usernames[username]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = cloneUser(st.users[id])
		return nil
	})
	return out, err
}

func (r *accountRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.v.do(ctx, "", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r *accountRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	return r.v.do(ctx, OpUpdateUser, func(st *state) error {
		cur, ok := st.users[user.ID]
		if !ok {
			return domain.ErrUserNotFound
		}
		cur.CredentialHash = user.CredentialHash
		cur.IsActive = user.IsActive
		cur.IsFirstLogin = user.IsFirstLogin
		cur.UpdatedAt = user.UpdatedAt
		return nil
	})
}

func (r *accountRepository) DeleteUser(ctx context.Context, id string) error {
	return r.v.do(ctx, OpDeleteUser, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		delete(st.usernames, u.Username)
		delete(st.users, id)
		return nil
	})
}

func (r *accountRepository) TouchUser(ctx context.Context, id string) error {
	return r.v.do(ctx, OpTouchUser, func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

func (r *accountRepository) CreateArtistProfile(ctx context.Context, p *domain.ArtistProfile) error {
	return r.v.do(ctx, OpCreateArtistProfile, func(st *state) error {
		if _, exists := st.artists[p.UserID]; exists {
			return domain.ErrConflict
		}
		st.artists[p.UserID] = cloneArtist(p)
		return nil
	})
}

func (r *accountRepository) FindArtistProfile(ctx context.Context, userID string) (*domain.ArtistProfile, error) {
	var out *domain.ArtistProfile
	err := r.v.do(ctx, "", func(st *state) error {
		p, ok := st.artists[userID]
		if !ok {
			return domain.ErrProfileNotFound
		}
		out = cloneArtist(p)
		return nil
	})
	return out, err
}

func (r *accountRepository) UpdateArtistProfile(ctx context.Context, p *domain.ArtistProfile) error {
	return r.v.do(ctx, OpUpdateArtistProfile, func(st *state) error {
		if _, ok := st.artists[p.UserID]; !ok {
			return domain.ErrProfileNotFound
		}
		st.artists[p.UserID] = cloneArtist(p)
		return nil
	})
}

func (r *accountRepository) DeleteArtistProfile(ctx context.Context, userID string) error {
	return r.v.do(ctx, OpDeleteArtistProfile, func(st *state) error {
		if _, ok := st.artists[userID]; !ok {
			return domain.ErrProfileNotFound
		}
		delete(st.artists, userID)
		return nil
	})
}

func (r *accountRepository) CreateManagerProfile(ctx context.Context, p *domain.ManagerProfile) error {
	return r.v.do(ctx, OpCreateManagerProfile, func(st *state) error {
		if _, exists := st.managers[p.UserID]; exists {
			return domain.ErrConflict
		}
		st.managers[p.UserID] = cloneManager(p)
		return nil
	})
}

func (r *accountRepository) FindManagerProfile(ctx context.Context, userID string) (*domain.ManagerProfile, error) {
	var out *domain.ManagerProfile
	err := r.v.do(ctx, "", func(st *state) error {
		p, ok := st.managers[userID]
		if !ok {
			return domain.ErrProfileNotFound
		}
		out = cloneManager(p)
		return nil
	})
	return out, err
}

func (r *accountRepository) UpdateManagerProfile(ctx context.Context, p *domain.ManagerProfile) error {
	return r.v.do(ctx, OpUpdateManagerProfile, func(st *state) error {
		if _, ok := st.managers[p.UserID]; !ok {
			return domain.ErrProfileNotFound
		}
		st.managers[p.UserID] = cloneManager(p)
		return nil
	})
}

func (r *accountRepository) DeleteManagerProfile(ctx context.Context, userID string) error {
	return r.v.do(ctx, OpDeleteManagerProfile, func(st *state) error {
		if _, ok := st.managers[userID]; !ok {
			return domain.ErrProfileNotFound
		}
		delete(st.managers, userID)
		return nil
	})
}
