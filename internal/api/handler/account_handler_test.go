package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

type stubAccountService struct {
	ports.AccountService
	created    *ports.CreateAccountInput
	updated    *ports.UpdateProfileInput
	credential string
}

func (s *stubAccountService) CreateAccount(ctx context.Context, in ports.CreateAccountInput) (*domain.Account, error) {
	s.created = &in
	return &domain.Account{User: &domain.User{ID: "u1", Username: in.Username, Role: in.Role}}, nil
}

func (s *stubAccountService) UpdateProfile(ctx context.Context, in ports.UpdateProfileInput) (*domain.Account, error) {
	s.updated = &in
	return &domain.Account{User: &domain.User{Username: in.Username, Role: in.ClaimedRole}}, nil
}

func (s *stubAccountService) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	return &domain.Account{User: &domain.User{Username: username}}, nil
}

func (s *stubAccountService) UpdateCredential(ctx context.Context, username, hash string) error {
	s.credential = hash
	return nil
}

type prefixHasher struct{}

func (prefixHasher) Hash(p string) (string, error) { return "h:" + p, nil }
func (prefixHasher) Compare(h, p string) error {
	if h != "h:"+p {
		return domain.ErrInvalidCredentials
	}
	return nil
}

var (
	adminActor  = &ports.Actor{UserID: "admin-1", Username: "root", Role: domain.RoleAdmin}
	artistActor = &ports.Actor{UserID: "artist-1", Username: "ana", Role: domain.RoleArtist}
)

func TestAccountHandler_Create_HashesPassword(t *testing.T) {
	svc := &stubAccountService{}
	h := NewAccountHandler(svc, prefixHasher{})

	body := `{"username":"ana","password":"longenough","role":"artist","profile":{"full_name":"Ana","email":"ana@example.com","stage_name":"A"}}`
	c, rec := newContext(http.MethodPost, "/v1/accounts", body, adminActor)

	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if svc.created == nil || svc.created.CredentialHash != "h:longenough" {
		t.Fatalf("service must receive the hash, got %+v", svc.created)
	}
	if svc.created.Profile.StageName != "A" || svc.created.Role != domain.RoleArtist {
		t.Fatalf("profile not mapped: %+v", svc.created)
	}
}

func TestAccountHandler_Create_Validation(t *testing.T) {
	svc := &stubAccountService{}
	h := NewAccountHandler(svc, prefixHasher{})

	c, _ := newContext(http.MethodPost, "/v1/accounts", `{"username":"ana","password":"short","role":"admin"}`, adminActor)
	if err := h.Create(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.created != nil {
		t.Fatalf("service should not be called")
	}
}

func TestAccountHandler_SelfOrAdmin(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{}, prefixHasher{})

	c, rec := newContext(http.MethodGet, "/v1/accounts/ana", "", artistActor, "username", "ana")
	if err := h.Get(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("self read: err=%v code=%d", err, rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/v1/accounts/bob", "", artistActor, "username", "bob")
	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	c, rec = newContext(http.MethodGet, "/v1/accounts/bob", "", adminActor, "username", "bob")
	if err := h.Get(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("admin read: err=%v code=%d", err, rec.Code)
	}
}

func TestAccountHandler_UpdateProfile_MapsPatch(t *testing.T) {
	svc := &stubAccountService{}
	h := NewAccountHandler(svc, prefixHasher{})

	c, rec := newContext(http.MethodPatch, "/v1/accounts/ana/profile", `{"role":"artist","genre":"jazz"}`, artistActor, "username", "ana")
	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	p := svc.updated.Patch
	if p.Genre == nil || *p.Genre != "jazz" || p.FullName != nil {
		t.Fatalf("unexpected patch: %+v", p)
	}
	if svc.updated.ClaimedRole != domain.RoleArtist {
		t.Fatalf("claimed role not forwarded")
	}
}

func TestAccountHandler_UpdateCredential_OwnerOnly(t *testing.T) {
	svc := &stubAccountService{}
	h := NewAccountHandler(svc, prefixHasher{})

	c, _ := newContext(http.MethodPut, "/v1/accounts/ana/credential", `{"password":"newpassword"}`, adminActor, "username", "ana")
	if err := h.UpdateCredential(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("admin must not change another user's password, got %v", err)
	}

	c, rec := newContext(http.MethodPut, "/v1/accounts/ana/credential", `{"password":"newpassword"}`, artistActor, "username", "ana")
	if err := h.UpdateCredential(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || svc.credential != "h:newpassword" {
		t.Fatalf("code=%d credential=%q", rec.Code, svc.credential)
	}
}

func TestAccountHandler_MissingActor(t *testing.T) {
	h := NewAccountHandler(&stubAccountService{}, prefixHasher{})
	c, rec := newContext(http.MethodGet, "/v1/accounts/ana", "", nil, "username", "ana")
	if err := h.Get(c); err != nil {
		c.Echo().HTTPErrorHandler(err, c)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
