package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// AccountHandler serves account provisioning. Passwords are hashed here so
// the service only ever sees credential hashes.
type AccountHandler struct {
	service ports.AccountService
	hasher  ports.PasswordHasher
}

func NewAccountHandler(service ports.AccountService, hasher ports.PasswordHasher) *AccountHandler {
	return &AccountHandler{service: service, hasher: hasher}
}

// --- Request types ---

type profileRequest struct {
	FullName             string           `json:"full_name"`
	Email                string           `json:"email"`
	Phone                string           `json:"phone"`
	StageName            string           `json:"stage_name"`
	Genre                string           `json:"genre"`
	Company              string           `json:"company"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

type createAccountRequest struct {
	Username string         `json:"username" validate:"required,min=3,max=64"`
	Password string         `json:"password" validate:"required,min=8,max=72"`
	Role     domain.Role    `json:"role" validate:"required,oneof=artist manager"`
	Profile  profileRequest `json:"profile"`
}

type updateProfileRequest struct {
	Role                 domain.Role      `json:"role" validate:"required,oneof=artist manager"`
	FullName             *string          `json:"full_name"`
	Email                *string          `json:"email"`
	Phone                *string          `json:"phone"`
	StageName            *string          `json:"stage_name"`
	Genre                *string          `json:"genre"`
	Company              *string          `json:"company"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

type credentialRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Create handles POST /v1/accounts.
//
// @Summary      Create an artist or manager account with its profile
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAccountRequest  true  "Account and profile"
// @Success      201   {object}  domain.Account
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	p := req.Profile
	acc, err := h.service.CreateAccount(c.Request().Context(), ports.CreateAccountInput{
		Username:       req.Username,
		CredentialHash: hash,
		Role:           req.Role,
		Profile: ports.ProfileInput{
			FullName:             p.FullName,
			Email:                p.Email,
			Phone:                p.Phone,
			StageName:            p.StageName,
			Genre:                p.Genre,
			Company:              p.Company,
			CommissionPercentage: p.CommissionPercentage,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, acc)
}

// Get handles GET /v1/accounts/:username.
//
// @Summary      Get an account with its profile
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  domain.Account
// @Failure      403       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /v1/accounts/{username} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	username, err := h.selfOrAdmin(c)
	if err != nil {
		return err
	}
	acc, err := h.service.GetAccount(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acc)
}

// UpdateProfile handles PATCH /v1/accounts/:username/profile.
//
// @Summary      Partially update the profile of an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string                true  "Username"
// @Param        body      body      updateProfileRequest  true  "Fields to change and the expected role"
// @Success      200       {object}  domain.Account
// @Failure      400       {object}  map[string]string
// @Failure      409       {object}  map[string]string
// @Router       /v1/accounts/{username}/profile [patch]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	username, err := h.selfOrAdmin(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acc, err := h.service.UpdateProfile(c.Request().Context(), ports.UpdateProfileInput{
		Username:    username,
		ClaimedRole: req.Role,
		Patch: domain.ProfilePatch{
			FullName:             req.FullName,
			Email:                req.Email,
			Phone:                req.Phone,
			StageName:            req.StageName,
			Genre:                req.Genre,
			Company:              req.Company,
			CommissionPercentage: req.CommissionPercentage,
		},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acc)
}

// UpdateCredential handles PUT /v1/accounts/:username/credential. Only the
// account owner may change its password.
//
// @Summary      Change the caller's password
// @Tags         accounts
// @Accept       json
// @Security     BearerAuth
// @Param        username  path  string             true  "Username"
// @Param        body      body  credentialRequest  true  "New password"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Router       /v1/accounts/{username}/credential [put]
func (h *AccountHandler) UpdateCredential(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	username := c.Param("username")
	if actor.Username != username {
		return domain.ErrForbidden
	}
	var req credentialRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	if err := h.service.UpdateCredential(c.Request().Context(), username, hash); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetActive handles PUT /v1/accounts/:username/active.
//
// @Summary      Activate or deactivate an account
// @Tags         accounts
// @Accept       json
// @Security     BearerAuth
// @Param        username  path  string         true  "Username"
// @Param        body      body  activeRequest  true  "Desired state"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /v1/accounts/{username}/active [put]
func (h *AccountHandler) SetActive(c echo.Context) error {
	var req activeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.service.SetActive(c.Request().Context(), c.Param("username"), *req.Active); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/accounts/:username.
//
// @Summary      Delete an account and its profile
// @Tags         accounts
// @Security     BearerAuth
// @Param        username  path  string  true  "Username"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /v1/accounts/{username} [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteAccount(c.Request().Context(), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) selfOrAdmin(c echo.Context) (string, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return "", err
	}
	username := c.Param("username")
	if !actor.IsAdmin() && actor.Username != username {
		return "", domain.ErrForbidden
	}
	return username, nil
}
