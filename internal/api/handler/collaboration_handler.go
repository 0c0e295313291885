package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// CollaborationHandler exposes the collaboration lifecycle.
type CollaborationHandler struct {
	service ports.CollaborationService
}

func NewCollaborationHandler(service ports.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{service: service}
}

type requestCollaborationRequest struct {
	ManagerID string   `json:"manager_id" validate:"required"`
	ArtistID  string   `json:"artist_id" validate:"required"`
	Songs     []string `json:"songs" validate:"omitempty,dive,required"`
}

type cancellationRequest struct {
	Reason string `json:"reason" validate:"max=512"`
}

type cancellationResponseRequest struct {
	Decision ports.CancellationDecision `json:"decision" validate:"required,oneof=approved declined"`
}

type songsRequest struct {
	Songs []string `json:"songs" validate:"required,min=1,dive,required"`
}

type collaborationListResponse struct {
	Items []*domain.Collaboration `json:"items"`
}

// Request handles POST /v1/collaborations.
//
// @Summary      Propose a collaboration between a manager and an artist
// @Tags         collaborations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      requestCollaborationRequest  true  "Parties and initial songs"
// @Success      201   {object}  domain.Collaboration
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/collaborations [post]
func (h *CollaborationHandler) Request(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req requestCollaborationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	collab, err := h.service.Request(c.Request().Context(), actor, ports.RequestCollaborationInput{
		ManagerID: req.ManagerID,
		ArtistID:  req.ArtistID,
		Songs:     req.Songs,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, collab)
}

// List handles GET /v1/collaborations. Admins may pass ?user_id= to list
// another user's collaborations.
//
// @Summary      List the caller's collaborations, newest first
// @Tags         collaborations
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query     string  false  "User to list (admin only)"
// @Success      200      {object}  collaborationListResponse
// @Router       /v1/collaborations [get]
func (h *CollaborationHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	userID := actor.UserID
	if q := c.QueryParam("user_id"); q != "" && q != userID {
		if !actor.IsAdmin() {
			return domain.ErrForbidden
		}
		userID = q
	}

	items, err := h.service.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collaborationListResponse{Items: items})
}

// Get handles GET /v1/collaborations/:id.
//
// @Summary      Get a collaboration
// @Tags         collaborations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Collaboration ID"
// @Success      200  {object}  domain.Collaboration
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/collaborations/{id} [get]
func (h *CollaborationHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	collab, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collab)
}

// Approve handles POST /v1/collaborations/:id/approve.
//
// @Summary      Approve a pending collaboration
// @Tags         collaborations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Collaboration ID"
// @Success      200  {object}  domain.Collaboration
// @Failure      422  {object}  map[string]string
// @Router       /v1/collaborations/{id}/approve [post]
func (h *CollaborationHandler) Approve(c echo.Context) error {
	return h.transition(c, h.service.Approve)
}

// Reject handles POST /v1/collaborations/:id/reject.
//
// @Summary      Reject a pending collaboration
// @Tags         collaborations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Collaboration ID"
// @Success      200  {object}  domain.Collaboration
// @Failure      422  {object}  map[string]string
// @Router       /v1/collaborations/{id}/reject [post]
func (h *CollaborationHandler) Reject(c echo.Context) error {
	return h.transition(c, h.service.Reject)
}

// RequestCancellation handles POST /v1/collaborations/:id/cancellation.
//
// @Summary      Ask the counterparty to end an approved collaboration
// @Tags         collaborations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Collaboration ID"
// @Param        body  body      cancellationRequest  false "Reason"
// @Success      200   {object}  domain.Collaboration
// @Failure      422   {object}  map[string]string
// @Router       /v1/collaborations/{id}/cancellation [post]
func (h *CollaborationHandler) RequestCancellation(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req cancellationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	collab, err := h.service.RequestCancellation(c.Request().Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collab)
}

// RespondToCancellation handles POST /v1/collaborations/:id/cancellation/response.
//
// @Summary      Approve or decline a pending cancellation
// @Tags         collaborations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                       true  "Collaboration ID"
// @Param        body  body      cancellationResponseRequest  true  "Decision"
// @Success      200   {object}  domain.Collaboration
// @Failure      422   {object}  map[string]string
// @Router       /v1/collaborations/{id}/cancellation/response [post]
func (h *CollaborationHandler) RespondToCancellation(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req cancellationResponseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	collab, err := h.service.RespondToCancellation(c.Request().Context(), actor, c.Param("id"), req.Decision)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collab)
}

// AssignSongs handles POST /v1/collaborations/:id/songs.
//
// @Summary      Add songs to a collaboration
// @Tags         collaborations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Collaboration ID"
// @Param        body  body      songsRequest  true  "Song IDs"
// @Success      200   {object}  domain.Collaboration
// @Failure      422   {object}  map[string]string
// @Router       /v1/collaborations/{id}/songs [post]
func (h *CollaborationHandler) AssignSongs(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req songsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	collab, err := h.service.AssignSongs(c.Request().Context(), actor, c.Param("id"), req.Songs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collab)
}

type transitionFunc func(ctx context.Context, actor ports.Actor, id string) (*domain.Collaboration, error)

func (h *CollaborationHandler) transition(c echo.Context, fn transitionFunc) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	collab, err := fn(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, collab)
}
