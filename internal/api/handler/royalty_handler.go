package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// RoyaltyHandler exposes the royalty ledger.
type RoyaltyHandler struct {
	service ports.RoyaltyService
}

func NewRoyaltyHandler(service ports.RoyaltyService) *RoyaltyHandler {
	return &RoyaltyHandler{service: service}
}

type accrueRequest struct {
	ArtistID       string           `json:"artist_id" validate:"required"`
	SongID         string           `json:"song_id" validate:"required"`
	Period         string           `json:"period" validate:"required,max=32"`
	Amount         *decimal.Decimal `json:"amount" validate:"required"`
	IdempotencyKey string           `json:"idempotency_key" validate:"omitempty,max=128"`
}

type accrueResponse struct {
	Royalty  *domain.Royalty `json:"royalty"`
	Replayed bool            `json:"replayed"`
}

type disburseRequest struct {
	ArtistFraction *decimal.Decimal `json:"artist_fraction"`
}

type disburseResponse struct {
	Transaction *domain.Transaction `json:"transaction"`
	Royalty     *domain.Royalty     `json:"royalty"`
}

type royaltyListResponse struct {
	Items []*domain.Royalty `json:"items"`
}

type transactionListResponse struct {
	Items []*domain.Transaction `json:"items"`
}

// Accrue handles POST /v1/royalties/accruals. A replayed idempotency key
// answers 200 with the current royalty instead of 201.
//
// @Summary      Credit a royalty for an (artist, song, period)
// @Tags         royalties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string         false  "Idempotency key to prevent duplicate accruals"
// @Param        body             body      accrueRequest  true   "Accrual"
// @Success      201              {object}  accrueResponse
// @Success      200              {object}  accrueResponse
// @Failure      400              {object}  map[string]string
// @Router       /v1/royalties/accruals [post]
func (h *RoyaltyHandler) Accrue(c echo.Context) error {
	var req accrueRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	key := req.IdempotencyKey
	if hdr := c.Request().Header.Get("Idempotency-Key"); hdr != "" {
		key = hdr
	}

	res, err := h.service.Accrue(c.Request().Context(), ports.AccrueInput{
		ArtistID:       req.ArtistID,
		SongID:         req.SongID,
		Period:         req.Period,
		Amount:         *req.Amount,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, accrueResponse{Royalty: res.Royalty, Replayed: res.Replayed})
}

// Disburse handles POST /v1/royalties/:id/disbursements.
//
// @Summary      Pay out the due balance of a royalty
// @Tags         royalties
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true   "Royalty ID"
// @Param        body  body      disburseRequest  false  "Explicit artist fraction"
// @Success      201   {object}  disburseResponse
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/royalties/{id}/disbursements [post]
func (h *RoyaltyHandler) Disburse(c echo.Context) error {
	var req disburseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.service.Disburse(c.Request().Context(), ports.DisburseInput{
		RoyaltyID:      c.Param("id"),
		ArtistFraction: req.ArtistFraction,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, disburseResponse{Transaction: res.Transaction, Royalty: res.Royalty})
}

// Get handles GET /v1/royalties/:id.
//
// @Summary      Get a royalty
// @Tags         royalties
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Royalty ID"
// @Success      200  {object}  domain.Royalty
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/royalties/{id} [get]
func (h *RoyaltyHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	roy, err := h.service.GetRoyalty(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && roy.ArtistID != actor.UserID {
		return domain.ErrForbidden
	}
	return c.JSON(http.StatusOK, roy)
}

// List handles GET /v1/royalties?artist_id=.
//
// @Summary      List an artist's royalties
// @Tags         royalties
// @Produce      json
// @Security     BearerAuth
// @Param        artist_id  query     string  false  "Artist (required for admins)"
// @Success      200        {object}  royaltyListResponse
// @Failure      403        {object}  map[string]string
// @Router       /v1/royalties [get]
func (h *RoyaltyHandler) List(c echo.Context) error {
	artistID, err := h.scope(c, c.QueryParam("artist_id"))
	if err != nil {
		return err
	}
	items, err := h.service.ListRoyalties(c.Request().Context(), artistID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, royaltyListResponse{Items: items})
}

// Balance handles GET /v1/artists/:id/balance.
//
// @Summary      Aggregate totals of an artist's royalties
// @Tags         royalties
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Artist ID"
// @Success      200  {object}  domain.Balance
// @Failure      403  {object}  map[string]string
// @Router       /v1/artists/{id}/balance [get]
func (h *RoyaltyHandler) Balance(c echo.Context) error {
	artistID, err := h.scope(c, c.Param("id"))
	if err != nil {
		return err
	}
	bal, err := h.service.Balance(c.Request().Context(), artistID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bal)
}

// ListTransactions handles GET /v1/transactions?artist_id=.
//
// @Summary      List an artist's disbursement transactions
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        artist_id  query     string  false  "Artist (required for admins)"
// @Success      200        {object}  transactionListResponse
// @Failure      403        {object}  map[string]string
// @Router       /v1/transactions [get]
func (h *RoyaltyHandler) ListTransactions(c echo.Context) error {
	artistID, err := h.scope(c, c.QueryParam("artist_id"))
	if err != nil {
		return err
	}
	items, err := h.service.ListTransactions(c.Request().Context(), artistID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transactionListResponse{Items: items})
}

// ApproveTransaction handles POST /v1/transactions/:id/approve.
//
// @Summary      Confirm a pending disbursement
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Transaction ID"
// @Success      200  {object}  domain.Transaction
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /v1/transactions/{id}/approve [post]
func (h *RoyaltyHandler) ApproveTransaction(c echo.Context) error {
	tx, err := h.service.ApproveTransaction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tx)
}

func (h *RoyaltyHandler) scope(c echo.Context, requested string) (string, error) {
	actor, err := actorFrom(c)
	if err != nil {
		return "", err
	}
	return ownArtist(actor, requested)
}
