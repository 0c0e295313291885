package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soundledger/royalty-service/internal/core/domain"
	"github.com/soundledger/royalty-service/internal/core/ports"
)

// ActorKey is the echo context key under which the Auth middleware stores the caller.
const ActorKey = "actor"

// actorFrom returns the caller injected by the Auth middleware. A missing or
// malformed identity is reported as 401 before any service call.
func actorFrom(c echo.Context) (ports.Actor, error) {
	actor, ok := c.Get(ActorKey).(ports.Actor)
	if !ok || actor.UserID == "" || !actor.Role.IsValid() {
		return ports.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}

// ownArtist resolves the artist a read is scoped to. Artists may only read
// their own records; admins must name the artist.
func ownArtist(actor ports.Actor, requested string) (string, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		if requested == "" {
			return "", domain.Validationf("artist_id is required")
		}
		return requested, nil
	case domain.RoleArtist:
		if requested != "" && requested != actor.UserID {
			return "", domain.ErrForbidden
		}
		return actor.UserID, nil
	default:
		return "", domain.ErrForbidden
	}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
