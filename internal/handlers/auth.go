package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/ytbs/bettersearch/internal/models"
)

// Authenticate accepts an OAuth token and organization id. Nothing is
// verified against an identity provider; any well-formed body is
// acknowledged.
func Authenticate(c *fiber.Ctx) error {
	var req models.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Debug("Rejected auth body", "error", err)
		return unprocessable(c, "Invalid request body")
	}
	if req.OAuthToken == nil || req.OrganizationID == nil {
		return unprocessable(c, "oauth_token and organization_id are required")
	}

	// The token is a credential; only the organization is logged.
	slog.Info("Auth request accepted", "organization_id", *req.OrganizationID)

	return c.JSON(models.AuthResponse{Result: "ok"})
}
