package middleware

import (
	"log"
	"strings"

	"sheet-management-service/internal/models"

	"github.com/gofiber/fiber/v3"
)

// Gateway-level permission names carried in X-User-Permissions. Fine-grained
// row access is decided by the assignment registry; these only gate the
// coarse route groups.
const (
	ReadSheetPermission   = "read:sheet"
	ManageSheetPermission = "manage:sheet"
	ReadAuditPermission   = "read:sheet:audit"

	// Admin permissions (for backward compatibility)
	AdminPermission   = "admin"
	ManagerPermission = "manager"
)

const actorLocalKey = "actor"

// ActorRequired extracts the authenticated actor forwarded by the gateway and
// stores it in the request locals. Requests without an identity are rejected.
func ActorRequired() fiber.Handler {
	return func(c fiber.Ctx) error {
		actorID := c.Get("X-User-ID")
		if actorID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals(actorLocalKey, &models.Actor{
			ID:    actorID,
			Name:  c.Get("X-User-Name"),
			Email: c.Get("X-User-Email"),
			Role:  c.Get("X-User-Role"),
		})
		return c.Next()
	}
}

// ActorFromCtx returns the actor stored by ActorRequired.
func ActorFromCtx(c fiber.Ctx) *models.Actor {
	actor, _ := c.Locals(actorLocalKey).(*models.Actor)
	return actor
}

// PermissionRequired gates a route on a gateway-level permission. Admin and
// manager grants pass implicitly; super-admins always pass.
func PermissionRequired(requiredPermission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		log.Println("Permission required function called from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())

		if c.Get("X-User-Role") == models.RoleSuperAdmin {
			return c.Next()
		}

		userPermissions := c.Get("X-User-Permissions")
		hasPermission := false
		if userPermissions != "" {
			permissions := strings.Split(userPermissions, ",")
			for _, perm := range permissions {
				if perm == requiredPermission || strings.HasPrefix(perm, "admin") || strings.HasPrefix(perm, "manager") {
					hasPermission = true
					break
				}
			}
		}

		if !hasPermission {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// SuperAdminRequired gates administrator-only routes.
func SuperAdminRequired() fiber.Handler {
	return func(c fiber.Ctx) error {
		if c.Get("X-User-Role") != models.RoleSuperAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Administrator access required",
			})
		}
		return c.Next()
	}
}

// RequestMeta captures the caller metadata recorded with audit entries.
func RequestMeta(c fiber.Ctx) models.RequestMeta {
	return models.RequestMeta{
		IP:        c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}
