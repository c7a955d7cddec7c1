package handlers

import (
	"errors"

	"sheet-management-service/internal/apperrors"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// respondError maps service errors onto HTTP statuses. Lock conflicts carry
// the holder metadata so clients can show who is editing.
func respondError(c fiber.Ctx, err error) error {
	var lockErr *apperrors.LockHeldError
	if errors.As(err, &lockErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Row is locked by another user",
			"lock": fiber.Map{
				"holderId":   lockErr.HolderID,
				"holderName": lockErr.HolderName,
				"acquiredAt": lockErr.AcquiredAt,
				"expiresAt":  lockErr.ExpiresAt,
			},
		})
	}

	switch {
	case errors.Is(err, apperrors.ErrLockHeld):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Row is locked by another user",
		})
	case errors.Is(err, apperrors.ErrAccessDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrMissingRequiredFields),
		errors.Is(err, apperrors.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, mongo.ErrNoDocuments):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Resource not found",
		})
	case errors.Is(err, apperrors.ErrImmutableRecord):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Audit records cannot be modified",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}

// pathObjectID parses an ObjectID route parameter, answering 400 on garbage.
func pathObjectID(c fiber.Ctx, param string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.Params(param))
	if err != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}

func invalidIDResponse(c fiber.Ctx, param string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid " + param + " format",
	})
}
