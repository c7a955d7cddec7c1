package handlers

import (
	"context"
	"log"
	"time"

	"sheet-management-service/internal/middleware"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type LockHandler struct {
	lockService *services.LockService
}

func NewLockHandler(lockService *services.LockService) *LockHandler {
	return &LockHandler{
		lockService: lockService,
	}
}

func (h *LockHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/sheets/:sheetId/rows/:rowId/lock", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ReadSheetPermission))

	protectedGroup.Post("/", h.AcquireLock)
	protectedGroup.Delete("/", h.ReleaseLock)
	protectedGroup.Get("/", h.GetLock)
}

func (h *LockHandler) AcquireLock(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	rowID, ok := pathObjectID(c, "rowId")
	if !ok {
		return invalidIDResponse(c, "rowId")
	}

	var req models.AcquireLockRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lock, err := h.lockService.Acquire(ctx, middleware.ActorFromCtx(c), sheetID, rowID, req.TimeoutMinutes, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to lock row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Lock acquired successfully",
		"data": fiber.Map{
			"lock": lock,
		},
	})
}

func (h *LockHandler) ReleaseLock(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	rowID, ok := pathObjectID(c, "rowId")
	if !ok {
		return invalidIDResponse(c, "rowId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.lockService.Release(ctx, middleware.ActorFromCtx(c), sheetID, rowID, middleware.RequestMeta(c)); err != nil {
		log.Printf("Failed to release lock on row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Lock released successfully",
	})
}

func (h *LockHandler) GetLock(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	rowID, ok := pathObjectID(c, "rowId")
	if !ok {
		return invalidIDResponse(c, "rowId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock, err := h.lockService.GetInfo(ctx, middleware.ActorFromCtx(c), sheetID, rowID)
	if err != nil {
		log.Printf("Failed to get lock on row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"lock":   lock,
			"locked": lock != nil,
		},
	})
}
