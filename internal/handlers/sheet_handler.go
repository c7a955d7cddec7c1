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

type SheetHandler struct {
	sheetService *services.SheetService
}

func NewSheetHandler(sheetService *services.SheetService) *SheetHandler {
	return &SheetHandler{
		sheetService: sheetService,
	}
}

func (h *SheetHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	// Protected routes group
	protectedGroup := app.Group("/protected/sheets", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ReadSheetPermission))

	protectedGroup.Post("/", h.CreateSheet, middleware.SuperAdminRequired())
	protectedGroup.Get("/", h.ListAllowedSheets)
	protectedGroup.Get("/categories/:category", h.ListByCategory, middleware.SuperAdminRequired())
	protectedGroup.Get("/:sheetId", h.GetSheet)
	protectedGroup.Get("/:sheetId/access", h.GetSheetAccess)
	protectedGroup.Put("/:sheetId", h.UpdateSheet, middleware.SuperAdminRequired())
	protectedGroup.Patch("/:sheetId/activate", h.ActivateSheet, middleware.SuperAdminRequired())
	protectedGroup.Patch("/:sheetId/deactivate", h.DeactivateSheet, middleware.SuperAdminRequired())
}

func (h *SheetHandler) CreateSheet(c fiber.Ctx) error {
	var req models.CreateSheetRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sheet, err := h.sheetService.Create(ctx, middleware.ActorFromCtx(c), &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to create sheet: %v", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sheet created successfully",
		"data": fiber.Map{
			"sheet": sheet,
		},
	})
}

func (h *SheetHandler) GetSheet(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sheet, access, err := h.sheetService.Get(ctx, middleware.ActorFromCtx(c), sheetID)
	if err != nil {
		log.Printf("Failed to get sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"sheet":  sheet,
			"access": access,
		},
	})
}

// GetSheetAccess returns the caller's resolved effective access on the sheet,
// for UI capability checks.
func (h *SheetHandler) GetSheetAccess(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, access, err := h.sheetService.Get(ctx, middleware.ActorFromCtx(c), sheetID)
	if err != nil {
		log.Printf("Failed to resolve access on sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"access": access,
		},
	})
}

func (h *SheetHandler) UpdateSheet(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	var req models.UpdateSheetRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sheet, err := h.sheetService.Update(ctx, middleware.ActorFromCtx(c), sheetID, &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to update sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Sheet updated successfully",
		"data": fiber.Map{
			"sheet": sheet,
		},
	})
}

func (h *SheetHandler) ListAllowedSheets(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sheets, err := h.sheetService.ListAllowed(ctx, middleware.ActorFromCtx(c))
	if err != nil {
		log.Printf("Failed to list allowed sheets: %v", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"sheets": sheets,
			"count":  len(sheets),
		},
	})
}

func (h *SheetHandler) ListByCategory(c fiber.Ctx) error {
	category := c.Params("category")
	if category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Category is required",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sheets, err := h.sheetService.ListByCategory(ctx, middleware.ActorFromCtx(c), category)
	if err != nil {
		log.Printf("Failed to list sheets in category %s: %v", category, err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"sheets":   sheets,
			"category": category,
			"count":    len(sheets),
		},
	})
}

func (h *SheetHandler) ActivateSheet(c fiber.Ctx) error {
	return h.setActive(c, true, "Sheet activated successfully")
}

func (h *SheetHandler) DeactivateSheet(c fiber.Ctx) error {
	return h.setActive(c, false, "Sheet deactivated successfully")
}

func (h *SheetHandler) setActive(c fiber.Ctx, active bool, message string) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.sheetService.SetActive(ctx, middleware.ActorFromCtx(c), sheetID, active, middleware.RequestMeta(c)); err != nil {
		log.Printf("Failed to set sheet %s active=%t: %v", sheetID.Hex(), active, err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": message,
	})
}

func (h *SheetHandler) HealthCheck(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("Sheet Management Service is healthy")
}
