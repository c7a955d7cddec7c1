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

type AssignmentHandler struct {
	assignmentService *services.AssignmentService
}

func NewAssignmentHandler(assignmentService *services.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentService: assignmentService,
	}
}

func (h *AssignmentHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/sheets/:sheetId/assignments", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ManageSheetPermission))

	protectedGroup.Post("/", h.GrantAssignment)
	protectedGroup.Get("/", h.ListAssignments)
	protectedGroup.Put("/:assignmentId", h.UpdateAssignment)
	protectedGroup.Delete("/:assignmentId", h.RevokeAssignment)
}

func (h *AssignmentHandler) GrantAssignment(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	var req models.GrantAssignmentRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assignment, err := h.assignmentService.Grant(ctx, middleware.ActorFromCtx(c), sheetID, &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to grant assignment on sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Assignment granted successfully",
		"data": fiber.Map{
			"assignment": assignment,
		},
	})
}

func (h *AssignmentHandler) ListAssignments(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assignments, err := h.assignmentService.ListBySheet(ctx, middleware.ActorFromCtx(c), sheetID)
	if err != nil {
		log.Printf("Failed to list assignments on sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"assignments": assignments,
			"count":       len(assignments),
		},
	})
}

func (h *AssignmentHandler) UpdateAssignment(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	assignmentID, ok := pathObjectID(c, "assignmentId")
	if !ok {
		return invalidIDResponse(c, "assignmentId")
	}

	var req models.UpdateAssignmentRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assignment, err := h.assignmentService.Update(ctx, middleware.ActorFromCtx(c), sheetID, assignmentID, &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to update assignment %s: %v", assignmentID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Assignment updated successfully",
		"data": fiber.Map{
			"assignment": assignment,
		},
	})
}

func (h *AssignmentHandler) RevokeAssignment(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	assignmentID, ok := pathObjectID(c, "assignmentId")
	if !ok {
		return invalidIDResponse(c, "assignmentId")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.assignmentService.Revoke(ctx, middleware.ActorFromCtx(c), sheetID, assignmentID, middleware.RequestMeta(c)); err != nil {
		log.Printf("Failed to revoke assignment %s: %v", assignmentID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Assignment revoked successfully",
	})
}
