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

type WorkflowHandler struct {
	workflowService *services.WorkflowService
}

func NewWorkflowHandler(workflowService *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{
		workflowService: workflowService,
	}
}

func (h *WorkflowHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/sheets/:sheetId/rows/:rowId", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ReadSheetPermission))

	protectedGroup.Post("/submit", h.action(models.ActionSubmit))
	protectedGroup.Post("/approve", h.action(models.ActionApprove))
	protectedGroup.Post("/reject", h.action(models.ActionReject))
	protectedGroup.Post("/return", h.action(models.ActionReturn))
	protectedGroup.Post("/admin-lock", h.action(models.ActionAdminLock), middleware.SuperAdminRequired())
	protectedGroup.Post("/admin-unlock", h.action(models.ActionAdminUnlock), middleware.SuperAdminRequired())
}

func (h *WorkflowHandler) action(action models.WorkflowAction) fiber.Handler {
	return func(c fiber.Ctx) error {
		sheetID, ok := pathObjectID(c, "sheetId")
		if !ok {
			return invalidIDResponse(c, "sheetId")
		}
		rowID, ok := pathObjectID(c, "rowId")
		if !ok {
			return invalidIDResponse(c, "rowId")
		}

		var req models.WorkflowRequest
		if len(c.Body()) > 0 {
			if err := c.Bind().Body(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid request body",
				})
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		row, err := h.workflowService.Transition(ctx, middleware.ActorFromCtx(c), sheetID, rowID, action, &req, middleware.RequestMeta(c))
		if err != nil {
			log.Printf("Failed to %s row %s: %v", action, rowID.Hex(), err)
			return respondError(c, err)
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Workflow action applied successfully",
			"data": fiber.Map{
				"row":    row,
				"action": action,
			},
		})
	}
}
