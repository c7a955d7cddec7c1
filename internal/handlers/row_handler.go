package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"sheet-management-service/internal/config"
	"sheet-management-service/internal/middleware"
	"sheet-management-service/internal/models"
	"sheet-management-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type RowHandler struct {
	rowService *services.RowService
}

func NewRowHandler(rowService *services.RowService) *RowHandler {
	return &RowHandler{
		rowService: rowService,
	}
}

func (h *RowHandler) RegisterRoutes(app *fiber.App) {
	protectedGroup := app.Group("/protected/sheets/:sheetId/rows", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ReadSheetPermission))

	protectedGroup.Post("/", h.CreateRow)
	protectedGroup.Get("/", h.ListRows)
	protectedGroup.Get("/:rowId", h.GetRow)
	protectedGroup.Put("/:rowId", h.UpdateRow)
	protectedGroup.Delete("/:rowId", h.DeleteRow)
	protectedGroup.Post("/:rowId/assignees", h.AssignRow)
}

func (h *RowHandler) CreateRow(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	var req models.CreateRowRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	row, err := h.rowService.Create(ctx, middleware.ActorFromCtx(c), sheetID, &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to create row in sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Row created successfully",
		"data": fiber.Map{
			"row": row,
		},
	})
}

func (h *RowHandler) GetRow(c fiber.Ctx) error {
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

	row, err := h.rowService.Get(ctx, middleware.ActorFromCtx(c), sheetID, rowID, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to get row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"row": row,
		},
	})
}

func (h *RowHandler) ListRows(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "50"))
	query := &models.RowListQuery{
		Status:   models.RowStatus(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}
	query.Clamp(config.ServiceConfig.Governance.MaxPageSize)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, total, err := h.rowService.List(ctx, middleware.ActorFromCtx(c), sheetID, query, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to list rows in sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"rows": rows,
			"pagination": fiber.Map{
				"page":     query.Page,
				"pageSize": query.PageSize,
				"count":    len(rows),
				"total":    total,
			},
		},
	})
}

func (h *RowHandler) UpdateRow(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	rowID, ok := pathObjectID(c, "rowId")
	if !ok {
		return invalidIDResponse(c, "rowId")
	}

	var req models.UpdateRowRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	row, err := h.rowService.Update(ctx, middleware.ActorFromCtx(c), sheetID, rowID, &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to update row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Row updated successfully",
		"data": fiber.Map{
			"row": row,
		},
	})
}

func (h *RowHandler) DeleteRow(c fiber.Ctx) error {
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

	if err := h.rowService.SoftDelete(ctx, middleware.ActorFromCtx(c), sheetID, rowID, middleware.RequestMeta(c)); err != nil {
		log.Printf("Failed to delete row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Row deleted successfully",
	})
}

func (h *RowHandler) AssignRow(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}
	rowID, ok := pathObjectID(c, "rowId")
	if !ok {
		return invalidIDResponse(c, "rowId")
	}

	var req models.AssignRowRequest

	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	row, err := h.rowService.Assign(ctx, middleware.ActorFromCtx(c), sheetID, rowID, &req, middleware.RequestMeta(c))
	if err != nil {
		log.Printf("Failed to assign row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Row assignees updated successfully",
		"data": fiber.Map{
			"row": row,
		},
	})
}
