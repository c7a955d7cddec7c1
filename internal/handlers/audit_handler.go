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

type AuditHandler struct {
	auditService  *services.AuditService
	accessService *services.AccessService
}

func NewAuditHandler(auditService *services.AuditService, accessService *services.AccessService) *AuditHandler {
	return &AuditHandler{
		auditService:  auditService,
		accessService: accessService,
	}
}

func (h *AuditHandler) RegisterRoutes(app *fiber.App) {
	rowGroup := app.Group("/protected/sheets/:sheetId/rows/:rowId", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ReadAuditPermission))
	rowGroup.Get("/history", h.RowHistory)

	auditGroup := app.Group("/protected/audit", middleware.ActorRequired(), middleware.PermissionRequired(middleware.ReadAuditPermission))
	auditGroup.Get("/sheets/:sheetId", h.SheetActivity)
	auditGroup.Get("/sheets/:sheetId/report", h.SheetReport)
	auditGroup.Get("/actors/:actorId", h.ActorActivity, middleware.SuperAdminRequired())
}

func (h *AuditHandler) RowHistory(c fiber.Ctx) error {
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

	if _, err := h.accessService.ResolveAccess(ctx, middleware.ActorFromCtx(c), sheetID, models.PermissionViewAudit); err != nil {
		return respondError(c, err)
	}

	entries, err := h.auditService.RowHistory(ctx, rowID)
	if err != nil {
		log.Printf("Failed to get audit history for row %s: %v", rowID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"entries": entries,
			"count":   len(entries),
		},
	})
}

func (h *AuditHandler) SheetActivity(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	query := auditQueryFromRequest(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := h.accessService.ResolveAccess(ctx, middleware.ActorFromCtx(c), sheetID, models.PermissionViewAudit); err != nil {
		return respondError(c, err)
	}

	entries, total, err := h.auditService.SheetActivity(ctx, sheetID, query)
	if err != nil {
		log.Printf("Failed to get audit activity for sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"entries": entries,
			"pagination": fiber.Map{
				"page":     query.Page,
				"pageSize": query.PageSize,
				"count":    len(entries),
				"total":    total,
			},
		},
	})
}

func (h *AuditHandler) SheetReport(c fiber.Ctx) error {
	sheetID, ok := pathObjectID(c, "sheetId")
	if !ok {
		return invalidIDResponse(c, "sheetId")
	}

	from, _ := strconv.ParseInt(c.Query("from", "0"), 10, 64)
	to, _ := strconv.ParseInt(c.Query("to", "0"), 10, 64)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := h.accessService.ResolveAccess(ctx, middleware.ActorFromCtx(c), sheetID, models.PermissionViewAudit); err != nil {
		return respondError(c, err)
	}

	report, err := h.auditService.SheetReport(ctx, sheetID, from, to)
	if err != nil {
		log.Printf("Failed to build audit report for sheet %s: %v", sheetID.Hex(), err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"report": report,
		},
	})
}

func (h *AuditHandler) ActorActivity(c fiber.Ctx) error {
	actorID := c.Params("actorId")
	if actorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Actor ID is required",
		})
	}

	query := auditQueryFromRequest(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, total, err := h.auditService.ActorActivity(ctx, actorID, query)
	if err != nil {
		log.Printf("Failed to get audit activity for actor %s: %v", actorID, err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"entries": entries,
			"pagination": fiber.Map{
				"page":     query.Page,
				"pageSize": query.PageSize,
				"count":    len(entries),
				"total":    total,
			},
		},
	})
}

func auditQueryFromRequest(c fiber.Ctx) *models.AuditListQuery {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize", "50"))
	from, _ := strconv.ParseInt(c.Query("from", "0"), 10, 64)
	to, _ := strconv.ParseInt(c.Query("to", "0"), 10, 64)

	query := &models.AuditListQuery{
		Action:   models.AuditAction(c.Query("action")),
		From:     from,
		To:       to,
		Page:     page,
		PageSize: pageSize,
	}
	query.Clamp(config.ServiceConfig.Governance.MaxPageSize)
	return query
}
