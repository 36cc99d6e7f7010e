package status

import (
	"record-sync/core/logger"
	"record-sync/core/reconcile"
	"record-sync/feature/status/models"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for mapping status.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the mapping routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/mappings")
	group.Get("/", h.HandleListMappings)
	group.Get("/:name", h.HandleGetMapping)
	group.Post("/:name/sync", h.HandleSyncMapping)
	group.Delete("/:name/window", h.HandleResetWindow)
}

// HandleListMappings lists every registered mapping.
// @Summary List Mappings
// @Description List every mapping with its strategy and the end of its last completed window.
// @Tags mappings
// @Produce json
// @Success 200 {array} models.MappingSummary "Mappings"
// @Failure 500 {object} models.ErrorResponse "Internal Server Error"
// @Router /mappings [get]
func (h *Handler) HandleListMappings(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	list, err := h.service.List(c.Context())
	if err != nil {
		l.Error("Listing mappings failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(list)
}

// HandleGetMapping returns the detail of one mapping.
// @Summary Get Mapping
// @Description Get the field layout, associations, window and last API-triggered report of a mapping.
// @Tags mappings
// @Produce json
// @Param name path string true "Mapping name (e.g. 'contacts')"
// @Success 200 {object} models.MappingDetail "Mapping Detail"
// @Failure 404 {object} models.ErrorResponse "Unknown mapping"
// @Failure 500 {object} models.ErrorResponse "Internal Server Error"
// @Router /mappings/{name} [get]
func (h *Handler) HandleGetMapping(c *fiber.Ctx) error {
	name := c.Params("name")
	l := logger.WithMapping(logger.WithRayID(h.service.logger, c), name)

	detail, err := h.service.Get(c.Context(), name)
	if err != nil {
		l.Warn("Mapping lookup failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// HandleSyncMapping runs one reconciliation cycle for a mapping.
// @Summary Sync Mapping
// @Description Run one reconciliation cycle now. Joins a scheduled cycle already running for the mapping.
// @Tags mappings
// @Produce json
// @Param name path string true "Mapping name (e.g. 'contacts')"
// @Success 200 {object} reconcile.CycleReport "Cycle Report"
// @Failure 404 {object} models.ErrorResponse "Unknown mapping"
// @Failure 503 {object} reconcile.CycleReport "Cycle stopped on a transient error"
// @Router /mappings/{name}/sync [post]
func (h *Handler) HandleSyncMapping(c *fiber.Ctx) error {
	name := c.Params("name")
	l := logger.WithMapping(logger.WithRayID(h.service.logger, c), name)

	report, err := h.service.Sync(c.Context(), name)
	if err != nil {
		l.Error("Manual sync failed", zap.Error(err))
		if report != nil {
			return c.Status(statusFor(err)).JSON(report)
		}
		return respondError(c, err)
	}
	l.Info("Manual sync completed",
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("failures", len(report.Failures)))
	return c.JSON(report)
}

// HandleResetWindow clears the stored window of a mapping.
// @Summary Reset Window
// @Description Forget the stored window so the next cycle rescans every record.
// @Tags mappings
// @Param name path string true "Mapping name (e.g. 'contacts')"
// @Success 204 "Window reset"
// @Failure 404 {object} models.ErrorResponse "Unknown mapping"
// @Failure 500 {object} models.ErrorResponse "Internal Server Error"
// @Router /mappings/{name}/window [delete]
func (h *Handler) HandleResetWindow(c *fiber.Ctx) error {
	name := c.Params("name")
	l := logger.WithMapping(logger.WithRayID(h.service.logger, c), name)

	if err := h.service.ResetWindow(c.Context(), name); err != nil {
		l.Error("Window reset failed", zap.Error(err))
		return respondError(c, err)
	}
	l.Info("Window reset")
	return c.SendStatus(fiber.StatusNoContent)
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(models.ErrorResponse{Error: err.Error()})
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownMapping):
		return fiber.StatusNotFound
	case reconcile.IsConfiguration(err):
		return fiber.StatusBadRequest
	case reconcile.IsTransient(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
