package handler

import (
	"context"
	"net/http"
	"strings"

	"livability_backend/internal/contextreport/transport"
	"livability_backend/internal/scheduler"
	"livability_backend/platform/httpkit"
	"livability_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgLocationRequired = "either 'q' or both 'lat' and 'lon' are required"
	msgWarmUnavailable  = "cache warm-up is not configured"
)

// ReportBuilder builds a context report for a resolved location.
type ReportBuilder interface {
	Build(ctx context.Context, loc transport.ResolvedLocation, radiusMeters int) (*transport.ContextReportDto, error)
}

// Locator resolves free text or coordinates into a location.
type Locator interface {
	Resolve(ctx context.Context, query string) (*transport.ResolvedLocation, error)
	ResolveCoordinates(ctx context.Context, lat, lon float64) *transport.ResolvedLocation
}

// Handler handles HTTP requests for context reports.
type Handler struct {
	builder ReportBuilder
	locator Locator
	warmer  scheduler.WarmEnqueuer
	queue   string
	val     *validator.Validator
}

// New creates a new context report handler. warmer may be nil, in which case
// the warm-up endpoint answers 503.
func New(builder ReportBuilder, locator Locator, warmer scheduler.WarmEnqueuer, queue string, val *validator.Validator) *Handler {
	return &Handler{builder: builder, locator: locator, warmer: warmer, queue: queue, val: val}
}

// GetReport builds the report for a query or coordinate.
// GET /api/v1/context/report?q=...|lat=...&lon=...&radius=...
func (h *Handler) GetReport(c *gin.Context) {
	var req transport.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	ctx := c.Request.Context()
	var loc *transport.ResolvedLocation
	switch {
	case req.Latitude != nil && req.Longitude != nil:
		loc = h.locator.ResolveCoordinates(ctx, *req.Latitude, *req.Longitude)
		if q := strings.TrimSpace(req.Query); q != "" {
			loc.Query = q
		}
	case strings.TrimSpace(req.Query) != "":
		resolved, err := h.locator.Resolve(ctx, req.Query)
		if httpkit.HandleError(c, err) {
			return
		}
		loc = resolved
	default:
		httpkit.Error(c, http.StatusBadRequest, msgLocationRequired, nil)
		return
	}

	report, err := h.builder.Build(ctx, *loc, req.RadiusMeters)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

// Warm enqueues a cache warm-up for a location.
// POST /api/v1/context/warm
func (h *Handler) Warm(c *gin.Context) {
	if h.warmer == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, msgWarmUnavailable, nil)
		return
	}

	var req transport.WarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" && (req.Latitude == nil || req.Longitude == nil) {
		httpkit.Error(c, http.StatusBadRequest, msgLocationRequired, nil)
		return
	}

	taskID, err := h.warmer.EnqueueWarm(c.Request.Context(), scheduler.WarmContextPayload{
		Query:        strings.TrimSpace(req.Query),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
	})
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "failed to enqueue warm-up", nil)
		return
	}

	httpkit.Accepted(c, transport.WarmResponse{TaskID: taskID, Queue: h.queue})
}

// RegisterRoutes mounts the context routes on group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/report", h.GetReport)
	group.POST("/warm", h.Warm)
}
