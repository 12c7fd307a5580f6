// Package admin is the operator API: token-guarded, read-only access to
// the audit trail for dispute handling.
package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"assent/internal/audit"
	"assent/internal/platform/metrics"
	"assent/internal/platform/middleware"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Handler handles the operator audit endpoints.
type Handler struct {
	audits    audit.Store
	validator middleware.JWTValidator
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a new admin Handler.
func New(
	audits audit.Store,
	validator middleware.JWTValidator,
	logger *slog.Logger,
	m *metrics.Metrics) *Handler {
	return &Handler{
		audits:    audits,
		validator: validator,
		logger:    logger,
		metrics:   m,
	}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	adminRouter := chi.NewRouter()
	adminRouter.Use(middleware.Recovery(h.logger))
	adminRouter.Use(middleware.RequestID)
	adminRouter.Use(middleware.Logger(h.logger))
	adminRouter.Use(middleware.Timeout(15 * time.Second))
	adminRouter.Use(middleware.ContentTypeJSON)
	adminRouter.Use(middleware.LatencyMiddleware(h.metrics))
	adminRouter.Use(middleware.RequireAuth(h.validator, h.logger))
	adminRouter.Get("/audit", h.handleListByDevice)
	adminRouter.Get("/audit/recent", h.handleListRecent)

	r.Mount("/admin", adminRouter)
}

// handleListByDevice returns the audit trail of one device, newest first.
func (h *Handler) handleListByDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	raw := r.URL.Query().Get("device_id")
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "device_id query parameter is required"))
		return
	}
	deviceID, err := domain.ParseDeviceID(raw)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid device id",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid device_id"))
		return
	}

	events, err := h.audits.ListByDevice(ctx, deviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit lookup failed",
			"request_id", requestID,
			"device_id", deviceID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newListResponse(events))
}

// handleListRecent returns the newest events across all devices.
func (h *Handler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	events, err := h.audits.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit lookup failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list audit events"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newListResponse(events))
}
