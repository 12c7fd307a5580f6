// Package overlay is the public JSON surface the consent form talks to. It
// opens reconciliation flows, hands out session ids, and accepts preference
// submissions against them.
package overlay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	idstore "assent/internal/identity/store"
	"assent/internal/platform/config"
	"assent/internal/platform/metrics"
	"assent/internal/platform/middleware"
	"assent/internal/reconcile"
	"assent/internal/session"
	"assent/pkg/domain"
	dErrors "assent/pkg/domain-errors"
	"assent/pkg/platform/httputil"
	"assent/pkg/platform/sentinel"
	"assent/pkg/requestcontext"
)

// Handler handles the consent flow endpoints.
type Handler struct {
	flows       *session.Registry
	regions     reconcile.RegionResolver
	notices     reconcile.CatalogSource
	preferences reconcile.ConsentRecorder
	auditor     reconcile.Auditor
	sharedSlot  idstore.Slot
	identity    config.IdentityConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// New creates a new overlay Handler. auditor may be nil when audit is
// disabled; sharedSlot is nil for the cookie backend and the Redis slot
// otherwise.
func New(
	flows *session.Registry,
	regions reconcile.RegionResolver,
	notices reconcile.CatalogSource,
	preferences reconcile.ConsentRecorder,
	auditor reconcile.Auditor,
	sharedSlot idstore.Slot,
	identity config.IdentityConfig,
	logger *slog.Logger,
	m *metrics.Metrics) *Handler {
	return &Handler{
		flows:       flows,
		regions:     regions,
		notices:     notices,
		preferences: preferences,
		auditor:     auditor,
		sharedSlot:  sharedSlot,
		identity:    identity,
		logger:      logger,
		metrics:     m,
	}
}

// Register registers the overlay routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	overlayRouter := chi.NewRouter()
	overlayRouter.Use(middleware.Recovery(h.logger))
	overlayRouter.Use(middleware.RequestID)
	overlayRouter.Use(middleware.Logger(h.logger))
	overlayRouter.Use(middleware.Timeout(30 * time.Second))
	overlayRouter.Use(middleware.ContentTypeJSON)
	overlayRouter.Use(middleware.LatencyMiddleware(h.metrics))
	overlayRouter.Use(middleware.ClientMetadata)
	overlayRouter.Use(middleware.RequestTime)
	overlayRouter.Post("/flow", h.handleOpenFlow)
	overlayRouter.Post("/flow/{sessionID}/preference", h.handleSubmitPreference)

	r.Mount("/consent", overlayRouter)
}

// handleOpenFlow runs the reconciliation chain for the requesting device and
// registers the resulting session. A halted chain still answers 200 with the
// state it reached; only failures of the service's own plumbing are surfaced
// as errors.
func (h *Handler) handleOpenFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	ident := h.identityForRequest(r)
	machine, err := reconcile.New(ident.store, h.regions, h.notices, h.preferences, h.logger, h.metrics,
		reconcile.WithAuditor(h.auditor),
		reconcile.WithGPCHint(requestcontext.GPCSignal(ctx)),
	)
	if err != nil {
		h.logger.ErrorContext(ctx, "flow assembly failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to open flow"))
		return
	}

	// The machine logs and audits its own halts, and a parked flow is still
	// a session the form can show.
	snap, _ := machine.Start(ctx)

	flowID, err := h.flows.Put(&session.Flow{Machine: machine, Slot: ident.slot})
	if err != nil {
		machine.Close()
		h.logger.ErrorContext(ctx, "session registration failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to open flow"))
		return
	}

	// Cookie headers must precede the body.
	ident.flush(w)
	httputil.WriteJSON(w, http.StatusOK, newFlowResponse(flowID, snap))
}

// handleSubmitPreference reconciles a visitor decision against an open
// session.
func (h *Handler) handleSubmitPreference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	flowID, err := domain.ParseFlowID(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid session id",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid session id"))
		return
	}

	var req submitPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid preference request",
			"request_id", requestID,
			"session_id", flowID.String(),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Consent == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "consent field is required"))
		return
	}

	flow, err := h.flows.Get(flowID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "session expired"))
		case errors.Is(err, sentinel.ErrNotFound):
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown session"))
		default:
			httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "session registry unavailable"))
		}
		return
	}

	snap, err := flow.Machine.Submit(ctx, *req.Consent)

	// The device record may have been rewritten even when the platform write
	// failed, so the cookie refresh is owed either way.
	h.flushIdentity(w, flow.Slot)

	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidState) {
			h.logger.WarnContext(ctx, "preference refused",
				"request_id", requestID,
				"session_id", flowID.String(),
				"error", err.Error(),
			)
		} else {
			h.logger.ErrorContext(ctx, "preference submission failed",
				"request_id", requestID,
				"session_id", flowID.String(),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, submitPreferenceResponse{
		SessionID: flowID.String(),
		State:     snap.State.String(),
		Consent:   *req.Consent,
		Method:    domain.MethodFor(*req.Consent, snap.GPCApplied).String(),
	})
}
