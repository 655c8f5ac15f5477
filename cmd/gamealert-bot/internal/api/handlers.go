// Package api provides the admin HTTP API of the gamealert bot.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coregx/gamealert"
	"github.com/coregx/gamealert/model"
)

// JobRunner triggers a registered job outside its schedule.
type JobRunner interface {
	RunOnce(ctx context.Context, name string) error
}

// Pinger reports database health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	manager   *gamealert.SubscriptionManager
	giveaways gamealert.LocalGiveawayRepository
	jobs      JobRunner
	db        Pinger
	logger    gamealert.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	manager *gamealert.SubscriptionManager,
	giveaways gamealert.LocalGiveawayRepository,
	jobs JobRunner,
	db Pinger,
	logger gamealert.Logger,
) *Handler {
	return &Handler{
		manager:   manager,
		giveaways: giveaways,
		jobs:      jobs,
		db:        db,
		logger:    logger,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// DeleteResponse reports how many subscriptions a delete removed.
type DeleteResponse struct {
	Removed int `json:"removed"`
}

// Routes mounts the API on a chi router. metrics may be nil.
func (h *Handler) Routes(metrics http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(h.logging)

	r.Get("/healthz", h.HandleHealth)
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/servers/{serverID}", func(r chi.Router) {
			r.Get("/subscriptions", h.HandleListSubscriptions)
			r.Post("/subscriptions", h.HandleCreateSubscription)
			r.Post("/price-subscriptions", h.HandleCreatePriceSubscription)
			r.Delete("/subscriptions/{kind}", h.HandleDeleteSubscriptions)
			r.Get("/price-keys", h.HandlePriceKeys)
			r.Get("/quota", h.HandleQuota)
		})
		r.Post("/local-giveaways", h.HandleCreateLocalGiveaway)
		r.Post("/jobs/{name}/run", h.HandleRunJob)
	})
	return r
}

// HandleListSubscriptions handles GET /api/v1/servers/{serverID}/subscriptions
func (h *Handler) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.manager.ListSubscriptions(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.respondServiceError(w, err, "Failed to list subscriptions")
		return
	}
	h.respondSuccess(w, http.StatusOK, subs, "")
}

// HandleCreateSubscription handles POST /api/v1/servers/{serverID}/subscriptions
func (h *Handler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req gamealert.CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}
	req.ServerID = chi.URLParam(r, "serverID")

	sub, err := h.manager.CreateSubscription(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "Failed to create subscription")
		return
	}
	h.respondSuccess(w, http.StatusCreated, sub, "Subscription created successfully")
}

// HandleCreatePriceSubscription handles POST /api/v1/servers/{serverID}/price-subscriptions
func (h *Handler) HandleCreatePriceSubscription(w http.ResponseWriter, r *http.Request) {
	var req gamealert.CreatePriceSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}
	req.ServerID = chi.URLParam(r, "serverID")

	sub, err := h.manager.CreatePriceSubscription(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "Failed to create price subscription")
		return
	}
	h.respondSuccess(w, http.StatusCreated, sub, "Price subscription created successfully")
}

// HandleDeleteSubscriptions handles DELETE /api/v1/servers/{serverID}/subscriptions/{kind}
//
// Optional query parameters channelID, namePrefix and targetPrice narrow the delete
// to exact matches.
func (h *Handler) HandleDeleteSubscriptions(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), gamealert.ErrCodeValidation)
		return
	}

	q := r.URL.Query()
	filter := &gamealert.DeleteFilter{
		ChannelID:  q.Get("channelID"),
		NamePrefix: q.Get("namePrefix"),
	}
	if raw := q.Get("targetPrice"); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "targetPrice must be an integer", gamealert.ErrCodeValidation)
			return
		}
		filter.TargetPrice = &price
	}
	if filter.IsEmpty() {
		filter = nil
	}

	removed, err := h.manager.DeleteSubscriptions(r.Context(), chi.URLParam(r, "serverID"), kind, filter)
	if err != nil {
		h.respondServiceError(w, err, "Failed to delete subscriptions")
		return
	}
	h.respondSuccess(w, http.StatusOK, DeleteResponse{Removed: removed}, "")
}

// HandlePriceKeys handles GET /api/v1/servers/{serverID}/price-keys
func (h *Handler) HandlePriceKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.manager.PriceAlertKeys(r.Context(), chi.URLParam(r, "serverID"))
	if err != nil {
		h.respondServiceError(w, err, "Failed to list price keys")
		return
	}
	h.respondSuccess(w, http.StatusOK, keys, "")
}

// HandleQuota handles GET /api/v1/servers/{serverID}/quota?userID=
func (h *Handler) HandleQuota(w http.ResponseWriter, r *http.Request) {
	decision, err := h.manager.CheckQuota(r.Context(), chi.URLParam(r, "serverID"), r.URL.Query().Get("userID"))
	if err != nil && decision.Reason == "" {
		h.respondServiceError(w, err, "Failed to check quota")
		return
	}
	h.respondSuccess(w, http.StatusOK, decision, "")
}

// HandleCreateLocalGiveaway handles POST /api/v1/local-giveaways
func (h *Handler) HandleCreateLocalGiveaway(w http.ResponseWriter, r *http.Request) {
	var req gamealert.CreateLocalGiveawayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	g, err := gamealert.CreateLocalGiveaway(r.Context(), h.giveaways, req)
	if err != nil {
		h.respondServiceError(w, err, "Failed to create local giveaway")
		return
	}
	h.respondSuccess(w, http.StatusCreated, g, "Local giveaway created successfully")
}

// HandleRunJob handles POST /api/v1/jobs/{name}/run
func (h *Handler) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.RunOnce(r.Context(), name); err != nil {
		h.respondServiceError(w, err, "Job failed")
		return
	}
	h.respondSuccess(w, http.StatusOK, nil, "Job "+name+" completed")
}

// HandleHealth handles GET /healthz
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warnf("Health check: database unreachable: %v", err)
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	h.respondSuccess(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
	}, "")
}

// respondServiceError maps engine errors onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error, message string) {
	if decision, ok := gamealert.IsQuotaDenied(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(SuccessResponse{Success: false, Data: decision, Message: decision.Reason})
		return
	}

	var e *gamealert.Error
	if errors.As(err, &e) {
		switch e.Code {
		case gamealert.ErrCodeValidation:
			h.respondError(w, http.StatusBadRequest, strings.TrimSpace(err.Error()), e.Code)
			return
		case gamealert.ErrCodeNoData:
			h.respondError(w, http.StatusNotFound, "Not found", e.Code)
			return
		}
	}

	h.logger.Errorf("%s: %v", message, err)
	h.respondError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: status < http.StatusBadRequest,
		Data:    data,
		Message: message,
	})
}

// logging logs HTTP requests.
func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
