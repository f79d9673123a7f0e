package notification

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"notifyhub/internal/common"

	"github.com/gin-gonic/gin"
)

var errNoEnqueuer = errors.New("async dispatch is not configured")

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	dispatcher *Dispatcher
	enqueuer   Enqueuer
}

// NewHandler creates a new notification handler. enqueuer may be nil, in
// which case async requests get 503.
func NewHandler(dispatcher *Dispatcher, enqueuer Enqueuer) *Handler {
	return &Handler{dispatcher: dispatcher, enqueuer: enqueuer}
}

// Notify handles POST /api/v1/notify
func (h *Handler) Notify(c *gin.Context) {
	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !IsValidType(req.Type) {
		common.HandleError(c, common.NewValidationError(fmt.Sprintf("unsupported notification type: %s", req.Type)))
		return
	}

	opts := Options{RelatedUserID: req.RelatedUserID, RelatedRouteID: req.RelatedRouteID}

	if req.Async {
		h.enqueue(c, &DispatchTaskPayload{
			UserIDs: []string{req.UserID},
			Type:    req.Type,
			Payload: req.Payload,
			Options: opts,
		})
		return
	}

	result, err := h.dispatcher.Notify(c.Request.Context(), req.UserID, req.Type, req.Payload, opts)
	if err != nil {
		h.dispatchFailed(c, err, req.Type)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// NotifyMany handles POST /api/v1/notify/batch
func (h *Handler) NotifyMany(c *gin.Context) {
	var req NotifyManyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !IsValidType(req.Type) {
		common.HandleError(c, common.NewValidationError(fmt.Sprintf("unsupported notification type: %s", req.Type)))
		return
	}

	opts := Options{RelatedUserID: req.RelatedUserID, RelatedRouteID: req.RelatedRouteID}

	if req.Async {
		h.enqueue(c, &DispatchTaskPayload{
			UserIDs: req.UserIDs,
			Type:    req.Type,
			Payload: req.Payload,
			Options: opts,
		})
		return
	}

	results, err := h.dispatcher.NotifyMany(c.Request.Context(), req.UserIDs, req.Type, req.Payload, opts)
	if err != nil {
		h.dispatchFailed(c, err, req.Type)
		return
	}

	common.Success(c, http.StatusOK, gin.H{"results": results})
}

// SendTest handles POST /api/v1/notify/test
func (h *Handler) SendTest(c *gin.Context) {
	var req SendTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.dispatcher.SendTest(c.Request.Context(), req.UserID, req.Channel)
	if err != nil {
		h.dispatchFailed(c, err, "test")
		return
	}

	common.Success(c, http.StatusOK, result)
}

// Channels handles GET /api/v1/channels
func (h *Handler) Channels(c *gin.Context) {
	common.Success(c, http.StatusOK, h.dispatcher.Readiness())
}

// VerifyToken handles POST /api/v1/fcm/verify
func (h *Handler) VerifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	valid := h.dispatcher.VerifyFCMToken(c.Request.Context(), req.Token)
	common.Success(c, http.StatusOK, gin.H{"valid": valid})
}

func (h *Handler) enqueue(c *gin.Context, p *DispatchTaskPayload) {
	if h.enqueuer == nil {
		common.HandleError(c, common.NewUnavailableError("queue", errNoEnqueuer))
		return
	}

	if err := h.enqueuer.EnqueueDispatch(c.Request.Context(), p); err != nil {
		slog.Error("enqueue dispatch failed",
			"error", err,
			"type", p.Type,
			"recipients", len(p.UserIDs),
		)
		common.HandleError(c, common.NewUnavailableError("queue", err))
		return
	}

	common.Success(c, http.StatusAccepted, QueuedResponse{Status: "queued", Recipients: len(p.UserIDs)})
}

func (h *Handler) dispatchFailed(c *gin.Context, err error, t NotificationType) {
	if errors.Is(err, ErrNotInitialized) {
		slog.Error("dispatcher not initialized", "type", t)
		common.HandleError(c, common.NewUnavailableError("dispatcher", err))
		return
	}
	slog.Error("dispatch failed", "type", t, "error", err)
	common.HandleError(c, err)
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notify", h.Notify)
	rg.POST("/notify/batch", h.NotifyMany)
	rg.POST("/notify/test", h.SendTest)
	rg.GET("/channels", h.Channels)
	rg.POST("/fcm/verify", h.VerifyToken)
}
