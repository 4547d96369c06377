package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arlebowski/Tiny-Time-sub002/internal/models"
	"github.com/arlebowski/Tiny-Time-sub002/internal/trigger"
)

var validate = validator.New()

// ScheduleReader loads the persisted schedule.
type ScheduleReader interface {
	Today(ctx context.Context, now time.Time) (*models.PersistedSchedule, error)
}

// Rebuilder runs an immediate rebuild.
type Rebuilder interface {
	RebuildNow(ctx context.Context, reason string) (*models.PersistedSchedule, error)
}

// TriggerFirer injects host signals.
type TriggerFirer interface {
	Fire(kind trigger.Kind, reason string) string
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// TriggerRequest is the body of POST /triggers.
type TriggerRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=input_logged focus visible"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// Handler serves the schedule HTTP surface.
type Handler struct {
	Schedules ScheduleReader
	Rebuilder Rebuilder
	Triggers  TriggerFirer
	Checks    map[string]HealthCheck
	Logger    *zap.Logger
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) handleError(c *gin.Context, err error, status int, msg string) {
	h.Logger.Warn(msg,
		zap.String("request_id", c.GetString("request_id")),
		zap.Int("status", status),
		zap.Error(err),
	)
	c.JSON(status, NewAppError(status, msg+": "+err.Error()))
}

// Health checks every registered dependency.
func (h *Handler) Health(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]any, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(c.Request.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, Success(gin.H{"status": state}, map[string]any{"checks": checks}))
}

// GetToday returns today's persisted schedule; an absent one is an empty list.
func (h *Handler) GetToday(c *gin.Context) {
	now := h.now()
	sched, err := h.Schedules.Today(c.Request.Context(), now)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Failed to read schedule")
		return
	}
	persisted := sched != nil
	if !persisted {
		sched = &models.PersistedSchedule{DateKey: models.DateKey(now), Items: []models.ScheduleEvent{}}
	}
	c.JSON(http.StatusOK, Success(sched, map[string]any{"persisted": persisted}))
}

// PostRebuild rebuilds immediately. A skipped rebuild answers 202.
func (h *Handler) PostRebuild(c *gin.Context) {
	sched, err := h.Rebuilder.RebuildNow(c.Request.Context(), "http")
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Failed to rebuild schedule")
		return
	}
	if sched == nil {
		c.JSON(http.StatusAccepted, Success(nil, map[string]any{"skipped": true}))
		return
	}
	c.JSON(http.StatusOK, Success(sched, map[string]any{"skipped": false}))
}

// PostTrigger fires a host signal into the controller.
func (h *Handler) PostTrigger(c *gin.Context) {
	var body TriggerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleError(c, err, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := validate.Struct(&body); err != nil {
		h.handleError(c, err, http.StatusBadRequest, "Validation failed")
		return
	}

	kind, err := trigger.ParseKind(body.Kind)
	if err != nil {
		h.handleError(c, err, http.StatusBadRequest, "Validation failed")
		return
	}
	reason := body.Reason
	if reason == "" {
		reason = "http:" + body.Kind
	}
	id := h.Triggers.Fire(kind, reason)
	c.JSON(http.StatusAccepted, Success(gin.H{"id": id, "kind": kind}, nil))
}
