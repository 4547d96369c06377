package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the handler onto a gin engine.
func NewRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger))

	r.GET("/healthz", h.Health)
	r.GET("/schedule/today", h.GetToday)
	r.POST("/schedule/rebuild", h.PostRebuild)
	r.POST("/triggers", h.PostTrigger)
	return r
}
