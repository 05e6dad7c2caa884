// Package api exposes the HTTP surface: query dispatch, scan queueing,
// tool listings and the websocket event stream. Route wiring follows
// the serve command; this package provides the middleware, the
// handlers and the hub.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/nlp"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/validation"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// Handlers binds the v1 endpoints to the bus, store, registry and the
// query router.
type Handlers struct {
	bus      core.CommandBus
	store    core.ResultStore
	registry core.ToolRegistry
	router   *nlp.Router
	hub      *Hub
	log      *logger.Logger
}

func NewHandlers(
	bus core.CommandBus,
	store core.ResultStore,
	registry core.ToolRegistry,
	router *nlp.Router,
	hub *Hub,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		bus:      bus,
		store:    store,
		registry: registry,
		router:   router,
		hub:      hub,
		log:      log.WithComponent("api"),
	}
}

// Register mounts the endpoints on the v1 group.
func (h *Handlers) Register(v1 *gin.RouterGroup) {
	v1.POST("/query", h.handleQuery)
	v1.POST("/scans", h.handleCreateScan)
	v1.GET("/scans", h.handleListScans)
	v1.GET("/scans/:id", h.handleGetScan)
	v1.GET("/tools", h.handleListTools)
	v1.GET("/events", h.hub.ServeWS)
}

// HealthHandler reports liveness plus bus and worker pool state. It is
// mounted outside the authenticated group so probes can reach it.
func HealthHandler(bus core.CommandBus, pool core.WorkerPool, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthy := true
		checks := make(map[string]interface{})

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if stats, err := bus.Stats(ctx); err != nil {
			healthy = false
			checks["bus"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			checks["bus"] = map[string]interface{}{
				"status":     "healthy",
				"pending":    stats.Pending,
				"processing": stats.Processing,
				"failed":     stats.Failed,
			}
		}

		if pool != nil {
			workers := pool.Status()
			active := 0
			for _, w := range workers {
				if w.Status != "stopped" {
					active++
				}
			}
			checks["workers"] = map[string]interface{}{
				"count":  len(workers),
				"active": active,
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"healthy":   healthy,
			"checks":    checks,
			"timestamp": time.Now().Unix(),
			"version":   version,
		})
	}
}

type queryRequest struct {
	Query       string `json:"query" binding:"required"`
	AutoConfirm bool   `json:"auto_confirm"`
}

func (h *Handlers) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.router.Execute(c.Request.Context(), req.Query, req.AutoConfirm)
	switch {
	case errors.Is(err, core.ErrConfirmationRequired):
		c.JSON(http.StatusAccepted, gin.H{
			"status":  "CONFIRMATION_REQUIRED",
			"parsed":  res.Parsed,
			"message": "re-submit with auto_confirm=true to run this command",
		})
	case errors.Is(err, core.ErrToolNotFound), errors.Is(err, core.ErrToolUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "parsed": res.Parsed})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "parsed": res.Parsed})
	default:
		c.JSON(http.StatusOK, res)
	}
}

type scanRequest struct {
	Tool      string            `json:"tool" binding:"required"`
	Operation string            `json:"operation" binding:"required"`
	Target    string            `json:"target"`
	Options   map[string]string `json:"options"`
	Priority  int               `json:"priority"`
}

func (h *Handlers) handleCreateScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.registry.Get(req.Tool); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// Target is optional; some operations are targetless.
	var warnings []string
	if req.Target != "" {
		target, err := validation.ValidateTarget(req.Target)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Target = target.Normalized
		warnings = target.Warnings
	}

	job := &types.Job{
		Type:      "scan",
		Tool:      req.Tool,
		Operation: req.Operation,
		Target:    req.Target,
		Options:   req.Options,
		Priority:  req.Priority,
	}
	if err := h.bus.Push(c.Request.Context(), job); err != nil {
		h.log.Errorw("Failed to enqueue job",
			"tool", req.Tool,
			"target", req.Target,
			"error", err.Error(),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue job"})
		return
	}

	h.hub.Publish(types.Event{
		Type:      "queued",
		JobID:     job.ID,
		Tool:      job.Tool,
		Target:    job.Target,
		Timestamp: time.Now(),
	})

	resp := gin.H{
		"job_id": job.ID,
		"status": types.JobStatusPending,
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handlers) handleGetScan(c *gin.Context) {
	jobID := c.Param("id")
	ctx := c.Request.Context()

	resp := gin.H{}

	if job, err := h.bus.GetStatus(ctx, jobID); err == nil {
		resp["job"] = job
	}
	if scan, err := h.store.GetScan(ctx, jobID); err == nil {
		resp["scan"] = scan
		if findings, err := h.store.GetFindings(ctx, jobID); err == nil && len(findings) > 0 {
			resp["findings"] = findings
		}
	}
	if result, err := h.bus.GetResult(ctx, jobID); err == nil {
		resp["result"] = result
	}

	if len(resp) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) handleListScans(c *gin.Context) {
	filter := core.ScanFilter{
		Tool:   c.Query("tool"),
		Target: c.Query("target"),
		Status: types.ScanStatus(c.Query("status")),
		Limit:  50,
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	scans, err := h.store.ListScans(c.Request.Context(), filter)
	if err != nil {
		h.log.Errorw("Failed to list scans", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans": scans,
		"count": len(scans),
	})
}

func (h *Handlers) handleListTools(c *gin.Context) {
	tools := h.registry.List()

	statuses := make([]*types.ToolStatus, 0, len(tools))
	for _, tool := range tools {
		statuses = append(statuses, tool.Status())
	}

	c.JSON(http.StatusOK, gin.H{
		"tools": statuses,
		"total": len(statuses),
	})
}
