package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dileep-u-k/toolforge/internal/api"
	"github.com/dileep-u-k/toolforge/internal/catalog"
	"github.com/dileep-u-k/toolforge/internal/engine"
	"github.com/dileep-u-k/toolforge/internal/history"
	"github.com/dileep-u-k/toolforge/internal/stats"
)

// EngineHandler exposes the tool catalog and the execution engine over
// HTTP. The engine itself stays free of HTTP concerns; this layer does
// request binding, error-to-status mapping and collaborator calls
// (history, stats) around each execution.
type EngineHandler struct {
	store    catalog.Store
	engine   *engine.Engine
	history  *history.Store
	recorder *stats.Recorder
}

func NewEngineHandler(store catalog.Store, eng *engine.Engine, hist *history.Store, recorder *stats.Recorder) *EngineHandler {
	return &EngineHandler{
		store:    store,
		engine:   eng,
		history:  hist,
		recorder: recorder,
	}
}

// HandleListTools returns every catalog entry in normalized form.
func (h *EngineHandler) HandleListTools(c *gin.Context) {
	raw := h.store.List()
	tools := make([]catalog.ToolConfig, 0, len(raw))
	for _, cfg := range raw {
		tools = append(tools, catalog.Normalize(cfg))
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

// HandleGetTool returns one normalized catalog entry.
func (h *EngineHandler) HandleGetTool(c *gin.Context) {
	slug := c.Param("slug")
	cfg, err := h.store.Get(slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, catalog.Normalize(cfg))
}

// HandleExecute runs the execution engine for one tool.
func (h *EngineHandler) HandleExecute(c *gin.Context) {
	startTime := time.Now()
	slug := c.Param("slug")

	var req api.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	log.Printf("--- Execute (Tool: %s, Mode: %s, Input: '%.40s...') ---", slug, req.Mode, req.Input)

	result, err := h.engine.Execute(c.Request.Context(), slug, req)
	if err != nil {
		h.respondExecuteError(c, slug, err)
		return
	}

	latency := time.Since(startTime)
	h.recorder.RecordExecution(c.Request.Context(), slug, latency,
		result.Step == engine.StepClarify, result.Repaired)
	log.Printf("Execute done (Tool: %s, Step: %s, Upstream calls: %d, Repaired: %v, %dms)",
		slug, result.Step, result.UpstreamCalls, result.Repaired, latency.Milliseconds())

	c.JSON(http.StatusOK, api.ExecuteResponse{
		Step:         result.Step,
		Questions:    result.Questions,
		Output:       result.Output,
		OutputFormat: result.OutputFormat,
		LatencyMS:    latency.Milliseconds(),
	})
}

// respondExecuteError maps the engine's error taxonomy onto HTTP statuses.
func (h *EngineHandler) respondExecuteError(c *gin.Context, slug string, err error) {
	ctx := c.Request.Context()

	var formatErr *engine.FormatError
	var upstreamErr *engine.UpstreamError

	switch {
	case errors.Is(err, catalog.ErrToolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &formatErr):
		h.recorder.RecordFailure(ctx, slug, "format")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "generated output failed structured validation",
			"excerpt": formatErr.Excerpt,
		})
	case errors.As(err, &upstreamErr):
		h.recorder.RecordFailure(ctx, slug, "upstream")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.recorder.RecordFailure(ctx, slug, "internal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// HandleSave persists an execution result for a tool. Saving is only
// available on tools that carry the saved-history capability.
func (h *EngineHandler) HandleSave(c *gin.Context) {
	slug := c.Param("slug")
	cfg, err := h.store.Get(slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	normalized := catalog.Normalize(cfg)
	if !normalized.HasCapability(catalog.CapabilitySavedHistory) {
		c.JSON(http.StatusForbidden, gin.H{"error": "tool does not support saved history"})
		return
	}

	var req api.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	id, err := h.history.Save(c.Request.Context(), history.SavedItem{
		ToolSlug:     slug,
		Input:        req.Input,
		Output:       req.Output,
		OutputFormat: req.OutputFormat,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.SaveResponse{ID: id})
}

// HandleListSaved lists a tool's saved items.
func (h *EngineHandler) HandleListSaved(c *gin.Context) {
	slug := c.Param("slug")
	items, err := h.history.List(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// HandleRate records a rating for a saved item.
func (h *EngineHandler) HandleRate(c *gin.Context) {
	slug := c.Param("slug")
	id := c.Param("id")

	var req api.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := h.history.Rate(c.Request.Context(), slug, id, req.Rating); err != nil {
		if errors.Is(err, history.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleStats returns a tool's operational counters.
func (h *EngineHandler) HandleStats(c *gin.Context) {
	slug := c.Param("slug")
	if _, err := h.store.Get(slug); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	fields, err := h.recorder.Snapshot(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": fields})
}
