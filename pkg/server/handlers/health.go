package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const serviceName = "mediagraph"

// HealthHandler handles health check requests
type HealthHandler struct {
	engine  Engine
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(e Engine) *HealthHandler {
	return &HealthHandler{
		engine:  e,
		started: time.Now(),
	}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /ready. The service is ready when the graph
// store answers a connectivity check.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	store := h.checkStore(ctx)
	response := gin.H{
		"status":    "ready",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"graph_store": store,
			"system": gin.H{
				"status": "healthy",
				"uptime": time.Since(h.started).Round(time.Second).String(),
			},
		},
	}

	if store["status"] != "healthy" {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// DetailedHealthCheck handles GET /health/detailed
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	startTime := time.Now()
	response := gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{
			"go_version": GoVersion,
		},
	}

	checks := gin.H{}
	store := h.checkStore(ctx)
	checks["graph_store"] = store

	if store["status"] == "healthy" {
		statsStart := time.Now()
		stats, err := h.engine.Stats(ctx)
		statsStatus := gin.H{
			"status":      "healthy",
			"duration_ms": time.Since(statsStart).Milliseconds(),
			"operation":   "Stats",
		}
		if err != nil {
			statsStatus["status"] = "unhealthy"
			statsStatus["error"] = err.Error()
		} else {
			statsStatus["node_count"] = stats.NodeCount
			statsStatus["edge_count"] = stats.EdgeCount
		}
		checks["graph_stats"] = statsStatus
	}

	m := getSystemMetrics()
	checks["system"] = gin.H{
		"status":       "healthy",
		"memory_usage": m.MemoryUsage,
		"goroutines":   m.Goroutines,
		"gc_cycles":    m.GCCycles,
		"heap_objects": m.HeapObjects,
		"stack_usage":  m.StackUsage,
	}
	response["checks"] = checks
	response["metrics"] = gin.H{"response_time_ms": time.Since(startTime).Milliseconds()}

	if store["status"] != "healthy" {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) checkStore(ctx context.Context) gin.H {
	if h.engine == nil {
		return gin.H{"status": "unhealthy", "error": "client not initialized"}
	}
	start := time.Now()
	err := h.engine.Ping(ctx)
	status := gin.H{
		"status":   "healthy",
		"provider": string(h.engine.Provider()),
		"duration": time.Since(start).String(),
	}
	if err != nil {
		status["status"] = "unhealthy"
		status["error"] = err.Error()
	}
	return status
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

func getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
