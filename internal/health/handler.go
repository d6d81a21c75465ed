package health

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/voxtype/voxtype/internal/history"
	"github.com/voxtype/voxtype/internal/metrics"
	"github.com/voxtype/voxtype/internal/shared"
	"github.com/voxtype/voxtype/internal/stream"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	MemorySysMB   uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Runtime       RuntimeStats               `json:"runtime"`
	Components    map[string]ComponentStatus `json:"components"`
}

type DiagnosticsResponse struct {
	SessionID       string `json:"session_id,omitempty"`
	ConnectionState string `json:"connection_state"`
	ConnectAttempts uint64 `json:"connect_attempts"`
	RetryAttempt    int    `json:"retry_attempt"`
	MessagesSent    uint64 `json:"messages_sent"`
	Decoded         uint64 `json:"messages_decoded"`
	ParseErrors     uint64 `json:"parse_errors"`
	LastLatencyMs   int64  `json:"last_latency_ms"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

// Handler is the local observability and history surface. It binds to
// loopback only; nothing here is meant for the open network.
type Handler struct {
	coordinator *stream.Coordinator
	store       *history.Store
	recorder    *history.Recorder
	db          *gorm.DB
	metrics     *metrics.Metrics
	version     string
	startTime   time.Time
}

func NewHandler(coordinator *stream.Coordinator, store *history.Store, recorder *history.Recorder, db *gorm.DB, m *metrics.Metrics, version string) *Handler {
	return &Handler{
		coordinator: coordinator,
		store:       store,
		recorder:    recorder,
		db:          db,
		metrics:     m,
		version:     version,
		startTime:   time.Now(),
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/diagnostics", h.Diagnostics)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{})))
	}
	e.POST("/model", h.SwitchModel)
	e.GET("/sessions", h.ListSessions)
	e.GET("/sessions/:id", h.GetSession)
	e.GET("/sessions/:id/transcript", h.GetTranscript)
	e.DELETE("/sessions/:id", h.DeleteSession)
}

func (h *Handler) Health(c echo.Context) error {
	components := map[string]ComponentStatus{
		"database": h.checkDatabase(c.Request().Context()),
	}

	status := StatusHealthy
	for _, cs := range components {
		if cs.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := HealthResponse{
		Status:        status,
		Timestamp:     time.Now(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Runtime: RuntimeStats{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: mem.Alloc / 1024 / 1024,
			MemorySysMB:   mem.Sys / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
		Components: components,
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

func (h *Handler) Diagnostics(c echo.Context) error {
	diag := h.coordinator.Diagnostics()
	return c.JSON(http.StatusOK, DiagnosticsResponse{
		SessionID:       diag.SessionID,
		ConnectionState: diag.State.String(),
		ConnectAttempts: diag.ConnectAttempts,
		RetryAttempt:    diag.RetryAttempt,
		MessagesSent:    diag.MessagesSent,
		Decoded:         diag.Decoded,
		ParseErrors:     diag.ParseErrors,
		LastLatencyMs:   diag.LastLatency.Milliseconds(),
		UptimeSeconds:   int64(diag.Uptime.Seconds()),
	})
}

// SwitchModel changes the recognition model of the running session and
// notes the new model on the history record.
func (h *Handler) SwitchModel(c echo.Context) error {
	var req struct {
		Model string `json:"model"`
	}
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "malformed request body")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return shared.BadRequest("invalid_model", "model must not be empty")
	}

	if err := h.coordinator.SwitchModel(model); err != nil {
		if errors.Is(err, stream.ErrNotConfigured) {
			return shared.BadRequest("not_configured", "no session configured")
		}
		return shared.InternalError("switch_failed", err.Error())
	}
	if err := h.recorder.NoteModel(c.Request().Context(), model); err != nil {
		return shared.InternalError("record_failed", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"model": model})
}

func (h *Handler) ListSessions(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return shared.BadRequest("invalid_limit", "limit must be a non-negative integer")
		}
		limit = n
	}

	sessions, err := h.store.ListSessions(c.Request().Context(), limit)
	if err != nil {
		return shared.InternalError("list_failed", err.Error())
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *Handler) GetSession(c echo.Context) error {
	session, err := h.store.GetSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return shared.InternalError("get_failed", err.Error())
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) GetTranscript(c echo.Context) error {
	text, err := h.store.Transcript(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return shared.InternalError("transcript_failed", err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"transcript": text})
}

func (h *Handler) DeleteSession(c echo.Context) error {
	err := h.store.DeleteSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		return shared.InternalError("delete_failed", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()
	sqlDB, err := h.db.DB()
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(pingCtx)
	}

	cs := ComponentStatus{LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		cs.Status = StatusUnhealthy
		cs.Error = err.Error()
		return cs
	}
	cs.Status = StatusHealthy
	return cs
}
