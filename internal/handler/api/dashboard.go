package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	models "SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	xlogger "SignalDesk/pkg/logger"
)

// Dashboards hands out running orchestrators.
type Dashboards interface {
	Get(ctx context.Context, pair, token string) (*usecase.Orchestrator, error)
	CheckHealth(ctx context.Context) bool
}

// RefreshLimiter throttles manual refreshes per key.
type RefreshLimiter interface {
	Allow(key string) bool
}

// DashboardHandler serves dashboard snapshots, manual refreshes and the live stream.
type DashboardHandler struct {
	logger        *xlogger.Logger
	hub           Dashboards
	limiter       RefreshLimiter
	waitTimeout   time.Duration
	healthTimeout time.Duration
	stream        streamConfig
}

// Option configures DashboardHandler.
type Option func(*DashboardHandler)

func NewDashboardHandler(logger *xlogger.Logger, hub Dashboards, limiter RefreshLimiter, opts ...Option) *DashboardHandler {
	h := &DashboardHandler{
		logger:        logger,
		hub:           hub,
		limiter:       limiter,
		waitTimeout:   10 * time.Second,
		healthTimeout: 5 * time.Second,
		stream:        defaultStreamConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/dashboard/:pair", h.Dashboard)
	g.POST("/dashboard/:pair/refresh", h.Refresh)
	g.GET("/health", h.Health)
	e.GET("/ws/dashboard/:pair", h.Stream)
}

// Dashboard returns the current snapshot. With wait=true it blocks until the first cycle
// settles or the wait timeout passes.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	req := &models.DashboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	o, err := h.hub.Get(ctx, req.Pair, bearerToken(c))
	if err != nil {
		h.logger.Error("dashboard unavailable", xlogger.String("pair", req.Pair), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("dashboard is unavailable").WithError(err))
	}

	state := o.Snapshot()
	if req.Wait {
		wctx, cancel := context.WithTimeout(ctx, h.waitTimeout)
		defer cancel()
		state, _ = o.WaitReady(wctx)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, state)
}

// Refresh runs a notifying cycle now and returns its result.
func (h *DashboardHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	token := bearerToken(c)
	if !h.limiter.Allow(c.RealIP() + "|" + usecase.Scope(token)) {
		h.logger.Warn("refresh rate limited", xlogger.String("remote", c.RealIP()), xlogger.String("pair", req.Pair))
		return xhttp.AppErrorResponse(c, xhttp.RateLimitedError("too many refresh requests"))
	}

	ctx := c.Request().Context()
	o, err := h.hub.Get(ctx, req.Pair, token)
	if err != nil {
		h.logger.Error("dashboard unavailable", xlogger.String("pair", req.Pair), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("dashboard is unavailable").WithError(err))
	}

	state, err := o.Refresh(ctx)
	switch {
	case errors.Is(err, usecase.ErrRestrictedPair):
		return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError(usecase.ErrTextAuthForPair).
			WithParam("pair", req.Pair).
			WithError(err))
	case err != nil:
		h.logger.Error("refresh failed", xlogger.String("pair", req.Pair), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("dashboard is unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, state)
}

// Health reports this service as up and whether the upstream health endpoint answers.
func (h *DashboardHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.healthTimeout)
	defer cancel()
	return xhttp.SuccessResponse(c, models.HealthResponse{
		Service:  "ok",
		Upstream: h.hub.CheckHealth(ctx),
	})
}

func bearerToken(c echo.Context) string {
	v := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

// WithWaitTimeout bounds how long wait=true blocks.
func WithWaitTimeout(d time.Duration) Option {
	return func(h *DashboardHandler) {
		h.waitTimeout = d
	}
}

// WithPingInterval sets the stream keepalive period.
func WithPingInterval(d time.Duration) Option {
	return func(h *DashboardHandler) {
		h.stream.pingEvery = d
	}
}
