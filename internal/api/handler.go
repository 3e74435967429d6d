// Package api exposes scenario runs, payouts and previews over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"flexile-liquidation/internal/liquidation"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
	"flexile-liquidation/internal/verification"
	"flexile-liquidation/internal/waterfall"
)

var (
	errInvalidID         = errors.New("id must be a positive integer")
	errMissingExitAmount = errors.New("exit_amount_cents query param required")
	errNoRunHistory      = errors.New("run history is not configured")
	errNoVerifier        = errors.New("verification is not configured")
)

// Options configures a Handler.
type Options struct {
	Service      *liquidation.Service
	Payouts      storage.PayoutStore
	RunSummaries storage.RunSummaryStore // optional, enables /companies/:id/runs
	Verifier     verification.Verifier   // optional, enables /scenarios/:id/verify
	WhatIf       http.Handler            // optional, served at /ws/whatif

	Cache    *redis.Client // optional preview cache
	CacheTTL time.Duration

	BatchConcurrency int
	Metrics          *observability.Metrics
	Logger           logrus.FieldLogger
}

// Handler routes HTTP requests.
type Handler struct {
	router *gin.Engine
	opts   Options
	log    logrus.FieldLogger

	mu        sync.Mutex
	startedAt time.Time
	runs      int
	failures  int
	lastRun   time.Time
}

// NewHandler builds the router.
func NewHandler(opts Options) *Handler {
	if opts.Metrics == nil {
		opts.Metrics = observability.DefaultMetrics
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:    router,
		opts:      opts,
		log:       opts.Logger,
		startedAt: time.Now(),
	}
	router.Use(h.observe())
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	h.router.GET("/metrics", gin.WrapH(h.opts.Metrics.Handler()))
	h.router.GET("/status", h.status)

	scenarios := h.router.Group("/scenarios/:id")
	{
		scenarios.POST("/run", h.runScenario)
		scenarios.GET("/payouts", h.getPayouts)
		scenarios.GET("/verify", h.verifyScenario)
	}

	companies := h.router.Group("/companies/:id")
	{
		companies.POST("/run", h.runCompany)
		companies.GET("/runs", h.getRunStats)

		preview := companies.Group("/preview")
		if h.opts.Cache != nil {
			preview.Use(h.cacheMiddleware())
		}
		preview.GET("", h.preview)
	}

	if h.opts.WhatIf != nil {
		h.router.GET("/ws/whatif", gin.WrapH(h.opts.WhatIf))
	}
}

// observe records request metrics and logs server errors.
func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		h.opts.Metrics.RecordHTTPRequest(route, status)

		if status >= http.StatusInternalServerError {
			h.log.WithFields(logrus.Fields{
				"method":   c.Request.Method,
				"route":    route,
				"status":   status,
				"duration": time.Since(start),
				"errors":   c.Errors.String(),
			}).Error("request failed")
		}
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status       string    `json:"status"`
	Uptime       string    `json:"uptime"`
	StartedAt    time.Time `json:"started_at"`
	Runs         int       `json:"runs"`
	FailedRuns   int       `json:"failed_runs"`
	LastRun      time.Time `json:"last_run,omitempty"`
	RunSummaries bool      `json:"run_summaries"`
	PreviewCache bool      `json:"preview_cache"`
}

func (h *Handler) status(c *gin.Context) {
	h.mu.Lock()
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		StartedAt:    h.startedAt,
		Runs:         h.runs,
		FailedRuns:   h.failures,
		LastRun:      h.lastRun,
		RunSummaries: h.opts.RunSummaries != nil,
		PreviewCache: h.opts.Cache != nil,
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) recordRun(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.failures++
		return
	}
	h.runs++
	h.lastRun = time.Now()
}

func (h *Handler) runScenario(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	res, err := h.opts.Service.Run(c.Request.Context(), id)
	h.recordRun(err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunResponse(res))
}

func (h *Handler) runCompany(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	res, err := h.opts.Service.RunBatch(c.Request.Context(), id, h.opts.BatchConcurrency)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	for range res.Runs {
		h.recordRun(nil)
	}
	for _, f := range res.Failures {
		h.recordRun(f.Err)
	}
	c.JSON(http.StatusOK, newBatchResponse(id, res))
}

func (h *Handler) getPayouts(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	payouts, err := h.opts.Payouts.GetByScenarioID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scenario_id": id,
		"payouts":     newPayoutResponses(payouts),
	})
}

func (h *Handler) preview(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	raw := c.Query("exit_amount_cents")
	if raw == "" {
		writeError(c, http.StatusBadRequest, errMissingExitAmount)
		return
	}
	exitCents, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, fmt.Errorf("exit_amount_cents: %w", err))
		return
	}
	var exitDate time.Time
	if v := c.Query("exit_date"); v != "" {
		exitDate, err = time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(c, http.StatusBadRequest, fmt.Errorf("exit_date: %w", err))
			return
		}
	}

	d, err := h.opts.Service.Preview(c.Request.Context(), id, exitCents, exitDate)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, liquidation.NewDistributionView(d))
}

func (h *Handler) getRunStats(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if h.opts.RunSummaries == nil {
		writeError(c, http.StatusNotImplemented, errNoRunHistory)
		return
	}

	summaries, err := h.opts.RunSummaries.GetByCompanyID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRunStatsResponse(liquidation.AggregateRuns(id, summaries)))
}

func (h *Handler) verifyScenario(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if h.opts.Verifier == nil {
		writeError(c, http.StatusNotImplemented, errNoVerifier)
		return
	}

	report, err := h.opts.Verifier.VerifyScenario(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, waterfall.ErrInvalidInput), errors.Is(err, storage.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, verification.ErrScenarioNotFound):
		return http.StatusNotFound
	case errors.Is(err, liquidation.ErrScenarioFinalized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, StatusFor(err), err)
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
