// Package whatif serves interactive liquidation previews over a websocket.
//
// A client opens /ws/whatif?company_id=N and sends one JSON request per exit
// amount it wants evaluated. Each request is answered with the full preview
// distribution. Nothing is persisted.
package whatif

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"flexile-liquidation/internal/liquidation"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/waterfall"
)

// Previewer computes a distribution without persisting it.
type Previewer interface {
	Preview(ctx context.Context, companyID, exitAmountCents int64, exitDate time.Time) (*waterfall.Distribution, error)
}

// Config configures session behavior.
type Config struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a session may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// MaxMessageBytes limits the size of a client request.
	MaxMessageBytes int64
}

// DefaultConfig returns default session configuration.
func DefaultConfig() Config {
	return Config{
		PingInterval:    30 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 4096,
	}
}

// Request is one client message.
type Request struct {
	RequestID       string `json:"request_id,omitempty"`
	ExitAmountCents int64  `json:"exit_amount_cents"`
	ExitDate        string `json:"exit_date,omitempty"` // YYYY-MM-DD, defaults to today
}

// Response answers one Request. Exactly one of Distribution and Error is set.
type Response struct {
	RequestID    string                        `json:"request_id,omitempty"`
	CompanyID    int64                         `json:"company_id"`
	Distribution *liquidation.DistributionView `json:"distribution,omitempty"`
	Error        string                        `json:"error,omitempty"`
}

// Options configures a Handler.
type Options struct {
	Config  *Config
	Metrics *observability.Metrics
	Logger  logrus.FieldLogger
}

// Handler upgrades HTTP requests to what-if sessions.
type Handler struct {
	previewer Previewer
	config    Config
	upgrader  websocket.Upgrader
	metrics   *observability.Metrics
	log       logrus.FieldLogger
}

// NewHandler creates a Handler evaluating requests with p.
func NewHandler(p Previewer, opts Options) *Handler {
	h := &Handler{
		previewer: p,
		config:    DefaultConfig(),
		metrics:   opts.Metrics,
		log:       opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	if opts.Config != nil {
		h.config = *opts.Config
	}
	if h.metrics == nil {
		h.metrics = observability.DefaultMetrics
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	return h
}

// ServeHTTP validates the company id, upgrades the connection and runs the
// session until the client disconnects or the request context ends.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		http.Error(w, "company_id query param required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	s := &session{
		handler:   h,
		conn:      conn,
		companyID: companyID,
		log:       h.log.WithField("company_id", companyID),
	}
	s.run(r.Context())
}

type session struct {
	handler   *Handler
	conn      *websocket.Conn
	writeMu   sync.Mutex
	companyID int64
	log       logrus.FieldLogger
}

func (s *session) run(ctx context.Context) {
	cfg := s.handler.config
	metrics := s.handler.metrics

	metrics.WhatIfSessions.Inc()
	defer metrics.WhatIfSessions.Dec()
	defer s.conn.Close()

	s.conn.SetReadLimit(cfg.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pingLoop(ctx)
	}()

	s.log.Debug("what-if session opened")
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).Debug("what-if session read ended")
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		resp := s.evaluate(ctx, data)
		if err := s.write(resp); err != nil {
			s.log.WithError(err).Debug("what-if session write failed")
			return
		}
	}
}

// evaluate turns one raw client message into a response.
func (s *session) evaluate(ctx context.Context, data []byte) *Response {
	resp := &Response{CompanyID: s.companyID}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		resp.Error = fmt.Sprintf("malformed request: %v", err)
		s.handler.metrics.RecordWhatIf(observability.StatusInvalidInput)
		return resp
	}
	resp.RequestID = req.RequestID

	var exitDate time.Time
	if req.ExitDate != "" {
		parsed, err := time.Parse(time.DateOnly, req.ExitDate)
		if err != nil {
			resp.Error = fmt.Sprintf("exit_date: %v", err)
			s.handler.metrics.RecordWhatIf(observability.StatusInvalidInput)
			return resp
		}
		exitDate = parsed
	}

	d, err := s.handler.previewer.Preview(ctx, s.companyID, req.ExitAmountCents, exitDate)
	s.handler.metrics.RecordWhatIf(liquidation.StatusLabel(err))
	if err != nil {
		resp.Error = err.Error()
		if !errors.Is(err, waterfall.ErrInvalidInput) {
			s.log.WithError(err).Warn("what-if preview failed")
		}
		return resp
	}
	resp.Distribution = liquidation.NewDistributionView(d)
	return resp
}

func (s *session) write(resp *Response) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.handler.config.WriteTimeout))
	return s.conn.WriteJSON(resp)
}

// pingLoop keeps the connection alive and closes it once ctx ends, which
// unblocks the reader.
func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.handler.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.handler.config.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
