package whatif

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flexile-liquidation/internal/domain"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
	"flexile-liquidation/internal/waterfall"
)

// stubPreviewer computes against a fixed cap table and records calls.
type stubPreviewer struct {
	mu    sync.Mutex
	calls []time.Time
}

func (p *stubPreviewer) Preview(_ context.Context, companyID, exitAmountCents int64, exitDate time.Time) (*waterfall.Distribution, error) {
	p.mu.Lock()
	p.calls = append(p.calls, exitDate)
	p.mu.Unlock()

	if companyID != 1 {
		return nil, fmt.Errorf("load cap table %d: %w", companyID, storage.ErrNotFound)
	}
	return waterfall.Compute(waterfall.Input{
		CapTable: &domain.CapTable{
			Company: domain.Company{ID: 1},
			ShareClasses: []*domain.ShareClass{
				{ID: 1, CompanyID: 1, Name: "Common"},
				{ID: 2, CompanyID: 1, Name: "Seed", Preferred: true, OriginalIssuePrice: decimal.NewFromInt(1)},
			},
			ShareHoldings: []*domain.ShareHolding{
				{ID: 1, CompanyInvestorID: 1, ShareClassID: 2, NumberOfShares: 100},
				{ID: 2, CompanyInvestorID: 2, ShareClassID: 1, NumberOfShares: 100},
			},
		},
		ExitAmountCents: exitAmountCents,
		ValuationDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

type testServer struct {
	server    *httptest.Server
	previewer *stubPreviewer
	metrics   *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	p := &stubPreviewer{}
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	h := NewHandler(p, Options{Metrics: m, Logger: logger})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{server: srv, previewer: p, metrics: m}
}

func (ts *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/ws/whatif?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg interface{}) *Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	switch m := msg.(type) {
	case string:
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
	default:
		require.NoError(t, conn.WriteJSON(m))
	}
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return &resp
}

func TestSession_Preview(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "company_id=1")

	resp := roundTrip(t, conn, Request{RequestID: "r1", ExitAmountCents: 150_00})
	require.Empty(t, resp.Error)
	require.NotNil(t, resp.Distribution)
	assert.Equal(t, "r1", resp.RequestID)
	assert.Equal(t, int64(1), resp.CompanyID)
	assert.Equal(t, int64(150_00), resp.Distribution.DistributedCents)
	require.Len(t, resp.Distribution.Payouts, 2)
	assert.Equal(t, int64(100_00), resp.Distribution.Payouts[0].PayoutAmountCents)

	// Slider moves: same session, new amount.
	resp = roundTrip(t, conn, Request{RequestID: "r2", ExitAmountCents: 60_00, ExitDate: "2024-06-30"})
	require.Empty(t, resp.Error)
	assert.Equal(t, int64(60_00), resp.Distribution.Payouts[0].PayoutAmountCents)
	assert.Zero(t, resp.Distribution.Payouts[1].PayoutAmountCents)

	ts.previewer.mu.Lock()
	defer ts.previewer.mu.Unlock()
	require.Len(t, ts.previewer.calls, 2)
	assert.True(t, ts.previewer.calls[0].IsZero())
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), ts.previewer.calls[1])

	assert.Equal(t, 2.0, testutil.ToFloat64(ts.metrics.WhatIfEvaluations.WithLabelValues(observability.StatusOK)))
}

func TestSession_ErrorsKeepSessionOpen(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "company_id=1")

	resp := roundTrip(t, conn, "{not json")
	assert.Contains(t, resp.Error, "malformed request")

	resp = roundTrip(t, conn, Request{RequestID: "bad-date", ExitAmountCents: 100, ExitDate: "30/06/2024"})
	assert.Equal(t, "bad-date", resp.RequestID)
	assert.Contains(t, resp.Error, "exit_date")

	resp = roundTrip(t, conn, Request{RequestID: "neg", ExitAmountCents: -5})
	assert.Contains(t, resp.Error, "invalid input")
	assert.Nil(t, resp.Distribution)

	resp = roundTrip(t, conn, Request{RequestID: "ok", ExitAmountCents: 10_00})
	assert.Empty(t, resp.Error)
	assert.NotNil(t, resp.Distribution)

	assert.Equal(t, 3.0, testutil.ToFloat64(ts.metrics.WhatIfEvaluations.WithLabelValues(observability.StatusInvalidInput)))
}

func TestSession_UnknownCompany(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "company_id=2")

	resp := roundTrip(t, conn, Request{ExitAmountCents: 100})
	assert.Contains(t, resp.Error, "not found")
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.WhatIfEvaluations.WithLabelValues(observability.StatusNotFound)))
}

func TestHandler_RequiresCompanyID(t *testing.T) {
	ts := newTestServer(t)

	for _, query := range []string{"", "company_id=abc", "company_id=0"} {
		resp, err := http.Get(ts.server.URL + "/ws/whatif?" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}

func TestSession_GaugeTracksOpenSessions(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, "company_id=1")
	roundTrip(t, conn, Request{ExitAmountCents: 100})

	assert.Equal(t, 1.0, testutil.ToFloat64(ts.metrics.WhatIfSessions))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(ts.metrics.WhatIfSessions) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
