package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordRun(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordRun(StatusOK, 10*time.Millisecond)
	m.RecordRun(StatusOK, 20*time.Millisecond)
	m.RecordRun(StatusInvalidInput, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScenarioRunsTotal.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScenarioRunsTotal.WithLabelValues(StatusInvalidInput)))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccessfulRun), 0.0)
}

func TestMetrics_RecordDistribution(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordDistribution(2, 1, false, 500)
	m.RecordDistribution(1, 0, true, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConversionDecisions.WithLabelValues("converted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionDecisions.WithLabelValues("redeemed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConversionNonConverge))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.UndistributedCents))
}

func TestMetrics_RecordDBQuery(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordDBQuery("postgres", "replace_payouts", time.Millisecond, nil)
	m.RecordDBQuery("postgres", "replace_payouts", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("postgres", "replace_payouts")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())
	m.RecordPayoutsWritten(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "test_waterfall_payouts_written_total 4"), body)
}
