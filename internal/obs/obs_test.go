package obs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "info")
	l.Debug("hidden")
	l.Info("sale_recorded", "sale_id", "s1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sale_recorded", entry["msg"])
	assert.Equal(t, "s1", entry["sale_id"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SaleRecorded()
	m.SaleRejected("insufficient_stock")
	m.Payment("card", "success")
	m.PaywallHit("Premium Analytics")
	m.JournalEntry("applied")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.SaleRecorded()
	m.SaleRejected("insufficient_stock")
	m.Payment("upi", "declined")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "bizdesk_sales_recorded_total 1")
	assert.Contains(t, body, `bizdesk_sales_rejected_total{reason="insufficient_stock"} 1`)
	assert.Contains(t, body, `bizdesk_payments_total{method="upi",outcome="declined"} 1`)
}
