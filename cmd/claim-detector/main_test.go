package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-claim-detector/internal/core"
	"github.com/mikey/llm-claim-detector/internal/metrics"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		endOfDay bool
		want     time.Time
		wantErr  bool
	}{
		{name: "empty", value: "", want: time.Time{}},
		{name: "rfc3339", value: "2024-03-01T10:00:00Z", want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "date start", value: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)},
		{name: "date end", value: "2024-03-01", endOfDay: true, want: time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.Local)},
		{name: "garbage", value: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.value, tt.endOfDay)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, nil))
	assert.Contains(t, buf.String(), "No classifications found")

	buf.Reset()
	rows := []core.ClassifiedMessage{{
		ExternalID:   "INBOX:1:2",
		Subject:      "My order arrived smashed",
		Sender:       "customer@example.com",
		ReceivedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		ClassifiedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Result: core.ClassificationResult{
			IsClaim:    true,
			Confidence: 92,
			Category:   core.CategoryDamagedGoods,
			Severity:   core.SeverityHigh,
		},
	}}
	require.NoError(t, writeTable(&buf, rows))
	out := buf.String()
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "customer@example.com")
	assert.Contains(t, out, "damaged_goods")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "92")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "abcd…", shorten("abcdefgh", 5))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg).ClaimDetected()

	srv := httptest.NewServer(metricsHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "claim_detector_claims_detected_total 1")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
