package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/config"
	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

func newTestChecker(src Source, cfg config.MonitoringConfig) *Checker {
	c := NewChecker(src, cfg)
	c.collector = newTestCollector(src)
	return c
}

func TestChecker_SendsTriggeredAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := config.MonitoringConfig{WebhookURL: ts.URL, LookbackWindowHours: 24, ZipCoverageThreshold: 0.5}
	src := &mockSource{
		stats: store.Stats{Parcels: 10, ParcelsWithZip: 1},
		loads: []model.LoadMarker{
			{Dataset: model.DatasetAssessments, CountyName: "Cayuga", Year: 2025, Status: model.LoadStatusFailed, StartedAt: collectedAt.Add(-time.Hour)},
		},
	}

	rep := newTestChecker(src, cfg).Check(context.Background())
	require.NotNil(t, rep.Snapshot)
	assert.False(t, rep.Healthy())
	require.Len(t, rep.Alerts, 2)
	assert.Equal(t, AlertLoadFailure, rep.Alerts[0].Type)
	assert.Equal(t, AlertLowZipCoverage, rep.Alerts[1].Type)
	assert.Equal(t, 2, rep.Delivered)
	assert.Equal(t, int32(2), received.Load())
}

func TestChecker_AlertsWithoutWebhook(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackWindowHours: 24}
	rep := newTestChecker(&mockSource{}, cfg).Check(context.Background())
	require.Len(t, rep.Alerts, 1)
	assert.Equal(t, AlertEmptyWarehouse, rep.Alerts[0].Type)
	assert.Zero(t, rep.Delivered)
}

func TestChecker_Healthy(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackWindowHours: 24, ZipCoverageThreshold: 0.5}
	src := &mockSource{stats: store.Stats{Parcels: 10, ParcelsWithZip: 10}}

	rep := newTestChecker(src, cfg).Check(context.Background())
	require.NotNil(t, rep.Snapshot)
	assert.True(t, rep.Healthy())
	assert.Equal(t, int64(10), rep.Snapshot.Parcels)
}

func TestChecker_CollectErrorIsSwallowed(t *testing.T) {
	cfg := config.MonitoringConfig{LookbackWindowHours: 24}
	src := &mockSource{loadsErr: errors.New("db gone")}

	rep := newTestChecker(src, cfg).Check(context.Background())
	assert.Nil(t, rep.Snapshot)
	assert.Nil(t, rep.Alerts)
	assert.False(t, rep.Healthy())
}
