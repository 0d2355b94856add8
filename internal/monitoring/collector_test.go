package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

// mockSource implements Source for testing.
type mockSource struct {
	stats    store.Stats
	loads    []model.LoadMarker
	loadsErr error
	statsErr error
}

func (m *mockSource) Stats(context.Context) (*store.Stats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	s := m.stats
	return &s, nil
}

func (m *mockSource) ListLoads(context.Context) ([]model.LoadMarker, error) {
	return m.loads, m.loadsErr
}

var collectedAt = time.Date(2025, time.September, 2, 12, 0, 0, 0, time.UTC)

func newTestCollector(src Source) *Collector {
	c := NewCollector(src)
	c.clock = clockwork.NewFakeClockAt(collectedAt)
	return c
}

func TestCollector_EmptyStore(t *testing.T) {
	snap, err := newTestCollector(&mockSource{}).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.LoadsTotal)
	assert.Zero(t, snap.Parcels)
	assert.Equal(t, 0.0, snap.ZipCoverage)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, collectedAt, snap.CollectedAt)
}

func TestCollector_LoadMetrics(t *testing.T) {
	src := &mockSource{
		loads: []model.LoadMarker{
			{Dataset: model.DatasetAssessments, CountyName: "Onondaga", Year: 2025, Status: model.LoadStatusComplete, StartedAt: collectedAt.Add(-2 * time.Hour)},
			{Dataset: model.DatasetAssessments, CountyName: "Cayuga", Year: 2025, Status: model.LoadStatusFailed, StartedAt: collectedAt.Add(-3 * time.Hour)},
			{Dataset: model.DatasetRatios, CountyName: "Madison", Year: 2025, Status: model.LoadStatusRunning, StartedAt: collectedAt.Add(-time.Hour)},
			// Outside lookback window.
			{Dataset: model.DatasetAssessments, CountyName: "Oswego", Year: 2024, Status: model.LoadStatusFailed, StartedAt: collectedAt.Add(-72 * time.Hour)},
		},
	}

	snap, err := newTestCollector(src).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.LoadsTotal)
	assert.Equal(t, 1, snap.LoadsComplete)
	assert.Equal(t, 1, snap.LoadsFailed)
	assert.Equal(t, 1, snap.LoadsRunning)
	assert.Equal(t, []string{"assessments/Cayuga/2025"}, snap.FailedUnits)
}

func TestCollector_ZipCoverage(t *testing.T) {
	src := &mockSource{stats: store.Stats{Parcels: 200, ParcelsWithZip: 50}}

	snap, err := newTestCollector(src).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.Parcels)
	assert.InDelta(t, 0.25, snap.ZipCoverage, 0.0001)
}

func TestCollector_Errors(t *testing.T) {
	_, err := newTestCollector(&mockSource{loadsErr: errors.New("boom")}).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list loads")

	_, err = newTestCollector(&mockSource{statsErr: errors.New("boom")}).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: warehouse stats")
}
