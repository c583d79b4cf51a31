package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appLog "suntimes/internal/log"
	"suntimes/internal/model"
	"suntimes/internal/schedule"
	"suntimes/internal/solar"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newPlanner(t *testing.T) *schedule.Planner {
	t.Helper()
	p, err := schedule.NewPlanner(time.UTC,
		solar.Coordinate{Latitude: 51.4779, Longitude: 0},
		model.AlertConfig{Enabled: true},
		model.AlertConfig{Enabled: true, OffsetMinutes: -30},
	)
	require.NoError(t, err)
	return p
}

func TestNewRunnerRejectsBadSpec(t *testing.T) {
	_, err := NewRunner(newPlanner(t), "every tuesday", 2)
	assert.Error(t, err)

	_, err = NewRunner(nil, "@hourly", 2)
	assert.Error(t, err)
}

func TestRunOncePublishesSnapshot(t *testing.T) {
	r, err := NewRunner(newPlanner(t), "@hourly", 0)
	require.NoError(t, err)

	_, ok := r.Snapshot()
	assert.False(t, ok)

	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	snap, err := r.RunOnce(now)
	require.NoError(t, err)

	got, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, snap, got)
	assert.Equal(t, schedule.DefaultDays, got.Days)
	assert.Len(t, got.Events, 4)
	assert.Len(t, got.Alerts, 4)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), got.From)
}

func TestRunOnceLogsDueAlerts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	defer appLog.Replace(zap.New(core))()

	r, err := NewRunner(newPlanner(t), "@hourly", 2)
	require.NoError(t, err)

	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err = r.RunOnce(start)
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("sun alert due").Len())

	// Noon: the morning sunrise alert has passed since the last run.
	_, err = r.RunOnce(start.Add(12 * time.Hour))
	require.NoError(t, err)
	due := logs.FilterMessage("sun alert due").All()
	require.Len(t, due, 1)
	assert.Equal(t, "sunrise", due[0].ContextMap()["type"])
}

func TestStartStop(t *testing.T) {
	r, err := NewRunner(newPlanner(t), "*/5 * * * *", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx))

	_, ok := r.Snapshot()
	assert.True(t, ok)

	cancel()
	r.Stop()
	r.Stop()
}
