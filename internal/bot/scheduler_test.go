package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/ticketbot/internal/bot/tasks"
	"github.com/edgard/ticketbot/internal/config"
)

func TestSchedulerSchedulesEnabledTasks(t *testing.T) {
	t.Parallel()

	noop := func(context.Context) error { return nil }
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"enabled":  {Enabled: true, Schedule: "0 0 4 * * *"},
		"disabled": {Enabled: false, Schedule: "0 0 4 * * *"},
		"missing":  {Enabled: true, Schedule: "0 0 4 * * *"},
		"empty":    {Enabled: true},
		"invalid":  {Enabled: true, Schedule: "not a cron"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"enabled":  noop,
		"disabled": noop,
		"empty":    noop,
		"invalid":  noop,
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	assert.Equal(t, []string{"enabled"}, s.Jobs())
	assert.Error(t, s.Start())
}

func TestSchedulerRunsTask(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick": {Enabled: true, Schedule: "* * * * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}

	s, err := NewScheduler(discardLogger(), cfg, taskMap, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 20*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestSchedulerStopWhenNotRunning(t *testing.T) {
	t.Parallel()

	s, err := NewScheduler(discardLogger(), nil, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, s.Stop())
}
