package main

import (
	"bytes"
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missingtv/missingtv/internal/scheduler"
)

func TestWatchLoop_TriggerRunsReport(t *testing.T) {
	sched, err := scheduler.New(context.Background(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Stop() })

	var runs atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	require.NoError(t, sched.RegisterTask(scheduler.TaskConfig{
		ID:   watchTaskID,
		Name: "Missing episode report",
		Cron: "@yearly",
		Func: func(context.Context) error {
			runs.Add(1)
			started <- struct{}{}
			<-release
			return nil
		},
	}))
	sched.Start()

	ctx, cancel := context.WithCancel(context.Background())
	trigger := make(chan os.Signal)
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		watchLoop(ctx, sched, trigger, zerolog.New(&buf))
		close(done)
	}()

	trigger <- syscall.SIGHUP
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("report did not start")
	}

	// Second request while the first run is still in flight.
	trigger <- syscall.SIGHUP

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	close(release)

	assert.Equal(t, int32(1), runs.Load())
	assert.Contains(t, buf.String(), "Report run requested")
	assert.Contains(t, buf.String(), "Report already running")
}
