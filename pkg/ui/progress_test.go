package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcollect/pkg/config"
	"simcollect/pkg/poller"
	"simcollect/pkg/storage"
)

func playSession(o poller.Observer) {
	o.StateChanged(poller.StateInitializing, poller.StateRunning)
	o.FetchCompleted(poller.FetchEvent{Cycle: 1, Endpoint: "EN", Records: 3, Buffered: 3})
	o.FetchCompleted(poller.FetchEvent{Cycle: 1, Endpoint: "ZH", Err: errors.New("status 502")})
	o.CycleCompleted(poller.CycleEvent{Cycle: 1, Pending: 3})
	o.FetchCompleted(poller.FetchEvent{Cycle: 2, Endpoint: "EN", Records: 2, Buffered: 4})
	o.FetchCompleted(poller.FetchEvent{Cycle: 2, Endpoint: "ZH", Records: 1, Buffered: 1})
	o.CycleCompleted(poller.CycleEvent{Cycle: 2, Pending: 5})
	o.StateChanged(poller.StateRunning, poller.StateTerminating)
	o.FlushCompleted(poller.FlushEvent{
		Endpoint: "EN", Path: "/out/EN.jsonl", Reason: storage.FlushFinal, Records: 4,
		Result: &storage.FlushResult{Path: "/out/EN.jsonl", Incoming: 4, Written: 4},
	})
	o.FlushCompleted(poller.FlushEvent{
		Endpoint: "ZH", Path: "/out/ZH.jsonl", Reason: storage.FlushFinal, Records: 1,
		Err: errors.New("disk full"),
	})
	o.StateChanged(poller.StateTerminating, poller.StateTerminated)
}

func TestStatusTrackerSummary(t *testing.T) {
	tracker := NewStatusTracker([]string{"ZH", "EN"}, 10)
	playSession(tracker)

	s := tracker.Summary()
	assert.Equal(t, poller.StateTerminated, s.State)
	assert.Equal(t, 2, s.Cycles)
	assert.Equal(t, 6, s.Fetched)
	assert.Equal(t, 1, s.FetchFailures)
	assert.Equal(t, 1, s.Flushes)
	assert.Equal(t, 1, s.FlushFailures)
	assert.Equal(t, 4, s.Written)
	assert.Equal(t, 1, s.Pending)

	require.Len(t, s.Endpoints, 2)
	assert.Equal(t, "ZH", s.Endpoints[0].ID, "endpoint order follows the selection")
	assert.Equal(t, "disk full", s.Endpoints[0].LastError)
	assert.Equal(t, 1, s.Endpoints[0].Failures)
	assert.Equal(t, "/out/EN.jsonl", s.Endpoints[1].LastFlush)
	assert.Equal(t, []string{"ZH"}, s.FailingEndpoints())
}

func TestStatusTrackerFlushProgress(t *testing.T) {
	tracker := NewStatusTracker([]string{"EN"}, 4)
	assert.Contains(t, tracker.GetFlushProgress(), "0/4")

	tracker.CycleCompleted(poller.CycleEvent{Cycle: 1})
	tracker.CycleCompleted(poller.CycleEvent{Cycle: 2})
	assert.Contains(t, tracker.GetFlushProgress(), "2/4")

	tracker.FlushCompleted(poller.FlushEvent{Endpoint: "EN", Records: 0})
	assert.Contains(t, tracker.GetFlushProgress(), "0/4")
}

func TestProgressDisplay(t *testing.T) {
	var out bytes.Buffer
	display := NewProgressDisplay(&out, []string{"ZH", "EN"}, 2, 10, true)
	playSession(display)
	display.Complete(nil)

	text := out.String()
	assert.Contains(t, text, "polling 2 endpoints")
	assert.Contains(t, text, "ZH: status 502")
	assert.Contains(t, text, "cycle 2/2")
	assert.Contains(t, text, "before shutdown")
	assert.Contains(t, text, "Saved 4 records for EN")
	assert.Contains(t, text, "Failed to save ZH: disk full")
	assert.Contains(t, text, "Collected 6 records over 2 cycles")
	assert.Contains(t, text, "1 records could not be saved")
}

func TestProgressDisplayError(t *testing.T) {
	var out bytes.Buffer
	display := NewProgressDisplay(&out, []string{"EN"}, 0, 1, false)
	display.Complete(errors.New("session expired"))

	assert.Contains(t, out.String(), "Session ended with errors: session expired")
}

type recordingSender struct {
	titles   []string
	messages []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func TestNotifier(t *testing.T) {
	cfg := config.DefaultConfig().Notifications
	cfg.NotificationType = "desktop"

	t.Run("complete", func(t *testing.T) {
		var out bytes.Buffer
		sender := &recordingSender{}
		n := NewNotifier(cfg, &out).WithSender(sender)

		n.SessionEnded(Summary{Fetched: 12, Cycles: 3, Flushes: 2}, nil)

		require.Len(t, sender.titles, 1)
		assert.Equal(t, "Collection finished", sender.titles[0])
		assert.Equal(t, "12 records over 3 cycles, 2 flushes", sender.messages[0])
		assert.Contains(t, out.String(), "12 records")
	})

	t.Run("failing endpoints", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier(cfg, &bytes.Buffer{}).WithSender(sender)

		n.SessionEnded(Summary{Endpoints: []EndpointStatus{{ID: "X", LastError: "boom"}}}, nil)
		require.Len(t, sender.messages, 1)
		assert.Contains(t, sender.messages[0], "failing: X")
	})

	t.Run("error", func(t *testing.T) {
		sender := &recordingSender{}
		n := NewNotifier(cfg, &bytes.Buffer{}).WithSender(sender)

		n.SessionEnded(Summary{}, errors.New("boom"))
		require.Len(t, sender.titles, 1)
		assert.Equal(t, "Collection failed", sender.titles[0])
	})

	t.Run("disabled", func(t *testing.T) {
		disabled := cfg
		disabled.Enabled = false
		var out bytes.Buffer
		sender := &recordingSender{}
		n := NewNotifier(disabled, &out).WithSender(sender)

		n.SessionEnded(Summary{}, nil)
		n.SessionEnded(Summary{}, errors.New("boom"))
		assert.Empty(t, sender.titles)
		assert.Empty(t, out.String())
	})

	t.Run("errors only", func(t *testing.T) {
		onlyErrors := cfg
		onlyErrors.OnComplete = false
		sender := &recordingSender{}
		n := NewNotifier(onlyErrors, &bytes.Buffer{}).WithSender(sender)

		n.SessionEnded(Summary{}, nil)
		assert.Empty(t, sender.titles)
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0ms"},
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
