package checkpoint

import (
	"sync"

	"github.com/google/uuid"
	"simcollect/pkg/poller"
)

// Recorder keeps the manifest in step with a running scheduler. It is a
// poller.Observer; the manifest is rewritten after every cycle, flush and
// terminal state change.
type Recorder struct {
	poller.NopObserver

	mu       sync.Mutex
	manager  *Manager
	manifest *Manifest
}

// NewRecorder starts a manifest for a new run. An empty runID gets a random
// one.
func NewRecorder(m *Manager, runID string, endpoints []string) *Recorder {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Recorder{
		manager: m,
		manifest: &Manifest{
			RunID:     runID,
			Endpoints: append([]string(nil), endpoints...),
			State:     poller.StateInitializing.String(),
			Flushes:   []FlushRecord{},
			StartedAt: m.now(),
		},
	}
}

// RunID returns the identifier of the recorded run.
func (r *Recorder) RunID() string {
	return r.manifest.RunID
}

// Snapshot returns a copy of the current manifest.
func (r *Recorder) Snapshot() Manifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *r.manifest
	out.Flushes = append([]FlushRecord(nil), r.manifest.Flushes...)
	return out
}

func (r *Recorder) save() {
	if err := r.manager.Save(r.manifest); err != nil {
		r.manager.logger.WithError(err).Warn("Failed to update session manifest")
	}
}

// StateChanged records the state; running, terminating and terminated are
// saved immediately.
func (r *Recorder) StateChanged(from, to poller.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.manifest.State = to.String()
	switch to {
	case poller.StateTerminated:
		now := r.manager.now()
		r.manifest.FinishedAt = &now
		r.save()
	case poller.StateRunning, poller.StateTerminating:
		r.save()
	}
}

// FetchCompleted counts failed fetches.
func (r *Recorder) FetchCompleted(e poller.FetchEvent) {
	if e.Err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifest.FetchFailures++
}

// CycleCompleted records progress.
func (r *Recorder) CycleCompleted(e poller.CycleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.manifest.Cycles = e.Cycle
	r.manifest.Pending = e.Pending
	r.save()
}

// FlushCompleted appends the flush outcome.
func (r *Recorder) FlushCompleted(e poller.FlushEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := FlushRecord{
		Endpoint: e.Endpoint,
		Path:     e.Path,
		Reason:   e.Reason.String(),
		Records:  e.Records,
		At:       e.At,
	}
	if e.Err != nil {
		rec.Error = e.Err.Error()
	} else {
		if e.Result != nil {
			rec.Written = e.Result.Written
			rec.Degraded = e.Result.Degraded
		}
		r.manifest.Pending = max(r.manifest.Pending-e.Records, 0)
	}
	r.manifest.Flushes = append(r.manifest.Flushes, rec)
	r.save()
}
