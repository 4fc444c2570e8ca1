package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"simcollect/pkg/buffer"
	errs "simcollect/pkg/errors"
	"simcollect/pkg/logger"
	"simcollect/pkg/record"
	"simcollect/pkg/retry"
	"simcollect/pkg/session"
	"simcollect/pkg/simcompanies"
	"simcollect/pkg/storage"
)

// State is a scheduler lifecycle state.
type State int

const (
	StateInitializing State = iota
	StateRunning
	StateFlushing
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fetcher retrieves the current records of one endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, url string, b session.Bundle) ([]record.Value, error)
}

// Flusher persists one endpoint batch.
type Flusher interface {
	Flush(req storage.FlushRequest) (*storage.FlushResult, error)
}

// Destinations names the file a batch is written to.
type Destinations interface {
	BatchPath(endpoint string, ts time.Time) string
}

// Options controls a collection session.
type Options struct {
	Endpoints []simcompanies.Endpoint
	Identity  session.Identity
	// Interval is the pause between cycles
	Interval time.Duration
	// Iterations limits the number of cycles; 0 runs until cancelled
	Iterations int
	// SaveInterval is the number of cycles between flushes
	SaveInterval int
	Now          func() time.Time
}

// Stats is a snapshot of scheduler progress.
type Stats struct {
	State         State
	Cycles        int
	Pending       int
	FetchFailures int
	Flushes       int
	FlushFailures int
}

// Scheduler drives the poll loop: acquire a session, fetch every endpoint
// each cycle, flush buffers every SaveInterval cycles and flush whatever is
// left when the session ends.
type Scheduler struct {
	opts      Options
	provider  session.Provider
	fetcher   Fetcher
	persister Flusher
	paths     Destinations
	buffers   *buffer.Set
	observers multiObserver
	logger    logger.Logger

	mu        sync.Mutex
	stats     Stats
	saveCount int

	// lastFlush is the timestamp of the previous flush round. Batch names
	// have second resolution, so every round must start a later second.
	lastFlush time.Time

	closeOnce sync.Once
}

// NewScheduler validates opts and wires the scheduler's collaborators.
func NewScheduler(opts Options, provider session.Provider, fetcher Fetcher, persister Flusher, paths Destinations, log logger.Logger) (*Scheduler, error) {
	switch {
	case len(opts.Endpoints) == 0:
		return nil, errs.New(errs.ErrorTypeConfig, "no endpoints selected")
	case opts.Interval < 0:
		return nil, errs.New(errs.ErrorTypeConfig, "interval must not be negative")
	case opts.Iterations < 0:
		return nil, errs.New(errs.ErrorTypeConfig, "iterations must not be negative")
	case opts.SaveInterval < 1:
		return nil, errs.New(errs.ErrorTypeConfig, "save interval must be at least 1")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	ids := make([]string, len(opts.Endpoints))
	for i, e := range opts.Endpoints {
		ids[i] = e.ID
	}

	return &Scheduler{
		opts:      opts,
		provider:  provider,
		fetcher:   fetcher,
		persister: persister,
		paths:     paths,
		buffers:   buffer.NewSet(ids),
		logger:    log.WithField("component", "poller"),
	}, nil
}

// AddObserver registers o for progress events.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers.add(o)
}

// Stats returns a snapshot of the scheduler's progress. It may be called
// from any goroutine.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) setState(to State) {
	s.mu.Lock()
	from := s.stats.State
	s.stats.State = to
	s.mu.Unlock()

	s.logger.DebugWithFields("State changed", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
	s.observers.StateChanged(from, to)
}

// updatePending refreshes the pending count reported by Stats. Buffers are
// only touched on the scheduler's goroutine.
func (s *Scheduler) updatePending() {
	pending := s.buffers.Pending()
	s.mu.Lock()
	s.stats.Pending = pending
	s.mu.Unlock()
}

func (s *Scheduler) closeProvider() {
	s.closeOnce.Do(func() {
		if err := s.provider.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to release session")
		}
	})
}

// Run executes the session until the iteration limit is reached or ctx is
// cancelled. Cancellation is a normal shutdown: buffered records are flushed
// and Run returns nil unless that flush fails. A failed session acquisition
// returns an auth error without fetching anything.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.closeProvider()

	s.setState(StateInitializing)
	bundle, err := s.provider.Acquire(ctx, s.opts.Identity)
	if err != nil {
		s.setState(StateTerminated)
		if ctx.Err() != nil {
			s.logger.Info("Interrupted before the session started")
			return nil
		}
		if errs.Is(err, errs.ErrorTypeAuth) {
			return err
		}
		return errs.Wrap(errs.ErrorTypeAuth, err, "failed to acquire session")
	}

	s.logger.InfoWithFields("Collection started", map[string]interface{}{
		"endpoints":     len(s.opts.Endpoints),
		"interval":      s.opts.Interval.String(),
		"iterations":    s.opts.Iterations,
		"save_interval": s.opts.SaveInterval,
	})
	s.setState(StateRunning)

	for {
		if !s.runCycle(ctx, bundle) {
			break
		}

		cycles := s.completeCycle()
		if s.saveCount >= s.opts.SaveInterval {
			s.setState(StateFlushing)
			s.flush(storage.FlushPeriodic)
			s.saveCount = 0
			s.setState(StateRunning)
		}

		if s.opts.Iterations > 0 && cycles >= s.opts.Iterations {
			s.observers.CycleCompleted(CycleEvent{Cycle: cycles, Pending: s.buffers.Pending()})
			break
		}

		s.observers.CycleCompleted(CycleEvent{
			Cycle:   cycles,
			Pending: s.buffers.Pending(),
			NextAt:  s.opts.Now().Add(s.opts.Interval),
		})
		if err := retry.Wait(ctx, s.opts.Interval); err != nil {
			break
		}
	}

	if ctx.Err() != nil {
		s.logger.Info("Interrupted, flushing buffered records")
	}
	s.setState(StateTerminating)
	err = s.flush(storage.FlushFinal)
	s.setState(StateTerminated)

	st := s.Stats()
	s.logger.InfoWithFields("Collection finished", map[string]interface{}{
		"cycles":         st.Cycles,
		"fetch_failures": st.FetchFailures,
		"flushes":        st.Flushes,
		"flush_failures": st.FlushFailures,
	})
	return err
}

// runCycle fetches every endpoint once. It returns false when ctx was
// cancelled before the cycle completed.
func (s *Scheduler) runCycle(ctx context.Context, bundle session.Bundle) bool {
	cycle := s.Stats().Cycles + 1

	for _, ep := range s.opts.Endpoints {
		if ctx.Err() != nil {
			return false
		}

		start := time.Now()
		records, err := s.fetcher.Fetch(ctx, ep.URL, bundle)
		if err != nil && ctx.Err() != nil {
			return false
		}

		buf := s.buffers.Get(ep.ID)
		if err != nil {
			var typed *errs.Error
			if errors.As(err, &typed) && typed.Endpoint == "" {
				typed.Endpoint = ep.ID
			}
			s.mu.Lock()
			s.stats.FetchFailures++
			s.mu.Unlock()
		} else {
			buf.AppendAll(records)
			s.updatePending()
		}

		logger.LogFetch(s.logger, ep.ID, cycle, len(records), err)
		s.observers.FetchCompleted(FetchEvent{
			Cycle:    cycle,
			Endpoint: ep.ID,
			Records:  len(records),
			Buffered: buf.Len(),
			Duration: time.Since(start),
			Err:      err,
		})
	}
	return true
}

// roundTimestamp returns the timestamp for a new flush round, moved to the
// next second when the clock has not left the previous round's second.
func (s *Scheduler) roundTimestamp() time.Time {
	ts := s.opts.Now()
	if !s.lastFlush.IsZero() && !ts.Truncate(time.Second).After(s.lastFlush.Truncate(time.Second)) {
		ts = s.lastFlush.Truncate(time.Second).Add(time.Second)
	}
	s.lastFlush = ts
	return ts
}

func (s *Scheduler) completeCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Cycles++
	s.saveCount++
	return s.stats.Cycles
}

// flush drains every non-empty buffer into a batch file named with one
// timestamp for the whole round. A failed batch goes back into its buffer
// and does not stop the other endpoints. The failures are returned joined.
func (s *Scheduler) flush(reason storage.FlushReason) error {
	ts := s.roundTimestamp()
	var failures []error

	for _, id := range s.buffers.NonEmpty() {
		buf := s.buffers.Get(id)
		records := buf.Drain()
		path := s.paths.BatchPath(id, ts)

		res, err := s.persister.Flush(storage.FlushRequest{
			Endpoint: id,
			Records:  records,
			Path:     path,
			Reason:   reason,
		})

		s.mu.Lock()
		if err != nil {
			s.stats.FlushFailures++
		} else {
			s.stats.Flushes++
		}
		s.mu.Unlock()

		written := 0
		if err != nil {
			buf.Requeue(records)
			failures = append(failures, err)
		} else {
			written = res.Written
		}
		s.updatePending()
		logger.LogFlush(s.logger, id, path, written, reason == storage.FlushFinal, err)
		s.observers.FlushCompleted(FlushEvent{
			Endpoint: id,
			Path:     path,
			Reason:   reason,
			Records:  len(records),
			Result:   res,
			Err:      err,
			At:       ts,
		})
	}
	return errors.Join(failures...)
}
