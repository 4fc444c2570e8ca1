package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"simcollect/pkg/poller"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// EndpointStatus is the running tally for one endpoint.
type EndpointStatus struct {
	ID        string
	Fetched   int
	Buffered  int
	Failures  int
	Written   int
	LastFlush string
	LastError string
}

// Summary is a point-in-time view of a session.
type Summary struct {
	State         poller.State
	Cycles        int
	Fetched       int
	FetchFailures int
	Flushes       int
	FlushFailures int
	Written       int
	Pending       int
	Elapsed       time.Duration
	Endpoints     []EndpointStatus
}

// StatusTracker keeps track of collection progress. It implements
// poller.Observer and is safe to read from other goroutines.
type StatusTracker struct {
	mu           sync.Mutex
	state        poller.State
	cycles       int
	pending      int
	saveInterval int
	sinceFlush   int
	flushes      int
	flushFails   int
	fetchFails   int
	endpoints    map[string]*EndpointStatus
	order        []string
	startTime    time.Time
	now          func() time.Time
}

// NewStatusTracker creates a tracker for the given endpoints. saveInterval
// is the number of cycles between periodic flushes.
func NewStatusTracker(endpoints []string, saveInterval int) *StatusTracker {
	st := &StatusTracker{
		saveInterval: saveInterval,
		endpoints:    make(map[string]*EndpointStatus, len(endpoints)),
		now:          time.Now,
	}
	st.startTime = st.now()
	for _, id := range endpoints {
		st.endpoint(id)
	}
	return st
}

func (st *StatusTracker) endpoint(id string) *EndpointStatus {
	e, ok := st.endpoints[id]
	if !ok {
		e = &EndpointStatus{ID: id}
		st.endpoints[id] = e
		st.order = append(st.order, id)
	}
	return e
}

func (st *StatusTracker) StateChanged(from, to poller.State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = to
}

func (st *StatusTracker) FetchCompleted(e poller.FetchEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()

	ep := st.endpoint(e.Endpoint)
	ep.Buffered = e.Buffered
	if e.Err != nil {
		ep.Failures++
		ep.LastError = e.Err.Error()
		st.fetchFails++
		return
	}
	ep.Fetched += e.Records
	ep.LastError = ""
}

func (st *StatusTracker) CycleCompleted(e poller.CycleEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cycles = e.Cycle
	st.pending = e.Pending
	st.sinceFlush++
}

func (st *StatusTracker) FlushCompleted(e poller.FlushEvent) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sinceFlush = 0
	ep := st.endpoint(e.Endpoint)
	if e.Err != nil {
		st.flushFails++
		ep.LastError = e.Err.Error()
		return
	}
	st.flushes++
	st.pending -= e.Records
	if st.pending < 0 {
		st.pending = 0
	}
	ep.Buffered = 0
	ep.LastFlush = e.Path
	if e.Result != nil {
		ep.Written = e.Result.Written
	}
}

// Summary returns a copy of the current tallies.
func (st *StatusTracker) Summary() Summary {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := Summary{
		State:         st.state,
		Cycles:        st.cycles,
		FetchFailures: st.fetchFails,
		Flushes:       st.flushes,
		FlushFailures: st.flushFails,
		Pending:       st.pending,
		Elapsed:       st.now().Sub(st.startTime),
		Endpoints:     make([]EndpointStatus, 0, len(st.order)),
	}
	for _, id := range st.order {
		e := *st.endpoints[id]
		s.Fetched += e.Fetched
		s.Written += e.Written
		s.Endpoints = append(s.Endpoints, e)
	}
	return s
}

// GetFlushProgress returns a bar showing how close the next periodic flush is
func (st *StatusTracker) GetFlushProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	const width = 20
	filled := 0
	if st.saveInterval > 0 {
		filled = st.sinceFlush * width / st.saveInterval
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.sinceFlush, st.saveInterval)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.startTime)
}

// GetFetchRate returns the average number of records fetched per minute
func (st *StatusTracker) GetFetchRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Summary().Fetched) / elapsed
}

// FailingEndpoints lists endpoints whose most recent fetch or flush failed.
func (s Summary) FailingEndpoints() []string {
	var out []string
	for _, e := range s.Endpoints {
		if e.LastError != "" {
			out = append(out, e.ID)
		}
	}
	sort.Strings(out)
	return out
}
