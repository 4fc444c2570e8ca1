package poller

import (
	"sync"
	"time"

	"simcollect/pkg/storage"
)

// FetchEvent reports one endpoint fetch.
type FetchEvent struct {
	Cycle    int
	Endpoint string
	Records  int
	// Buffered is the endpoint's buffer length after the fetch
	Buffered int
	Duration time.Duration
	Err      error
}

// CycleEvent reports a completed cycle.
type CycleEvent struct {
	Cycle   int
	Pending int
	// NextAt is when the next cycle starts; zero when no cycle follows
	NextAt time.Time
}

// FlushEvent reports one endpoint flush.
type FlushEvent struct {
	Endpoint string
	Path     string
	Reason   storage.FlushReason
	Records  int
	Result   *storage.FlushResult
	Err      error
	At       time.Time
}

// Observer receives scheduler progress. Callbacks run on the scheduler's
// goroutine and must not block.
type Observer interface {
	StateChanged(from, to State)
	FetchCompleted(FetchEvent)
	CycleCompleted(CycleEvent)
	FlushCompleted(FlushEvent)
}

// NopObserver ignores every event. Embed it to implement only some callbacks.
type NopObserver struct{}

func (NopObserver) StateChanged(from, to State)  {}
func (NopObserver) FetchCompleted(FetchEvent)    {}
func (NopObserver) CycleCompleted(CycleEvent)    {}
func (NopObserver) FlushCompleted(FlushEvent)    {}

// multiObserver fans events out to observers in registration order.
type multiObserver struct {
	mu        sync.RWMutex
	observers []Observer
}

func (m *multiObserver) add(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *multiObserver) each(fn func(Observer)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.observers {
		fn(o)
	}
}

func (m *multiObserver) StateChanged(from, to State) {
	m.each(func(o Observer) { o.StateChanged(from, to) })
}

func (m *multiObserver) FetchCompleted(e FetchEvent) {
	m.each(func(o Observer) { o.FetchCompleted(e) })
}

func (m *multiObserver) CycleCompleted(e CycleEvent) {
	m.each(func(o Observer) { o.CycleCompleted(e) })
}

func (m *multiObserver) FlushCompleted(e FlushEvent) {
	m.each(func(o Observer) { o.FlushCompleted(e) })
}
