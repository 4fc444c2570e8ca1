// Package poller runs a collection session.
//
// The Scheduler moves through initializing, running, flushing, terminating
// and terminated. It acquires one session, then repeats cycles: every
// selected endpoint is fetched in order and its records are buffered, and
// every SaveInterval cycles the non-empty buffers are flushed to batch files
// that share one timestamp. A failed fetch is logged and the cycle goes on.
// A failed flush puts the batch back into its buffer.
//
// When the iteration limit is reached or the context is cancelled, during a
// fetch or during the pause between cycles, the scheduler flushes every
// non-empty buffer one last time and releases the session. An interrupt is
// a normal way to end a session.
//
// Observers receive state changes, fetches, cycles and flushes; the console
// view, the dashboard and the session manifest are all observers.
package poller
