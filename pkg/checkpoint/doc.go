// Package checkpoint keeps a manifest of the current collection session.
//
// The manifest lives next to the batch files in the output directory as
// .simcollect-session.json. It records the run id, the selected endpoints,
// the scheduler state, cycle and failure counters and every flush with its
// destination and outcome. A Recorder attached to the scheduler rewrites it
// atomically after each cycle and flush, so after a crash or an interrupt the
// status command can tell what was persisted and what was still buffered.
//
// The manifest is informational. Batch files are never replayed from it.
package checkpoint
