package ui

import "simcollect/pkg/poller"

// Display is a session front end. It receives scheduler events and prints
// or renders a summary once the scheduler returns.
type Display interface {
	poller.Observer
	Complete(err error)
	Summary() Summary
}

var _ Display = (*ProgressDisplay)(nil)
