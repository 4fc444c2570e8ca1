package storage

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ActionLogLayout is the timestamp layout of action log lines.
const ActionLogLayout = "2006-01-02 15:04:05"

// ActionLog is the append-only, operator-facing record of writes. Each
// line reads "<YYYY-MM-DD HH:MM:SS> - <message>".
type ActionLog struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewActionLog returns an action log writing to path. A nil clock means
// time.Now.
func NewActionLog(path string, now func() time.Time) *ActionLog {
	if now == nil {
		now = time.Now
	}
	return &ActionLog{path: path, now: now}
}

// Path returns the log file path.
func (a *ActionLog) Path() string {
	return a.path
}

// Append writes one line.
func (a *ActionLog) Append(message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open action log: %w", err)
	}
	line := fmt.Sprintf("%s - %s\n", a.now().Format(ActionLogLayout), message)
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write action log: %w", err)
	}
	return f.Close()
}
