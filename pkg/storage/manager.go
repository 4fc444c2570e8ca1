package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the flush timestamp embedded in batch file names.
const TimestampLayout = "2006_01_02_150405"

// DefaultExtension is used when no extension is configured.
const DefaultExtension = "jsonl"

// ActionLogName is the action log's file name inside the output directory.
const ActionLogName = "log.txt"

// Manager owns the output directory and the batch file naming scheme.
type Manager struct {
	outputDir string
	ext       string
}

// BatchFile describes one batch file found in the output directory.
type BatchFile struct {
	Endpoint  string
	Timestamp time.Time
	Path      string
	Size      int64
}

// NewManager creates the output directory if needed.
func NewManager(outputDir, ext string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}
	return &Manager{outputDir: outputDir, ext: ext}, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// BatchPath returns <dir>/<endpoint>_<YYYY_MM_DD_HHMMSS>.<ext>.
func (m *Manager) BatchPath(endpoint string, ts time.Time) string {
	return filepath.Join(m.outputDir, BatchName(endpoint, ts, m.ext))
}

// ActionLogPath returns the path of the action log.
func (m *Manager) ActionLogPath() string {
	return filepath.Join(m.outputDir, ActionLogName)
}

// BatchName formats a batch file name.
func BatchName(endpoint string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", endpoint, ts.Format(TimestampLayout), ext)
}

// ParseBatchName splits a batch file name into endpoint and timestamp.
// Endpoint ids may themselves contain underscores, so the timestamp is
// taken from the end.
func ParseBatchName(name, ext string) (string, time.Time, bool) {
	suffix := "." + ext
	if !strings.HasSuffix(name, suffix) {
		return "", time.Time{}, false
	}
	stem := strings.TrimSuffix(name, suffix)
	if len(stem) < len(TimestampLayout)+2 {
		return "", time.Time{}, false
	}
	cut := len(stem) - len(TimestampLayout)
	if stem[cut-1] != '_' {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, stem[cut:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:cut-1], ts, true
}

// Batches lists batch files in the output directory, oldest first.
func (m *Manager) Batches() ([]BatchFile, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var out []BatchFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		endpoint, ts, ok := ParseBatchName(entry.Name(), m.ext)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, BatchFile{
			Endpoint:  endpoint,
			Timestamp: ts,
			Path:      filepath.Join(m.outputDir, entry.Name()),
			Size:      info.Size(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Endpoint < out[j].Endpoint
	})
	return out, nil
}

// writeAtomic replaces path with data through a temporary file in the
// same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
