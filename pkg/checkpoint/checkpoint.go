package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"simcollect/pkg/logger"
)

// ManifestName is the manifest file kept in the output directory.
const ManifestName = ".simcollect-session.json"

// manifestVersion is bumped when the manifest layout changes.
const manifestVersion = 1

// FlushRecord describes one batch written (or not) during a session.
type FlushRecord struct {
	Endpoint string    `json:"endpoint"`
	Path     string    `json:"path"`
	Reason   string    `json:"reason"`
	Records  int       `json:"records"`
	Written  int       `json:"written"`
	Degraded bool      `json:"degraded,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Manifest is the state of the most recent collection session in a
// directory.
type Manifest struct {
	RunID         string        `json:"run_id"`
	Endpoints     []string      `json:"endpoints"`
	State         string        `json:"state"`
	Cycles        int           `json:"cycles"`
	FetchFailures int           `json:"fetch_failures"`
	Pending       int           `json:"pending"`
	Flushes       []FlushRecord `json:"flushes"`
	StartedAt     time.Time     `json:"started_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	Version       int           `json:"version"`
}

// Written returns the number of records persisted across all flushes.
func (m *Manifest) Written() int {
	total := 0
	for _, f := range m.Flushes {
		total += f.Written
	}
	return total
}

// Failed returns the flushes that did not complete.
func (m *Manifest) Failed() []FlushRecord {
	var out []FlushRecord
	for _, f := range m.Flushes {
		if f.Error != "" {
			out = append(out, f)
		}
	}
	return out
}

// Manager handles manifest persistence
type Manager struct {
	path   string
	logger logger.Logger
	now    func() time.Time
}

// NewManager creates a manager for the manifest in dir
func NewManager(dir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		path:   filepath.Join(dir, ManifestName),
		logger: log,
		now:    time.Now,
	}
}

// Path returns the manifest location
func (m *Manager) Path() string {
	return m.path
}

// Load reads the manifest. It returns nil without error when none exists.
func (m *Manager) Load() (*Manifest, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", m.path, err)
	}
	if manifest.Version > manifestVersion {
		return nil, fmt.Errorf("manifest %s has unsupported version %d", m.path, manifest.Version)
	}
	return &manifest, nil
}

// Save writes the manifest atomically
func (m *Manager) Save(manifest *Manifest) error {
	manifest.UpdatedAt = m.now()
	manifest.Version = manifestVersion

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ManifestName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary manifest file: %w", err)
	}
	tempPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	m.logger.DebugWithFields("Manifest saved", map[string]interface{}{
		"run_id": manifest.RunID,
		"state":  manifest.State,
		"cycles": manifest.Cycles,
	})
	return nil
}

// Delete removes the manifest file
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	return nil
}

// Exists checks if a manifest file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.path)
	return err == nil
}
