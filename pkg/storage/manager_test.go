package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	m, err := NewManager(dir, "")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, m.OutputDir())
	assert.Equal(t, filepath.Join(dir, "log.txt"), m.ActionLogPath())
}

func TestBatchPath(t *testing.T) {
	m, err := NewManager(t.TempDir(), ".txt")
	require.NoError(t, err)

	ts := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	assert.Equal(t, filepath.Join(m.OutputDir(), "R2_H_2024_03_09_070502.txt"), m.BatchPath("R2_H", ts))

	def, err := NewManager(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "EN_2024_03_09_070502.jsonl", filepath.Base(def.BatchPath("EN", ts)))
}

func TestParseBatchName(t *testing.T) {
	endpoint, ts, ok := ParseBatchName("R2_X_2024_12_31_235959.jsonl", "jsonl")
	require.True(t, ok)
	assert.Equal(t, "R2_X", endpoint)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local), ts)

	for _, name := range []string{
		"log.txt",
		"EN_2024_12_31_235959.txt",
		"EN2024_12_31_235959.jsonl",
		"_2024_12_31_235959.jsonl",
		"EN_2024_13_31_235959.jsonl",
	} {
		_, _, ok := ParseBatchName(name, "jsonl")
		assert.False(t, ok, name)
	}
}

func TestBatches(t *testing.T) {
	m, err := NewManager(t.TempDir(), "jsonl")
	require.NoError(t, err)

	later := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	earlier := later.Add(-time.Hour)
	for _, p := range []string{
		m.BatchPath("ZH", later),
		m.BatchPath("EN", later),
		m.BatchPath("EN", earlier),
		m.ActionLogPath(),
	} {
		require.NoError(t, os.WriteFile(p, []byte("{}\n"), 0644))
	}

	batches, err := m.Batches()
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, "EN", batches[0].Endpoint)
	assert.True(t, batches[0].Timestamp.Equal(earlier))
	assert.Equal(t, "EN", batches[1].Endpoint)
	assert.Equal(t, "ZH", batches[2].Endpoint)
	assert.Equal(t, int64(3), batches[2].Size)
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EN_2024_01_01_000000.jsonl")

	require.NoError(t, writeAtomic(path, []byte("one\n")))
	require.NoError(t, writeAtomic(path, []byte("two\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
