// Package store exports played-back traces and keeps an archive of past
// runs on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
)

// Store archives runs under baseDir, one directory per run.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Session   string             `json:"session"`
	Timestamp time.Time          `json:"timestamp"`
	Quality   float64            `json:"quality"`
	Speed     float64            `json:"speed"`
	Samples   int                `json:"samples"`
	Stalls    int                `json:"stalls"`
	Summary   map[string]float64 `json:"summary"`
}

func (s *Store) Save(t *Trace) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", t.Model, now.UnixNano())
	if len(t.Session) >= 8 {
		runID = fmt.Sprintf("%s_%s", t.Model, t.Session[:8])
	}
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     t.Model,
		Session:   t.Session,
		Timestamp: now,
		Quality:   t.Quality,
		Speed:     t.Speed,
		Samples:   t.Len(),
		Stalls:    t.Stalls,
		Summary:   t.Summary,
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := ExportCSV(filepath.Join(runDir, framesFile), t); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns archived runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrace rebuilds the full trace of an archived run.
func (s *Store) LoadTrace(runID string) (*Trace, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	times, values, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}
	return &Trace{
		Model:   meta.Model,
		Session: meta.Session,
		Quality: meta.Quality,
		Speed:   meta.Speed,
		Times:   times,
		Values:  values,
		Summary: meta.Summary,
		Stalls:  meta.Stalls,
	}, nil
}
