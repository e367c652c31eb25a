package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/kdelattre/orbitflow/internal/phase"
	"github.com/kdelattre/orbitflow/internal/solver"
)

// Store persists runs as one directory per run: metadata.json plus
// trajectory.csv.
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
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Algorithm string    `json:"algorithm"`
	Dt        float64   `json:"dt"`
	Duration  float64   `json:"duration"`
	Samples   int       `json:"samples"`
}

// Save writes one trajectory with its metadata and returns the run ID.
func (s *Store) Save(model, algorithm string, dt, duration float64, tr *solver.Trajectory) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     model,
		Timestamp: time.Now(),
		Algorithm: algorithm,
		Dt:        dt,
		Duration:  duration,
		Samples:   len(tr.Times),
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "trajectory.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()
	w := csv.NewWriter(csvFile)
	defer w.Flush()

	dim := len(tr.States[0])
	header := make([]string, 1+dim)
	header[0] = "t"
	for i := 0; i < dim; i++ {
		header[i+1] = fmt.Sprintf("x%d", i)
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, t := range tr.Times {
		row := make([]string, 1+dim)
		row[0] = strconv.FormatFloat(t, 'g', 17, 64)
		for j, v := range tr.States[i] {
			row[j+1] = strconv.FormatFloat(v, 'g', 17, 64)
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// List returns all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	runs := make([]RunMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.loadMeta(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) loadMeta(runID string) (RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return RunMetadata{}, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return RunMetadata{}, err
	}
	return meta, nil
}

// Load reads back one stored trajectory with its metadata.
func (s *Store) Load(runID string) (RunMetadata, *solver.Trajectory, error) {
	meta, err := s.loadMeta(runID)
	if err != nil {
		return RunMetadata{}, nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return RunMetadata{}, nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return RunMetadata{}, nil, err
	}
	if len(rows) < 2 {
		return RunMetadata{}, nil, fmt.Errorf("storage: run %s has no samples", runID)
	}

	tr := &solver.Trajectory{
		Times:  make([]float64, 0, len(rows)-1),
		States: make([]phase.State, 0, len(rows)-1),
	}
	for _, row := range rows[1:] {
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return RunMetadata{}, nil, err
		}
		x := make(phase.State, len(row)-1)
		for j, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return RunMetadata{}, nil, err
			}
			x[j] = v
		}
		tr.Times = append(tr.Times, t)
		tr.States = append(tr.States, x)
	}

	return meta, tr, nil
}
