// Package storage records simulated matches on disk, one directory per run
// holding metadata.json and telemetry.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/san-kum/robocore/internal/plant"
)

var ErrNoRun = errors.New("storage: no such run")

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
	ID         string             `json:"id"`
	Program    string             `json:"program"`
	Position   int                `json:"position"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	States     []string           `json:"states"`
	Completed  bool               `json:"completed"`
	Warnings   []string           `json:"warnings,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Columns is the telemetry.csv header.
var Columns = []string{
	"time", "x", "y", "heading", "pitch",
	"left", "right", "flywheel", "rpm", "conveyor",
	"path", "shots", "target_visible", "target_angle", "target_range",
}

// Save writes a run and returns its id. An empty meta.ID is filled with a
// fresh uuid.
func (s *Store) Save(meta RunMetadata, samples []plant.Sample) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeTelemetry(filepath.Join(runDir, "telemetry.csv"), samples); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTelemetry(path string, samples []plant.Sample) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return WriteCSV(f, samples)
}

// WriteCSV writes samples under the Columns header.
func WriteCSV(w io.Writer, samples []plant.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, s := range samples {
		visible := 0.0
		if s.Target.Visible {
			visible = 1
		}
		row := []float64{
			s.T, s.X, s.Y, s.Heading, s.Pitch,
			s.Left, s.Right, s.Flywheel, s.RPM, s.Conveyor,
			s.Path, float64(s.Shots), visible, s.Target.Angle, s.Target.Range,
		}
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns every readable run, newest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decoding %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// Telemetry is a run's telemetry table.
type Telemetry struct {
	Columns []string
	Rows    [][]float64
}

// Column returns the named column, or nil.
func (t *Telemetry) Column(name string) []float64 {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if idx < len(r) {
			out = append(out, r[idx])
		}
	}
	return out
}

func (s *Store) LoadTelemetry(runID string) (*Telemetry, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "telemetry.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Telemetry{}, nil
	}

	t := &Telemetry{Columns: records[0], Rows: make([][]float64, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make([]float64, 0, len(rec))
		for _, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				v = 0
			}
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// TelemetryPath is where a run's CSV lives.
func (s *Store) TelemetryPath(runID string) string {
	return filepath.Join(s.baseDir, runID, "telemetry.csv")
}
