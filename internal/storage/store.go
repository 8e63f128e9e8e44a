package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/pendsim/internal/config"
	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/pendulum"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var csvHeader = []string{
	"step", "time",
	"theta1", "theta2", "omega1", "omega2",
	"x1", "y1", "x2", "y2",
	"energy",
}

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
	ID          string                `json:"id"`
	Preset      string                `json:"preset"`
	Timestamp   time.Time             `json:"timestamp"`
	Params      config.PendulumConfig `json:"params"`
	Sim         config.SimConfig      `json:"sim"`
	Steps       int                   `json:"steps"`
	EnergyDrift float64               `json:"energy_drift"`
	Metrics     map[string]float64    `json:"metrics"`
	Errors      []string              `json:"errors,omitempty"`
}

// Save writes a run directory holding metadata.json and states.csv. Tip
// positions and energy are derived from cfg's rods for every recorded state.
func (s *Store) Save(preset string, cfg *config.Config, result *dynamo.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", preset, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Preset:      preset,
		Timestamp:   now,
		Params:      cfg.Pendulum,
		Sim:         cfg.Sim,
		Steps:       result.StepsTaken,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	if err := s.writeStates(filepath.Join(runDir, statesFile), cfg, result); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *Store) writeStates(path string, cfg *config.Config, result *dynamo.Result) error {
	p, err := cfg.State()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for i, x := range result.States {
		if err := p.SetVector(x); err != nil {
			return fmt.Errorf("state %d: %w", i, err)
		}
		_, baseTip, endTip := pendulum.Positions(p)

		row := []string{strconv.Itoa(i), formatFloat(result.Times[i])}
		for _, v := range x {
			row = append(row, formatFloat(v))
		}
		row = append(row,
			formatFloat(baseTip.X), formatFloat(baseTip.Y),
			formatFloat(endTip.X), formatFloat(endTip.Y),
			formatFloat(pendulum.Energy(p, cfg.Sim.Gravity)),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatFloat uses the shortest exact representation so that LoadStates
// returns the states that were saved.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run under the store, oldest first.
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
		return runs[i].Timestamp.Before(runs[j].Timestamp)
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
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	return &meta, nil
}

// LoadStates reads back the [θ1, θ2, ω1, ω2] vectors and their times.
// The derived position and energy columns are ignored.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)

	for i, record := range records[1:] {
		vals := make([]float64, 5)
		for j := range vals {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s row %d: %w", runID, i+1, err)
			}
			vals[j] = v
		}
		times = append(times, vals[0])
		states = append(states, dynamo.State(vals[1:]))
	}

	return states, times, nil
}

// ExportJSON writes a run's metadata and trajectory as one JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}

	data := struct {
		*RunMetadata
		Times  []float64      `json:"times"`
		States []dynamo.State `json:"states"`
	}{meta, times, states}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
