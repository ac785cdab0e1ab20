// Package storage persists finished assimilation runs: one directory per
// run holding a metadata.json summary and a cycles.csv table of per-window
// diagnostics.
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

	"github.com/san-kum/ensda/internal/config"
	"github.com/san-kum/ensda/internal/experiment"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata summarizes one stored run.
type RunMetadata struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Seed       uint64    `json:"seed"`
	Nsamples   int       `json:"nsamples"`
	DtInterval float64   `json:"dt_interval"`
	DaInterval float64   `json:"da_interval"`
	TEnd       float64   `json:"t_end"`
	Integrator string    `json:"integrator"`
	Estimated  []string  `json:"estimated"`
	Cycles     int       `json:"cycles"`
	MeanRMSE   float64   `json:"mean_rmse"`
	MaxRMSE    float64   `json:"max_rmse"`
}

// Save stores a finished run and returns its id. Run ids carry a nanosecond
// stamp so scripted back-to-back runs never collide.
func (s *Store) Save(cfg *config.Config, estimated []string, result *experiment.Result) (string, error) {
	runID := fmt.Sprintf("lorenz63_%d", time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Timestamp:  time.Now(),
		Seed:       cfg.Run.Seed,
		Nsamples:   cfg.Run.Nsamples,
		DtInterval: cfg.Model.DtInterval,
		DaInterval: cfg.Run.DaInterval,
		TEnd:       cfg.Run.TEnd,
		Integrator: cfg.Run.Integrator,
		Estimated:  estimated,
		Cycles:     len(result.Cycles),
		MeanRMSE:   result.MeanRMSE,
		MaxRMSE:    result.MaxRMSE,
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

	if err := s.writeCycles(runDir, estimated, result.Cycles); err != nil {
		return "", err
	}
	return runID, nil
}

// writeCycles lays the diagnostics out one row per window: time, rmse, the
// ensemble mean and spread per state row, then the served observation and its
// noise variances.
func (s *Store) writeCycles(runDir string, estimated []string, cycles []experiment.Cycle) error {
	f, err := os.Create(filepath.Join(runDir, "cycles.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	rows := append([]string{"x", "y", "z"}, estimated...)
	header := []string{"time", "rmse"}
	for _, name := range rows {
		header = append(header, "mean_"+name)
	}
	for _, name := range rows {
		header = append(header, "spread_"+name)
	}
	header = append(header, "obs_x", "obs_y", "obs_z", "var_x", "var_y", "var_z")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, c := range cycles {
		row := []string{
			strconv.FormatFloat(c.Time, 'f', 6, 64),
			strconv.FormatFloat(c.RMSE, 'g', -1, 64),
		}
		for _, v := range c.Mean {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range c.Spread {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range c.Obs {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range c.NoiseVar {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if len(row) != len(header) {
			return fmt.Errorf("storage: cycle %d has %d columns, header has %d", c.Index, len(row), len(header))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns the stored runs, newest first. Directories without readable
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

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadCycles reads a run's diagnostics back as the column header and one
// numeric row per assimilation window.
func (s *Store) LoadCycles(runID string) ([]string, [][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "cycles.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("storage: %s: empty cycles table", runID)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		row := make([]float64, len(records[i]))
		for j, field := range records[i] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: %s: row %d column %q: %w", runID, i, header[j], err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// Column extracts one named series from a cycles table.
func Column(header []string, rows [][]float64, name string) ([]float64, bool) {
	idx := -1
	for j, h := range header {
		if h == name {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		if idx >= len(row) {
			return nil, false
		}
		out[i] = row[idx]
	}
	return out, true
}
