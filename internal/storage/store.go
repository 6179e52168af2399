package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rowhit/polypath/internal/config"
	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

// Store writes one directory per run under baseDir: metadata.json with the
// run header, paths.csv with one row per path endpoint, and trace_<k>.csv
// with the accepted trajectory of path k.
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
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Timestamp  time.Time  `json:"timestamp"`
	Gamma      [2]float64 `json:"gamma"`
	Integrator string     `json:"integrator"`
	Dt         float64    `json:"dt"`
	Tolerance  float64    `json:"tolerance"`
	Paths      int        `json:"paths"`
	Converged  int        `json:"converged"`
	Diverged   int        `json:"diverged"`
	Exhausted  int        `json:"exhausted"`
}

// PathRecord is one parsed row of paths.csv.
type PathRecord struct {
	Index    int
	Verdict  string
	Phase    string
	T        float64
	Steps    int
	Rejected int
	Faults   int
	Residual float64
	Final    zode.State
}

// Save writes a finished run and returns its ID.
func (s *Store) Save(cfg *config.Config, results []homotopy.PathResult) (string, error) {
	runID := fmt.Sprintf("%s_%d", cfg.Name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       cfg.Name,
		Timestamp:  time.Now(),
		Gamma:      cfg.Gamma,
		Integrator: cfg.Tracker.Integrator,
		Dt:         cfg.Tracker.Dt,
		Tolerance:  cfg.Tracker.Tolerance,
		Paths:      len(results),
	}
	for _, r := range results {
		switch r.Verdict {
		case track.VerdictConverged:
			meta.Converged++
		case track.VerdictDiverged:
			meta.Diverged++
		case track.VerdictExhausted:
			meta.Exhausted++
		}
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

	if err := s.writePaths(runDir, results); err != nil {
		return "", err
	}
	h := compileHomotopy(cfg)
	for _, r := range results {
		if err := s.writeTrace(runDir, r, traceResiduals(h, r)); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// compileHomotopy rebuilds the deformation from the configuration so traces
// can carry |H| alongside each accepted point. Returns nil when the
// configuration does not compile; traces are then written without residuals.
func compileHomotopy(cfg *config.Config) *homotopy.Homotopy {
	target, err := cfg.TargetSystem()
	if err != nil {
		return nil
	}
	start, err := cfg.StartPolySystem()
	if err != nil {
		return nil
	}
	h, err := homotopy.New(target, start, cfg.Gamma.Value(), cfg.StartStates())
	if err != nil {
		return nil
	}
	return h
}

func traceResiduals(h *homotopy.Homotopy, r homotopy.PathResult) []float64 {
	if h == nil || len(r.States) == 0 || len(r.Times) != len(r.States) {
		return nil
	}
	out := make([]float64, len(r.States))
	dst := make(zode.State, h.Dimension())
	for i, z := range r.States {
		if len(z) != h.Dimension() || h.Eval(dst, z, r.Times[i]) != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = dst.Norm()
	}
	return out
}

func (s *Store) writePaths(runDir string, results []homotopy.PathResult) error {
	f, err := os.Create(filepath.Join(runDir, "paths.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(results) == 0 {
		return nil
	}

	header := []string{"path", "verdict", "phase", "t", "steps", "rejected", "faults", "residual"}
	for i := range results[0].Final {
		header = append(header, fmt.Sprintf("z%d_re", i), fmt.Sprintf("z%d_im", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Index),
			r.Verdict.String(),
			r.Phase.String(),
			formatFloat(r.T),
			strconv.Itoa(r.Steps),
			strconv.Itoa(r.Rejected),
			strconv.Itoa(r.Faults),
			formatFloat(r.Residual),
		}
		for _, v := range r.Final {
			row = append(row, formatFloat(real(v)), formatFloat(imag(v)))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func (s *Store) writeTrace(runDir string, r homotopy.PathResult, residuals []float64) error {
	if len(r.States) == 0 {
		return nil
	}
	f, err := os.Create(filepath.Join(runDir, fmt.Sprintf("trace_%d.csv", r.Index)))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"t"}
	for i := range r.States[0] {
		header = append(header, fmt.Sprintf("z%d_re", i), fmt.Sprintf("z%d_im", i))
	}
	if residuals != nil {
		header = append(header, "residual")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, z := range r.States {
		row := []string{formatFloat(r.Times[i])}
		for _, v := range z {
			row = append(row, formatFloat(real(v)), formatFloat(imag(v)))
		}
		if residuals != nil {
			row = append(row, formatFloat(residuals[i]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

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

// LoadPaths reads back the endpoint table of a run.
func (s *Store) LoadPaths(runID string) ([]PathRecord, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "paths.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []PathRecord{}, nil
	}

	const fixed = 8 // columns before the endpoint components
	paths := make([]PathRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < fixed {
			continue
		}
		var p PathRecord
		p.Index, _ = strconv.Atoi(rec[0])
		p.Verdict = rec[1]
		p.Phase = rec[2]
		p.T, _ = strconv.ParseFloat(rec[3], 64)
		p.Steps, _ = strconv.Atoi(rec[4])
		p.Rejected, _ = strconv.Atoi(rec[5])
		p.Faults, _ = strconv.Atoi(rec[6])
		p.Residual, _ = strconv.ParseFloat(rec[7], 64)
		for j := fixed; j+1 < len(rec); j += 2 {
			re, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				break
			}
			im, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				break
			}
			p.Final = append(p.Final, complex(re, im))
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// LoadTrace reads the accepted trajectory of one path of a run.
func (s *Store) LoadTrace(runID string, path int) ([]zode.State, []float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, fmt.Sprintf("trace_%d.csv", path)))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []zode.State{}, []float64{}, nil
	}

	states := make([]zode.State, 0, len(records)-1)
	times := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 3 {
			continue
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			continue
		}
		z := make(zode.State, 0, (len(rec)-1)/2)
		for j := 1; j+1 < len(rec); j += 2 {
			re, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				break
			}
			im, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				break
			}
			z = append(z, complex(re, im))
		}
		times = append(times, t)
		states = append(states, z)
	}
	return states, times, nil
}

// LoadResidual reads the |H| column of one path's trace. Runs written by a
// configuration that failed to recompile have no residual column.
func (s *Store) LoadResidual(runID string, path int) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, fmt.Sprintf("trace_%d.csv", path)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []float64{}, nil
	}

	col := -1
	for j, name := range records[0] {
		if name == "residual" {
			col = j
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("no residual column in trace %d of %s", path, runID)
	}

	out := make([]float64, 0, len(records)-1)
	for _, rec := range records[1:] {
		if col >= len(rec) {
			continue
		}
		v, err := strconv.ParseFloat(rec[col], 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// formatFloat keeps full round-trip precision, unlike a fixed decimal count.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
