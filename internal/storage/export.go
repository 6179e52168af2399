package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rowhit/polypath/internal/config"
	"github.com/rowhit/polypath/internal/homotopy"
)

// ExportPath is one path in an export document. Complex values are written
// as [re, im] pairs.
type ExportPath struct {
	Index    int            `json:"index"`
	Verdict  string         `json:"verdict"`
	Phase    string         `json:"phase"`
	T        float64        `json:"t"`
	Steps    int            `json:"steps"`
	Rejected int            `json:"rejected"`
	Faults   int            `json:"faults"`
	Residual float64        `json:"residual"`
	Final    [][2]float64   `json:"final"`
	Times    []float64      `json:"times,omitempty"`
	Trace    [][][2]float64 `json:"trace,omitempty"`

	Metrics map[string]float64 `json:"metrics,omitempty"`
}

type ExportData struct {
	Name       string       `json:"name"`
	Gamma      [2]float64   `json:"gamma"`
	Integrator string       `json:"integrator"`
	Dt         float64      `json:"dt"`
	Tolerance  float64      `json:"tolerance"`
	Paths      []ExportPath `json:"paths"`
}

// ExportJSON writes a run as one indented JSON document. Traces are included
// when withTraces is set; endpoint data always is.
func ExportJSON(w io.Writer, cfg *config.Config, results []homotopy.PathResult, withTraces bool) error {
	data := ExportData{
		Name:       cfg.Name,
		Gamma:      cfg.Gamma,
		Integrator: cfg.Tracker.Integrator,
		Dt:         cfg.Tracker.Dt,
		Tolerance:  cfg.Tracker.Tolerance,
		Paths:      make([]ExportPath, len(results)),
	}

	for i, r := range results {
		p := ExportPath{
			Index:    r.Index,
			Verdict:  r.Verdict.String(),
			Phase:    r.Phase.String(),
			T:        r.T,
			Steps:    r.Steps,
			Rejected: r.Rejected,
			Faults:   r.Faults,
			Residual: r.Residual,
			Final:    make([][2]float64, len(r.Final)),
			Metrics:  r.Metrics,
		}
		for j, v := range r.Final {
			p.Final[j] = [2]float64{real(v), imag(v)}
		}
		if withTraces {
			p.Times = r.Times
			p.Trace = make([][][2]float64, len(r.States))
			for k, z := range r.States {
				row := make([][2]float64, len(z))
				for j, v := range z {
					row[j] = [2]float64{real(v), imag(v)}
				}
				p.Trace[k] = row
			}
		}
		data.Paths[i] = p
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportJSONFile is ExportJSON into a freshly created file.
func ExportJSONFile(path string, cfg *config.Config, results []homotopy.PathResult, withTraces bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportJSON(f, cfg, results, withTraces)
}

// ExportRun writes a stored run back out as the same document ExportJSON
// produces from live results. Paths whose trace file is missing export
// endpoint-only.
func (s *Store) ExportRun(w io.Writer, runID string, withTraces bool) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadPaths(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Name:       meta.Name,
		Gamma:      meta.Gamma,
		Integrator: meta.Integrator,
		Dt:         meta.Dt,
		Tolerance:  meta.Tolerance,
		Paths:      make([]ExportPath, len(records)),
	}
	for i, rec := range records {
		p := ExportPath{
			Index:    rec.Index,
			Verdict:  rec.Verdict,
			Phase:    rec.Phase,
			T:        rec.T,
			Steps:    rec.Steps,
			Rejected: rec.Rejected,
			Faults:   rec.Faults,
			Residual: rec.Residual,
			Final:    make([][2]float64, len(rec.Final)),
		}
		for j, v := range rec.Final {
			p.Final[j] = [2]float64{real(v), imag(v)}
		}
		if withTraces {
			states, times, err := s.LoadTrace(runID, rec.Index)
			if err == nil && len(states) > 0 {
				p.Times = times
				p.Trace = make([][][2]float64, len(states))
				for k, z := range states {
					row := make([][2]float64, len(z))
					for j, v := range z {
						row[j] = [2]float64{real(v), imag(v)}
					}
					p.Trace[k] = row
				}
			}
		}
		data.Paths[i] = p
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
