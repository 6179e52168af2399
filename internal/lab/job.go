package lab

import (
	"context"
	"time"

	"github.com/rowhit/polypath/internal/config"
	"github.com/rowhit/polypath/internal/homotopy"
	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

// Job is one configured tracking run: the compiled homotopy plus a tracker
// wired with the configured integrator, policy and metrics.
type Job struct {
	cfg     *config.Config
	hom     *homotopy.Homotopy
	tracker *homotopy.Tracker
}

// Summary aggregates the verdicts of a finished run.
type Summary struct {
	Total     int
	Converged int
	Diverged  int
	Exhausted int
	Pending   int
	Elapsed   time.Duration
}

// New compiles cfg into a runnable job. The configuration is validated, both
// systems are compiled, and the integrator name is resolved against the
// registry.
func New(cfg *config.Config) (*Job, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target, err := cfg.TargetSystem()
	if err != nil {
		return nil, err
	}
	start, err := cfg.StartPolySystem()
	if err != nil {
		return nil, err
	}
	hom, err := homotopy.New(target, start, cfg.Gamma.Value(), cfg.StartStates())
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	factory, implicit, err := reg.GetIntegrator(cfg.Tracker.Integrator)
	if err != nil {
		return nil, err
	}

	tr := homotopy.NewTracker(hom, cfg.Policy(), factory)
	tr.SetWorkers(cfg.Tracker.Workers)
	tr.UseImplicitForm(implicit)
	for _, m := range reg.DefaultMetrics(hom) {
		tr.AddMetric(m)
	}

	return &Job{cfg: cfg, hom: hom, tracker: tr}, nil
}

func (j *Job) Homotopy() *homotopy.Homotopy { return j.hom }

func (j *Job) Config() *config.Config { return j.cfg }

// SetObserver forwards a per-path observer factory to the tracker, used by
// the live view.
func (j *Job) SetObserver(f func(idx int) zode.Observer) {
	j.tracker.SetObserver(f)
}

// Run tracks every path and aggregates the verdicts. The results slice is
// returned even when ctx was canceled mid-run; err then reports the cause.
func (j *Job) Run(ctx context.Context) ([]homotopy.PathResult, Summary, error) {
	begin := time.Now()
	results, err := j.tracker.Run(ctx, j.cfg.SolverConfig())
	sum := Summarize(results)
	sum.Elapsed = time.Since(begin)
	return results, sum, err
}

// Summarize counts verdicts without touching Elapsed.
func Summarize(results []homotopy.PathResult) Summary {
	sum := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Verdict {
		case track.VerdictConverged:
			sum.Converged++
		case track.VerdictDiverged:
			sum.Diverged++
		case track.VerdictExhausted:
			sum.Exhausted++
		default:
			sum.Pending++
		}
	}
	return sum
}
