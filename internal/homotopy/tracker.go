package homotopy

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

// PathResult is the outcome of one tracked path. States and Times hold the
// accepted trajectory, one entry per step.
type PathResult struct {
	Index    int
	Verdict  track.Verdict
	Phase    track.Phase
	Final    zode.State
	T        float64
	Residual float64 // |F| at the final value
	Steps    int
	Rejected int
	Faults   int
	States   []zode.State
	Times    []float64
	Metrics  map[string]float64
	Elapsed  time.Duration
	Err      error
}

// pathModel is the slice of the path-model surface the driver reads back
// after a run.
type pathModel interface {
	zode.System
	Phase() track.Phase
	Verdict() track.Verdict
	Final() (zode.State, float64)
}

// Tracker follows every start point of a homotopy to t=1, one goroutine per
// worker. Each path gets its own model, integrator and metrics; only the
// homotopy itself is shared.
type Tracker struct {
	hom      *Homotopy
	pol      track.Policy
	factory  func() zode.Integrator
	metrics  []func() zode.Metric
	observe  func(idx int) zode.Observer
	workers  int
	implicit bool
}

// NewTracker wires a homotopy to an endgame policy and an integrator
// factory. The factory is invoked once per path.
func NewTracker(h *Homotopy, pol track.Policy, factory func() zode.Integrator) *Tracker {
	return &Tracker{
		hom:     h,
		pol:     pol,
		factory: factory,
		workers: runtime.NumCPU(),
	}
}

// SetWorkers bounds the number of paths tracked concurrently.
func (tr *Tracker) SetWorkers(n int) {
	if n > 0 {
		tr.workers = n
	}
}

// UseImplicitForm switches the per-path model to the implicit form, for
// integrators that handle the mass matrix themselves.
func (tr *Tracker) UseImplicitForm(on bool) { tr.implicit = on }

// AddMetric registers a per-path metric factory. Each path observes with a
// fresh instance so paths never share metric state.
func (tr *Tracker) AddMetric(f func() zode.Metric) {
	tr.metrics = append(tr.metrics, f)
}

// SetObserver installs a per-path observer factory, consulted once per path.
// A nil factory or a nil returned observer disables observation.
func (tr *Tracker) SetObserver(f func(idx int) zode.Observer) {
	tr.observe = f
}

// Run tracks all paths and returns one result per start point, in start
// order. A non-nil error reports cancellation, not path failures; those
// are carried per path in PathResult.
func (tr *Tracker) Run(ctx context.Context, cfg zode.Config) ([]PathResult, error) {
	n := tr.hom.Paths()
	results := make([]PathResult, n)
	for i := range results {
		results[i].Index = i
	}
	if n == 0 {
		return results, nil
	}

	workers := tr.workers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = tr.trackOne(ctx, idx, cfg)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results, ctx.Err()
}

func (tr *Tracker) trackOne(ctx context.Context, idx int, cfg zode.Config) PathResult {
	begin := time.Now()
	res := PathResult{Index: idx}

	var (
		model pathModel
		err   error
	)
	start := tr.hom.Start(idx)
	if tr.implicit {
		model, err = track.NewPathODE(tr.hom, start, tr.pol)
	} else {
		model, err = track.NewTangentODE(tr.hom, start, tr.pol)
	}
	if err != nil {
		res.Err = err
		res.Verdict = track.VerdictExhausted
		res.Elapsed = time.Since(begin)
		return res
	}

	sv := zode.New(model, tr.factory())
	for _, mf := range tr.metrics {
		sv.AddMetric(mf())
	}
	if tr.observe != nil {
		if o := tr.observe(idx); o != nil {
			sv.AddObserver(o)
		}
	}

	run, err := sv.Run(ctx, cfg)
	if run != nil {
		res.Steps = run.StepsTaken
		res.Rejected = run.Rejected
		res.Faults = run.Faults
		res.States = run.States
		res.Times = run.Times
		res.Metrics = run.Metrics
		if err == nil && len(run.Errors) > 0 {
			err = errors.Join(run.Errors...)
		}
	}
	res.Err = err

	final, t := model.Final()
	res.Final = final
	res.T = t
	res.Phase = model.Phase()
	res.Verdict = model.Verdict()
	res.Residual = tr.hom.TargetResidual(final)

	// A path that stopped without a verdict ran out of road, unless the
	// whole run was canceled out from under it.
	if res.Verdict == track.VerdictPending && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		res.Verdict = track.VerdictExhausted
	}
	res.Elapsed = time.Since(begin)
	return res
}
