package homotopy

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/poly"
	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

func mustSystem(t *testing.T, n int, polys ...poly.Polynomial) poly.System {
	t.Helper()
	s, err := poly.NewSystem(n, polys...)
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	return s
}

// quad builds the univariate polynomial z^2 - c.
func quad(t *testing.T, c complex128) poly.System {
	t.Helper()
	return mustSystem(t, 1, poly.Polynomial{Terms: []poly.Term{
		{Coeff: 1, Powers: []int{2}},
		{Coeff: -c, Powers: []int{0}},
	}})
}

// pair builds the bivariate system {z0^2 + z1 - 3, z0*z1 - 2} with the root
// (1, 2).
func pair(t *testing.T) poly.System {
	t.Helper()
	return mustSystem(t, 2,
		poly.Polynomial{Terms: []poly.Term{
			{Coeff: 1, Powers: []int{2, 0}},
			{Coeff: 1, Powers: []int{0, 1}},
			{Coeff: -3, Powers: []int{0, 0}},
		}},
		poly.Polynomial{Terms: []poly.Term{
			{Coeff: 1, Powers: []int{1, 1}},
			{Coeff: -2, Powers: []int{0, 0}},
		}},
	)
}

// pairStart is the total-degree start system {z0^2 - 1, z1^2 - 1}.
func pairStart(t *testing.T) poly.System {
	t.Helper()
	return mustSystem(t, 2,
		poly.Polynomial{Terms: []poly.Term{
			{Coeff: 1, Powers: []int{2, 0}},
			{Coeff: -1, Powers: []int{0, 0}},
		}},
		poly.Polynomial{Terms: []poly.Term{
			{Coeff: 1, Powers: []int{0, 2}},
			{Coeff: -1, Powers: []int{0, 0}},
		}},
	)
}

const testGamma = 0.6 + 0.8i

func TestNewValidation(t *testing.T) {
	f := quad(t, 4)
	g := quad(t, 1)

	tests := []struct {
		name    string
		target  poly.System
		start   poly.System
		gamma   complex128
		starts  []zode.State
		wantErr bool
	}{
		{"valid", f, g, testGamma, []zode.State{{1}, {-1}}, false},
		{"no start points", f, g, testGamma, nil, false},
		{"zero gamma", f, g, 0, []zode.State{{1}}, true},
		{"dimension mismatch", pair(t), g, testGamma, nil, true},
		{"bad start point", f, g, testGamma, []zode.State{{1, 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.target, tt.start, tt.gamma, tt.starts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvalEndpoints(t *testing.T) {
	h, err := New(pair(t), pairStart(t), testGamma, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	z := zode.State{0.5 + 0.25i, -1.5}
	got := make(zode.State, 2)
	want := make(zode.State, 2)

	if err := h.Eval(got, z, 0); err != nil {
		t.Fatalf("Eval at t=0: %v", err)
	}
	if err := h.StartSystem().Eval(want, z); err != nil {
		t.Fatalf("start eval: %v", err)
	}
	for i := range got {
		if cmplx.Abs(got[i]-testGamma*want[i]) > 1e-14 {
			t.Errorf("H(z,0)[%d] = %v, want gamma*G = %v", i, got[i], testGamma*want[i])
		}
	}

	if err := h.Eval(got, z, 1); err != nil {
		t.Fatalf("Eval at t=1: %v", err)
	}
	if err := h.Target().Eval(want, z); err != nil {
		t.Fatalf("target eval: %v", err)
	}
	for i := range got {
		if cmplx.Abs(got[i]-want[i]) > 1e-14 {
			t.Errorf("H(z,1)[%d] = %v, want F = %v", i, got[i], want[i])
		}
	}
}

func TestTDerivativeFiniteDifference(t *testing.T) {
	h, err := New(pair(t), pairStart(t), testGamma, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	z := zode.State{0.8 - 0.3i, 1.2 + 0.1i}
	const at, step = 0.37, 1e-6

	want := make(zode.State, 2)
	if err := h.TDerivative(want, z, at); err != nil {
		t.Fatalf("TDerivative: %v", err)
	}

	hi := make(zode.State, 2)
	lo := make(zode.State, 2)
	if err := h.Eval(hi, z, at+step); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if err := h.Eval(lo, z, at-step); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	for i := range want {
		fd := (hi[i] - lo[i]) / complex(2*step, 0)
		if cmplx.Abs(fd-want[i]) > 1e-8 {
			t.Errorf("dH/dt[%d] = %v, finite difference %v", i, want[i], fd)
		}
	}
}

func TestJacobianFiniteDifference(t *testing.T) {
	h, err := New(pair(t), pairStart(t), testGamma, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	z := zode.State{0.9 + 0.4i, -0.7 + 0.2i}
	const at, step = 0.61, 1e-6

	jac := linalg.NewDense(2)
	if err := h.Jacobian(jac, z, at); err != nil {
		t.Fatalf("Jacobian: %v", err)
	}

	hi := make(zode.State, 2)
	lo := make(zode.State, 2)
	for j := 0; j < 2; j++ {
		zp := z.Clone()
		zm := z.Clone()
		zp[j] += complex(step, 0)
		zm[j] -= complex(step, 0)
		if err := h.Eval(hi, zp, at); err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if err := h.Eval(lo, zm, at); err != nil {
			t.Fatalf("Eval: %v", err)
		}
		for i := 0; i < 2; i++ {
			fd := (hi[i] - lo[i]) / complex(2*step, 0)
			if cmplx.Abs(fd-jac.At(i, j)) > 1e-8 {
				t.Errorf("J[%d][%d] = %v, finite difference %v", i, j, jac.At(i, j), fd)
			}
		}
	}
}

func TestMixedJacobianFiniteDifference(t *testing.T) {
	h, err := New(pair(t), pairStart(t), testGamma, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	z := zode.State{1.1 - 0.2i, 0.3 + 0.6i}
	const at, step = 0.25, 1e-6

	mixed := linalg.NewDense(2)
	if err := h.MixedJacobian(mixed, z, at); err != nil {
		t.Fatalf("MixedJacobian: %v", err)
	}

	hi := make(zode.State, 2)
	lo := make(zode.State, 2)
	for j := 0; j < 2; j++ {
		zp := z.Clone()
		zm := z.Clone()
		zp[j] += complex(step, 0)
		zm[j] -= complex(step, 0)
		if err := h.TDerivative(hi, zp, at); err != nil {
			t.Fatalf("TDerivative: %v", err)
		}
		if err := h.TDerivative(lo, zm, at); err != nil {
			t.Fatalf("TDerivative: %v", err)
		}
		for i := 0; i < 2; i++ {
			fd := (hi[i] - lo[i]) / complex(2*step, 0)
			if cmplx.Abs(fd-mixed.At(i, j)) > 1e-8 {
				t.Errorf("mixed[%d][%d] = %v, finite difference %v", i, j, mixed.At(i, j), fd)
			}
		}
	}
}

func TestTargetResidual(t *testing.T) {
	h, err := New(pair(t), pairStart(t), testGamma, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if r := h.TargetResidual(zode.State{1, 2}); r > 1e-14 {
		t.Errorf("residual at a root = %g, want ~0", r)
	}
	if r := h.TargetResidual(zode.State{0, 0}); r < 1 {
		t.Errorf("residual away from roots = %g, want > 1", r)
	}
}

func TestThresholdPolicy(t *testing.T) {
	tests := []struct {
		name  string
		pol   ThresholdPolicy
		snap  track.Snapshot
		enter bool
		want  track.Verdict
	}{
		{
			"enters past the t threshold",
			ThresholdPolicy{EnterT: 0.9},
			track.Snapshot{T: 0.95},
			true, track.VerdictPending,
		},
		{
			"stays before the t threshold",
			ThresholdPolicy{EnterT: 0.9},
			track.Snapshot{T: 0.5},
			false, track.VerdictPending,
		},
		{
			"enters on collapsing steps",
			ThresholdPolicy{MinStep: 1e-6},
			track.Snapshot{T: 0.5, Dt: 1e-8},
			true, track.VerdictPending,
		},
		{
			"enters on runaway speed",
			ThresholdPolicy{SpeedLimit: 100},
			track.Snapshot{T: 0.5, Speed: 1e4},
			true, track.VerdictPending,
		},
		{
			"ignores an unknown speed",
			ThresholdPolicy{SpeedLimit: 100},
			track.Snapshot{T: 0.5, Speed: math.NaN()},
			false, track.VerdictPending,
		},
		{
			"diverges on norm blowup",
			ThresholdPolicy{DivergeNorm: 10},
			track.Snapshot{T: 0.5, Z: zode.State{100}},
			false, track.VerdictDiverged,
		},
		{
			"exhausts the endgame budget",
			ThresholdPolicy{MaxEndgame: 3},
			track.Snapshot{T: 0.95, EndgameSteps: 3},
			false, track.VerdictExhausted,
		},
		{
			"converges on a clean final step",
			ThresholdPolicy{ResidualTol: 1e-6},
			track.Snapshot{T: 1, Final: true, Residual: 1e-9},
			false, track.VerdictConverged,
		},
		{
			"rejects a dirty final step",
			ThresholdPolicy{ResidualTol: 1e-6},
			track.Snapshot{T: 1, Final: true, Residual: 1e-3},
			false, track.VerdictExhausted,
		},
		{
			"rejects an unevaluable final step",
			ThresholdPolicy{ResidualTol: 1e-6},
			track.Snapshot{T: 1, Final: true, Residual: math.NaN()},
			false, track.VerdictExhausted,
		},
		{
			"keeps going mid-path",
			*DefaultPolicy(),
			track.Snapshot{T: 0.5, Dt: 0.01, Residual: 1e-9, Z: zode.State{1}},
			false, track.VerdictPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pol.EnterEndgame(tt.snap); got != tt.enter {
				t.Errorf("EnterEndgame() = %v, want %v", got, tt.enter)
			}
			if got := tt.pol.Judge(tt.snap); got != tt.want {
				t.Errorf("Judge() = %v, want %v", got, tt.want)
			}
		})
	}
}
