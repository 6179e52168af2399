package track_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rowhit/polypath/internal/integrators"
	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/track"
	"github.com/rowhit/polypath/internal/zode"
)

// lineProblem is H(z,t) = z - a(1-t) - bt per component. The exact path is
// the straight line from a to b and the Jacobian is the identity.
type lineProblem struct {
	a, b zode.State
}

func (p *lineProblem) Dimension() int { return len(p.a) }

func (p *lineProblem) Eval(dst, z zode.State, t float64) error {
	for i := range dst {
		dst[i] = z[i] - p.a[i]*complex(1-t, 0) - p.b[i]*complex(t, 0)
	}
	return nil
}

func (p *lineProblem) TDerivative(dst, z zode.State, t float64) error {
	for i := range dst {
		dst[i] = p.a[i] - p.b[i]
	}
	return nil
}

func (p *lineProblem) Jacobian(dst *linalg.Dense, z zode.State, t float64) error {
	dst.Zero()
	for i := 0; i < len(p.a); i++ {
		dst.Set(i, i, 1)
	}
	return nil
}

func (p *lineProblem) MixedJacobian(dst *linalg.Dense, z zode.State, t float64) error {
	dst.Zero()
	return nil
}

// cubicProblem deforms the start system z^2-1 into the target z^3-c. Its
// t-derivative depends on z, which exercises the mixed Jacobian.
type cubicProblem struct {
	target complex128
}

func (p *cubicProblem) Dimension() int { return 1 }

func (p *cubicProblem) Eval(dst, z zode.State, t float64) error {
	g := z[0]*z[0] - 1
	f := z[0]*z[0]*z[0] - p.target
	dst[0] = complex(1-t, 0)*g + complex(t, 0)*f
	return nil
}

func (p *cubicProblem) TDerivative(dst, z zode.State, t float64) error {
	dst[0] = (z[0]*z[0]*z[0] - p.target) - (z[0]*z[0] - 1)
	return nil
}

func (p *cubicProblem) Jacobian(dst *linalg.Dense, z zode.State, t float64) error {
	dst.Set(0, 0, complex(1-t, 0)*2*z[0]+complex(t, 0)*3*z[0]*z[0])
	return nil
}

func (p *cubicProblem) MixedJacobian(dst *linalg.Dense, z zode.State, t float64) error {
	dst.Set(0, 0, 3*z[0]*z[0]-2*z[0])
	return nil
}

// singularProblem has a rank-deficient Jacobian everywhere, so every
// tangent solve fails.
type singularProblem struct{}

func (singularProblem) Dimension() int { return 2 }

func (singularProblem) Eval(dst, z zode.State, t float64) error {
	dst[0], dst[1] = 0, 0
	return nil
}

func (singularProblem) TDerivative(dst, z zode.State, t float64) error {
	dst[0], dst[1] = 1, 1
	return nil
}

func (singularProblem) Jacobian(dst *linalg.Dense, z zode.State, t float64) error {
	dst.Set(0, 0, 1)
	dst.Set(0, 1, 1)
	dst.Set(1, 0, 1)
	dst.Set(1, 1, 1)
	return nil
}

func (singularProblem) MixedJacobian(dst *linalg.Dense, z zode.State, t float64) error {
	dst.Zero()
	return nil
}

// stubPolicy is a scriptable policy with counters for observing how the
// phase machine consults it.
type stubPolicy struct {
	enterAt      float64 // enter the endgame once t >= enterAt; negative never enters
	egStep       float64
	judgeAt      float64 // return judgeVerdict once t >= judgeAt; zero never judges
	judgeVerdict track.Verdict
	maxEG        int // exhausted after this many endgame steps; zero disables

	enterConsults int
	last          track.Snapshot
}

func (p *stubPolicy) EnterEndgame(s track.Snapshot) bool {
	p.enterConsults++
	return p.enterAt >= 0 && s.T >= p.enterAt
}

func (p *stubPolicy) Judge(s track.Snapshot) track.Verdict {
	p.last = s
	if p.maxEG > 0 && s.EndgameSteps >= p.maxEG {
		return track.VerdictExhausted
	}
	if p.judgeAt > 0 && s.T >= p.judgeAt {
		return p.judgeVerdict
	}
	return track.VerdictPending
}

func (p *stubPolicy) EndgameStep() float64 { return p.egStep }

var _ = Describe("construction", func() {
	It("rejects a zero-dimensional problem", func() {
		_, err := track.NewTangentODE(&lineProblem{}, nil, nil)
		Expect(err).To(MatchError(zode.ErrZeroDimension))
	})

	It("rejects a start value of the wrong length", func() {
		prob := &lineProblem{a: zode.State{0, 0}, b: zode.State{1, 1}}
		_, err := track.NewPathODE(prob, zode.State{0}, nil)
		Expect(err).To(MatchError(zode.ErrDimensionMismatch))
	})
})

var _ = Describe("Initial", func() {
	var m *track.PathODE

	BeforeEach(func() {
		prob := &lineProblem{a: zode.State{1 + 1i, 2}, b: zode.State{0, 0}}
		var err error
		m, err = track.NewPathODE(prob, zode.State{1 + 1i, 2}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("returns the same component on every call", func() {
		for i := 0; i < 3; i++ {
			v, err := m.Initial(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(1 + 1i))
		}
	})

	It("rejects out-of-range components", func() {
		_, err := m.Initial(-1)
		Expect(err).To(MatchError(zode.ErrIndexRange))
		_, err = m.Initial(2)
		Expect(err).To(MatchError(zode.ErrIndexRange))
	})

	It("is not affected by later mutation of the caller's start slice", func() {
		start := zode.State{5}
		tm, err := track.NewTangentODE(&lineProblem{a: zode.State{5}, b: zode.State{6}}, start, nil)
		Expect(err).NotTo(HaveOccurred())
		start[0] = -99
		v, err := tm.Initial(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(complex(5, 0)))
	})
})

var _ = Describe("implicit-form products", func() {
	var (
		m *track.PathODE
		z zode.State
	)

	BeforeEach(func() {
		var err error
		m, err = track.NewPathODE(&cubicProblem{target: 8}, zode.State{1}, nil)
		Expect(err).NotTo(HaveOccurred())
		z = zode.State{0.7 + 0.3i}
	})

	It("derives the negated t-derivative", func() {
		g := make(zode.State, 1)
		Expect(m.Derive(g, z, 0.4)).To(Succeed())
		want := -(z[0]*z[0]*z[0] - 8 - (z[0]*z[0] - 1))
		Expect(cmplx.Abs(g[0] - want)).To(BeNumerically("<", 1e-14))
	})

	It("multiplies by the homotopy Jacobian", func() {
		x := zode.State{0.25 - 1i}
		y := make(zode.State, 1)
		Expect(m.MassProduct(y, x, z, 0.4)).To(Succeed())
		jac := complex(0.6, 0)*2*z[0] + complex(0.4, 0)*3*z[0]*z[0]
		Expect(cmplx.Abs(y[0] - jac*x[0])).To(BeNumerically("<", 1e-14))
	})

	It("matches a finite-difference check of Derive", func() {
		u := zode.State{0.3 - 0.2i}
		want := make(zode.State, 1)
		Expect(m.JacobianProduct(want, u, z, 0.4)).To(Succeed())

		const h = 1e-7
		g0 := make(zode.State, 1)
		g1 := make(zode.State, 1)
		zp := z.Clone()
		zp[0] += complex(h, 0) * u[0]
		Expect(m.Derive(g0, z, 0.4)).To(Succeed())
		Expect(m.Derive(g1, zp, 0.4)).To(Succeed())
		fd := (g1[0] - g0[0]) / complex(h, 0)
		Expect(cmplx.Abs(fd - want[0])).To(BeNumerically("<", 1e-5))
	})

	It("rejects mismatched dimensions", func() {
		Expect(m.Derive(make(zode.State, 2), z, 0)).To(MatchError(zode.ErrDimensionMismatch))
		Expect(m.MassProduct(make(zode.State, 1), make(zode.State, 2), z, 0)).To(MatchError(zode.ErrDimensionMismatch))
		Expect(m.JacobianProduct(make(zode.State, 2), make(zode.State, 1), z, 0)).To(MatchError(zode.ErrDimensionMismatch))
	})
})

var _ = Describe("integrator capabilities", func() {
	It("exposes the implicit surface only on the implicit form", func() {
		prob := &cubicProblem{target: 8}
		pm, err := track.NewPathODE(prob, zode.State{1}, nil)
		Expect(err).NotTo(HaveOccurred())
		tm, err := track.NewTangentODE(prob, zode.State{1}, nil)
		Expect(err).NotTo(HaveOccurred())

		var sys zode.System = pm
		_, ok := sys.(zode.Implicit)
		Expect(ok).To(BeTrue())

		sys = tm
		_, ok = sys.(zode.Implicit)
		Expect(ok).To(BeFalse())

		_, ok = sys.(zode.Monitor)
		Expect(ok).To(BeTrue())
		_, ok = sys.(zode.FaultHandler)
		Expect(ok).To(BeTrue())
		_, ok = sys.(zode.StepLimiter)
		Expect(ok).To(BeTrue())
	})

	It("reports an ill-conditioned Jacobian from the tangent solve", func() {
		m, err := track.NewTangentODE(singularProblem{}, zode.State{0, 0}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Derive(make(zode.State, 2), zode.State{0, 0}, 0.5)).To(MatchError(zode.ErrIllConditioned))
	})
})

var _ = Describe("phase machine", func() {
	It("moves to the endgame once and never back", func() {
		pol := &stubPolicy{enterAt: 0.5, egStep: 0.1}
		m, err := track.NewTangentODE(&lineProblem{a: zode.State{0}, b: zode.State{1}}, zode.State{0}, pol)
		Expect(err).NotTo(HaveOccurred())

		z := zode.State{0.2}
		Expect(m.AfterStep(z, 0.2, false)).To(BeTrue())
		Expect(m.Phase()).To(Equal(track.PhaseTracking))
		Expect(m.MaxStep(0.2)).To(BeZero())

		z[0] = 0.6
		Expect(m.AfterStep(z, 0.6, false)).To(BeTrue())
		Expect(m.Phase()).To(Equal(track.PhaseEndgame))
		Expect(m.MaxStep(0.6)).To(Equal(0.1))

		before := pol.enterConsults
		z[0] = 0.8
		Expect(m.AfterStep(z, 0.8, false)).To(BeTrue())
		Expect(m.Phase()).To(Equal(track.PhaseEndgame))
		Expect(pol.enterConsults).To(Equal(before))
	})

	It("classifies the final step as converged when the policy stays silent", func() {
		m, err := track.NewTangentODE(&lineProblem{a: zode.State{0}, b: zode.State{1}}, zode.State{0}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.AfterStep(zode.State{1}, 1.0, true)).To(BeFalse())
		Expect(m.Verdict()).To(Equal(track.VerdictConverged))
		final, ft := m.Final()
		Expect(ft).To(Equal(1.0))
		Expect(final[0]).To(Equal(complex(1, 0)))
	})

	It("stops with the policy verdict as soon as one is returned", func() {
		pol := &stubPolicy{enterAt: -1, judgeAt: 0.4, judgeVerdict: track.VerdictDiverged}
		m, err := track.NewTangentODE(&lineProblem{a: zode.State{0}, b: zode.State{1}}, zode.State{0}, pol)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.AfterStep(zode.State{0.2}, 0.2, false)).To(BeTrue())
		Expect(m.AfterStep(zode.State{0.5}, 0.5, false)).To(BeFalse())
		Expect(m.Verdict()).To(Equal(track.VerdictDiverged))
	})

	It("exhausts after the configured number of endgame steps", func() {
		pol := &stubPolicy{enterAt: 0, egStep: 0.1, maxEG: 3}
		m, err := track.NewTangentODE(&lineProblem{a: zode.State{0}, b: zode.State{1}}, zode.State{0}, pol)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.AfterStep(zode.State{0.1}, 0.1, false)).To(BeTrue())
		Expect(m.AfterStep(zode.State{0.2}, 0.2, false)).To(BeTrue())
		Expect(m.AfterStep(zode.State{0.3}, 0.3, false)).To(BeFalse())
		Expect(m.Verdict()).To(Equal(track.VerdictExhausted))
	})

	It("hands the policy a NaN speed when the tangent solve fails", func() {
		pol := &stubPolicy{enterAt: -1}
		m, err := track.NewTangentODE(singularProblem{}, zode.State{0, 0}, pol)
		Expect(err).NotTo(HaveOccurred())

		m.AfterStep(zode.State{0, 0}, 0.3, false)
		Expect(math.IsNaN(pol.last.Speed)).To(BeTrue())
		Expect(pol.last.Residual).To(BeZero())
	})
})

var _ = Describe("fault handling", func() {
	It("turns an ill-conditioned solve into the endgame and retries", func() {
		m, err := track.NewTangentODE(&lineProblem{a: zode.State{0}, b: zode.State{1}}, zode.State{0}, &stubPolicy{enterAt: -1})
		Expect(err).NotTo(HaveOccurred())

		fault := fmt.Errorf("step 12: %w", zode.ErrIllConditioned)
		Expect(m.OnFault(zode.State{0}, 0.5, fault)).To(BeTrue())
		Expect(m.Phase()).To(Equal(track.PhaseEndgame))
		Expect(m.OnFault(zode.State{0}, 0.5, fault)).To(BeFalse())
	})

	It("does not retry unrelated faults", func() {
		m, err := track.NewTangentODE(&lineProblem{a: zode.State{0}, b: zode.State{1}}, zode.State{0}, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.OnFault(zode.State{0}, 0.1, errors.New("boom"))).To(BeFalse())
		Expect(m.Phase()).To(Equal(track.PhaseTracking))
	})
})

var _ = Describe("path tracking", func() {
	Context("with the solved-form model", func() {
		It("follows a straight homotopy to its target", func() {
			prob := &lineProblem{
				a: zode.State{1 + 2i, -0.5},
				b: zode.State{3 - 1i, 0.25 + 0.75i},
			}
			m, err := track.NewTangentODE(prob, prob.a.Clone(), nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := zode.New(m, integrators.NewRK45()).Run(context.Background(), zode.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FinalT).To(Equal(1.0))
			Expect(m.Verdict()).To(Equal(track.VerdictConverged))
			Expect(m.Phase()).To(Equal(track.PhaseTracking))

			final, ft := m.Final()
			Expect(ft).To(Equal(1.0))
			for i := range final {
				Expect(cmplx.Abs(final[i] - prob.b[i])).To(BeNumerically("<", 1e-8))
			}
		})

		It("deforms a quadratic start root into the cubic target root", func() {
			prob := &cubicProblem{target: 8}
			m, err := track.NewTangentODE(prob, zode.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			res, err := zode.New(m, integrators.NewRK45()).Run(context.Background(), zode.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			final, _ := m.Final()
			Expect(cmplx.Abs(final[0] - 2)).To(BeNumerically("<", 1e-6))

			h := make(zode.State, 1)
			for i, z := range res.States {
				Expect(prob.Eval(h, z, res.Times[i])).To(Succeed())
				Expect(cmplx.Abs(h[0])).To(BeNumerically("<", 1e-4))
			}
		})

		It("polishes the landing with Newton corrections", func() {
			m, err := track.NewTangentODE(&cubicProblem{target: 8}, zode.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg := zode.DefaultConfig()
			cfg.Adaptive = false
			cfg.Dt = 0.02
			cfg.MaxDt = 0.02
			res, err := zode.New(m, integrators.NewEuler()).Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())

			// The raw first-order landing is well off the root; the reported
			// final has been corrected onto it.
			Expect(cmplx.Abs(res.Final[0] - 2)).To(BeNumerically(">", 1e-4))
			final, _ := m.Final()
			Expect(cmplx.Abs(final[0] - 2)).To(BeNumerically("<", 1e-9))
			Expect(m.Verdict()).To(Equal(track.VerdictConverged))
		})

		It("caps the step size once the endgame begins", func() {
			pol := &stubPolicy{enterAt: 0.7, egStep: 0.02}
			m, err := track.NewTangentODE(&cubicProblem{target: 8}, zode.State{1}, pol)
			Expect(err).NotTo(HaveOccurred())

			res, err := zode.New(m, integrators.NewRK45()).Run(context.Background(), zode.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Phase()).To(Equal(track.PhaseEndgame))
			Expect(m.Verdict()).To(Equal(track.VerdictConverged))

			entered := false
			for i := 1; i < len(res.Times); i++ {
				if entered {
					Expect(res.Times[i] - res.Times[i-1]).To(BeNumerically("<=", 0.02+1e-9))
				}
				if res.Times[i] >= 0.7 {
					entered = true
				}
			}
			Expect(entered).To(BeTrue())
		})

		It("stops the run mid-path on a terminal verdict", func() {
			pol := &stubPolicy{enterAt: -1, judgeAt: 0.5, judgeVerdict: track.VerdictDiverged}
			m, err := track.NewTangentODE(&cubicProblem{target: 8}, zode.State{1}, pol)
			Expect(err).NotTo(HaveOccurred())

			res, err := zode.New(m, integrators.NewRK45()).Run(context.Background(), zode.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Stopped).To(BeTrue())
			Expect(m.Verdict()).To(Equal(track.VerdictDiverged))
			Expect(res.FinalT).To(BeNumerically(">=", 0.5))
			Expect(res.FinalT).To(BeNumerically("<", 1))
		})
	})

	Context("with the implicit-form model", func() {
		It("reaches the same root through mass and Jacobian products", func() {
			m, err := track.NewPathODE(&cubicProblem{target: 8}, zode.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg := zode.DefaultConfig()
			cfg.Adaptive = false
			cfg.Dt = 1e-3
			cfg.MaxDt = 1e-3
			cfg.MaxSteps = 2000
			_, err = zode.New(m, integrators.NewImplicitEuler()).Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())

			final, ft := m.Final()
			Expect(ft).To(Equal(1.0))
			Expect(cmplx.Abs(final[0] - 2)).To(BeNumerically("<", 1e-2))
			Expect(m.Verdict()).To(Equal(track.VerdictConverged))
		})
	})
})
