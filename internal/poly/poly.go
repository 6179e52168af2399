// Package poly represents square systems of complex multivariate
// polynomials with analytic Jacobians. These are the problem models tracked
// by the homotopy driver, in the role the physics models play for a
// dynamics lab.
package poly

import (
	"fmt"
	"strings"

	"github.com/rowhit/polypath/internal/linalg"
	"github.com/rowhit/polypath/internal/zode"
)

// Term is coeff·z₀^p₀·…·z_{n-1}^p_{n-1}. Powers has one entry per variable.
type Term struct {
	Coeff  complex128
	Powers []int
}

type Polynomial struct {
	Terms []Term
}

// System is a square polynomial system: n polynomials in n variables.
type System struct {
	n     int
	polys []Polynomial
}

func NewSystem(n int, polys ...Polynomial) (System, error) {
	if n <= 0 {
		return System{}, zode.ErrZeroDimension
	}
	if len(polys) != n {
		return System{}, fmt.Errorf("system must be square: %d polynomials for %d variables: %w",
			len(polys), n, zode.ErrDimensionMismatch)
	}
	for i, p := range polys {
		for j, term := range p.Terms {
			if len(term.Powers) != n {
				return System{}, fmt.Errorf("polynomial %d term %d: %d powers for %d variables: %w",
					i, j, len(term.Powers), n, zode.ErrDimensionMismatch)
			}
			for _, pw := range term.Powers {
				if pw < 0 {
					return System{}, fmt.Errorf("polynomial %d term %d: negative power %d", i, j, pw)
				}
			}
		}
	}
	return System{n: n, polys: polys}, nil
}

func (s System) Dimension() int { return s.n }

// Eval writes the system value at z into dst.
func (s System) Eval(dst, z []complex128) error {
	if len(dst) != s.n || len(z) != s.n {
		return zode.ErrDimensionMismatch
	}
	for i, p := range s.polys {
		dst[i] = p.eval(z)
	}
	return nil
}

// JacobianAt writes the n×n Jacobian ∂Fᵢ/∂zⱼ at z into dst.
func (s System) JacobianAt(dst *linalg.Dense, z []complex128) error {
	if dst.Size() != s.n || len(z) != s.n {
		return zode.ErrDimensionMismatch
	}
	for i, p := range s.polys {
		for j := 0; j < s.n; j++ {
			dst.Set(i, j, p.partial(j, z))
		}
	}
	return nil
}

// TotalDegree is the Bézout bound, the product of the polynomial degrees.
// It equals the path count of a total-degree start system.
func (s System) TotalDegree() int {
	d := 1
	for _, p := range s.polys {
		d *= p.Degree()
	}
	return d
}

func (s System) Polynomial(i int) Polynomial { return s.polys[i] }

func (p Polynomial) eval(z []complex128) complex128 {
	var sum complex128
	for _, t := range p.Terms {
		v := t.Coeff
		for j, pw := range t.Powers {
			v *= ipow(z[j], pw)
		}
		sum += v
	}
	return sum
}

// partial evaluates ∂p/∂zⱼ at z.
func (p Polynomial) partial(j int, z []complex128) complex128 {
	var sum complex128
	for _, t := range p.Terms {
		pw := t.Powers[j]
		if pw == 0 {
			continue
		}
		v := t.Coeff * complex(float64(pw), 0) * ipow(z[j], pw-1)
		for k, kw := range t.Powers {
			if k == j {
				continue
			}
			v *= ipow(z[k], kw)
		}
		sum += v
	}
	return sum
}

func (p Polynomial) Degree() int {
	d := 0
	for _, t := range p.Terms {
		td := 0
		for _, pw := range t.Powers {
			td += pw
		}
		if td > d {
			d = td
		}
	}
	return d
}

func (p Polynomial) String() string {
	if len(p.Terms) == 0 {
		return "0"
	}
	parts := make([]string, 0, len(p.Terms))
	for _, t := range p.Terms {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, " + ")
}

func (t Term) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%g%+gi)", real(t.Coeff), imag(t.Coeff))
	for j, pw := range t.Powers {
		switch {
		case pw == 1:
			fmt.Fprintf(&b, "·z%d", j)
		case pw > 1:
			fmt.Fprintf(&b, "·z%d^%d", j, pw)
		}
	}
	return b.String()
}

func ipow(z complex128, k int) complex128 {
	r := complex128(1)
	for ; k > 0; k-- {
		r *= z
	}
	return r
}
