// Package linalg provides the small dense complex kernels path evaluation
// needs: square matrices, LU factorization with partial pivoting, and
// matrix-vector products. Systems here are tiny (the number of polynomial
// unknowns), so dense storage is the right trade.
package linalg

import "errors"

var (
	// ErrSingular indicates a zero pivot during factorization.
	ErrSingular = errors.New("linalg: singular matrix")

	// ErrShape indicates mismatched matrix and vector sizes.
	ErrShape = errors.New("linalg: shape mismatch")
)

// Dense is a square complex matrix in row-major flat storage.
type Dense struct {
	n int
	a []complex128
}

func NewDense(n int) *Dense {
	return &Dense{n: n, a: make([]complex128, n*n)}
}

func Identity(n int) *Dense {
	m := NewDense(n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func (m *Dense) Size() int                  { return m.n }
func (m *Dense) At(i, j int) complex128     { return m.a[i*m.n+j] }
func (m *Dense) Set(i, j int, v complex128) { m.a[i*m.n+j] = v }
func (m *Dense) Add(i, j int, v complex128) { m.a[i*m.n+j] += v }

func (m *Dense) Clone() *Dense {
	c := NewDense(m.n)
	copy(c.a, m.a)
	return c
}

func (m *Dense) Zero() {
	for i := range m.a {
		m.a[i] = 0
	}
}

// MatVec writes m·x into dst. dst and x must not alias.
func (m *Dense) MatVec(dst, x []complex128) error {
	if len(dst) != m.n || len(x) != m.n {
		return ErrShape
	}
	for i := 0; i < m.n; i++ {
		var sum complex128
		row := m.a[i*m.n : (i+1)*m.n]
		for j, v := range row {
			sum += v * x[j]
		}
		dst[i] = sum
	}
	return nil
}

// Scale multiplies every entry by c.
func (m *Dense) Scale(c complex128) {
	for i := range m.a {
		m.a[i] *= c
	}
}

// AddScaled accumulates c·other into m.
func (m *Dense) AddScaled(c complex128, other *Dense) error {
	if other.n != m.n {
		return ErrShape
	}
	for i := range m.a {
		m.a[i] += c * other.a[i]
	}
	return nil
}
