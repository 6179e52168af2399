package linalg

import "math/cmplx"

// LU holds a factorization P·A = L·U for solving A·x = b.
type LU struct {
	n     int
	lu    []complex128
	pivot []int
	rcond float64
}

// Factor computes the LU factorization of m with partial pivoting by
// modulus. m is left untouched. An exactly zero pivot returns ErrSingular;
// near-singularity is reported through RCond, not as an error.
func (m *Dense) Factor() (*LU, error) {
	n := m.n
	f := &LU{
		n:     n,
		lu:    make([]complex128, n*n),
		pivot: make([]int, n),
	}
	copy(f.lu, m.a)

	minPivot, maxPivot := 0.0, 0.0
	for col := 0; col < n; col++ {
		pivotRow := col
		best := cmplx.Abs(f.lu[col*n+col])
		for row := col + 1; row < n; row++ {
			if a := cmplx.Abs(f.lu[row*n+col]); a > best {
				best = a
				pivotRow = row
			}
		}
		if best == 0 {
			return nil, ErrSingular
		}
		f.pivot[col] = pivotRow
		if pivotRow != col {
			for j := 0; j < n; j++ {
				f.lu[col*n+j], f.lu[pivotRow*n+j] = f.lu[pivotRow*n+j], f.lu[col*n+j]
			}
		}
		if col == 0 || best < minPivot {
			minPivot = best
		}
		if best > maxPivot {
			maxPivot = best
		}

		inv := 1 / f.lu[col*n+col]
		for row := col + 1; row < n; row++ {
			mult := f.lu[row*n+col] * inv
			f.lu[row*n+col] = mult
			for j := col + 1; j < n; j++ {
				f.lu[row*n+j] -= mult * f.lu[col*n+j]
			}
		}
	}
	if maxPivot > 0 {
		f.rcond = minPivot / maxPivot
	}
	return f, nil
}

// RCond is a cheap conditioning estimate: the ratio of the smallest to the
// largest pivot modulus. 1 is perfectly conditioned, 0 is singular.
func (f *LU) RCond() float64 { return f.rcond }

// Solve writes the solution of A·x = b into dst. dst may alias b.
func (f *LU) Solve(dst, b []complex128) error {
	n := f.n
	if len(dst) != n || len(b) != n {
		return ErrShape
	}
	if n == 0 {
		return nil
	}
	if &dst[0] != &b[0] {
		copy(dst, b)
	}

	for col := 0; col < n; col++ {
		if p := f.pivot[col]; p != col {
			dst[col], dst[p] = dst[p], dst[col]
		}
		for row := col + 1; row < n; row++ {
			dst[row] -= f.lu[row*n+col] * dst[col]
		}
	}
	for col := n - 1; col >= 0; col-- {
		dst[col] /= f.lu[col*n+col]
		for row := 0; row < col; row++ {
			dst[row] -= f.lu[row*n+col] * dst[col]
		}
	}
	return nil
}

// SolveMatVec factors a and solves a·x = b in one call.
func SolveMatVec(a *Dense, dst, b []complex128) error {
	f, err := a.Factor()
	if err != nil {
		return err
	}
	return f.Solve(dst, b)
}
