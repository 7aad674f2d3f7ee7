package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

type CSR struct {
	M    *sparse.CSR
	name string
}

// Dims and At minimally satisfy the gonum mat.Matrix interface.
func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) Name() string        { return m.name }
func (m CSR) NNZ() int            { return m.M.NNZ() }

// MulVec computes dst = M x. dst and x must not alias.
func (m CSR) MulVec(dst, x []float64) {
	var (
		nr, nc = m.Dims()
	)
	if len(dst) != nr || len(x) != nc {
		panic(fmt.Errorf("dimension mismatch in %s: matrix is %dx%d, len(dst)=%d, len(x)=%d",
			m.name, nr, nc, len(dst), len(x)))
	}
	// MulVecTo accumulates into dst
	for i := range dst {
		dst[i] = 0
	}
	m.M.MulVecTo(dst, false, x)
}

// Diagonal returns a copy of the main diagonal.
func (m CSR) Diagonal() (diag []float64) {
	var (
		raw   = m.M.RawMatrix()
		nr, _ = m.Dims()
	)
	diag = make([]float64, nr)
	for i := 0; i < nr; i++ {
		for ii := raw.Indptr[i]; ii < raw.Indptr[i+1]; ii++ {
			if raw.Ind[ii] == i {
				diag[i] = raw.Data[ii]
				break
			}
		}
	}
	return
}

// CSRBuilder assembles a CSR matrix one row at a time, in row order, which
// is how finite volume stencils are naturally produced.
type CSRBuilder struct {
	nr, nc int
	indptr []int
	ind    []int
	data   []float64
	name   string
}

func NewCSRBuilder(nr, nc, nnzHint int, name string) (b *CSRBuilder) {
	b = &CSRBuilder{
		nr:     nr,
		nc:     nc,
		indptr: make([]int, 1, nr+1),
		ind:    make([]int, 0, nnzHint),
		data:   make([]float64, 0, nnzHint),
		name:   name,
	}
	return
}

// AddRow appends the next row. Columns must be strictly ascending.
func (b *CSRBuilder) AddRow(cols []int, vals []float64) {
	if len(cols) != len(vals) {
		panic(fmt.Errorf("%s: row %d has %d columns and %d values",
			b.name, len(b.indptr)-1, len(cols), len(vals)))
	}
	for n, c := range cols {
		if c < 0 || c >= b.nc || (n > 0 && c <= cols[n-1]) {
			panic(fmt.Errorf("%s: invalid column ordering in row %d: %v",
				b.name, len(b.indptr)-1, cols))
		}
	}
	b.ind = append(b.ind, cols...)
	b.data = append(b.data, vals...)
	b.indptr = append(b.indptr, len(b.ind))
}

func (b *CSRBuilder) Build() (m CSR) {
	if len(b.indptr) != b.nr+1 {
		panic(fmt.Errorf("%s: have %d rows, expected %d", b.name, len(b.indptr)-1, b.nr))
	}
	m = CSR{
		M:    sparse.NewCSR(b.nr, b.nc, b.indptr, b.ind, b.data),
		name: b.name,
	}
	return
}

// PoissonMatrix assembles the 7 point operator sum_f c_f (x_P - x_N) on an
// nx*ny*nz structured block with zero flux on the outer boundary. faceCoef
// returns the coefficient of the face on the low side of cell (i,j,k) along
// axis; it is only called for interior faces.
func PoissonMatrix(nx, ny, nz int, faceCoef func(axis, i, j, k int) float64) (m CSR) {
	var (
		n      = nx * ny * nz
		b      = NewCSRBuilder(n, n, 7*n, "poisson")
		stride = [3]int{1, nx, nx * ny}
		dims   = [3]int{nx, ny, nz}
		cols   = make([]int, 0, 7)
		vals   = make([]float64, 0, 7)
	)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				var (
					ijk  = [3]int{i, j, k}
					row  = i + nx*(j+ny*k)
					diag float64
					hi   [3]float64
				)
				cols, vals = cols[:0], vals[:0]
				// Low neighbors in descending stride give ascending columns
				for ax := 2; ax >= 0; ax-- {
					if ijk[ax] > 0 {
						c := faceCoef(ax, i, j, k)
						cols, vals = append(cols, row-stride[ax]), append(vals, -c)
						diag += c
					}
				}
				for ax := 0; ax < 3; ax++ {
					if ijk[ax] < dims[ax]-1 {
						up := ijk
						up[ax]++
						hi[ax] = faceCoef(ax, up[0], up[1], up[2])
						diag += hi[ax]
					}
				}
				cols, vals = append(cols, row), append(vals, diag)
				for ax := 0; ax < 3; ax++ {
					if ijk[ax] < dims[ax]-1 {
						cols, vals = append(cols, row+stride[ax]), append(vals, -hi[ax])
					}
				}
				b.AddRow(cols, vals)
			}
		}
	}
	m = b.Build()
	return
}
