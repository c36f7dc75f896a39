/*package box contains routines for dealing with the periodic geometry of
simulation boxes. Boxes may be triclinic: they are spanned by three lattice
vectors using the tilt-factor convention

    a = (Lx, 0, 0)
    b = (xy*Ly, Ly, 0)
    c = (xz*Lz, yz*Lz, Lz)

and a point x has fractional coordinates s = M^-1 x, where M has a, b, and c as
its columns. The box occupies 0 <= s < 1 along each axis.*/
package box

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when a box would have zero or negative volume.
var ErrDegenerate = errors.New("degenerate box")

// Box is a periodic parallelepiped. A Box is immutable after construction.
type Box struct {
	l          [3]float64
	xy, xz, yz float64

	lattice *mat.Dense
	// Copies of the lattice and its inverse. MinImage is called once per
	// particle per step, so it reads these instead of going through gonum.
	m, inv  [3][3]float64
	npd     [3]float64
}

// New returns an orthorhombic box with the given edge lengths.
func New(L [3]float64) (*Box, error) {
	return NewTriclinic(L, 0, 0, 0)
}

// NewTriclinic returns a box with edge lengths L and tilt factors xy, xz,
// and yz.
func NewTriclinic(L [3]float64, xy, xz, yz float64) (*Box, error) {
	for dim := 0; dim < 3; dim++ {
		if !(L[dim] > 0) || math.IsInf(L[dim], 0) {
			return nil, fmt.Errorf(
				"%w: edge %d has length %g", ErrDegenerate, dim, L[dim],
			)
		}
	}

	lattice := mat.NewDense(3, 3, []float64{
		L[0], xy * L[1], xz * L[2],
		0, L[1], yz * L[2],
		0, 0, L[2],
	})

	inv := &mat.Dense{}
	if err := inv.Inverse(lattice); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDegenerate, err.Error())
	}

	b := &Box{l: L, xy: xy, xz: xz, yz: yz, lattice: lattice}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b.m[i][j] = lattice.At(i, j)
			b.inv[i][j] = inv.At(i, j)
		}
	}

	// The distance between opposite faces is the inverse length of the
	// corresponding reciprocal lattice vector, i.e. a row of M^-1.
	row := make([]float64, 3)
	for i := 0; i < 3; i++ {
		mat.Row(row, i, inv)
		b.npd[i] = 1 / math.Sqrt(row[0]*row[0]+row[1]*row[1]+row[2]*row[2])
	}

	return b, nil
}

// L returns the edge lengths of the box.
func (b *Box) L() [3]float64 { return b.l }

// Tilts returns the xy, xz, and yz tilt factors.
func (b *Box) Tilts() (xy, xz, yz float64) { return b.xy, b.xz, b.yz }

// Lattice returns a copy of the lattice matrix. Columns are the lattice
// vectors.
func (b *Box) Lattice() *mat.Dense { return mat.DenseCopyOf(b.lattice) }

// Volume returns the volume of the box.
func (b *Box) Volume() float64 { return math.Abs(mat.Det(b.lattice)) }

// NearestPlaneDistance returns the distance between opposite faces of the box
// along each of the three reciprocal directions. For an orthorhombic box this
// is just L().
func (b *Box) NearestPlaneDistance() [3]float64 { return b.npd }

// Scale returns a new box whose edges have been multiplied by f. Tilt
// factors are preserved.
func (b *Box) Scale(f [3]float64) (*Box, error) {
	return NewTriclinic(
		[3]float64{b.l[0] * f[0], b.l[1] * f[1], b.l[2] * f[2]},
		b.xy, b.xz, b.yz,
	)
}

// Fractional returns the fractional coordinates of x.
func (b *Box) Fractional(x [3]float64) [3]float64 {
	return mulVec(&b.inv, x)
}

// Position converts fractional coordinates back into a position.
func (b *Box) Position(s [3]float64) [3]float64 {
	return mulVec(&b.m, s)
}

// MinImage returns the periodic image of the displacement dx with the
// smallest fractional coordinates.
func (b *Box) MinImage(dx [3]float64) [3]float64 {
	s := mulVec(&b.inv, dx)
	for dim := range s {
		s[dim] -= math.Round(s[dim])
	}
	return mulVec(&b.m, s)
}

// Wrap returns the periodic image of x which lies inside the box.
func (b *Box) Wrap(x [3]float64) [3]float64 {
	s := mulVec(&b.inv, x)
	for dim := range s {
		s[dim] -= math.Floor(s[dim])
		// Floating point can leave s == 1 after subtracting the floor of a
		// tiny negative number.
		if s[dim] >= 1 {
			s[dim] = 0
		}
	}
	return mulVec(&b.m, s)
}

func mulVec(m *[3][3]float64, x [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*x[0] + m[0][1]*x[1] + m[0][2]*x[2],
		m[1][0]*x[0] + m[1][1]*x[1] + m[1][2]*x[2],
		m[2][0]*x[0] + m[2][1]*x[1] + m[2][2]*x[2],
	}
}
