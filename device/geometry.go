package device

import "fmt"

// DefaultLocalSize is the preferred work-group edge before it is shrunk
// to a divisor of the global size.
const DefaultLocalSize = 16

// Dim3 holds sizes or indices for up to three dimensions. Unused
// dimensions are 1 for sizes and 0 for indices.
type Dim3 struct {
	X, Y, Z int
}

// Size returns the number of elements covered by d.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// ThreadID identifies one work-item inside a dispatch.
type ThreadID struct {
	GroupIdx  Dim3 // work-group index within the grid
	LocalIdx  Dim3 // work-item index within the group
	LocalDim  Dim3 // work-group size
	GroupsDim Dim3 // number of work-groups per dimension
}

// GlobalX returns the global X index.
func (t ThreadID) GlobalX() int {
	return t.GroupIdx.X*t.LocalDim.X + t.LocalIdx.X
}

// GlobalY returns the global Y index.
func (t ThreadID) GlobalY() int {
	return t.GroupIdx.Y*t.LocalDim.Y + t.LocalIdx.Y
}

// Group identifies one work-group inside a dispatch. Group ports iterate
// their own work-items, which lets them stage partial results the way a
// kernel would in local memory.
type Group struct {
	Idx       Dim3
	LocalDim  Dim3
	GroupsDim Dim3
}

// GlobalX returns the global X index of local item lx.
func (g Group) GlobalX(lx int) int {
	return g.Idx.X*g.LocalDim.X + lx
}

// GlobalY returns the global Y index of local item ly.
func (g Group) GlobalY(ly int) int {
	return g.Idx.Y*g.LocalDim.Y + ly
}

// Geometry is the launch geometry of a plan: the global problem size and
// the work-group size per dimension.
type Geometry struct {
	Global Dim3
	Local  Dim3
}

// LocalSize returns the largest tile size not above preferred that evenly
// divides global. It never returns less than 1, so a prime global size
// runs with single-item groups.
func LocalSize(global, preferred int) int {
	local := preferred
	for local > 1 && global%local != 0 {
		local--
	}

	if local < 1 {
		local = 1
	}

	return local
}

// Geometry1D derives a one-dimensional geometry for n items.
func Geometry1D(n, preferred int) Geometry {
	return Geometry{
		Global: Dim3{X: n, Y: 1, Z: 1},
		Local:  Dim3{X: LocalSize(n, preferred), Y: 1, Z: 1},
	}
}

// Geometry2D derives a two-dimensional geometry for an x by y domain.
// Each dimension is shrunk independently.
func Geometry2D(x, y, preferred int) Geometry {
	return Geometry{
		Global: Dim3{X: x, Y: y, Z: 1},
		Local: Dim3{
			X: LocalSize(x, preferred),
			Y: LocalSize(y, preferred),
			Z: 1,
		},
	}
}

// FixedGeometry1D builds a one-dimensional geometry with an imposed
// work-group size.
func FixedGeometry1D(global, local int) (Geometry, error) {
	g := Geometry{
		Global: Dim3{X: global, Y: 1, Z: 1},
		Local:  Dim3{X: local, Y: 1, Z: 1},
	}

	return g, g.Validate()
}

// Groups returns the number of work-groups per dimension.
func (g Geometry) Groups() Dim3 {
	return Dim3{
		X: g.Global.X / g.Local.X,
		Y: g.Global.Y / g.Local.Y,
		Z: g.Global.Z / g.Local.Z,
	}
}

// Validate checks that every dimension is positive and that each local
// size divides the matching global size.
func (g Geometry) Validate() error {
	dims := [3][2]int{
		{g.Global.X, g.Local.X},
		{g.Global.Y, g.Local.Y},
		{g.Global.Z, g.Local.Z},
	}

	for i, d := range dims {
		global, local := d[0], d[1]
		if global < 1 || local < 1 {
			return fmt.Errorf("%w: dimension %d global=%d local=%d",
				ErrInvalidGeometry, i, global, local)
		}

		if global%local != 0 {
			return fmt.Errorf("%w: dimension %d local %d does not divide global %d",
				ErrInvalidGeometry, i, local, global)
		}
	}

	return nil
}

func (g Geometry) String() string {
	if g.Global.Y == 1 && g.Global.Z == 1 {
		return fmt.Sprintf("global=%d local=%d", g.Global.X, g.Local.X)
	}

	return fmt.Sprintf("global=%dx%d local=%dx%d",
		g.Global.X, g.Global.Y, g.Local.X, g.Local.Y)
}

// linearTo3D converts a linear index to coordinates inside dim.
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X

	return Dim3{X: x, Y: y, Z: z}
}
