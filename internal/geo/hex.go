package geo

import "math"

var sqrt3 = math.Sqrt(3)

// HexCorners returns the six corners of a pointy-top hexagon, starting at
// the upper-right corner and proceeding clockwise on screen.
func HexCorners(center Point, radius float64) [6]Point {
	var corners [6]Point
	for i := range corners {
		angle := (60*float64(i) - 30) * math.Pi / 180
		corners[i] = Point{
			X: center.X + radius*math.Cos(angle),
			Y: center.Y + radius*math.Sin(angle),
		}
	}
	return corners
}

// HexLayout places cells on a pointy-top lattice with odd rows shifted
// half a cell to the right. Cell index i sits at row i/Columns, column
// i%Columns.
type HexLayout struct {
	Radius  float64
	Origin  Point // centre of cell 0
	Columns int
}

// NewHexLayout fits as many columns of radius-sized cells as the surface
// width allows, leaving room for the odd-row offset.
func NewHexLayout(radius float64, s Size) HexLayout {
	w := sqrt3 * radius
	cols := int((s.Width - w/2) / w)
	if cols < 1 {
		cols = 1
	}
	return HexLayout{
		Radius:  radius,
		Origin:  Point{X: w / 2, Y: radius},
		Columns: cols,
	}
}

// Center returns the pixel centre of cell index i.
func (l HexLayout) Center(i int) Point {
	row, col := i/l.Columns, i%l.Columns
	return Point{
		X: l.Origin.X + sqrt3*l.Radius*(float64(col)+0.5*float64(row&1)),
		Y: l.Origin.Y + 1.5*l.Radius*float64(row),
	}
}

// IndexAt returns the index of the cell containing pt. The second result is
// false when pt falls outside the lattice columns or above the first row.
func (l HexLayout) IndexAt(pt Point) (int, bool) {
	if l.Radius <= 0 || l.Columns <= 0 {
		return 0, false
	}
	px := pt.X - l.Origin.X
	py := pt.Y - l.Origin.Y

	q := (sqrt3/3*px - py/3) / l.Radius
	r := (2.0 / 3 * py) / l.Radius
	aq, ar := cubeRound(q, r)

	row := ar
	col := aq + (ar-(ar&1))/2
	if row < 0 || col < 0 || col >= l.Columns {
		return 0, false
	}
	return row*l.Columns + col, true
}

// cubeRound rounds fractional axial coordinates to the nearest hex.
func cubeRound(q, r float64) (int, int) {
	s := -q - r
	rq, rr, rs := math.Round(q), math.Round(r), math.Round(s)

	dq := math.Abs(rq - q)
	dr := math.Abs(rr - r)
	ds := math.Abs(rs - s)

	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return int(rq), int(rr)
}
