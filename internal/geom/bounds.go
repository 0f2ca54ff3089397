package geom

import "math"

// Bounds is an axis-aligned rectangle. Width and Height are never negative
// for bounds produced by this package.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoundsFromCorners returns the normalized rectangle spanning a and b.
func BoundsFromCorners(a, b Point) Bounds {
	return Bounds{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// BoundsOfPoints returns the bounds enclosing pts, false if pts is empty.
func BoundsOfPoints(pts []Point) (Bounds, bool) {
	if len(pts) == 0 {
		return Bounds{}, false
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Bounds{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

func (b Bounds) Right() float64  { return b.X + b.Width }
func (b Bounds) Bottom() float64 { return b.Y + b.Height }

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Union returns the smallest bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	minX := math.Min(b.X, o.X)
	minY := math.Min(b.Y, o.Y)
	maxX := math.Max(b.Right(), o.Right())
	maxY := math.Max(b.Bottom(), o.Bottom())
	return Bounds{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Translate returns b moved by (dx, dy).
func (b Bounds) Translate(dx, dy float64) Bounds {
	b.X += dx
	b.Y += dy
	return b
}

// Inflate grows b by d on every side.
func (b Bounds) Inflate(d float64) Bounds {
	return Bounds{X: b.X - d, Y: b.Y - d, Width: b.Width + 2*d, Height: b.Height + 2*d}
}

// UnionAll folds bs into one rectangle, false when bs is empty.
func UnionAll(bs []Bounds) (Bounds, bool) {
	if len(bs) == 0 {
		return Bounds{}, false
	}
	out := bs[0]
	for _, b := range bs[1:] {
		out = out.Union(b)
	}
	return out, true
}
