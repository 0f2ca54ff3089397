// Package geom holds the coordinate math shared by the scene engine:
// world/canvas transforms, bounds, segment distance and resize handles.
package geom

// Point is a position in world space (or canvas space, depending on context).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Size is a canvas size in view pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport maps world coordinates to canvas pixels.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Zoom    float64 `json:"zoom"`
}

// DefaultViewport is the identity transform.
func DefaultViewport() Viewport {
	return Viewport{Zoom: 1}
}

// Normalize returns v with a non-positive zoom reset to 1.
func (v Viewport) Normalize() Viewport {
	if v.Zoom <= 0 {
		v.Zoom = 1
	}
	return v
}

// ToCanvas converts a world point to canvas pixels: (p + offset) * zoom.
func ToCanvas(p Point, v Viewport) Point {
	return Point{
		X: (p.X + v.OffsetX) * v.Zoom,
		Y: (p.Y + v.OffsetY) * v.Zoom,
	}
}

// ToWorld converts canvas pixels back to world space: c / zoom - offset.
// It is the exact inverse of ToCanvas for zoom > 0.
func ToWorld(c Point, v Viewport) Point {
	return Point{
		X: c.X/v.Zoom - v.OffsetX,
		Y: c.Y/v.Zoom - v.OffsetY,
	}
}

// PixelsToWorld converts a view-space length to world units.
func PixelsToWorld(px float64, v Viewport) float64 {
	if v.Zoom <= 0 {
		return px
	}
	return px / v.Zoom
}
