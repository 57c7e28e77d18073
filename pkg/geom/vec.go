// Package geom provides the 2D vector arithmetic shared by the graph model
// and the layout engine.
//
// [Vec] is a value type: every operation returns a new Vec and never
// mutates its receiver, so two nodes can never alias the same position.
package geom

import "math"

// Vec is a point or displacement in the plane.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zero is the origin.
var Zero = Vec{}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Scale returns v multiplied by f.
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

// SquaredMagnitude returns x*x + y*y.
func (v Vec) SquaredMagnitude() float64 { return v.X*v.X + v.Y*v.Y }

// Dist returns the Euclidean distance between v and o.
func (v Vec) Dist(o Vec) float64 {
	dx, dy := v.X-o.X, v.Y-o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// IsFinite reports whether both components are neither NaN nor infinite.
func (v Vec) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Polar returns the vector of length r at angle theta (radians).
func Polar(r, theta float64) Vec {
	return Vec{r * math.Cos(theta), r * math.Sin(theta)}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Min, Max Vec
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the box.
func (r Rect) Center() Vec {
	return Vec{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Bounds returns the smallest Rect containing every point.
// It returns the zero Rect for an empty slice.
func Bounds(pts []Vec) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}
