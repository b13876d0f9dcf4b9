// Package canvas maps points between a viewer's screen space and the shared
// world space every placement is stored in.
//
// A View is the viewer-local pan offset and zoom scale. World coordinates never
// depend on the view, so two viewers looking at different regions of the canvas
// agree on where a placement lives.
package canvas

import (
	"fmt"
	"math"
)

const (
	// WheelFactor is the zoom step applied per wheel notch.
	WheelFactor = 1.1

	// ImageSize is the edge length, in world units, placed images are drawn at.
	ImageSize = 200
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%v, %v)", p.X, p.Y)
}

type View struct {
	PanX  float64 `json:"panX"`
	PanY  float64 `json:"panY"`
	Scale float64 `json:"scale"`
}

// Identity is the view of a freshly opened canvas.
var Identity = View{Scale: 1}

func (v View) Validate() error {
	if !isFinite(v.Scale) || v.Scale <= 0 {
		return fmt.Errorf("invalid view: scale must be a positive finite number, got %v", v.Scale)
	}
	if !isFinite(v.PanX) || !isFinite(v.PanY) {
		return fmt.Errorf("invalid view: pan must be finite, got (%v, %v)", v.PanX, v.PanY)
	}
	return nil
}

// ToWorld converts a screen point to world space under the given view.
func ToWorld(p Point, v View) Point {
	return Point{
		X: (p.X - v.PanX) / v.Scale,
		Y: (p.Y - v.PanY) / v.Scale,
	}
}

// ToScreen is the inverse of ToWorld for the same view.
func ToScreen(p Point, v View) Point {
	return Point{
		X: p.X*v.Scale + v.PanX,
		Y: p.Y*v.Scale + v.PanY,
	}
}

// ZoomAt rescales the view to newScale keeping the world point under pointer
// fixed on screen.
func ZoomAt(v View, pointer Point, newScale float64) View {
	anchor := ToWorld(pointer, v)
	return View{
		PanX:  pointer.X - anchor.X*newScale,
		PanY:  pointer.Y - anchor.Y*newScale,
		Scale: newScale,
	}
}

func ZoomBy(v View, pointer Point, factor float64) View {
	return ZoomAt(v, pointer, v.Scale*factor)
}

// Wheel applies one wheel event: scrolling up (negative deltaY) zooms in,
// anything else zooms out.
func Wheel(v View, pointer Point, deltaY float64) View {
	if deltaY < 0 {
		return ZoomBy(v, pointer, WheelFactor)
	}
	return ZoomBy(v, pointer, 1/WheelFactor)
}

// Pan moves the view by a screen-space drag delta.
func Pan(v View, dx, dy float64) View {
	v.PanX += dx
	v.PanY += dy
	return v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
