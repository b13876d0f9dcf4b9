package canvas

import "math"

// Bounds is an axis aligned world-space rectangle.
type Bounds struct {
	Min   Point `json:"min"`
	Max   Point `json:"max"`
	Empty bool  `json:"empty"`
}

// BoundsOf returns the rectangle covering images of ImageSize anchored (top
// left) at each point. Non-finite points are ignored.
func BoundsOf(points ...Point) Bounds {
	b := Bounds{
		Min:   Point{X: math.Inf(1), Y: math.Inf(1)},
		Max:   Point{X: math.Inf(-1), Y: math.Inf(-1)},
		Empty: true,
	}
	for _, p := range points {
		if !p.IsFinite() {
			continue
		}
		b.Empty = false
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X+ImageSize)
		b.Max.Y = math.Max(b.Max.Y, p.Y+ImageSize)
	}
	if b.Empty {
		return Bounds{Empty: true}
	}
	return b
}

func (b Bounds) Width() float64 {
	if b.Empty {
		return 0
	}
	return b.Max.X - b.Min.X
}

func (b Bounds) Height() float64 {
	if b.Empty {
		return 0
	}
	return b.Max.Y - b.Min.Y
}

// Fit returns a view that shows the whole rectangle inside a screen of the
// given size, centered.
func (b Bounds) Fit(width, height float64) View {
	if b.Empty || width <= 0 || height <= 0 {
		return Identity
	}
	scale := math.Min(width/b.Width(), height/b.Height())
	center := Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
	return View{
		PanX:  width/2 - center.X*scale,
		PanY:  height/2 - center.Y*scale,
		Scale: scale,
	}
}
