package canvas

import (
	"math"
	"math/rand"
	"testing"

	"github.com/tj/assert"
)

func assertNear(t *testing.T, want, got Point) {
	t.Helper()
	tolerance := func(v float64) float64 { return 1e-7 * math.Max(1, math.Abs(v)) }
	assert.InDelta(t, want.X, got.X, tolerance(want.X))
	assert.InDelta(t, want.Y, got.Y, tolerance(want.Y))
}

func TestToWorld(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		assert.Equal(t, Point{X: 120, Y: 80}, ToWorld(Point{X: 120, Y: 80}, Identity))
	})

	t.Run("panned and zoomed", func(t *testing.T) {
		v := View{PanX: 100, PanY: -50, Scale: 2}
		assert.Equal(t, Point{X: 10, Y: 65}, ToWorld(Point{X: 120, Y: 80}, v))
		assert.Equal(t, Point{X: 120, Y: 80}, ToScreen(Point{X: 10, Y: 65}, v))
	})

	t.Run("round trip", func(t *testing.T) {
		r := rand.New(rand.NewSource(42))
		for i := 0; i < 1000; i++ {
			v := View{
				PanX:  (r.Float64() - 0.5) * 1e5,
				PanY:  (r.Float64() - 0.5) * 1e5,
				Scale: math.Exp((r.Float64() - 0.5) * 10),
			}
			p := Point{X: (r.Float64() - 0.5) * 1e4, Y: (r.Float64() - 0.5) * 1e4}
			assertNear(t, p, ToScreen(ToWorld(p, v), v))
		}
	})
}

func TestZoomAt(t *testing.T) {
	t.Run("pointer stays anchored", func(t *testing.T) {
		r := rand.New(rand.NewSource(7))
		for i := 0; i < 1000; i++ {
			v := View{
				PanX:  (r.Float64() - 0.5) * 1e4,
				PanY:  (r.Float64() - 0.5) * 1e4,
				Scale: math.Exp((r.Float64() - 0.5) * 6),
			}
			pointer := Point{X: r.Float64() * 1920, Y: r.Float64() * 1080}
			zoomed := ZoomAt(v, pointer, v.Scale*math.Exp((r.Float64()-0.5)*4))
			assertNear(t, ToWorld(pointer, v), ToWorld(pointer, zoomed))
		}
	})

	t.Run("repeated wheel steps", func(t *testing.T) {
		v := View{PanX: 30, PanY: 40, Scale: 1}
		pointer := Point{X: 400, Y: 300}
		anchor := ToWorld(pointer, v)
		for i := 0; i < 20; i++ {
			v = Wheel(v, pointer, -1)
		}
		assert.InDelta(t, math.Pow(WheelFactor, 20), v.Scale, 1e-9)
		assertNear(t, anchor, ToWorld(pointer, v))

		for i := 0; i < 20; i++ {
			v = Wheel(v, pointer, 1)
		}
		assert.InDelta(t, 1.0, v.Scale, 1e-9)
		assertNear(t, anchor, ToWorld(pointer, v))
	})
}

func TestPan(t *testing.T) {
	v := Pan(Identity, 15, -5)
	assert.Equal(t, View{PanX: 15, PanY: -5, Scale: 1}, v)
	assert.Equal(t, Point{X: -15, Y: 5}, ToWorld(Point{}, v))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Identity.Validate())
	assert.Error(t, View{Scale: 0}.Validate())
	assert.Error(t, View{Scale: -1}.Validate())
	assert.Error(t, View{Scale: math.Inf(1)}.Validate())
	assert.Error(t, View{PanX: math.NaN(), Scale: 1}.Validate())

	assert.True(t, Point{X: 1, Y: 2}.IsFinite())
	assert.False(t, Point{X: math.NaN()}.IsFinite())
	assert.False(t, Point{Y: math.Inf(-1)}.IsFinite())
}

func TestBounds(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		b := BoundsOf()
		assert.True(t, b.Empty)
		assert.Equal(t, Identity, b.Fit(800, 600))
	})

	t.Run("covers images", func(t *testing.T) {
		b := BoundsOf(Point{X: 0, Y: 0}, Point{X: 300, Y: -100}, Point{X: math.NaN()})
		assert.False(t, b.Empty)
		assert.Equal(t, Point{X: 0, Y: -100}, b.Min)
		assert.Equal(t, Point{X: 500, Y: 200}, b.Max)
		assert.EqualValues(t, 500, b.Width())
		assert.EqualValues(t, 300, b.Height())
	})

	t.Run("fit shows every corner", func(t *testing.T) {
		b := BoundsOf(Point{X: -1000, Y: 50}, Point{X: 2000, Y: 700})
		v := b.Fit(1920, 1080)
		assert.NoError(t, v.Validate())
		for _, corner := range []Point{b.Min, b.Max} {
			s := ToScreen(corner, v)
			assert.True(t, s.X >= -1e-6 && s.X <= 1920+1e-6)
			assert.True(t, s.Y >= -1e-6 && s.Y <= 1080+1e-6)
		}
	})
}
