package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxOrdersCorners(t *testing.T) {
	b := NewBox(10, 20, 2, 5)
	assert.Equal(t, Box{MinX: 2, MinY: 5, MaxX: 10, MaxY: 20}, b)
	assert.InDelta(t, 8.0, b.Width(), 1e-9)
	assert.InDelta(t, 15.0, b.Height(), 1e-9)
}

func TestBoundingBox(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want Box
	}{
		{"empty", nil, Box{}},
		{"single", []Point{{X: 3, Y: 4}}, Box{MinX: 3, MinY: 4, MaxX: 3, MaxY: 4}},
		{"two corners", []Point{{X: 10, Y: 10}, {X: 110, Y: 60}}, Box{MinX: 10, MinY: 10, MaxX: 110, MaxY: 60}},
		{
			"unordered quad",
			[]Point{{X: 0.4, Y: 0.2}, {X: 0.1, Y: 0.25}, {X: 0.3, Y: 0.05}, {X: 0.2, Y: 0.3}},
			Box{MinX: 0.1, MinY: 0.05, MaxX: 0.4, MaxY: 0.3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BoundingBox(tt.pts))
		})
	}
}

func TestBoxEmptyAndFinite(t *testing.T) {
	assert.True(t, FromRect(0, 0, 0, 5).Empty())
	assert.True(t, FromRect(0, 0, 5, -1).Empty())
	assert.False(t, FromRect(1, 1, 2, 2).Empty())
	assert.True(t, FromRect(1, 1, 2, 2).Finite())
	assert.False(t, Box{MinX: math.NaN()}.Finite())
	assert.False(t, Box{MaxY: math.Inf(1)}.Finite())
}

func TestBoxClampAndScale(t *testing.T) {
	b := Box{MinX: -0.1, MinY: 0.5, MaxX: 1.2, MaxY: 0.9}.Clamp(0, 1)
	assert.Equal(t, Box{MinX: 0, MinY: 0.5, MaxX: 1, MaxY: 0.9}, b)

	s := b.Scale(100, 200)
	assert.InDelta(t, 100.0, s.MaxX, 1e-9)
	assert.InDelta(t, 180.0, s.MaxY, 1e-9)
}

func TestToRectClampsToBounds(t *testing.T) {
	r := Box{MinX: -5, MinY: 2.4, MaxX: 50.2, MaxY: 8.1}.ToRect(image.Rect(0, 0, 40, 40))
	assert.Equal(t, image.Rect(0, 2, 40, 9), r)
}

func TestDrawRectAndLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 60))
	red := color.RGBA{R: 255, A: 255}
	DrawRect(img, image.Rect(10, 30, 60, 50), red, 2)

	assert.Equal(t, red, img.RGBAAt(10, 30))
	assert.Equal(t, red, img.RGBAAt(59, 49))
	assert.Equal(t, red, img.RGBAAt(11, 40))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(30, 40), "interior stays untouched")

	DrawLabel(img, image.Pt(10, 30), "Name", color.White, color.RGBA{B: 200, A: 255})
	w, h := MeasureLabel("Name")
	require.Positive(t, w)
	require.Positive(t, h)
	assert.Equal(t, uint8(200), img.RGBAAt(11, 30-h).B, "label background sits above the box")
}

func TestBoundingBoxContainsAllPoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genPoint := gopter.CombineGens(
		gen.Float64Range(-1000, 1000),
		gen.Float64Range(-1000, 1000),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})

	properties.Property("every point lies inside the bounding box", prop.ForAll(
		func(pts []Point) bool {
			if len(pts) == 0 {
				return true
			}
			b := BoundingBox(pts)
			for _, p := range pts {
				if p.X < b.MinX || p.X > b.MaxX || p.Y < b.MinY || p.Y > b.MaxY {
					return false
				}
			}
			return b.Width() >= 0 && b.Height() >= 0
		},
		gen.SliceOfN(6, genPoint),
	))

	properties.TestingRun(t)
}
