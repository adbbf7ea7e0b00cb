package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/MeKo-Tech/kyclens/internal/extraction"
	"github.com/MeKo-Tech/kyclens/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whitePage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 16, A: 255}, ParseHexColor("#ff0010"))
	assert.Equal(t, color.RGBA{R: 0, G: 255, B: 0, A: 255}, ParseHexColor("00ff00"))
	assert.Nil(t, ParseHexColor(""))
	assert.Nil(t, ParseHexColor("#fff"))
	assert.Nil(t, ParseHexColor("zzzzzz"))
}

func TestRenderDrawsOutline(t *testing.T) {
	page := whitePage(200, 100)
	rects := []ScreenRect{{X: 20, Y: 40, Width: 60, Height: 30, Label: "Name"}}

	style := DefaultStyle()
	style.FillColor = nil
	style.ShowLabels = false
	out := Render(page, rects, style)

	require.NotNil(t, out)
	assert.Equal(t, page.Bounds(), out.Bounds())
	assert.Equal(t, style.BoxColor, out.At(20, 40))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(50, 55))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, page.RGBAAt(20, 40), "input is not modified")
}

func TestRenderNilPage(t *testing.T) {
	assert.Nil(t, Render(nil, nil, DefaultStyle()))
}

func TestLayerIsTransparentOutsideRects(t *testing.T) {
	layer := Layer(100, 100, []ScreenRect{{X: 10, Y: 30, Width: 20, Height: 20, Label: "A"}}, DefaultStyle())
	assert.Equal(t, uint8(0), layer.RGBAAt(90, 90).A)
	assert.Equal(t, uint8(255), layer.RGBAAt(10, 30).A)
}

func TestResizeKeepsAspect(t *testing.T) {
	page := whitePage(200, 100)
	resized := Resize(page, 100)
	assert.Equal(t, RenderedSize{Width: 100, Height: 50}, SizeOf(resized))
	assert.Same(t, page, Resize(page, 0))
}

func TestExportPDF(t *testing.T) {
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, whitePage(300, 400)))

	es := normalize.Fields([]extraction.FieldResult{
		{Name: "FirstName", Value: "John", Box: extraction.PointRect(0.1, 0.1, 0.3, 0.05)},
	}, nil)

	data, err := ExportPDF([]ExportPage{
		{Index: 0, Image: pngBuf.Bytes(), Entities: es},
		{Index: 1, Dimension: &extraction.PageDimension{Width: 612, Height: 792}},
		{Index: 2},
	}, DefaultStyle())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = ExportPDF(nil, DefaultStyle())
	assert.Error(t, err)

	_, err = ExportPDF([]ExportPage{{Index: 0, Image: []byte("not an image")}}, DefaultStyle())
	assert.Error(t, err)
}
