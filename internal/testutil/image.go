package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FormLine is a label printed onto a generated form page.
type FormLine struct {
	Text string
	X, Y int
}

// DefaultFormLines roughly follows the layout of the KYC form's first page.
var DefaultFormLines = []FormLine{
	{"First Name: JANE", 40, 60},
	{"Last Name: DOE", 40, 90},
	{"Passport Number: X1234567", 40, 120},
	{"Date of Birth: 1990-01-31", 40, 150},
}

// GenerateFormImage draws a white page of the given size with lines of text.
func GenerateFormImage(width, height int, lines ...FormLine) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: color.Black},
		Face: basicfont.Face7x13,
	}
	for _, l := range lines {
		d.Dot = fixed.P(l.X, l.Y)
		d.DrawString(l.Text)
	}
	return img
}

// PNG encodes img, panicking on failure since inputs are always in-memory images.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// FormPNG returns an encoded form page.
func FormPNG(width, height int) []byte {
	return PNG(GenerateFormImage(width, height, DefaultFormLines...))
}
