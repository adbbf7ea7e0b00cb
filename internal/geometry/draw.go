package geometry

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		yTop := rect.Min.Y + t
		yBot := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBot, col)
		}
	}
	for t := range thickness {
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}

// FillRect blends a translucent fill over rect.
func FillRect(dst *image.RGBA, rect image.Rectangle, col color.Color) {
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, &image.Uniform{C: col}, image.Point{}, draw.Over)
}

// LabelFace is the face used for overlay labels.
var LabelFace font.Face = basicfont.Face7x13

// MeasureLabel returns the pixel size of text rendered with LabelFace.
func MeasureLabel(text string) (int, int) {
	return font.MeasureString(LabelFace, text).Ceil(), LabelFace.Metrics().Height.Ceil()
}

// DrawLabel writes text on a filled background whose top-left corner is at. The
// label is placed above the anchor when there is room, otherwise inside it.
func DrawLabel(dst *image.RGBA, at image.Point, text string, fg, bg color.Color) {
	if text == "" {
		return
	}
	w, h := MeasureLabel(text)
	top := at.Y - h - 2
	if top < dst.Bounds().Min.Y {
		top = at.Y
	}
	if bg != nil {
		FillRect(dst, image.Rect(at.X, top, at.X+w+4, top+h+2), bg)
	}
	if fg == nil {
		fg = color.Black
	}

	ascent := LabelFace.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{C: fg},
		Face: LabelFace,
		Dot:  fixed.P(at.X+2, top+1+ascent),
	}
	d.DrawString(text)
}
