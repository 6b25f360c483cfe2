package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

type pointF struct {
	X float64
	Y float64
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	imagedraw.Draw(img, image.Rect(x, y, x+1, y+1), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func fillRect(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	if rect.Empty() {
		return
	}
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawOver(img *image.RGBA, rect image.Rectangle, src image.Image) {
	imagedraw.Draw(img, rect, src, image.Point{}, imagedraw.Over)
}

// drawRoundedPanel fills rect with rounded corners; each pixel is painted once.
func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	if m := min(rect.Dx(), rect.Dy()) / 2; radius > m {
		radius = m
	}
	if radius <= 0 {
		fillRect(img, rect, clr)
		return
	}
	fillRect(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), clr)
	for dy := 0; dy < radius; dy++ {
		// horizontal inset for this row of the corner arc
		cy := float64(radius) - float64(dy) - 0.5
		inset := radius - int(math.Round(math.Sqrt(float64(radius*radius)-cy*cy)))
		fillRect(img, image.Rect(rect.Min.X+inset, rect.Min.Y+dy, rect.Max.X-inset, rect.Min.Y+dy+1), clr)
		fillRect(img, image.Rect(rect.Min.X+inset, rect.Max.Y-dy-1, rect.Max.X-inset, rect.Max.Y-dy), clr)
	}
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if inTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func inTriangle(x, y float64, a, b, c pointF) bool {
	d := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if d == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / d
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / d
	return alpha >= 0 && beta >= 0 && 1-alpha-beta >= 0
}

// drawArrow paints a shaft plus head from the centre of from to the centre of to.
func drawArrow(img *image.RGBA, from, to image.Rectangle, clr color.Color) {
	size := float64(from.Dx())
	start := pointF{float64(from.Min.X) + size/2, float64(from.Min.Y) + size/2}
	end := pointF{float64(to.Min.X) + size/2, float64(to.Min.Y) + size/2}
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	px, py := -uy, ux

	shaft := length - size*0.45
	if shaft < size*0.35 {
		shaft = length * 0.6
	}
	half := size * 0.12
	head := size * 0.24
	base := pointF{start.X + ux*shaft, start.Y + uy*shaft}

	s1 := pointF{start.X - px*half, start.Y - py*half}
	s2 := pointF{start.X + px*half, start.Y + py*half}
	e1 := pointF{base.X - px*half, base.Y - py*half}
	e2 := pointF{base.X + px*half, base.Y + py*half}
	fillTriangle(img, s1, s2, e2, clr)
	fillTriangle(img, s1, e2, e1, clr)

	h1 := pointF{base.X - px*head, base.Y - py*head}
	h2 := pointF{base.X + px*head, base.Y + py*head}
	fillTriangle(img, end, h1, h2, clr)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	text = strings.TrimSpace(text)
	if text == "" || maxWidth <= 0 {
		return text
	}
	d := font.Drawer{Face: face}
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if c := string(runes) + "..."; d.MeasureString(c).Round() <= maxWidth {
			return c
		}
	}
	return ""
}

func drawCenteredString(d *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m := d.Face.Metrics()
	width := d.MeasureString(text).Round()
	x := max(rect.Min.X+(rect.Dx()-width)/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

func drawCenteredText(d *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}
