package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/captionreel/internal/system"
	"github.com/ivlev/captionreel/internal/timeline"
)

// Loader decodes file-backed layer content.
type Loader interface {
	Load(ref timeline.ImageRef) (image.Image, error)
}

// Compositor paints a Scene frame onto an RGBA canvas. Layers are drawn in
// ascending z with source-over blending.
type Compositor struct {
	Loader       Loader
	Background   color.Color       // canvas fill, black when nil
	Interpolator draw.Interpolator // resampling for scaled or rotated layers, ApproxBiLinear when nil
}

// NewFrame returns a pooled canvas sized for scene. Release it with
// system.PutImage once encoded.
func NewFrame(scene *timeline.Scene) *image.RGBA {
	return system.GetImage(image.Rect(0, 0, scene.Canvas.W, scene.Canvas.H))
}

// Paint clears dst and draws every layer visible at t.
func (c *Compositor) Paint(dst *image.RGBA, scene *timeline.Scene, t float64) error {
	bg := c.Background
	if bg == nil {
		bg = color.Black
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, s := range scene.Frame(t) {
		if s.State.Opacity <= 0 {
			continue
		}
		src, err := c.bitmap(s.Layer)
		if err != nil {
			return fmt.Errorf("layer %s: %w", s.Layer.Name, err)
		}
		c.drawLayer(dst, src, s.Layer.Content.Size, s.State)
	}
	return nil
}

func (c *Compositor) bitmap(l *timeline.Layer) (image.Image, error) {
	if l.Content.Bitmap != nil {
		return l.Content.Bitmap, nil
	}
	if c.Loader == nil {
		return nil, fmt.Errorf("no loader for %s", l.Content.Image.Path)
	}
	return c.Loader.Load(l.Content.Image)
}

func (c *Compositor) drawLayer(dst *image.RGBA, src image.Image, size timeline.Size, st timeline.State) {
	sr := src.Bounds()
	if sr.Empty() {
		return
	}
	if dx := int(math.Round(st.Shift.X)); dx != 0 {
		rolled := roll(src, dx)
		defer system.PutImage(rolled)
		src = rolled
		sr = rolled.Bounds()
	}

	var mask image.Image
	if st.Opacity < 1 {
		mask = image.NewUniform(color.Alpha16{A: uint16(st.Opacity*0xffff + 0.5)})
	}

	w, h := size.W, size.H
	if w <= 0 || h <= 0 {
		w, h = sr.Dx(), sr.Dy()
	}

	// Integer placement at native size needs no resampling.
	if st.Scale == 1 && st.Rotation == 0 && !st.FlipX && w == sr.Dx() && h == sr.Dy() &&
		st.Position.X == math.Trunc(st.Position.X) && st.Position.Y == math.Trunc(st.Position.Y) {
		at := image.Pt(int(st.Position.X), int(st.Position.Y))
		r := image.Rectangle{Min: at, Max: at.Add(sr.Size())}
		draw.DrawMask(dst, r, src, sr.Min, mask, image.Point{}, draw.Over)
		return
	}

	interp := c.Interpolator
	if interp == nil {
		interp = draw.ApproxBiLinear
	}
	var opts *draw.Options
	if mask != nil {
		opts = &draw.Options{SrcMask: mask}
	}
	interp.Transform(dst, Affine(sr, w, h, st), src, sr, draw.Over, opts)
}

// Affine maps source pixels of sr onto the canvas: the content is stretched
// to w×h, scaled around its center, mirrored when FlipX is set, rotated
// counter-clockwise by Rotation degrees and centred on Position + (w/2, h/2).
func Affine(sr image.Rectangle, w, h int, st timeline.State) f64.Aff3 {
	sw, sh := float64(sr.Dx()), float64(sr.Dy())
	kx := float64(w) / sw * st.Scale
	ky := float64(h) / sh * st.Scale
	if st.FlipX {
		kx = -kx
	}
	sin, cos := math.Sincos(st.Rotation * math.Pi / 180)

	a, b := cos*kx, sin*ky
	d, e := -sin*kx, cos*ky
	ox := float64(sr.Min.X) + sw/2
	oy := float64(sr.Min.Y) + sh/2
	cx := st.Position.X + float64(w)/2
	cy := st.Position.Y + float64(h)/2
	return f64.Aff3{
		a, b, cx - a*ox - b*oy,
		d, e, cy - d*ox - e*oy,
	}
}

// roll shifts src horizontally by dx pixels, wrapping around its width.
func roll(src image.Image, dx int) *image.RGBA {
	sr := src.Bounds()
	w := sr.Dx()
	dx %= w
	if dx < 0 {
		dx += w
	}
	out := system.GetImage(image.Rect(0, 0, w, sr.Dy()))
	draw.Draw(out, image.Rect(dx, 0, w, sr.Dy()), src, sr.Min, draw.Src)
	if dx > 0 {
		draw.Draw(out, image.Rect(0, 0, dx, sr.Dy()), src, image.Pt(sr.Max.X-dx, sr.Min.Y), draw.Src)
	}
	return out
}
