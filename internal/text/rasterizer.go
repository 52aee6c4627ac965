package text

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Rasterizer turns caption text into RGBA bitmaps. Parsed fonts are cached;
// a face is created per call because faces are not safe for concurrent use.
type Rasterizer struct {
	// WrapWidth is the caption box width used when a style does not set one.
	WrapWidth int

	mu    sync.Mutex
	fonts map[string]*opentype.Font
}

func NewRasterizer(wrapWidth int) *Rasterizer {
	return &Rasterizer{
		WrapWidth: wrapWidth,
		fonts:     make(map[string]*opentype.Font),
	}
}

// Rasterize draws s with style. In caption mode (a non-zero wrap width) words
// are wrapped greedily and the bitmap is exactly the wrap width wide, lines
// centered; otherwise the bitmap hugs the text.
func (r *Rasterizer) Rasterize(s string, style Style) (*image.RGBA, error) {
	face, err := r.face(style)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	fill, err := ParseColor(style.Color)
	if err != nil {
		return nil, err
	}
	strokeName := style.StrokeColor
	if strokeName == "" {
		strokeName = style.Color
	}
	stroke, err := ParseColor(strokeName)
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(style.BgColor)
	if err != nil {
		return nil, err
	}

	pad := style.StrokeWidth
	if pad < 0 {
		pad = 0
	}
	wrap := style.WrapWidth
	if wrap == 0 {
		wrap = r.WrapWidth
	}

	lines := Wrap(face, s, wrap-2*pad)
	m := face.Metrics()
	lineH := m.Height.Ceil()
	ascent := m.Ascent.Ceil()

	width := wrap
	if width <= 0 {
		for _, l := range lines {
			if w := font.MeasureString(face, l).Ceil(); w > width {
				width = w
			}
		}
		width += 2 * pad
	}
	height := len(lines)*lineH + 2*pad
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	bounds := image.Rect(0, 0, width, height)

	mask := image.NewAlpha(bounds)
	d := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}
	for i, l := range lines {
		lw := font.MeasureString(face, l).Ceil()
		d.Dot = fixed.P((width-lw)/2, pad+ascent+i*lineH)
		d.DrawString(l)
	}

	out := image.NewRGBA(bounds)
	if !isTransparent(bg) {
		draw.Draw(out, bounds, image.NewUniform(bg), image.Point{}, draw.Src)
	}
	if style.StrokeWidth > 0 {
		outline := dilate(mask, style.StrokeWidth)
		draw.DrawMask(out, bounds, image.NewUniform(stroke), image.Point{}, outline, image.Point{}, draw.Over)
	}
	draw.DrawMask(out, bounds, image.NewUniform(fill), image.Point{}, mask, image.Point{}, draw.Over)
	return out, nil
}

// face opens style.Font, or the bundled Go Regular when no font is set,
// at style.Size pixels.
func (r *Rasterizer) face(style Style) (font.Face, error) {
	f, err := r.font(style.Font)
	if err != nil {
		return nil, err
	}

	size := style.Size
	if size <= 0 {
		size = 90
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (r *Rasterizer) font(path string) (*opentype.Font, error) {
	r.mu.Lock()
	f, ok := r.fonts[path]
	r.mu.Unlock()
	if ok {
		return f, nil
	}

	data := goregular.TTF
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	r.mu.Lock()
	r.fonts[path] = f
	r.mu.Unlock()
	return f, nil
}

// Wrap breaks s into lines no wider than width. Newlines count as spaces.
// A width of zero or less keeps everything on one line. A single word wider
// than width gets its own line.
func Wrap(face font.Face, s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		next := cur + " " + w
		if font.MeasureString(face, next).Ceil() <= width {
			cur = next
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, cur)
}

// dilate grows mask by radius pixels in every direction.
func dilate(mask *image.Alpha, radius int) *image.Alpha {
	b := mask.Bounds()
	out := image.NewAlpha(b)
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			draw.Draw(out, b.Add(image.Pt(dx, dy)), mask, b.Min, draw.Over)
		}
	}
	return out
}
