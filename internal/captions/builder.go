package captions

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/captionreel/internal/effects"
	"github.com/ivlev/captionreel/internal/text"
	"github.com/ivlev/captionreel/internal/timeline"
)

// Rasterizer draws a caption string. Only the bitmap size matters for
// layout; the pixels travel with the layer to the renderer.
type Rasterizer interface {
	Rasterize(s string, style text.Style) (*image.RGBA, error)
}

// Builder turns word groups into caption layers.
type Builder struct {
	Rasterizer Rasterizer
	Style      text.Style
	Canvas     timeline.Size
	Animations []effects.Animation
	Workers    int
	Log        logrus.FieldLogger
}

// Build rasterizes every group in parallel and returns its layers in group
// order. With a shadow style each group yields the shadow layer first, so it
// is drawn beneath the primary.
func (b *Builder) Build(ctx context.Context, groups []timeline.WordGroup) ([]timeline.Layer, error) {
	results := make([][]timeline.Layer, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	if b.Workers > 0 {
		g.SetLimit(b.Workers)
	}
	for i, wg := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layers, err := b.buildGroup(i, wg)
			if err != nil {
				return fmt.Errorf("caption %d %q: %w", i, wg.Text, err)
			}
			results[i] = layers
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []timeline.Layer
	for _, layers := range results {
		out = append(out, layers...)
	}
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"groups": len(groups), "layers": len(out)}).Info("caption layers built")
	}
	return out, nil
}

func (b *Builder) buildGroup(i int, wg timeline.WordGroup) ([]timeline.Layer, error) {
	bmp, err := b.Rasterizer.Rasterize(wg.Text, b.Style)
	if err != nil {
		return nil, err
	}
	size := sizeOf(bmp)

	c := effects.Context{
		Index:        i,
		Duration:     wg.Duration,
		BaseDuration: wg.Duration,
		Canvas:       b.Canvas,
		Size:         size,
		Rest:         Rest(b.Canvas, size, b.Style.Position, b.Style.Margin),
	}
	names := effects.Names(b.Animations)

	primary := timeline.Layer{
		Name:       fmt.Sprintf("caption-%d", i),
		Content:    timeline.Content{Kind: timeline.ContentText, Text: wg.Text, Size: size, Bitmap: bmp},
		Start:      wg.Start,
		Duration:   wg.Duration,
		Alpha:      1,
		Transform:  effects.Resolve(b.Animations, c),
		Animations: names,
	}
	if !b.Style.Shadow {
		return []timeline.Layer{primary}, nil
	}

	sbmp, err := b.Rasterizer.Rasterize(wg.Text, b.Style.Shadowed())
	if err != nil {
		return nil, fmt.Errorf("shadow: %w", err)
	}
	ssize := sizeOf(sbmp)

	// The shadow follows the primary's motion exactly, shifted so both
	// bitmaps share a center, plus the configured offset.
	ox, oy := b.Style.Offset()
	delta := timeline.Point{
		X: float64(size.W-ssize.W)/2 + ox,
		Y: float64(size.H-ssize.H)/2 + oy,
	}
	str := effects.Resolve(b.Animations, c)
	base := str.Position
	str.Position = func(t float64) timeline.Point {
		return base(t).Add(delta)
	}

	shadow := timeline.Layer{
		Name:       fmt.Sprintf("caption-%d-shadow", i),
		Content:    timeline.Content{Kind: timeline.ContentText, Text: wg.Text, Size: ssize, Bitmap: sbmp},
		Start:      wg.Start,
		Duration:   wg.Duration,
		Alpha:      b.Style.ShadowOpacity,
		Transform:  str,
		Animations: names,
	}
	return []timeline.Layer{shadow, primary}, nil
}

// Rest returns the top-left corner that places a bitmap of size horizontally
// centered and vertically at position.
func Rest(canvas, size timeline.Size, position string, margin int) timeline.Point {
	x := float64(canvas.W-size.W) / 2
	switch position {
	case "top":
		return timeline.Point{X: x, Y: float64(margin)}
	case "bottom":
		return timeline.Point{X: x, Y: float64(canvas.H - size.H - margin)}
	}
	return timeline.Point{X: x, Y: float64(canvas.H-size.H) / 2}
}

func sizeOf(img image.Image) timeline.Size {
	b := img.Bounds()
	return timeline.Size{W: b.Dx(), H: b.Dy()}
}
