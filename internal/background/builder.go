package background

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/captionreel/internal/effects"
	"github.com/ivlev/captionreel/internal/timeline"
)

// Mode selects how long each background layer stays visible.
type Mode string

const (
	// Sequential shows each image for its own slot only.
	Sequential Mode = "sequential"
	// Extend keeps each image until the end of the scene, so the next image
	// covers it through its entrance transition instead of cutting.
	Extend Mode = "extend"
)

// MismatchError is returned when image and duration counts differ.
type MismatchError struct {
	Images    int
	Durations int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%d background images but %d durations", e.Images, e.Durations)
}

// Builder turns a list of images with slot durations into background layers.
type Builder struct {
	Canvas     timeline.Size
	Mode       Mode
	Animations []effects.Animation
	// TransitionSound, when set, is played at the start of every layer that
	// enters with slide_up.
	TransitionSound string
	Workers         int
	Log             logrus.FieldLogger
}

// Result holds the built layers and the sound cues their transitions need.
type Result struct {
	Layers []timeline.Layer
	Sounds []timeline.SoundCue
}

// Build creates one layer per image. Layer i starts at the sum of the
// preceding durations. Images are scaled to the canvas height and centered.
func (b *Builder) Build(ctx context.Context, images []timeline.ImageRef, durations []float64, totalDuration float64) (*Result, error) {
	if len(images) != len(durations) {
		return nil, &MismatchError{Images: len(images), Durations: len(durations)}
	}

	starts := make([]float64, len(durations))
	acc := 0.0
	for i, d := range durations {
		if d <= 0 {
			return nil, fmt.Errorf("image %d: duration must be positive, got %f", i, d)
		}
		starts[i] = acc
		acc += d
	}

	layers := make([]timeline.Layer, len(images))
	sounds := make([][]timeline.SoundCue, len(images))

	g, ctx := errgroup.WithContext(ctx)
	if b.Workers > 0 {
		g.SetLimit(b.Workers)
	}
	for i := range images {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			layers[i], sounds[i] = b.buildLayer(i, images[i], starts[i], durations[i], totalDuration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Layers: layers}
	for _, s := range sounds {
		res.Sounds = append(res.Sounds, s...)
	}
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"images": len(layers), "mode": b.mode(), "sounds": len(res.Sounds)}).Info("background layers built")
	}
	return res, nil
}

func (b *Builder) mode() Mode {
	if b.Mode == "" {
		return Sequential
	}
	return b.Mode
}

func (b *Builder) buildLayer(i int, ref timeline.ImageRef, start, slot, total float64) (timeline.Layer, []timeline.SoundCue) {
	duration := slot
	if b.mode() == Extend && total-start > 0 {
		duration = total - start
	}

	size := Fit(ref.Size, b.Canvas)
	c := effects.Context{
		Index:        i,
		Duration:     duration,
		BaseDuration: slot,
		Canvas:       b.Canvas,
		Size:         size,
		Rest: timeline.Point{
			X: float64(b.Canvas.W-size.W) / 2,
			Y: float64(b.Canvas.H-size.H) / 2,
		},
		ExemptFirst: true,
	}

	var sounds []timeline.SoundCue
	if b.TransitionSound != "" {
		for _, a := range b.Animations {
			if s, ok := a.(effects.SlideUp); ok && s.Entrance(c) {
				sounds = append(sounds, timeline.SoundCue{Path: b.TransitionSound, Start: start, Duration: s.Transition})
			}
		}
	}

	return timeline.Layer{
		Name:       fmt.Sprintf("image-%d", i),
		Content:    timeline.Content{Kind: timeline.ContentImage, Image: ref, Size: size},
		Start:      start,
		Duration:   duration,
		Alpha:      1,
		Transform:  effects.Resolve(b.Animations, c),
		Animations: effects.Names(b.Animations),
	}, sounds
}

// Fit scales src to the canvas height, keeping its aspect ratio. A source
// without a known size fills the canvas.
func Fit(src, canvas timeline.Size) timeline.Size {
	if src.W <= 0 || src.H <= 0 {
		return canvas
	}
	w := int(math.Round(float64(src.W) * float64(canvas.H) / float64(src.H)))
	return timeline.Size{W: w, H: canvas.H}
}

// EvenDurations splits total equally across n images.
func EvenDurations(n int, total float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = total / float64(n)
	}
	return out
}
