package background

import (
	"context"
	"errors"
	"testing"

	"github.com/ivlev/captionreel/internal/effects"
	"github.com/ivlev/captionreel/internal/timeline"
)

var canvas = timeline.Size{W: 1080, H: 1920}

func refs(n int) []timeline.ImageRef {
	out := make([]timeline.ImageRef, n)
	for i := range out {
		out[i] = timeline.ImageRef{Path: "f.png", Page: -1, Size: timeline.Size{W: 1000, H: 1000}}
	}
	return out
}

func TestBuildSequential(t *testing.T) {
	b := &Builder{Canvas: canvas, Workers: 2}
	res, err := b.Build(context.Background(), refs(3), []float64{3, 3, 3}, 9)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(res.Layers) != 3 {
		t.Fatalf("Expected 3 layers, got %d", len(res.Layers))
	}
	for i, want := range []float64{0, 3, 6} {
		l := res.Layers[i]
		if l.Start != want || l.Duration != 3 {
			t.Errorf("Layer %d: expected start %.0f duration 3, got %f/%f", i, want, l.Start, l.Duration)
		}
	}
	if res.Layers[0].Content.Size != (timeline.Size{W: 1920, H: 1920}) {
		t.Errorf("Expected image fitted to canvas height, got %v", res.Layers[0].Content.Size)
	}
	if p := res.Layers[0].Transform.Position(0); p != (timeline.Point{X: -420, Y: 0}) {
		t.Errorf("Expected centered rest position, got %v", p)
	}
}

func TestBuildExtend(t *testing.T) {
	b := &Builder{Canvas: canvas, Mode: Extend}
	res, err := b.Build(context.Background(), refs(3), []float64{2, 3, 4}, 9)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []struct{ start, dur float64 }{{0, 9}, {2, 7}, {5, 4}} {
		l := res.Layers[i]
		if l.Start != want.start || l.Duration != want.dur {
			t.Errorf("Layer %d: expected %v, got %f/%f", i, want, l.Start, l.Duration)
		}
	}
}

func TestBuildMismatch(t *testing.T) {
	b := &Builder{Canvas: canvas}
	_, err := b.Build(context.Background(), refs(2), []float64{1}, 1)
	var m *MismatchError
	if !errors.As(err, &m) || m.Images != 2 || m.Durations != 1 {
		t.Errorf("Expected MismatchError, got %v", err)
	}
}

func TestBuildSlideUpExemptsFirstImage(t *testing.T) {
	b := &Builder{
		Canvas:          canvas,
		Mode:            Extend,
		Animations:      []effects.Animation{effects.SlideUp{Transition: 0.2}, effects.Fade{In: 0.5, Out: 0.7}},
		TransitionSound: "swoosh.wav",
	}
	res, err := b.Build(context.Background(), refs(3), []float64{3, 3, 3}, 9)
	if err != nil {
		t.Fatal(err)
	}
	if p := res.Layers[0].Transform.Position(0); p.Y != 0 {
		t.Errorf("First image should not slide, got %v", p)
	}
	if p := res.Layers[1].Transform.Position(0); p.Y != 1920 {
		t.Errorf("Second image should start below the canvas, got %v", p)
	}
	if len(res.Sounds) != 2 {
		t.Fatalf("Expected 2 transition sounds, got %d", len(res.Sounds))
	}
	if res.Sounds[0].Start != 3 || res.Sounds[1].Start != 6 || res.Sounds[0].Duration != 0.2 {
		t.Errorf("Unexpected sound cues: %+v", res.Sounds)
	}
}

func TestBuildScaleUsesSlot(t *testing.T) {
	b := &Builder{Canvas: canvas, Mode: Extend, Animations: []effects.Animation{effects.Scale{Max: 1.2}}}
	res, err := b.Build(context.Background(), refs(2), []float64{4, 4}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if s := res.Layers[0].Transform.Scale(4); s < 1.1999 || s > 1.2001 {
		t.Errorf("Expected peak scale at end of slot, got %f", s)
	}
	if s := res.Layers[1].Transform.Scale(0); s != 1.2 {
		t.Errorf("Second image should start zoomed in, got %f", s)
	}
}

func TestEvenDurations(t *testing.T) {
	d := EvenDurations(4, 20)
	if len(d) != 4 || d[0] != 5 || d[3] != 5 {
		t.Errorf("Unexpected durations %v", d)
	}
	if EvenDurations(0, 10) != nil {
		t.Error("Expected nil for no images")
	}
}
