package manifest

import (
	"path/filepath"
	"testing"

	"github.com/ivlev/captionreel/internal/timeline"
)

func testScene() *timeline.Scene {
	bg := timeline.Layer{
		Name:      "image-0",
		Content:   timeline.Content{Kind: timeline.ContentImage, Image: timeline.ImageRef{Path: "deck.pdf", Page: 2}, Size: timeline.Size{W: 1080, H: 1920}},
		Duration:  2,
		Alpha:     1,
		Transform: timeline.Identity(timeline.Point{}),
	}
	fade := timeline.Identity(timeline.Point{X: 10, Y: 20})
	fade.Opacity = func(t float64) float64 { return t / 2 }
	caption := timeline.Layer{
		Name:       "caption-0",
		Content:    timeline.Content{Kind: timeline.ContentText, Text: "hello world", Size: timeline.Size{W: 300, H: 90}},
		Start:      0.5,
		Duration:   1,
		Alpha:      1,
		Transform:  fade,
		Animations: []string{"fade"},
	}
	audio := &timeline.AudioPlan{Source: timeline.AudioRef{Path: "song.mp3", Duration: 1}, Mode: timeline.AudioLoop, Duration: 2}
	scene := timeline.Compose([]timeline.Layer{bg}, []timeline.Layer{caption}, nil, timeline.Size{W: 1080, H: 1920}, 2, audio)
	scene.Sounds = []timeline.SoundCue{{Path: "whoosh.wav", Start: 0, Duration: 0.5}}
	return scene
}

func TestNew(t *testing.T) {
	m := New(testScene(), 10, 3)

	if m.Canvas != "1080x1920" || m.Frames != 20 {
		t.Errorf("Unexpected header: %+v", m)
	}
	if m.Audio == nil || m.Audio.Mode != "loop" {
		t.Errorf("Expected loop audio, got %+v", m.Audio)
	}
	if len(m.Sounds) != 1 {
		t.Errorf("Expected 1 sound, got %d", len(m.Sounds))
	}
	if len(m.Layers) != 2 {
		t.Fatalf("Expected 2 layers, got %d", len(m.Layers))
	}

	bg := m.Layers[0]
	if bg.Group != "background" || bg.Page == nil || *bg.Page != 2 || bg.Input != "deck.pdf" {
		t.Errorf("Unexpected background entry: %+v", bg)
	}

	caption := m.Layers[1]
	if caption.Text != "hello world" || caption.Z <= bg.Z {
		t.Errorf("Unexpected caption entry: %+v", caption)
	}
	if len(caption.Keyframes) != 3 {
		t.Fatalf("Expected 3 keyframes, got %d", len(caption.Keyframes))
	}
	first, last := caption.Keyframes[0], caption.Keyframes[2]
	if first.Time != 0 || first.Opacity != 0 || first.X != 10 || first.Y != 20 {
		t.Errorf("Unexpected first keyframe: %+v", first)
	}
	if last.Time != 0.9 || last.Opacity != 0.45 {
		t.Errorf("Unexpected last keyframe: %+v", last)
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	m := New(testScene(), 10, 2)
	m.Job = "job-1"
	if err := Write(m, path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Job != "job-1" || len(got.Layers) != 2 || got.Layers[1].Animations[0] != "fade" {
		t.Errorf("Unexpected manifest: %+v", got)
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
