package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/captionreel/internal/effects"
)

const minimal = `
background_images: [a.png, b.png, c.png]
image_durations: [2, 3, 4]
`

func TestDecodeDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.WordsPerClip != 3 {
		t.Errorf("Expected words_per_clip 3, got %d", cfg.WordsPerClip)
	}
	if cfg.Canvas.Width != 1080 || cfg.Canvas.Height != 1920 {
		t.Errorf("Expected 1080x1920 canvas, got %dx%d", cfg.Canvas.Width, cfg.Canvas.Height)
	}
	if cfg.TextStyle.Size != 90 || cfg.TextStyle.Position != "center" {
		t.Errorf("Expected default text style, got %+v", cfg.TextStyle)
	}
	if cfg.OutputPath != "output_video.mp4" {
		t.Errorf("Expected default output path, got %q", cfg.OutputPath)
	}
	if cfg.AudioDriven() {
		t.Error("Expected image durations to drive the timeline")
	}
}

func TestDecodeImageDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	doc := "background_images: [" + dir + "]\nimage_durations: [3, 3, 3]\n"
	cfg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Expected a directory entry to defer the count check, got %v", err)
	}
	if len(cfg.ImageDurations) != 3 {
		t.Errorf("Expected 3 durations, got %v", cfg.ImageDurations)
	}
}

func TestDecodeAnimations(t *testing.T) {
	doc := minimal + `
animations:
  image: [scale, slide_up]
  text:
    - fade
    - {name: shake, amplitude: 3}
`
	cfg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cfg.Animations.Image) != 2 || cfg.Animations.Image[1].Name != "slide_up" {
		t.Errorf("Unexpected image animations: %+v", cfg.Animations.Image)
	}
	text := cfg.Animations.Text
	if len(text) != 2 || text[1].Name != "shake" || text[1].Params["amplitude"] != 3 {
		t.Errorf("Unexpected text animations: %+v", text)
	}

	anims, warnings := cfg.ResolveAnimations(text)
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	if got := effects.Names(anims); strings.Join(got, ",") != "fade,shake" {
		t.Errorf("Expected fade,shake, got %v", got)
	}
}

func TestAnimationEntryErrors(t *testing.T) {
	tests := []string{
		"animations:\n  text:\n    - {amplitude: 3}\n",
		"animations:\n  text:\n    - {name: shake, amplitude: big}\n",
		"animations:\n  text:\n    - [shake]\n",
	}
	for _, tt := range tests {
		if _, err := Decode(strings.NewReader(minimal + tt)); err == nil {
			t.Errorf("Expected error for %q", tt)
		}
	}
}

func TestResolveUnknownAnimation(t *testing.T) {
	cfg := Default()
	anims, warnings := cfg.ResolveAnimations([]AnimationEntry{{Name: "fade"}, {Name: "explode"}})
	if len(anims) != 1 {
		t.Errorf("Expected 1 animation, got %d", len(anims))
	}
	var w *effects.UnknownAnimationWarning
	if len(warnings) != 1 || !errors.As(warnings[0], &w) || w.Name != "explode" {
		t.Errorf("Expected unknown animation warning, got %v", warnings)
	}
}

func TestUnknownKeyRejected(t *testing.T) {
	_, err := Decode(strings.NewReader(minimal + "word_per_clip: 2\n"))
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		expect string
	}{
		{"no background", "image_durations: [1]\n", "background_images or background_pdf"},
		{"both backgrounds", minimal + "background_pdf: deck.pdf\n", "mutually exclusive"},
		{"count mismatch", "background_images: [a.png]\nimage_durations: [1, 2]\n", "2 entries for 1"},
		{"non-positive duration", "background_images: [a.png]\nimage_durations: [0]\n", "must be positive"},
		{"words per clip", minimal + "words_per_clip: 0\n", "words_per_clip"},
		{"bad mode", minimal + "image_mode: loop\n", "image_mode"},
		{"audio required", "background_images: [a.png]\n", "background_audio is required"},
		{"bad color", minimal + "text_style: {color: notacolor}\n", "text_style.color"},
		{"bad position", minimal + "text_style: {position: left}\n", "text_style.position"},
		{"bad log level", minimal + "log: {level: loud}\n", "log.level"},
		{"bad watermark corner", minimal + "watermark: {position: middle}\n", "watermark.position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Expected ConfigError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.expect) {
				t.Errorf("Expected %q in %q", tt.expect, err.Error())
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.WordsPerClip = 0
	cfg.FPS = 0
	err := cfg.Validate()
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
	if len(ce.Problems) < 3 {
		t.Errorf("Expected every problem reported, got %v", ce.Problems)
	}
}

func TestAudioDriven(t *testing.T) {
	doc := "background_images: [a.png, b.png]\nbackground_audio: song.mp3\n"
	cfg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cfg.AudioDriven() {
		t.Error("Expected audio to drive the timeline without durations")
	}
	cfg.DurationSource = "images"
	cfg.ImageDurations = []float64{1, 1}
	if cfg.AudioDriven() {
		t.Error("Expected duration_source images to win")
	}
}

func TestCheckInputs(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.png")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	cfg.BackgroundImages = []string{present, filepath.Join(dir, "b.png")}
	cfg.SubtitleFile = filepath.Join(dir, "subs.srt")

	err := cfg.CheckInputs()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Expected not-exist error, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || len(nf.Paths) != 2 {
		t.Fatalf("Expected both missing paths, got %v", err)
	}

	cfg.BackgroundImages = []string{present}
	cfg.SubtitleFile = ""
	if err := cfg.CheckInputs(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CAPTIONREEL_OUTPUT", "/tmp/out.mp4")
	t.Setenv("CAPTIONREEL_WORKERS", "4")
	t.Setenv("CAPTIONREEL_LOG_LEVEL", "debug")
	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.OutputPath != "/tmp/out.mp4" || cfg.Workers != 4 || cfg.Log.Level != "debug" {
		t.Errorf("Environment not applied: %+v", cfg)
	}

	t.Setenv("CAPTIONREEL_WORKERS", "many")
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("Expected error for bad worker count")
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
