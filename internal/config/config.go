package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/captionreel/internal/effects"
	"github.com/ivlev/captionreel/internal/overlay"
	"github.com/ivlev/captionreel/internal/text"
)

// Config enumerates every recognized option of a composition job.
type Config struct {
	BackgroundImages   []string          `yaml:"background_images"`
	BackgroundPDF      string            `yaml:"background_pdf"`
	DPI                int               `yaml:"dpi"`
	ImageDurations     []float64         `yaml:"image_durations"`
	ImageMode          string            `yaml:"image_mode"`      // sequential, extend
	DurationSource     string            `yaml:"duration_source"` // images, audio
	TransitionDuration float64           `yaml:"transition_duration"`
	TransitionSound    string            `yaml:"transition_sound"`
	MaxScale           float64           `yaml:"max_scale"`
	FadeDuration       float64           `yaml:"fade_duration"`
	SubtitleFile       string            `yaml:"subtitle_file"`
	BackgroundAudio    string            `yaml:"background_audio"`
	WordsPerClip       int               `yaml:"words_per_clip"`
	TextStyle          text.Style        `yaml:"text_style"`
	Animations         Animations        `yaml:"animations"`
	Watermark          overlay.Watermark `yaml:"watermark"`
	Canvas             Canvas            `yaml:"canvas"`
	FPS                int               `yaml:"fps"`
	Workers            int               `yaml:"workers"` // 0 = one per CPU
	OutputPath         string            `yaml:"output_path"`
	Render             Render            `yaml:"render"`
	Log                Log               `yaml:"log"`
}

type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Render struct {
	Encoder    string `yaml:"encoder"` // empty = best available H.264 encoder
	Quality    int    `yaml:"quality"` // 0 = encoder default
	Preset     string `yaml:"preset"`
	AudioCodec string `yaml:"audio_codec"`
	ShowStats  bool   `yaml:"show_stats"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Animations lists the animation entries applied to each layer tier.
type Animations struct {
	Image []AnimationEntry `yaml:"image"`
	Text  []AnimationEntry `yaml:"text"`
}

// AnimationEntry is either a bare name or a mapping with a name and numeric
// parameters:
//
//	- fade
//	- {name: shake, amplitude: 3}
type AnimationEntry struct {
	Name   string
	Params map[string]float64
}

func (e *AnimationEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		e.Name = value.Value
		return nil
	case yaml.MappingNode:
		e.Params = map[string]float64{}
		for i := 0; i+1 < len(value.Content); i += 2 {
			k, v := value.Content[i], value.Content[i+1]
			if k.Value == "name" {
				e.Name = v.Value
				continue
			}
			f, err := strconv.ParseFloat(v.Value, 64)
			if err != nil {
				return fmt.Errorf("line %d: animation parameter %s must be a number", v.Line, k.Value)
			}
			e.Params[k.Value] = f
		}
		if e.Name == "" {
			return fmt.Errorf("line %d: animation entry without name", value.Line)
		}
		return nil
	}
	return fmt.Errorf("line %d: animation entry must be a name or a mapping", value.Line)
}

// Default returns a config with every option at its default.
func Default() Config {
	return Config{
		DPI:                150,
		ImageMode:          "sequential",
		TransitionDuration: 0.5,
		MaxScale:           1.1,
		FadeDuration:       0.5,
		WordsPerClip:       3,
		TextStyle:          text.DefaultStyle(),
		Watermark:          overlay.Watermark{Position: "top-left", MarginX: 10, Opacity: 1},
		Canvas:             Canvas{Width: 1080, Height: 1920},
		FPS:                30,
		OutputPath:         "output_video.mp4",
		Render:             Render{Preset: "ultrafast", AudioCodec: "aac"},
		Log:                Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML config from path on top of the defaults and validates
// it. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Paths: []string{path}}
		}
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode is Load for an already opened document.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overrides options from CAPTIONREEL_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CAPTIONREEL_OUTPUT"); v != "" {
		c.OutputPath = v
	}
	if v := os.Getenv("CAPTIONREEL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &ConfigError{Problems: []string{fmt.Sprintf("CAPTIONREEL_WORKERS: invalid value %q", v)}}
		}
		c.Workers = n
	}
	if v := os.Getenv("CAPTIONREEL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// AudioDriven reports whether the audio track decides the scene duration.
func (c *Config) AudioDriven() bool {
	switch c.DurationSource {
	case "audio":
		return true
	case "images":
		return false
	}
	return len(c.ImageDurations) == 0
}

// Validate checks option values and cross-field rules, reporting every
// problem at once.
func (c *Config) Validate() error {
	var p []string
	add := func(format string, args ...any) {
		p = append(p, fmt.Sprintf(format, args...))
	}

	switch {
	case len(c.BackgroundImages) == 0 && c.BackgroundPDF == "":
		add("background_images or background_pdf is required")
	case len(c.BackgroundImages) > 0 && c.BackgroundPDF != "":
		add("background_images and background_pdf are mutually exclusive")
	}
	// A directory entry expands to an unknown number of images; the
	// count is checked again once the background source is opened.
	if len(c.BackgroundImages) > 0 && len(c.ImageDurations) > 0 && len(c.ImageDurations) != len(c.BackgroundImages) && !hasDirectory(c.BackgroundImages) {
		add("image_durations has %d entries for %d background_images", len(c.ImageDurations), len(c.BackgroundImages))
	}
	for i, d := range c.ImageDurations {
		if d <= 0 {
			add("image_durations[%d] must be positive, got %g", i, d)
		}
	}
	switch c.ImageMode {
	case "sequential", "extend":
	default:
		add("image_mode must be sequential or extend, got %q", c.ImageMode)
	}
	switch c.DurationSource {
	case "", "images", "audio":
	default:
		add("duration_source must be images or audio, got %q", c.DurationSource)
	}
	if c.AudioDriven() && c.BackgroundAudio == "" {
		add("background_audio is required when the audio decides the duration")
	}
	if c.DurationSource == "images" && len(c.ImageDurations) == 0 {
		add("duration_source images needs image_durations")
	}
	if c.WordsPerClip < 1 {
		add("words_per_clip must be at least 1, got %d", c.WordsPerClip)
	}
	if c.TransitionDuration < 0 {
		add("transition_duration must not be negative")
	}
	if c.MaxScale <= 0 {
		add("max_scale must be positive")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		add("canvas must have a positive size, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.FPS <= 0 {
		add("fps must be positive, got %d", c.FPS)
	}
	if c.Workers < 0 {
		add("workers must not be negative")
	}
	if c.OutputPath == "" {
		add("output_path is required")
	}

	s := c.TextStyle
	switch s.Position {
	case "top", "center", "bottom":
	default:
		add("text_style.position must be top, center or bottom, got %q", s.Position)
	}
	for key, v := range map[string]string{
		"color":        s.Color,
		"stroke_color": s.StrokeColor,
		"bg_color":     s.BgColor,
		"shadow_color": s.ShadowColor,
	} {
		if _, err := text.ParseColor(v); err != nil {
			add("text_style.%s: %v", key, err)
		}
	}
	if s.ShadowOpacity < 0 || s.ShadowOpacity > 1 {
		add("text_style.shadow_opacity must be within [0,1], got %g", s.ShadowOpacity)
	}
	if len(s.ShadowOffset) != 0 && len(s.ShadowOffset) != 2 {
		add("text_style.shadow_offset must be [x, y]")
	}
	if s.Size <= 0 {
		add("text_style.size must be positive")
	}

	w := c.Watermark
	switch w.Position {
	case "top-left", "top-right", "bottom-left", "bottom-right":
	default:
		add("watermark.position must be a corner, got %q", w.Position)
	}
	if w.Opacity < 0 || w.Opacity > 1 {
		add("watermark.opacity must be within [0,1], got %g", w.Opacity)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}

	if len(p) > 0 {
		return &ConfigError{Problems: p}
	}
	return nil
}

func hasDirectory(paths []string) bool {
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && fi.IsDir() {
			return true
		}
	}
	return false
}

// InputPaths lists every file the job reads.
func (c *Config) InputPaths() []string {
	paths := append([]string{}, c.BackgroundImages...)
	for _, p := range []string{c.BackgroundPDF, c.SubtitleFile, c.BackgroundAudio, c.TransitionSound, c.Watermark.Image, c.TextStyle.Font} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// CheckInputs stats every declared input and reports all missing ones
// together.
func (c *Config) CheckInputs() error {
	var missing []string
	for _, p := range c.InputPaths() {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &NotFoundError{Paths: missing}
	}
	return nil
}

// AnimationDefaults exposes the top-level options that animation entries
// fall back to.
func (c *Config) AnimationDefaults() effects.Defaults {
	return effects.Defaults{
		MaxScale:     c.MaxScale,
		Transition:   c.TransitionDuration,
		FadeDuration: c.FadeDuration,
	}
}

// ResolveAnimations parses entries in order. Unknown names are skipped and
// returned as warnings.
func (c *Config) ResolveAnimations(entries []AnimationEntry) ([]effects.Animation, []error) {
	var anims []effects.Animation
	var warnings []error
	for _, e := range entries {
		a, err := effects.Parse(e.Name, e.Params, c.AnimationDefaults())
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		anims = append(anims, a)
	}
	return anims, warnings
}

// ConfigError lists invalid or missing options. It is fatal.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// NotFoundError lists every declared input that does not exist.
type NotFoundError struct {
	Paths []string
}

func (e *NotFoundError) Error() string {
	return "missing input files: " + strings.Join(e.Paths, ", ")
}

func (e *NotFoundError) Is(target error) bool {
	return target == os.ErrNotExist
}
