package manifest

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/captionreel/internal/timeline"
)

const Version = "1"

// Manifest is a static description of a composed scene, meant for
// inspection and diffing between runs.
type Manifest struct {
	Version  string  `yaml:"version"`
	Job      string  `yaml:"job,omitempty"`
	Canvas   string  `yaml:"canvas"`
	Duration float64 `yaml:"duration"`
	FPS      int     `yaml:"fps"`
	Frames   int     `yaml:"frames"`
	Audio    *Audio  `yaml:"audio,omitempty"`
	Sounds   []Sound `yaml:"sounds,omitempty"`
	Layers   []Layer `yaml:"layers"`
}

type Audio struct {
	Input    string  `yaml:"input"`
	Mode     string  `yaml:"mode"`
	Source   float64 `yaml:"source_duration"`
	Duration float64 `yaml:"duration"`
}

type Sound struct {
	Input    string  `yaml:"input"`
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
}

// Layer mirrors timeline.Layer with its transform sampled at a few instants.
type Layer struct {
	Name       string     `yaml:"name"`
	Group      string     `yaml:"group"`
	Z          int        `yaml:"z"`
	Start      float64    `yaml:"start"`
	Duration   float64    `yaml:"duration"`
	Input      string     `yaml:"input,omitempty"`
	Page       *int       `yaml:"page,omitempty"`
	Text       string     `yaml:"text,omitempty"`
	Size       string     `yaml:"size"`
	Alpha      float64    `yaml:"alpha"`
	Animations []string   `yaml:"animations,flow,omitempty"`
	Keyframes  []Keyframe `yaml:"keyframes"`
}

// Keyframe is a layer state at Time, relative to the layer start.
type Keyframe struct {
	Time     float64 `yaml:"time"`
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Scale    float64 `yaml:"scale"`
	Opacity  float64 `yaml:"opacity"`
	Rotation float64 `yaml:"rotation,omitempty"`
}

// New describes scene. Each layer is sampled at samples evenly spaced
// instants of its window, the last one just before the window closes.
func New(scene *timeline.Scene, fps, samples int) *Manifest {
	if samples < 2 {
		samples = 2
	}
	m := &Manifest{
		Version:  Version,
		Canvas:   scene.Canvas.String(),
		Duration: scene.TotalDuration,
		FPS:      fps,
		Frames:   scene.FrameCount(fps),
		Layers:   make([]Layer, 0, len(scene.Layers)),
	}
	if a := scene.Audio; a != nil {
		m.Audio = &Audio{Input: a.Source.Path, Mode: a.Mode.String(), Source: a.Source.Duration, Duration: a.Duration}
	}
	for _, s := range scene.Sounds {
		m.Sounds = append(m.Sounds, Sound{Input: s.Path, Start: s.Start, Duration: s.Duration})
	}

	for i := range scene.Layers {
		l := &scene.Layers[i]
		ml := Layer{
			Name:       l.Name,
			Group:      l.Group.String(),
			Z:          l.Z,
			Start:      l.Start,
			Duration:   l.Duration,
			Size:       l.Content.Size.String(),
			Alpha:      l.Alpha,
			Animations: l.Animations,
		}
		switch l.Content.Kind {
		case timeline.ContentText:
			ml.Text = l.Content.Text
		default:
			ml.Input = l.Content.Image.Path
			if l.Content.Image.Page >= 0 && ml.Input != "" {
				page := l.Content.Image.Page
				ml.Page = &page
			}
		}
		ml.Keyframes = keyframes(l, samples, fps)
		m.Layers = append(m.Layers, ml)
	}
	return m
}

func keyframes(l *timeline.Layer, samples, fps int) []Keyframe {
	// Last sample sits one frame before the exclusive end.
	last := l.Duration - 1/float64(max(fps, 1))
	if last < 0 {
		last = 0
	}
	out := make([]Keyframe, 0, samples)
	for i := 0; i < samples; i++ {
		local := last * float64(i) / float64(samples-1)
		st, ok := l.Sample(l.Start + local)
		if !ok {
			continue
		}
		out = append(out, Keyframe{
			Time:     round(local),
			X:        round(st.Position.X),
			Y:        round(st.Position.Y),
			Scale:    round(st.Scale),
			Opacity:  round(st.Opacity),
			Rotation: round(st.Rotation),
		})
	}
	return out
}

func round(v float64) float64 {
	const k = 1000
	if v < 0 {
		return -float64(int64(-v*k+0.5)) / k
	}
	return float64(int64(v*k+0.5)) / k
}

// Write writes a manifest to a YAML file
func Write(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a manifest from a YAML file
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}
