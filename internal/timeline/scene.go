package timeline

import "math"

type AudioMode int

const (
	AudioPassthrough AudioMode = iota
	AudioLoop
	AudioTrim
)

func (m AudioMode) String() string {
	switch m {
	case AudioLoop:
		return "loop"
	case AudioTrim:
		return "trim"
	}
	return "passthrough"
}

// AudioRef is a decodable audio file with its probed duration.
type AudioRef struct {
	Path     string
	Duration float64
}

// AudioPlan says how the source track is fitted to Duration.
type AudioPlan struct {
	Source   AudioRef
	Mode     AudioMode
	Duration float64
}

// SoundCue is a short effect mixed over the music, e.g. a transition swoosh.
type SoundCue struct {
	Path     string
	Start    float64
	Duration float64
}

// Scene is the render-ready result of composition. Layers are ordered
// back-to-front.
type Scene struct {
	Layers        []Layer
	Canvas        Size
	TotalDuration float64
	Audio         *AudioPlan
	Sounds        []SoundCue
}

// Compose concatenates the layer tiers in drawing order: background first,
// then captions, then fixed overlays. Z is the position in the concatenation.
// The input slices are not modified.
func Compose(background, captions, overlays []Layer, canvas Size, totalDuration float64, audio *AudioPlan) *Scene {
	layers := make([]Layer, 0, len(background)+len(captions)+len(overlays))
	tiers := []struct {
		group  Group
		layers []Layer
	}{
		{GroupBackground, background},
		{GroupCaption, captions},
		{GroupOverlay, overlays},
	}
	for _, tier := range tiers {
		for _, l := range tier.layers {
			l.Group = tier.group
			l.Z = len(layers)
			layers = append(layers, l)
		}
	}

	return &Scene{
		Layers:        layers,
		Canvas:        canvas,
		TotalDuration: totalDuration,
		Audio:         audio,
	}
}

// Sampled pairs a visible layer with its state at the sampled instant.
type Sampled struct {
	Layer *Layer
	State State
}

// Frame returns the layers visible at t, back-to-front. Nothing is visible
// outside [0, TotalDuration).
func (s *Scene) Frame(t float64) []Sampled {
	if t < 0 || t >= s.TotalDuration {
		return nil
	}
	var out []Sampled
	for i := range s.Layers {
		l := &s.Layers[i]
		st, ok := l.Sample(t)
		if !ok {
			continue
		}
		out = append(out, Sampled{Layer: l, State: st})
	}
	return out
}

// FrameCount returns the number of frames needed to cover TotalDuration.
func (s *Scene) FrameCount(fps int) int {
	if fps <= 0 || s.TotalDuration <= 0 {
		return 0
	}
	return int(math.Ceil(s.TotalDuration*float64(fps) - 1e-9))
}
