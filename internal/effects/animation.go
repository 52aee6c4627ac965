package effects

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ivlev/captionreel/internal/timeline"
)

// Context carries the per-layer values an animation may depend on. It is
// captured by value when the layer is built, so resolved functions never see
// iteration state of the builder that created them.
type Context struct {
	Index        int
	Duration     float64 // visible duration of the layer
	BaseDuration float64 // slot duration; equals Duration unless the layer was extended
	Canvas       timeline.Size
	Size         timeline.Size // content size at scale 1
	Rest         timeline.Point
	ExemptFirst  bool // slide_up and shake leave Index 0 at rest
}

func (c Context) slot() float64 {
	if c.BaseDuration > 0 {
		return c.BaseDuration
	}
	return c.Duration
}

// Animation is one entry of a layer's animation list. The set of
// implementations is closed.
type Animation interface {
	Name() string
	apply(tr *timeline.Transform, c Context)
}

// Resolve folds the animations over the identity transform in list order.
// Each animation replaces the channel it owns, so the last writer wins.
func Resolve(anims []Animation, c Context) timeline.Transform {
	tr := timeline.Identity(c.Rest)
	for _, a := range anims {
		a.apply(&tr, c)
	}
	return tr
}

// Names lists animation names for logs and manifests.
func Names(anims []Animation) []string {
	out := make([]string, 0, len(anims))
	for _, a := range anims {
		out = append(out, a.Name())
	}
	return out
}

// Fade ramps opacity up over In seconds and down over the last Out seconds.
type Fade struct {
	In  float64
	Out float64
}

func (Fade) Name() string { return "fade" }

func (a Fade) apply(tr *timeline.Transform, c Context) {
	in, out, d := a.In, a.Out, c.Duration
	tr.Opacity = func(t float64) float64 {
		v := 1.0
		if in > 0 && t < in {
			v = t / in
		}
		if out > 0 && t > d-out {
			v = math.Min(v, (d-t)/out)
		}
		return clamp01(v)
	}
}

// FadeIn ramps opacity from 0 to 1 over Duration.
type FadeIn struct {
	Duration float64
}

func (FadeIn) Name() string { return "fadein" }

func (a FadeIn) apply(tr *timeline.Transform, c Context) {
	Fade{In: a.Duration}.apply(tr, c)
}

// FadeOut ramps opacity from 1 to 0 over the last Duration seconds.
type FadeOut struct {
	Duration float64
}

func (FadeOut) Name() string { return "fadeout" }

func (a FadeOut) apply(tr *timeline.Transform, c Context) {
	Fade{Out: a.Duration}.apply(tr, c)
}

// Scale zooms linearly between 1 and Max over the slot duration. Even layer
// indices zoom in, odd ones zoom out. A positive Rate switches to unbounded
// growth 1+Rate*t.
type Scale struct {
	Max  float64
	Rate float64
}

func (Scale) Name() string { return "scale" }

func (a Scale) apply(tr *timeline.Transform, c Context) {
	if a.Rate > 0 {
		rate := a.Rate
		tr.Scale = func(t float64) float64 { return 1 + rate*t }
		return
	}
	peak, d := a.Max, c.slot()
	up := c.Index%2 == 0
	tr.Scale = func(t float64) float64 {
		if d <= 0 {
			return 1
		}
		if up {
			return 1 + (peak-1)*t/d
		}
		return peak - (peak-1)*t/d
	}
}

// Shake displaces the layer on a circle of radius Amplitude.
type Shake struct {
	Amplitude float64
	Frequency float64
}

func (Shake) Name() string { return "shake" }

func (a Shake) apply(tr *timeline.Transform, c Context) {
	if c.ExemptFirst && c.Index == 0 {
		return
	}
	amp, w := a.Amplitude, 2*math.Pi*a.Frequency
	tr.Offset = func(t float64) timeline.Point {
		return timeline.Point{X: amp * math.Sin(w*t), Y: amp * math.Cos(w*t)}
	}
}

// SlideUp moves the layer from the bottom edge of the canvas to its resting
// position over Transition seconds, then holds.
type SlideUp struct {
	Transition float64
}

func (SlideUp) Name() string { return "slide_up" }

func (a SlideUp) apply(tr *timeline.Transform, c Context) {
	if c.ExemptFirst && c.Index == 0 {
		return
	}
	rest, from, window := c.Rest, float64(c.Canvas.H), a.Transition
	tr.Position = func(t float64) timeline.Point {
		progress := 1.0
		if window > 0 {
			progress = math.Min(t/window, 1)
		}
		return timeline.Point{X: rest.X, Y: lerp(from, rest.Y, progress)}
	}
}

// Entrance reports whether SlideUp changes the layer described by c.
func (a SlideUp) Entrance(c Context) bool {
	return !(c.ExemptFirst && c.Index == 0)
}

// Wiggle oscillates the layer vertically around Baseline, or around its
// resting y when no baseline is set.
type Wiggle struct {
	Amplitude   float64
	Frequency   float64
	Baseline    float64
	HasBaseline bool
}

func (Wiggle) Name() string { return "wiggle" }

func (a Wiggle) apply(tr *timeline.Transform, c Context) {
	base := c.Rest.Y
	if a.HasBaseline {
		base = a.Baseline
	}
	x, amp, w := c.Rest.X, a.Amplitude, 2*math.Pi*a.Frequency
	tr.Position = func(t float64) timeline.Point {
		return timeline.Point{X: x, Y: base + amp*math.Sin(w*t)}
	}
}

// Bounce lifts the layer by Height*|sin(2*pi*t/Period)|. Period defaults to
// the layer duration.
type Bounce struct {
	Height float64
	Period float64
}

func (Bounce) Name() string { return "bounce" }

func (a Bounce) apply(tr *timeline.Transform, c Context) {
	period := a.Period
	if period <= 0 {
		period = c.Duration
	}
	rest, h := c.Rest, a.Height
	tr.Position = func(t float64) timeline.Point {
		if period <= 0 {
			return rest
		}
		return timeline.Point{X: rest.X, Y: rest.Y + h*math.Abs(math.Sin(2*math.Pi*t/period))}
	}
}

// Rotate turns the layer at Rate degrees per second.
type Rotate struct {
	Rate float64
}

func (Rotate) Name() string { return "rotate" }

func (a Rotate) apply(tr *timeline.Transform, c Context) {
	k := a.Rate
	tr.Rotation = func(t float64) float64 { return k * t }
}

// Blink shows the layer for Period seconds, hides it for the next Period.
type Blink struct {
	Period float64
}

func (Blink) Name() string { return "blink" }

func (a Blink) apply(tr *timeline.Transform, c Context) {
	p := a.Period
	tr.Opacity = func(t float64) float64 {
		if p <= 0 || math.Mod(t, 2*p) < p {
			return 1
		}
		return 0
	}
}

// Wave rolls the layer bitmap horizontally by Amplitude*sin(2*pi*Frequency*t)
// pixels. The roll wraps inside the bitmap and does not move the layer.
type Wave struct {
	Amplitude float64
	Frequency float64
}

func (Wave) Name() string { return "wave" }

func (a Wave) apply(tr *timeline.Transform, c Context) {
	amp, w := a.Amplitude, 2*math.Pi*a.Frequency
	tr.Shift = func(t float64) timeline.Point {
		return timeline.Point{X: amp * math.Sin(w*t)}
	}
}

// Flip mirrors the layer horizontally.
type Flip struct{}

func (Flip) Name() string { return "flip" }

func (Flip) apply(tr *timeline.Transform, c Context) {
	tr.FlipX = true
}

// Swing is accepted by name but has no effect yet.
// TODO: define the swing rotation curve; existing configs already reference the name.
type Swing struct{}

func (Swing) Name() string { return "swing" }

func (Swing) apply(*timeline.Transform, Context) {}

// UnknownAnimationWarning reports an animation name outside the registry. The
// entry is treated as identity.
type UnknownAnimationWarning struct {
	Name string
}

func (w *UnknownAnimationWarning) Error() string {
	return fmt.Sprintf("unknown animation %q, ignored (known: %s)", w.Name, strings.Join(Known(), ", "))
}

// Defaults supplies values for parameters an entry leaves out.
type Defaults struct {
	MaxScale     float64
	Transition   float64
	FadeDuration float64
}

// DefaultDefaults returns the fallbacks used when a config sets none.
func DefaultDefaults() Defaults {
	return Defaults{MaxScale: 1.1, Transition: 0.5, FadeDuration: 0.5}
}

type constructor func(p params, d Defaults) Animation

var registry = map[string]constructor{
	"fade": func(p params, d Defaults) Animation {
		return Fade{In: p.get("in", 0.5), Out: p.get("out", 0.7)}
	},
	"fadein": func(p params, d Defaults) Animation {
		return FadeIn{Duration: p.get("duration", d.FadeDuration)}
	},
	"fadeout": func(p params, d Defaults) Animation {
		return FadeOut{Duration: p.get("duration", d.FadeDuration)}
	},
	"scale": func(p params, d Defaults) Animation {
		return Scale{Max: p.get("max_scale", d.MaxScale), Rate: p.get("rate", 0)}
	},
	"shake": func(p params, d Defaults) Animation {
		return Shake{Amplitude: p.get("amplitude", 2), Frequency: p.get("frequency", 2)}
	},
	"slide_up": func(p params, d Defaults) Animation {
		return SlideUp{Transition: p.get("duration", d.Transition)}
	},
	"wiggle": func(p params, d Defaults) Animation {
		w := Wiggle{Amplitude: p.get("amplitude", 1), Frequency: p.get("frequency", 2)}
		if v, ok := p["baseline"]; ok {
			w.Baseline, w.HasBaseline = v, true
		}
		return w
	},
	"bounce": func(p params, d Defaults) Animation {
		return Bounce{Height: p.get("height", 50), Period: p.get("period", 0)}
	},
	"rotate": func(p params, d Defaults) Animation {
		return Rotate{Rate: p.get("rate", 45)}
	},
	"blink": func(p params, d Defaults) Animation {
		return Blink{Period: p.get("duration", 0.5)}
	},
	"wave": func(p params, d Defaults) Animation {
		return Wave{Amplitude: p.get("amplitude", 5), Frequency: p.get("frequency", 1)}
	},
	"flip":  func(params, Defaults) Animation { return Flip{} },
	"swing": func(params, Defaults) Animation { return Swing{} },
}

var aliases = map[string]string{
	"crossfadein":  "fadein",
	"crossfadeout": "fadeout",
	"slideup":      "slide_up",
}

// Parse resolves a configured name and its parameters to an animation. An
// unknown name yields a nil animation and an *UnknownAnimationWarning.
func Parse(name string, p map[string]float64, d Defaults) (Animation, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	ctor, ok := registry[key]
	if !ok {
		return nil, &UnknownAnimationWarning{Name: name}
	}
	return ctor(params(p), d), nil
}

// Known lists the registered animation names.
func Known() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type params map[string]float64

func (p params) get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
