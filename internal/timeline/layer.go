package timeline

import (
	"image"
	"math"
)

// PositionFunc maps layer-local time to a point.
type PositionFunc func(t float64) Point

// ScalarFunc maps layer-local time to a value.
type ScalarFunc func(t float64) float64

// Transform holds the time functions of a layer. Every function receives the
// time elapsed since the layer's own start.
type Transform struct {
	Position PositionFunc // top-left corner of the unscaled content
	Offset   PositionFunc // displacement added after Position
	Scale    ScalarFunc   // uniform scale around the content center
	Opacity  ScalarFunc   // in [0,1]
	Rotation ScalarFunc   // degrees, counter-clockwise
	Shift    PositionFunc // frame-level pixel roll of the content bitmap
	FlipX    bool
}

// Identity returns a transform resting at rest with scale 1 and opacity 1.
func Identity(rest Point) Transform {
	return Transform{
		Position: Fixed(rest),
		Offset:   Fixed(Point{}),
		Scale:    Constant(1),
		Opacity:  Constant(1),
		Rotation: Constant(0),
		Shift:    Fixed(Point{}),
	}
}

// Fixed returns a position function that always yields p.
func Fixed(p Point) PositionFunc {
	return func(float64) Point { return p }
}

// Constant returns a scalar function that always yields v.
func Constant(v float64) ScalarFunc {
	return func(float64) float64 { return v }
}

// Group identifies the compositing tier a layer belongs to.
type Group int

const (
	GroupBackground Group = iota
	GroupCaption
	GroupOverlay
)

func (g Group) String() string {
	switch g {
	case GroupBackground:
		return "background"
	case GroupCaption:
		return "caption"
	case GroupOverlay:
		return "overlay"
	}
	return "unknown"
}

type ContentKind int

const (
	ContentImage ContentKind = iota
	ContentText
)

// ImageRef points at a decodable image. Page is the PDF page index, or -1 for
// a plain image file.
type ImageRef struct {
	Path string
	Page int
	Size Size // native pixel size
}

// Content is what a layer shows. Size is the displayed size at scale 1.
// Bitmap carries pre-rasterized pixels (text, generated overlays) and is nil
// for file-backed images, which the renderer decodes itself.
type Content struct {
	Kind   ContentKind
	Image  ImageRef
	Text   string
	Size   Size
	Bitmap image.Image
}

// Layer is a time-bounded visual element. It is built once and never mutated
// afterwards apart from Compose assigning Z and Group.
type Layer struct {
	Name       string
	Content    Content
	Start      float64
	Duration   float64
	Alpha      float64 // static opacity multiplier applied on top of Transform.Opacity
	Group      Group
	Z          int
	Transform  Transform
	Animations []string
}

// End returns the exclusive end of the layer's window.
func (l *Layer) End() float64 {
	return l.Start + l.Duration
}

// Visible reports whether the layer contributes to the frame at t.
func (l *Layer) Visible(t float64) bool {
	return t >= l.Start && t < l.End()
}

// State is a layer's resolved transform at one instant.
type State struct {
	Position Point
	Scale    float64
	Opacity  float64
	Rotation float64
	Shift    Point
	FlipX    bool
}

// Sample evaluates the layer at scene time t. The second result is false when
// the layer is not visible at t.
func (l *Layer) Sample(t float64) (State, bool) {
	if !l.Visible(t) {
		return State{}, false
	}
	local := t - l.Start
	tr := l.Transform

	st := State{
		Position: callPosition(tr.Position, local).Add(callPosition(tr.Offset, local)),
		Scale:    callScalar(tr.Scale, local, 1),
		Opacity:  callScalar(tr.Opacity, local, 1),
		Rotation: callScalar(tr.Rotation, local, 0),
		Shift:    callPosition(tr.Shift, local),
		FlipX:    tr.FlipX,
	}

	st.Opacity = clamp01(st.Opacity * l.Alpha)
	return st, true
}

func callPosition(f PositionFunc, t float64) Point {
	if f == nil {
		return Point{}
	}
	return f(t)
}

func callScalar(f ScalarFunc, t, def float64) float64 {
	if f == nil {
		return def
	}
	return f(t)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
