package timeline

import "fmt"

// Point is a canvas coordinate in pixels, origin at the top-left corner.
type Point struct {
	X float64
	Y float64
}

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Size is a pixel extent.
type Size struct {
	W int
	H int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.W, s.H)
}

// Cue is a subtitle entry as produced by a subtitle parser. Times are seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// WordGroup is a slice of a cue's words with its own window.
type WordGroup struct {
	Text     string
	Start    float64
	Duration float64
	Cue      int // index of the source cue
}

// End returns the exclusive end of the group's window.
func (g WordGroup) End() float64 {
	return g.Start + g.Duration
}
