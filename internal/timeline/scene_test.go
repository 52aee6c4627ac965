package timeline

import (
	"math"
	"testing"
)

func layerAt(name string, start, duration float64) Layer {
	return Layer{
		Name:      name,
		Start:     start,
		Duration:  duration,
		Alpha:     1,
		Transform: Identity(Point{X: 10, Y: 20}),
	}
}

func TestComposeOrder(t *testing.T) {
	bg := []Layer{layerAt("bg0", 0, 3), layerAt("bg1", 3, 3)}
	caps := []Layer{layerAt("shadow", 0, 2), layerAt("primary", 0, 2)}
	over := []Layer{layerAt("watermark", 0, 6)}

	scene := Compose(bg, caps, over, Size{W: 1080, H: 1920}, 6, nil)

	want := []string{"bg0", "bg1", "shadow", "primary", "watermark"}
	if len(scene.Layers) != len(want) {
		t.Fatalf("Expected %d layers, got %d", len(want), len(scene.Layers))
	}
	for i, name := range want {
		l := scene.Layers[i]
		if l.Name != name {
			t.Errorf("Layer %d: expected %s, got %s", i, name, l.Name)
		}
		if l.Z != i {
			t.Errorf("Layer %s: expected z %d, got %d", name, i, l.Z)
		}
	}

	if scene.Layers[0].Group != GroupBackground || scene.Layers[2].Group != GroupCaption || scene.Layers[4].Group != GroupOverlay {
		t.Errorf("Groups not assigned by tier: %v %v %v", scene.Layers[0].Group, scene.Layers[2].Group, scene.Layers[4].Group)
	}

	// inputs untouched
	if bg[1].Z != 0 || caps[0].Group != GroupBackground {
		t.Error("Compose must not modify its inputs")
	}
}

func TestFrameZOrderInvariant(t *testing.T) {
	bg := []Layer{layerAt("bg", 0, 10)}
	caps := []Layer{layerAt("cap", 1, 2)}
	over := []Layer{layerAt("wm", 0, 10)}
	scene := Compose(bg, caps, over, Size{W: 100, H: 100}, 10, nil)

	for _, tt := range []float64{0, 1, 1.5, 2.999, 5, 9.99} {
		frame := scene.Frame(tt)
		rank := map[Group]int{}
		for i, s := range frame {
			rank[s.Layer.Group] = i
		}
		if r, ok := rank[GroupCaption]; ok {
			if rank[GroupBackground] > r || rank[GroupOverlay] < r {
				t.Errorf("At %.3f: caption out of tier order %v", tt, rank)
			}
		}
		if rank[GroupBackground] > rank[GroupOverlay] {
			t.Errorf("At %.3f: background painted over overlay", tt)
		}
	}
}

func TestFrameClipping(t *testing.T) {
	bg := []Layer{layerAt("early", 0, 2), layerAt("long", 0, 20), layerAt("outside", 12, 3)}
	scene := Compose(bg, nil, nil, Size{W: 10, H: 10}, 10, nil)

	tests := []struct {
		time float64
		want int
	}{
		{-0.1, 0},
		{0, 2},
		{1.99, 2},
		{2, 1},
		{9.999, 1},
		{10, 0},
		{13, 0},
	}
	for _, tt := range tests {
		if got := len(scene.Frame(tt.time)); got != tt.want {
			t.Errorf("At %.3f: expected %d visible layers, got %d", tt.time, tt.want, got)
		}
	}

	if len(scene.Layers) != 3 {
		t.Errorf("Layers outside the total duration must be kept, got %d", len(scene.Layers))
	}
}

func TestComposeDeterministic(t *testing.T) {
	build := func() *Scene {
		l := layerAt("wiggle", 0, 4)
		l.Transform.Position = func(t float64) Point {
			return Point{X: 5, Y: 100 + 3*math.Sin(2*math.Pi*2*t)}
		}
		l.Transform.Opacity = func(t float64) float64 { return math.Min(1, t/0.5) }
		return Compose([]Layer{l}, []Layer{layerAt("cap", 1, 1)}, nil, Size{W: 10, H: 10}, 4, nil)
	}
	a, b := build(), build()
	for _, tt := range []float64{0, 0.1, 0.25, 1.3, 3.9} {
		fa, fb := a.Frame(tt), b.Frame(tt)
		if len(fa) != len(fb) {
			t.Fatalf("At %.2f: frame sizes differ", tt)
		}
		for i := range fa {
			if fa[i].Layer.Name != fb[i].Layer.Name || fa[i].State != fb[i].State {
				t.Errorf("At %.2f: layer %d differs: %+v vs %+v", tt, i, fa[i].State, fb[i].State)
			}
		}
	}
}

func TestSampleAlphaAndOffset(t *testing.T) {
	l := layerAt("shadow", 2, 2)
	l.Alpha = 0.5
	l.Transform.Offset = Fixed(Point{X: 1, Y: -1})

	st, ok := l.Sample(3)
	if !ok {
		t.Fatal("Expected layer to be visible at 3")
	}
	if st.Opacity != 0.5 {
		t.Errorf("Expected opacity 0.5, got %f", st.Opacity)
	}
	if st.Position != (Point{X: 11, Y: 19}) {
		t.Errorf("Expected offset position {11 19}, got %v", st.Position)
	}
	if _, ok := l.Sample(4); ok {
		t.Error("Layer must not be visible at its end")
	}
}

func TestFrameCount(t *testing.T) {
	s := &Scene{TotalDuration: 9}
	if n := s.FrameCount(30); n != 270 {
		t.Errorf("Expected 270 frames, got %d", n)
	}
	s.TotalDuration = 1.01
	if n := s.FrameCount(30); n != 31 {
		t.Errorf("Expected 31 frames, got %d", n)
	}
}
