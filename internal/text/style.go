package text

// Style describes how a caption is drawn and where it rests on the canvas.
type Style struct {
	Font              string    `yaml:"font"`
	Size              float64   `yaml:"size"`
	Color             string    `yaml:"color"`
	StrokeWidth       int       `yaml:"stroke_width"`
	StrokeColor       string    `yaml:"stroke_color"`
	BgColor           string    `yaml:"bg_color"`
	Shadow            bool      `yaml:"shadow"`
	ShadowColor       string    `yaml:"shadow_color"`
	ShadowOpacity     float64   `yaml:"shadow_opacity"`
	ShadowStrokeWidth int       `yaml:"shadow_stroke_width"`
	ShadowOffset      []float64 `yaml:"shadow_offset,flow"`
	Position          string    `yaml:"position"` // top, center, bottom
	Margin            int       `yaml:"margin"`
	WrapWidth         int       `yaml:"wrap_width"` // 0 = derived from the canvas
}

// DefaultStyle returns the caption look used when a config omits text_style.
func DefaultStyle() Style {
	return Style{
		Size:              90,
		Color:             "white",
		BgColor:           "transparent",
		ShadowColor:       "black",
		ShadowOpacity:     0.6,
		ShadowStrokeWidth: 20,
		ShadowOffset:      []float64{0, 0},
		Position:          "center",
		Margin:            40,
	}
}

// Shadowed returns the style of the shadow drawn beneath s: same font and
// wrap, shadow color for both fill and outline, shadow stroke width.
func (s Style) Shadowed() Style {
	sh := s
	sh.Color = s.ShadowColor
	sh.StrokeColor = s.ShadowColor
	sh.StrokeWidth = s.ShadowStrokeWidth
	sh.Shadow = false
	return sh
}

// Offset returns the shadow displacement in pixels.
func (s Style) Offset() (float64, float64) {
	if len(s.ShadowOffset) != 2 {
		return 0, 0
	}
	return s.ShadowOffset[0], s.ShadowOffset[1]
}
