package audio

import (
	"math"

	"github.com/ivlev/captionreel/internal/timeline"
)

// tolerance absorbs container rounding, so a track probed at 20.0004s for a
// 20s scene passes through untouched.
const tolerance = 1e-3

// Fit picks how src is fitted to totalDuration: a shorter track loops, a
// longer one is trimmed, a matching one passes through.
func Fit(src timeline.AudioRef, totalDuration float64) timeline.AudioPlan {
	plan := timeline.AudioPlan{Source: src, Duration: totalDuration, Mode: timeline.AudioPassthrough}
	switch diff := src.Duration - totalDuration; {
	case math.Abs(diff) <= tolerance:
	case diff < 0:
		plan.Mode = timeline.AudioLoop
	default:
		plan.Mode = timeline.AudioTrim
	}
	return plan
}
