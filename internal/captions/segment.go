package captions

import (
	"fmt"
	"math"
	"strings"

	"github.com/ivlev/captionreel/internal/timeline"
)

// MalformedCueWarning reports a cue that was dropped because its window is
// empty once clamped to the scene duration.
type MalformedCueWarning struct {
	Index int
	Cue   timeline.Cue
}

func (w *MalformedCueWarning) Error() string {
	return fmt.Sprintf("cue %d [%.3f, %.3f] has no duration inside the scene, dropped", w.Index, w.Cue.Start, w.Cue.End)
}

// Segment splits every cue into groups of at most wordsPerGroup words that
// share the cue's window equally. The cue end is clamped to totalDuration
// first. Cues left with an empty window are skipped and reported as
// warnings; segmentation itself never fails.
func Segment(cues []timeline.Cue, wordsPerGroup int, totalDuration float64) ([]timeline.WordGroup, []error) {
	if wordsPerGroup < 1 {
		wordsPerGroup = 1
	}

	var groups []timeline.WordGroup
	var warnings []error

	for i, cue := range cues {
		end := math.Min(cue.End, totalDuration)
		span := end - cue.Start
		if span <= 0 {
			warnings = append(warnings, &MalformedCueWarning{Index: i, Cue: cue})
			continue
		}

		words := strings.Fields(cue.Text)
		n := (len(words) + wordsPerGroup - 1) / wordsPerGroup
		if n < 1 {
			n = 1
		}

		for g := 0; g < n; g++ {
			lo := g * wordsPerGroup
			hi := lo + wordsPerGroup
			if hi > len(words) {
				hi = len(words)
			}
			text := ""
			if lo < hi {
				text = strings.Join(words[lo:hi], " ")
			}

			// Boundaries are computed from the span, not accumulated, so the
			// last group ends exactly at the clamped cue end.
			gs := cue.Start + span*float64(g)/float64(n)
			ge := end
			if g < n-1 {
				ge = cue.Start + span*float64(g+1)/float64(n)
			}
			groups = append(groups, timeline.WordGroup{
				Text:     text,
				Start:    gs,
				Duration: ge - gs,
				Cue:      i,
			})
		}
	}
	return groups, warnings
}
