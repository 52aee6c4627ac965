package audio

import (
	"encoding/json"
	"fmt"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/captionreel/internal/timeline"
)

// Prober reports the duration of a media file in seconds.
type Prober interface {
	Duration(path string) (float64, error)
}

// FFProbe reads the container duration with ffprobe.
type FFProbe struct{}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (FFProbe) Duration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out string) (float64, error) {
	var res probeResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(res.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", res.Format.Duration, err)
	}
	return d, nil
}

// Load probes path and returns a reference to it.
func Load(p Prober, path string) (timeline.AudioRef, error) {
	d, err := p.Duration(path)
	if err != nil {
		return timeline.AudioRef{}, err
	}
	if d <= 0 {
		return timeline.AudioRef{}, fmt.Errorf("audio %s has no duration", path)
	}
	return timeline.AudioRef{Path: path, Duration: d}, nil
}
