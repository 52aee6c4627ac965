package subtitle

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/captionreel/internal/config"
	"github.com/ivlev/captionreel/internal/timeline"
)

// Load reads an SRT file. Blocks that fail to parse are skipped and returned
// as warnings alongside the cues that did parse.
func Load(path string) ([]timeline.Cue, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, &config.NotFoundError{Paths: []string{path}}
		}
		return nil, nil, fmt.Errorf("read subtitles: %w", err)
	}
	cues, warnings := ParseSRT(data)
	return cues, warnings, nil
}

// ParseSRT parses common SRT, best-effort. Cue text lines are joined with a
// single space; times are in seconds.
func ParseSRT(data []byte) ([]timeline.Cue, []error) {
	blocks := splitSRTBlocks(data)
	cues := make([]timeline.Cue, 0, len(blocks))
	var warnings []error
	for i, blk := range blocks {
		cue, err := parseSRTBlock(blk)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("srt block %d: %w", i+1, err))
			continue
		}
		cues = append(cues, cue)
	}
	return cues, warnings
}

func splitSRTBlocks(data []byte) [][]string {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out [][]string
	var cur []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func parseSRTBlock(lines []string) (timeline.Cue, error) {
	// The index line is optional; some files omit or duplicate it.
	if !strings.Contains(lines[0], "-->") {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return timeline.Cue{}, errors.New("block too short")
	}
	start, end, err := parseSRTTimingLine(lines[0])
	if err != nil {
		return timeline.Cue{}, fmt.Errorf("parse timing: %w", err)
	}
	return timeline.Cue{
		Start: start.Seconds(),
		End:   end.Seconds(),
		Text:  strings.Join(lines[1:], " "),
	}, nil
}

func parseSRTTimingLine(line string) (time.Duration, time.Duration, error) {
	// 00:00:01,234 --> 00:00:04,567 [position tags]
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, errors.New("invalid timing separator")
	}
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return 0, 0, errors.New("missing end time")
	}
	start, err := parseSRTTime(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("start time: %w", err)
	}
	end, err := parseSRTTime(endFields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("end time: %w", err)
	}
	return start, end, nil
}

func parseSRTTime(s string) (time.Duration, error) {
	// HH:MM:SS,mmm; a dot before the millis is accepted too
	hmsMillis := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '.' })
	if len(hmsMillis) != 2 {
		return 0, errors.New("missing millis")
	}
	hms := strings.Split(hmsMillis[0], ":")
	if len(hms) != 3 {
		return 0, errors.New("invalid h:m:s")
	}
	h, err := strconv.Atoi(hms[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(hms[1])
	if err != nil {
		return 0, err
	}
	si, err := strconv.Atoi(hms[2])
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(hmsMillis[1])
	if err != nil {
		return 0, err
	}
	total := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(si)*time.Second +
		time.Duration(ms)*time.Millisecond
	return total, nil
}

// SRT is the file-backed SubRip parser.
type SRT struct{}

func (SRT) Load(path string) ([]timeline.Cue, []error, error) {
	return Load(path)
}
