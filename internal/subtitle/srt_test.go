package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivlev/captionreel/internal/config"
)

func TestParseSRTTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:01,234", 1*time.Second + 234*time.Millisecond},
		{"00:00:01.500", 1*time.Second + 500*time.Millisecond},
		{"01:02:03,004", time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond},
	}
	for _, tt := range tests {
		got, err := parseSRTTime(tt.in)
		if err != nil {
			t.Fatalf("parseSRTTime(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseSRTTime(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"00:00:01", "00:01,000", "aa:00:01,000"} {
		if _, err := parseSRTTime(bad); err == nil {
			t.Errorf("parseSRTTime(%q) expected error", bad)
		}
	}
}

const sample = "\uFEFF1\r\n00:00:00,000 --> 00:00:03,000\r\nhello world\r\nfoo bar\r\n\r\n" +
	"2\n00:00:03,000 --> 00:00:04,500 X1:10\nlast\n\n" +
	"3\nbroken timing\ntext\n\n\n" +
	"00:00:05,000 --> 00:00:06,000\nno index\n"

func TestParseSRT(t *testing.T) {
	cues, warnings := ParseSRT([]byte(sample))
	if len(cues) != 3 {
		t.Fatalf("Expected 3 cues, got %d", len(cues))
	}
	if len(warnings) != 1 {
		t.Errorf("Expected 1 warning, got %v", warnings)
	}
	if cues[0].Start != 0 || cues[0].End != 3 || cues[0].Text != "hello world foo bar" {
		t.Errorf("Unexpected first cue: %+v", cues[0])
	}
	if cues[1].End != 4.5 || cues[1].Text != "last" {
		t.Errorf("Unexpected second cue: %+v", cues[1])
	}
	if cues[2].Start != 5 || cues[2].Text != "no index" {
		t.Errorf("Unexpected third cue: %+v", cues[2])
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subs.srt")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cues, _, err := Load(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cues) != 3 {
		t.Errorf("Expected 3 cues, got %d", len(cues))
	}

	missing := filepath.Join(dir, "missing.srt")
	_, _, err = Load(missing)
	var nf *config.NotFoundError
	if !errors.As(err, &nf) || len(nf.Paths) != 1 || nf.Paths[0] != missing {
		t.Errorf("Expected NotFoundError for %s, got %v", missing, err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
