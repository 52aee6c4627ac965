package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/captionreel/internal/renderer"
	"github.com/ivlev/captionreel/internal/system"
	"github.com/ivlev/captionreel/internal/timeline"
)

// Encoder paints every frame of a Scene and pipes raw RGBA into ffmpeg
// together with the planned audio.
type Encoder struct {
	Compositor *renderer.Compositor
	FPS        int
	Workers    int
	Codec      string // video encoder, libx264 when empty
	Quality    int    // 0 keeps the encoder default
	Preset     string
	AudioCodec string
	ShowStats  bool
	Log        logrus.FieldLogger
}

// Render encodes scene to outputPath. The file is written under a temporary
// name and renamed once ffmpeg succeeds, so a failed or cancelled render
// leaves nothing at outputPath.
func (e *Encoder) Render(ctx context.Context, scene *timeline.Scene, outputPath string) error {
	job := uuid.NewString()
	log := e.logger().WithField("job", job)

	tmpPath := filepath.Join(filepath.Dir(outputPath), "."+job[:8]+"-"+filepath.Base(outputPath))
	args := e.Graph(scene, tmpPath).GetArgs()
	log.WithField("args", strings.Join(args, " ")).Debug("ffmpeg command")

	pr, pw := io.Pipe()
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdin = pr
	cmd.Stderr = &stderr
	if e.ShowStats {
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	}

	frames := scene.FrameCount(e.fps())
	log.WithFields(logrus.Fields{"frames": frames, "fps": e.fps(), "canvas": scene.Canvas.String()}).Info("encoding")
	start := time.Now()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	writeErr := make(chan error, 1)
	go func() {
		err := e.WriteFrames(ctx, pw, scene)
		pw.CloseWithError(err)
		writeErr <- err
	}()

	runErr := cmd.Wait()
	pr.CloseWithError(io.ErrClosedPipe)
	wErr := <-writeErr

	if err := errors.Join(wErr, runErr); err != nil {
		os.Remove(tmpPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if runErr != nil {
			return fmt.Errorf("ffmpeg error: %w, output: %s", runErr, tail(stderr.String(), 2048))
		}
		return wErr
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	system.LogMemory(log, "encoded")
	log.WithFields(logrus.Fields{"output": outputPath, "elapsed": time.Since(start).Round(time.Millisecond)}).Info("video ready")
	return nil
}

// WriteFrames paints the scene frame by frame into w. Frames are painted in
// parallel batches and written strictly in order.
func (e *Encoder) WriteFrames(ctx context.Context, w io.Writer, scene *timeline.Scene) error {
	fps := e.fps()
	total := scene.FrameCount(fps)
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	comp := e.Compositor
	if comp == nil {
		comp = &renderer.Compositor{}
	}

	batch := make([]*image.RGBA, workers)
	logEvery := fps * 5
	for first := 0; first < total; first += workers {
		n := min(workers, total-first)
		g, gctx := errgroup.WithContext(ctx)
		for j := 0; j < n; j++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				frame := renderer.NewFrame(scene)
				batch[j] = frame
				return comp.Paint(frame, scene, float64(first+j)/float64(fps))
			})
		}
		err := g.Wait()
		for j := 0; j < n; j++ {
			if err == nil {
				_, err = w.Write(batch[j].Pix)
			}
			system.PutImage(batch[j])
			batch[j] = nil
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", first, err)
		}
		if done := first + n; done%logEvery < n || done == total {
			e.logger().WithFields(logrus.Fields{"frame": done, "of": total}).Debug("frames written")
		}
	}
	return nil
}

// Graph builds the ffmpeg command graph: raw frames from stdin, the audio
// plan and any sound cues mixed on top.
func (e *Encoder) Graph(scene *timeline.Scene, outputPath string) *ffmpeg.Stream {
	fps := e.fps()
	frames := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":         "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", scene.Canvas.W, scene.Canvas.H),
		"framerate": fps,
	})

	out := ffmpeg.KwArgs{
		"c:v":     e.codec(),
		"pix_fmt": "yuv420p",
		"r":       fps,
		"t":       fmt.Sprintf("%.3f", scene.TotalDuration),
	}
	for k, v := range qualityArgs(e.codec(), e.Quality, e.Preset) {
		out[k] = v
	}

	streams := []*ffmpeg.Stream{frames}
	if a := audioStream(scene.Audio, scene.Sounds); a != nil {
		streams = append(streams, a)
		codec := e.AudioCodec
		if codec == "" {
			codec = "aac"
		}
		out["c:a"] = codec
	}

	global := []string{"-hide_banner", "-loglevel", "error", "-nostats"}
	if e.ShowStats {
		global = []string{"-hide_banner", "-stats"}
	}
	return ffmpeg.Output(streams, outputPath, out).GlobalArgs(global...).OverWriteOutput()
}

func audioStream(plan *timeline.AudioPlan, sounds []timeline.SoundCue) *ffmpeg.Stream {
	var inputs []*ffmpeg.Stream
	if plan != nil && plan.Source.Path != "" {
		kw := ffmpeg.KwArgs{}
		if plan.Mode == timeline.AudioLoop {
			kw["stream_loop"] = -1
		}
		inputs = append(inputs, ffmpeg.Input(plan.Source.Path, kw).Audio())
	}
	for _, c := range sounds {
		ms := int(c.Start*1000 + 0.5)
		s := ffmpeg.Input(c.Path).Audio()
		if c.Duration > 0 {
			s = s.Filter("atrim", ffmpeg.Args{}, ffmpeg.KwArgs{"duration": fmt.Sprintf("%.3f", c.Duration)})
		}
		inputs = append(inputs, s.Filter("adelay", ffmpeg.Args{fmt.Sprintf("%d|%d", ms, ms)}))
	}

	switch len(inputs) {
	case 0:
		return nil
	case 1:
		return inputs[0]
	}
	duration := "longest"
	if plan != nil && plan.Source.Path != "" {
		duration = "first"
	}
	return ffmpeg.Filter(inputs, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
		"inputs":             len(inputs),
		"duration":           duration,
		"dropout_transition": 0,
		"normalize":          0,
	})
}

// qualityArgs maps the generic quality knob onto each encoder's own rate
// control.
func qualityArgs(codec string, quality int, preset string) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{}
	switch codec {
	case "h264_videotoolbox":
		if quality > 0 {
			kw["b:v"] = fmt.Sprintf("%dk", quality*100)
		}
	case "h264_nvenc":
		if quality > 0 {
			kw["cq"] = quality
		}
	case "libx264":
		if quality > 0 {
			kw["crf"] = quality
		}
		if preset != "" {
			kw["preset"] = preset
		}
	}
	return kw
}

func (e *Encoder) fps() int {
	if e.FPS <= 0 {
		return 30
	}
	return e.FPS
}

func (e *Encoder) codec() string {
	if e.Codec == "" {
		return "libx264"
	}
	return e.Codec
}

func (e *Encoder) logger() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
