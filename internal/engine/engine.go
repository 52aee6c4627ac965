package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/captionreel/internal/audio"
	"github.com/ivlev/captionreel/internal/background"
	"github.com/ivlev/captionreel/internal/captions"
	"github.com/ivlev/captionreel/internal/config"
	"github.com/ivlev/captionreel/internal/effects"
	"github.com/ivlev/captionreel/internal/manifest"
	"github.com/ivlev/captionreel/internal/overlay"
	"github.com/ivlev/captionreel/internal/renderer"
	"github.com/ivlev/captionreel/internal/source"
	"github.com/ivlev/captionreel/internal/subtitle"
	"github.com/ivlev/captionreel/internal/system"
	"github.com/ivlev/captionreel/internal/text"
	"github.com/ivlev/captionreel/internal/timeline"
	"github.com/ivlev/captionreel/internal/video"
)

// SubtitleParser turns a caption file into cues. Unparseable entries come
// back as warnings.
type SubtitleParser interface {
	Load(path string) ([]timeline.Cue, []error, error)
}

// Renderer consumes a finished scene.
type Renderer interface {
	Render(ctx context.Context, scene *timeline.Scene, outputPath string) error
}

// VideoProject wires the collaborators of one composition job. Nil
// collaborators are filled from the config by NewVideoProject.
type VideoProject struct {
	Config     *config.Config
	Source     source.Source
	Subtitles  SubtitleParser
	Rasterizer captions.Rasterizer
	Prober     audio.Prober
	Renderer   Renderer
	Log        logrus.FieldLogger
	// Pages, when set, is bound to the background source so the renderer
	// draws pages through it.
	Pages *source.Cache
	// DumpScene, when set, receives a YAML manifest of the composed scene.
	DumpScene string
	// NoRender stops after the scene is composed.
	NoRender bool

	ownsSource bool
}

func NewVideoProject(cfg *config.Config, log logrus.FieldLogger) *VideoProject {
	workers := system.Workers(cfg.Workers)
	wrap := cfg.TextStyle.WrapWidth
	if wrap == 0 {
		wrap = cfg.Canvas.Width * 9 / 10
	}
	codec := cfg.Render.Encoder
	if codec == "" {
		codec = system.BestH264Encoder()
	}
	pages := source.NewCache()
	return &VideoProject{
		Config:     cfg,
		Pages:      pages,
		Subtitles:  subtitle.SRT{},
		Rasterizer: text.NewRasterizer(wrap),
		Prober:     audio.FFProbe{},
		Renderer: &video.Encoder{
			Compositor: &renderer.Compositor{Loader: pages},
			FPS:        cfg.FPS,
			Workers:    workers,
			Codec:      codec,
			Quality:    cfg.Render.Quality,
			Preset:     cfg.Render.Preset,
			AudioCodec: cfg.Render.AudioCodec,
			ShowStats:  cfg.Render.ShowStats,
			Log:        log,
		},
		Log: log,
	}
}

// Run composes the scene and hands it to the renderer. Every fatal input
// problem is reported before the output file is touched.
func (p *VideoProject) Run(ctx context.Context) error {
	start := time.Now()
	defer p.Close()
	scene, err := p.Build(ctx)
	if err != nil {
		return err
	}

	if p.DumpScene != "" {
		m := manifest.New(scene, p.Config.FPS, 3)
		if err := manifest.Write(m, p.DumpScene); err != nil {
			return fmt.Errorf("write scene manifest: %w", err)
		}
		p.log().WithField("path", p.DumpScene).Info("scene manifest written")
	}
	if p.NoRender {
		return nil
	}

	if err := p.Renderer.Render(ctx, scene, p.Config.OutputPath); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	p.log().WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("done")
	return nil
}

// Build checks inputs, builds every layer and composes the scene.
func (p *VideoProject) Build(ctx context.Context) (*timeline.Scene, error) {
	cfg := p.Config
	log := p.log()

	if err := cfg.CheckInputs(); err != nil {
		return nil, err
	}

	if p.Source == nil {
		src, err := openSource(cfg)
		if err != nil {
			return nil, fmt.Errorf("open background: %w", err)
		}
		p.Source, p.ownsSource = src, true
	}
	src := p.Source
	if p.Pages != nil {
		p.Pages.Use(src)
	}
	refs, err := source.Refs(src)
	if err != nil {
		return nil, fmt.Errorf("read background: %w", err)
	}
	if len(refs) == 0 {
		return nil, &config.ConfigError{Problems: []string{"background contains no images"}}
	}

	var track *timeline.AudioRef
	if cfg.BackgroundAudio != "" {
		ref, err := audio.Load(p.Prober, cfg.BackgroundAudio)
		if err != nil {
			return nil, err
		}
		track = &ref
	}

	durations, total, err := Durations(cfg, len(refs), track)
	if err != nil {
		return nil, err
	}
	canvas := timeline.Size{W: cfg.Canvas.Width, H: cfg.Canvas.Height}
	log.WithFields(logrus.Fields{
		"images":   len(refs),
		"duration": total,
		"canvas":   canvas.String(),
	}).Info("timeline planned")

	imageAnims := p.animations(cfg.Animations.Image, "image")
	textAnims := p.animations(cfg.Animations.Text, "text")
	workers := system.Workers(cfg.Workers)

	var bg *background.Result
	var captionLayers []timeline.Layer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b := &background.Builder{
			Canvas:          canvas,
			Mode:            background.Mode(cfg.ImageMode),
			Animations:      imageAnims,
			TransitionSound: cfg.TransitionSound,
			Workers:         workers,
			Log:             log,
		}
		res, err := b.Build(gctx, refs, durations, total)
		if err != nil {
			var mismatch *background.MismatchError
			if errors.As(err, &mismatch) {
				return &config.ConfigError{Problems: []string{err.Error()}}
			}
			return err
		}
		bg = res
		return nil
	})
	g.Go(func() error {
		groups, err := p.wordGroups(total)
		if err != nil {
			return err
		}
		b := &captions.Builder{
			Rasterizer: p.Rasterizer,
			Style:      cfg.TextStyle,
			Canvas:     canvas,
			Animations: textAnims,
			Workers:    workers,
			Log:        log,
		}
		captionLayers, err = b.Build(gctx, groups)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overlays, err := overlay.Build(cfg.Watermark, canvas, total)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var plan *timeline.AudioPlan
	if track != nil {
		fit := audio.Fit(*track, total)
		plan = &fit
		log.WithFields(logrus.Fields{"mode": plan.Mode.String(), "source": track.Duration}).Debug("audio planned")
	}

	scene := timeline.Compose(bg.Layers, captionLayers, overlays, canvas, total, plan)
	scene.Sounds = bg.Sounds
	log.WithFields(logrus.Fields{
		"layers": len(scene.Layers),
		"frames": scene.FrameCount(cfg.FPS),
		"sounds": len(scene.Sounds),
	}).Info("scene composed")
	return scene, nil
}

func (p *VideoProject) wordGroups(total float64) ([]timeline.WordGroup, error) {
	cfg := p.Config
	if cfg.SubtitleFile == "" {
		return nil, nil
	}
	cues, warnings, err := p.Subtitles.Load(cfg.SubtitleFile)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		p.log().WithField("file", cfg.SubtitleFile).Warn(w.Error())
	}

	groups, dropped := captions.Segment(cues, cfg.WordsPerClip, total)
	for _, w := range dropped {
		var mc *captions.MalformedCueWarning
		if errors.As(w, &mc) {
			p.log().WithField("cue", mc.Index).Warn(w.Error())
		}
	}
	p.log().WithFields(logrus.Fields{"cues": len(cues), "groups": len(groups)}).Debug("captions segmented")
	return groups, nil
}

func (p *VideoProject) animations(entries []config.AnimationEntry, tier string) []effects.Animation {
	anims, warnings := p.Config.ResolveAnimations(entries)
	for _, w := range warnings {
		var ua *effects.UnknownAnimationWarning
		if errors.As(w, &ua) {
			p.log().WithFields(logrus.Fields{"animation": ua.Name, "layer": tier}).Warn("unknown animation ignored")
		}
	}
	return anims
}

// Close releases the background source opened by Build. A caller-supplied
// Source is left open.
func (p *VideoProject) Close() error {
	if !p.ownsSource {
		return nil
	}
	err := p.Source.Close()
	p.Source, p.ownsSource = nil, false
	return err
}

func (p *VideoProject) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func openSource(cfg *config.Config) (source.Source, error) {
	if cfg.BackgroundPDF != "" {
		return source.NewFitzPDFSource(cfg.BackgroundPDF, cfg.DPI)
	}
	return source.NewImageSource(cfg.BackgroundImages...)
}

// Durations resolves per-image slots and the scene length. Explicit
// durations sum to the total unless the audio track is chosen as the
// source; without durations the audio length is split evenly.
func Durations(cfg *config.Config, images int, track *timeline.AudioRef) ([]float64, float64, error) {
	durations := cfg.ImageDurations
	if len(durations) > 0 && len(durations) != images {
		return nil, 0, &config.ConfigError{Problems: []string{
			(&background.MismatchError{Images: images, Durations: len(durations)}).Error(),
		}}
	}

	total := 0.0
	for _, d := range durations {
		total += d
	}
	if cfg.AudioDriven() {
		if track == nil || track.Duration <= 0 {
			return nil, 0, &config.ConfigError{Problems: []string{"audio duration is unknown"}}
		}
		total = track.Duration
		if len(durations) == 0 {
			durations = background.EvenDurations(images, total)
		}
	}
	if total <= 0 {
		return nil, 0, &config.ConfigError{Problems: []string{"total duration must be positive"}}
	}
	return durations, total, nil
}
