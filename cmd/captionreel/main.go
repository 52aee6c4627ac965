package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/captionreel/internal/config"
	"github.com/ivlev/captionreel/internal/engine"
	"github.com/ivlev/captionreel/internal/system"
)

const (
	exitFailure  = 1
	exitConfig   = 2
	exitNotFound = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPtr := flag.String("config", "config.yaml", "Path to the YAML job description")
	envPtr := flag.String("env", ".env", "Optional dotenv file with CAPTIONREEL_* overrides")
	outputPtr := flag.String("output", "", "Output video path (overrides output_path)")
	workersPtr := flag.Int("workers", 0, "Worker goroutines (0 = one per CPU)")
	fpsPtr := flag.Int("fps", 0, "Frames per second (overrides fps)")
	presetPtr := flag.String("preset", "", "Canvas preset: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram)")
	encoderPtr := flag.String("encoder", "", "ffmpeg video encoder (default: best available H.264)")
	qualityPtr := flag.Int("quality", 0, "Video quality (x264/NVENC: CRF/CQ, VideoToolbox: bitrate = Q*100 kbit/s)")
	logLevelPtr := flag.String("log-level", "", "Log level: debug, info, warn, error")
	dumpPtr := flag.String("dump-scene", "", "Write the composed scene as YAML to this path")
	dryRunPtr := flag.Bool("dry-run", false, "Compose the scene without rendering")
	flag.Parse()

	if err := godotenv.Load(*envPtr); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envPtr, err)
		return exitConfig
	}

	cfg, err := config.Load(*configPtr)
	if err != nil {
		return report(logrus.StandardLogger(), err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return report(logrus.StandardLogger(), err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output":
			cfg.OutputPath = *outputPtr
		case "workers":
			cfg.Workers = *workersPtr
		case "fps":
			cfg.FPS = *fpsPtr
		case "encoder":
			cfg.Render.Encoder = *encoderPtr
		case "quality":
			cfg.Render.Quality = *qualityPtr
		case "log-level":
			cfg.Log.Level = *logLevelPtr
		}
	})
	switch *presetPtr {
	case "16:9":
		cfg.Canvas = config.Canvas{Width: 1280, Height: 720}
	case "9:16":
		cfg.Canvas = config.Canvas{Width: 720, Height: 1280}
	case "4:5":
		cfg.Canvas = config.Canvas{Width: 1080, Height: 1350}
	}
	if err := cfg.Validate(); err != nil {
		return report(logrus.StandardLogger(), err)
	}

	log, err := system.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return report(logrus.StandardLogger(), err)
	}
	system.InitResourceLimits(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	project := engine.NewVideoProject(cfg, log)
	project.DumpScene = *dumpPtr
	project.NoRender = *dryRunPtr

	log.WithFields(logrus.Fields{
		"config": *configPtr,
		"output": cfg.OutputPath,
		"canvas": fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height),
		"fps":    cfg.FPS,
	}).Info("starting")

	if err := project.Run(ctx); err != nil {
		return report(log, err)
	}
	return 0
}

// report logs err and maps it to the process exit code.
func report(log logrus.FieldLogger, err error) int {
	var ce *config.ConfigError
	var nf *config.NotFoundError
	switch {
	case errors.As(err, &ce):
		for _, p := range ce.Problems {
			log.Error(p)
		}
		return exitConfig
	case errors.As(err, &nf):
		for _, p := range nf.Paths {
			log.WithField("path", p).Error("input not found")
		}
		return exitNotFound
	case errors.Is(err, context.Canceled):
		log.Warn("interrupted")
		return exitFailure
	}
	log.Error(err)
	return exitFailure
}
