package system

import (
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. format is "text" or "json".
func NewLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// InitResourceLimits raises the open file limit. PDF pages are rendered
// with one document handle per worker.
func InitResourceLimits(log logrus.FieldLogger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.WithError(err).Warn("cannot read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.WithError(err).Warn("cannot raise open file limit")
		return
	}
	log.WithField("limit", rLimit.Cur).Debug("open file limit raised")
}

// DefaultWorkers returns the number of logical CPUs.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// Workers resolves a configured worker count, 0 meaning one per CPU.
func Workers(configured int) int {
	if configured > 0 {
		return configured
	}
	return DefaultWorkers()
}

// LogMemory reports system memory usage at Debug level.
func LogMemory(log logrus.FieldLogger, stage string) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.WithError(err).Debug("memory stats unavailable")
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	log.WithFields(logrus.Fields{
		"stage":        stage,
		"heap_mb":      ms.HeapAlloc >> 20,
		"sys_used_pct": int(vm.UsedPercent),
		"sys_avail_mb": vm.Available >> 20,
	}).Debug("memory")
}

// BestH264Encoder picks a hardware H.264 encoder when ffmpeg offers one and
// falls back to libx264.
func BestH264Encoder() string {
	out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	// VideoToolbox (macOS), then NVENC; VAAPI needs a device and is skipped.
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}
