package overlay

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/captionreel/internal/timeline"
)

// Watermark is a fixed overlay shown for the whole scene.
type Watermark struct {
	Image    string  `yaml:"image"`    // path to a PNG or JPEG
	QRText   string  `yaml:"qr_text"`  // encoded as a QR code when Image is empty
	Width    int     `yaml:"width"`    // target width in pixels, 0 keeps the native size
	Position string  `yaml:"position"` // top-left, top-right, bottom-left, bottom-right
	MarginX  int     `yaml:"margin_x"`
	MarginY  int     `yaml:"margin_y"`
	Opacity  float64 `yaml:"opacity"`
}

// Enabled reports whether the watermark has a source.
func (w Watermark) Enabled() bool {
	return w.Image != "" || w.QRText != ""
}

// Build loads or generates the watermark bitmap and places it in a single
// layer that spans the scene.
func Build(w Watermark, canvas timeline.Size, totalDuration float64) ([]timeline.Layer, error) {
	if !w.Enabled() {
		return nil, nil
	}

	var src image.Image
	var err error
	if w.Image != "" {
		src, err = decode(w.Image)
	} else {
		src, err = qr(w.QRText, w.Width)
	}
	if err != nil {
		return nil, err
	}

	bmp := resize(src, w.Width)
	size := timeline.Size{W: bmp.Bounds().Dx(), H: bmp.Bounds().Dy()}

	return []timeline.Layer{{
		Name:      "watermark",
		Content:   timeline.Content{Kind: timeline.ContentImage, Image: timeline.ImageRef{Path: w.Image, Page: -1, Size: size}, Size: size, Bitmap: bmp},
		Start:     0,
		Duration:  totalDuration,
		Alpha:     w.Opacity,
		Transform: timeline.Identity(Corner(canvas, size, w.Position, w.MarginX, w.MarginY)),
	}}, nil
}

// Corner returns the top-left point that pins size into a canvas corner.
func Corner(canvas, size timeline.Size, position string, mx, my int) timeline.Point {
	x, y := float64(mx), float64(my)
	switch position {
	case "top-right":
		x = float64(canvas.W - size.W - mx)
	case "bottom-left":
		y = float64(canvas.H - size.H - my)
	case "bottom-right":
		x = float64(canvas.W - size.W - mx)
		y = float64(canvas.H - size.H - my)
	}
	return timeline.Point{X: x, Y: y}
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode watermark %s: %w", path, err)
	}
	return img, nil
}

func qr(content string, size int) (image.Image, error) {
	if size <= 0 {
		size = 256
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr watermark: %w", err)
	}
	code.DisableBorder = true
	return code.Image(size), nil
}

func resize(src image.Image, width int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if width > 0 && width != w && w > 0 {
		h = h * width / w
		w = width
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
