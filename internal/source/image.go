package source

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/captionreel/internal/timeline"
)

type ImageSource struct {
	paths []string
}

// NewImageSource keeps paths in order. A directory entry expands to the
// images it contains, sorted by name.
func NewImageSource(paths ...string) (*ImageSource, error) {
	var out []string
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(entry.Name())) {
			case ".jpg", ".jpeg", ".png":
				found = append(found, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return &ImageSource{paths: out}, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) PageSize(index int) (timeline.Size, error) {
	f, err := os.Open(s.paths[index])
	if err != nil {
		return timeline.Size{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return timeline.Size{}, err
	}
	return timeline.Size{W: cfg.Width, H: cfg.Height}, nil
}

func (s *ImageSource) RenderPage(index int) (image.Image, error) {
	return decodeFile(s.paths[index])
}

func (s *ImageSource) Ref(index int) timeline.ImageRef {
	return timeline.ImageRef{Path: s.paths[index], Page: -1}
}

func (s *ImageSource) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
