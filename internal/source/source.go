package source

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/captionreel/internal/timeline"
)

// Source is an ordered set of background pages.
type Source interface {
	PageCount() int
	PageSize(index int) (timeline.Size, error)
	RenderPage(index int) (image.Image, error)
	Ref(index int) timeline.ImageRef
	Close() error
}

// Refs lists every page of src with its pixel size.
func Refs(src Source) ([]timeline.ImageRef, error) {
	refs := make([]timeline.ImageRef, src.PageCount())
	for i := range refs {
		size, err := src.PageSize(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		ref := src.Ref(i)
		ref.Size = size
		refs[i] = ref
	}
	return refs, nil
}

type FitzPDFSource struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
	dpi  int
}

func NewFitzPDFSource(path string, dpi int) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzPDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

// PageSize reports the page size at the render DPI. Bound is in points.
func (f *FitzPDFSource) PageSize(index int) (timeline.Size, error) {
	f.mu.Lock()
	rect, err := f.doc.Bound(index)
	f.mu.Unlock()
	if err != nil {
		return timeline.Size{}, err
	}
	k := float64(f.dpi) / 72
	return timeline.Size{W: int(float64(rect.Dx())*k + 0.5), H: int(float64(rect.Dy())*k + 0.5)}, nil
}

// RenderPage opens its own document so pages can be rendered concurrently.
func (f *FitzPDFSource) RenderPage(index int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(f.dpi))
}

func (f *FitzPDFSource) Ref(index int) timeline.ImageRef {
	return timeline.ImageRef{Path: f.path, Page: index}
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
