package source

import (
	"fmt"
	"image"
	"sync"

	"github.com/ivlev/captionreel/internal/timeline"
)

// Cache renders the pages of a background source once and keeps the result
// for the lifetime of a render. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	src     Source
	pages   map[timeline.ImageRef]int
	entries map[timeline.ImageRef]*cacheEntry
}

type cacheEntry struct {
	once sync.Once
	img  image.Image
	err  error
}

func NewCache() *Cache {
	return &Cache{
		pages:   make(map[timeline.ImageRef]int),
		entries: make(map[timeline.ImageRef]*cacheEntry),
	}
}

// Use binds the cache to src. Bitmaps decoded from a previous source are
// dropped.
func (c *Cache) Use(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.src = src
	c.pages = make(map[timeline.ImageRef]int, src.PageCount())
	c.entries = make(map[timeline.ImageRef]*cacheEntry)
	for i := 0; i < src.PageCount(); i++ {
		c.pages[key(src.Ref(i))] = i
	}
}

// Load returns the rendered page behind ref. Size is ignored as a key.
func (c *Cache) Load(ref timeline.ImageRef) (image.Image, error) {
	k := key(ref)
	c.mu.Lock()
	src := c.src
	index, known := c.pages[k]
	e, ok := c.entries[k]
	if !ok {
		e = &cacheEntry{}
		c.entries[k] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		if !known {
			e.err = fmt.Errorf("%s is not a page of the background source", describe(ref))
			return
		}
		e.img, e.err = src.RenderPage(index)
	})
	return e.img, e.err
}

func key(ref timeline.ImageRef) timeline.ImageRef {
	return timeline.ImageRef{Path: ref.Path, Page: ref.Page}
}

func describe(ref timeline.ImageRef) string {
	if ref.Page < 0 {
		return ref.Path
	}
	return fmt.Sprintf("%s page %d", ref.Path, ref.Page+1)
}
