// # internal/engine/index/filecache.go
package index

import (
	"container/list"
	"sync"

	"proscope/internal/engine/parser"

	"github.com/cespare/xxhash/v2"
)

// FileCache holds the indexes of files parsed outside the current document,
// such as RUN targets. An entry is reused only while the file's content hash
// is unchanged; the least recently used entry is evicted at capacity.
type FileCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

type cachedFile struct {
	path string
	hash uint64
	idx  *Index
}

// NewFileCache creates a cache for capacity files. Values <= 0 are
// normalised to 1.
func NewFileCache(capacity int) *FileCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &FileCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Load returns the index of path for the given content, parsing it only when
// the cached entry is missing or was built from different content.
func (c *FileCache) Load(path, text string) *Index {
	hash := xxhash.Sum64String(text)

	c.mu.Lock()
	if el, ok := c.items[path]; ok {
		entry := el.Value.(*cachedFile)
		if entry.hash == hash {
			c.order.MoveToFront(el)
			c.mu.Unlock()
			return entry.idx
		}
	}
	c.mu.Unlock()

	// Parse outside the lock; a concurrent load of the same file just
	// stores an equal index.
	idx := Build(parser.ParseText(text, path))

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[path]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*cachedFile)
		entry.hash, entry.idx = hash, idx
		return idx
	}
	if c.order.Len() >= c.capacity {
		c.evictLeastRecentLocked()
	}
	c.items[path] = c.order.PushFront(&cachedFile{path: path, hash: hash, idx: idx})
	return idx
}

func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// evictLeastRecentLocked removes the back element. Caller must hold c.mu.
func (c *FileCache) evictLeastRecentLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	c.order.Remove(back)
	delete(c.items, back.Value.(*cachedFile).path)
}
