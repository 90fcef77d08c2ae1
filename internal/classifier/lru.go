package classifier

import (
	"container/list"
	"sync"

	"github.com/dot-do/functions-gateway/internal/model"
)

// lru is a bounded, O(1) oldest-first eviction cache keyed by string,
// grounded on the doubly-linked-list-plus-map LRU idiom seen across the
// pack's gateway examples (e.g. wudi-gateway's manager caches), adapted to
// the exact "single guarded structure with explicit clear()" shape Design
// Notes §9 calls for.
type lru struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key   string
	value model.ClassificationEntry
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1000
	}
	return &lru{capacity: capacity, ll: list.New(), items: make(map[string]*list.Element)}
}

func (c *lru) get(key string) (model.ClassificationEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return model.ClassificationEntry{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lru) put(key string, value model.ClassificationEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}

// clear empties the cache. Test-only, per Design Notes §9.
func (c *lru) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll = list.New()
	c.items = make(map[string]*list.Element)
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
