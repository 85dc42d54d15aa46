package render

// Coord is a table coordinate.
type Coord struct {
	Row, Col int
}

type cacheKey struct {
	coord Coord
	width int
}

// Cache keeps the last rendering per coordinate and width. The first
// rendering wins until the cache is invalidated.
type Cache struct {
	entries map[cacheKey]string
}

func NewCache() *Cache { return &Cache{entries: map[cacheKey]string{}} }

// Get returns the cached text or stores the result of fn.
func (c *Cache) Get(at Coord, width int, fn func() string) string {
	if c.entries == nil {
		c.entries = map[cacheKey]string{}
	}
	k := cacheKey{coord: at, width: width}
	if s, ok := c.entries[k]; ok {
		return s
	}
	s := fn()
	c.entries[k] = s
	return s
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.entries = map[cacheKey]string{}
}

// InvalidateRow drops the entries of one row.
func (c *Cache) InvalidateRow(row int) {
	for k := range c.entries {
		if k.coord.Row == row {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) Len() int { return len(c.entries) }
