package render

import "sync"

// Cache keeps documents open across requests so a page flip does not reopen
// and reparse the PDF.
type Cache struct {
	mu   sync.Mutex
	docs map[string]*Document
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{docs: map[string]*Document{}}
}

// Open returns the cached document for path, opening it on first use.
func (c *Cache) Open(path string) (*Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.docs[path]; ok {
		return d, nil
	}
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	c.docs[path] = d
	return d, nil
}

// Close releases every cached document. The first error wins.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for path, d := range c.docs {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
		delete(c.docs, path)
	}
	return first
}
