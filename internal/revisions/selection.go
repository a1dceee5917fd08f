package revisions

import "sync"

// CompareSelection tracks up to two revision ids picked for comparison.
// Selecting a third id drops the oldest pick.
type CompareSelection struct {
	mu  sync.Mutex
	ids []string
}

// Toggle selects id, or deselects it when already selected.
func (c *CompareSelection) Toggle(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.ids {
		if existing == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			return
		}
	}
	if len(c.ids) == 2 {
		c.ids = c.ids[1:]
	}
	c.ids = append(c.ids, id)
}

// Selected returns the picks in selection order.
func (c *CompareSelection) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

// Ready reports whether two revisions are selected.
func (c *CompareSelection) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids) == 2
}

// Clear drops the selection.
func (c *CompareSelection) Clear() {
	c.mu.Lock()
	c.ids = nil
	c.mu.Unlock()
}
