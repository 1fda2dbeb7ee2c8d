package xhr

import "sync"

// Pending tracks the configurations of in-flight exchanges in start order.
type Pending struct {
	mu    sync.Mutex
	items []*Config
}

func (p *Pending) add(c *Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, c)
}

// remove drops c by identity; it is a no-op when c is not tracked.
func (p *Pending) remove(c *Config) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, it := range p.items {
		if it == c {
			p.items = append(p.items[:i:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns a snapshot of in-flight configurations. They must not be
// modified.
func (p *Pending) List() []*Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Config(nil), p.items...)
}

// Len returns the number of in-flight exchanges.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
