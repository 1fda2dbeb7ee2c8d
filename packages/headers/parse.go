package headers

import (
	"strings"
	"sync"
)

// Parse splits a raw header block into a map keyed by lower-cased header
// name. Repeated headers are joined with ", " in the order they appear.
func Parse(raw string) map[string]string {
	parsed := make(map[string]string)
	if raw == "" {
		return parsed
	}

	for _, line := range strings.Split(raw, "\n") {
		i := strings.Index(line, ":")
		if i < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:i]))
		if key == "" {
			continue
		}
		val := strings.TrimSpace(line[i+1:])

		if prev, ok := parsed[key]; ok {
			parsed[key] = prev + ", " + val
		} else {
			parsed[key] = val
		}
	}

	return parsed
}

// Getter gives case-insensitive read access to a set of headers. When built
// from raw text the block is parsed on first use and memoized.
type Getter struct {
	once   sync.Once
	raw    string
	parsed map[string]string
}

// NewGetter returns a Getter over a raw header block.
func NewGetter(raw string) *Getter {
	return &Getter{raw: raw}
}

// FromMap returns a Getter over an already parsed header map.
func FromMap(m map[string]string) *Getter {
	g := &Getter{parsed: make(map[string]string, len(m))}
	for k, v := range m {
		g.parsed[strings.ToLower(k)] = v
	}
	g.once.Do(func() {})
	return g
}

func (g *Getter) load() map[string]string {
	g.once.Do(func() {
		g.parsed = Parse(g.raw)
	})
	return g.parsed
}

// Lookup returns the value of name and whether it was present.
func (g *Getter) Lookup(name string) (string, bool) {
	if g == nil {
		return "", false
	}
	v, ok := g.load()[strings.ToLower(name)]
	return v, ok
}

// Get returns the value of name, or "" when absent.
func (g *Getter) Get(name string) string {
	v, _ := g.Lookup(name)
	return v
}

// All returns every header keyed by lower-cased name. The returned map must
// not be modified.
func (g *Getter) All() map[string]string {
	if g == nil {
		return map[string]string{}
	}
	return g.load()
}
