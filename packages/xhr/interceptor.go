package xhr

import "sync"

// Interceptor observes or rewrites requests before the exchange and
// responses after it. Every field is optional.
//
// Request and RequestError run in registration order before the transport;
// an error skips the remaining Request handlers and the transport but is
// still seen by ResponseError handlers. Returning a value from an error
// handler recovers the chain.
type Interceptor struct {
	Request       func(*Config) (*Config, error)
	RequestError  func(error) (*Config, error)
	Response      func(*Response) (*Response, error)
	ResponseError func(error) (*Response, error)
}

func (i Interceptor) hasRequest() bool {
	return i.Request != nil || i.RequestError != nil
}

func (i Interceptor) hasResponse() bool {
	return i.Response != nil || i.ResponseError != nil
}

// Interceptors is an ordered, concurrency-safe interceptor registry.
type Interceptors struct {
	mu     sync.RWMutex
	nextID int
	items  []registered
}

type registered struct {
	id int
	Interceptor
}

// Use appends i and returns an id for Eject.
func (r *Interceptors) Use(i Interceptor) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.items = append(r.items, registered{id: r.nextID, Interceptor: i})
	return r.nextID
}

// Eject removes the interceptor registered under id. It reports whether
// one was removed.
func (r *Interceptors) Eject(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for idx, it := range r.items {
		if it.id == id {
			r.items = append(r.items[:idx:idx], r.items[idx+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every interceptor.
func (r *Interceptors) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// List returns the interceptors in registration order.
func (r *Interceptors) List() []Interceptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Interceptor, len(r.items))
	for i, it := range r.items {
		out[i] = it.Interceptor
	}
	return out
}

// Len returns the number of registered interceptors.
func (r *Interceptors) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
