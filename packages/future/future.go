// Package future provides a settle-once future with chaining and out-of-band
// progress notifications.
//
// A Future is created pending through a Deferred, which holds the resolve,
// reject and notify capabilities. Handlers attached with Then or Chain run on
// their own goroutine once the parent settles, so a chain of stages executes
// strictly in order.
package future

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNilRejection is used when a future is rejected with a nil error.
var ErrNilRejection = errors.New("future: rejected with nil error")

// PanicError wraps a value recovered from a panicking handler.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("future: handler panicked: %v", e.Value)
}

// Future is the read side of an asynchronous result.
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	listeners []func(any)
	// notifications made before anyone listened, replayed to the first listener
	backlog []any
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Deferred is the write side of a Future.
type Deferred[T any] struct {
	f *Future[T]
}

// NewDeferred returns a pending future and its capabilities.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{f: newFuture[T]()}
}

// Future returns the future controlled by d.
func (d *Deferred[T]) Future() *Future[T] {
	return d.f
}

// Resolve fulfils the future with v. It reports false if the future was
// already settled.
func (d *Deferred[T]) Resolve(v T) bool {
	return d.f.settle(v, nil)
}

// Reject fails the future with err. It reports false if the future was
// already settled.
func (d *Deferred[T]) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	var zero T
	return d.f.settle(zero, err)
}

// Notify delivers p to every progress listener. Notifications made while
// nobody listens are kept for the first listener; notifications after
// settlement are dropped.
func (d *Deferred[T]) Notify(p any) {
	d.f.mu.Lock()
	if d.f.settled {
		d.f.mu.Unlock()
		return
	}
	if len(d.f.listeners) == 0 {
		d.f.backlog = append(d.f.backlog, p)
		d.f.mu.Unlock()
		return
	}
	listeners := append([]func(any){}, d.f.listeners...)
	d.f.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled {
		return false
	}
	f.settled = true
	f.value = v
	f.err = err
	f.listeners = nil
	close(f.done)
	return true
}

// Resolved returns a future already fulfilled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a future already failed with err.
func Rejected[T any](err error) *Future[T] {
	d := NewDeferred[T]()
	d.Reject(err)
	return d.f
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has a result.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done. Giving up on ctx
// does not affect the future itself.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait blocks until the future settles.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// OnProgress registers fn for progress notifications. Notifications that
// nobody received yet are replayed to fn first, even after settlement; a
// settled future delivers nothing else.
func (f *Future[T]) OnProgress(fn func(any)) {
	f.mu.Lock()
	if !f.settled {
		f.listeners = append(f.listeners, fn)
	}
	backlog := f.backlog
	f.backlog = nil
	f.mu.Unlock()

	for _, p := range backlog {
		fn(p)
	}
}

// Then derives a future from f. onSuccess runs when f fulfils and onError
// when it fails; either may be nil, in which case the outcome passes through
// (a fulfilled value must then already be a U). Progress on f is forwarded
// to the derived future. A panicking handler rejects with *PanicError.
func Then[T, U any](f *Future[T], onSuccess func(T) (U, error), onError func(error) (U, error)) *Future[U] {
	d := NewDeferred[U]()
	f.OnProgress(d.Notify)

	go func() {
		<-f.done
		if f.err == nil {
			if onSuccess == nil {
				if u, ok := any(f.value).(U); ok {
					d.Resolve(u)
				} else {
					d.Reject(fmt.Errorf("future: cannot pass %T through without a success handler", f.value))
				}
				return
			}
			settleWith(d, func() (U, error) { return onSuccess(f.value) })
			return
		}
		if onError == nil {
			d.Reject(f.err)
			return
		}
		settleWith(d, func() (U, error) { return onError(f.err) })
	}()

	return d.f
}

// Bind derives a future from an asynchronous stage. When f fulfils, next is
// called and the derived future follows the future it returns, including its
// progress. A failure of f skips next.
func Bind[T, U any](f *Future[T], next func(T) *Future[U]) *Future[U] {
	d := NewDeferred[U]()
	f.OnProgress(d.Notify)

	go func() {
		<-f.done
		if f.err != nil {
			d.Reject(f.err)
			return
		}

		settleWith(d, func() (U, error) {
			inner := next(f.value)
			var zero U
			if inner == nil {
				return zero, errors.New("future: bind stage returned nil")
			}
			inner.OnProgress(d.Notify)
			return inner.Wait()
		})
	}()

	return d.f
}

// Chain is Then for stages that keep the value type.
func Chain[T any](f *Future[T], onSuccess func(T) (T, error), onError func(error) (T, error)) *Future[T] {
	return Then(f, onSuccess, onError)
}

func settleWith[U any](d *Deferred[U], fn func() (U, error)) {
	defer func() {
		if r := recover(); r != nil {
			d.Reject(&PanicError{Value: r})
		}
	}()
	v, err := fn()
	if err != nil {
		d.Reject(err)
		return
	}
	d.Resolve(v)
}
