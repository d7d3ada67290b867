// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package future

import (
	"context"
	"sync"
)

// Future represents a value which may or may not currently be available,
// but will be available at some point in the future, or an error if that value
// could not be made available.
//
// A Future is completed exactly once through its Completable. Any number of
// goroutines can Await it; a canceled Await does not affect the Future.
//
// Example usage:
//
//	task := func() (*actor.ActorInfo, error) {
//	    return proxy.ConnectAsync(ctx).Await(ctx)
//	}
//
//	f := future.New(task)
//	info, err := f.Await(ctx)
type Future[T any] interface {
	// Await blocks until the Future is completed or context is canceled and
	// returns either a result or an error.
	Await(context.Context) (T, error)
	// Done is closed once the Future is completed.
	Done() <-chan struct{}
	// Result returns the outcome when the Future is completed, nil otherwise.
	Result() *Result[T]
}

// Completable is a writable, single-assignment container which completes a Future.
type Completable[T any] interface {
	// Success completes the underlying Future with a value.
	// It reports false when the Future was already completed.
	Success(T) bool
	// Failure fails the underlying Future with an error.
	// It reports false when the Future was already completed.
	Failure(error) bool
	// Future returns the underlying Future.
	Future() Future[T]
}

// New creates a new Future that executes the given long-running task
// in a separate goroutine.
func New[T any](task func() (T, error)) Future[T] {
	comp := NewCompletable[T]()
	go func() {
		result, err := task()
		if err != nil {
			comp.Failure(err)
			return
		}
		comp.Success(result)
	}()
	return comp.Future()
}

// NewCompletable returns a new Completable.
func NewCompletable[T any]() Completable[T] {
	return &future[T]{done: make(chan struct{})}
}

// Completed returns a Future already completed with value.
func Completed[T any](value T) Future[T] {
	comp := NewCompletable[T]()
	comp.Success(value)
	return comp.Future()
}

// Failed returns a Future already failed with err.
func Failed[T any](err error) Future[T] {
	comp := NewCompletable[T]()
	comp.Failure(err)
	return comp.Future()
}

// future implements both Future and Completable.
type future[T any] struct {
	once   sync.Once
	done   chan struct{}
	result *Result[T]
}

var (
	_ Future[any]      = (*future[any])(nil)
	_ Completable[any] = (*future[any])(nil)
)

// Await blocks until the Future is completed or context is canceled
func (x *future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-x.done:
		return x.result.success, x.result.failure
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the Future is completed
func (x *future[T]) Done() <-chan struct{} {
	return x.done
}

// Result returns the outcome or nil when still pending
func (x *future[T]) Result() *Result[T] {
	select {
	case <-x.done:
		return x.result
	default:
		return nil
	}
}

// Success completes the Future with a given value.
func (x *future[T]) Success(value T) bool {
	return x.complete(&Result[T]{success: value})
}

// Failure fails the Future with a given error.
func (x *future[T]) Failure(err error) bool {
	return x.complete(&Result[T]{failure: err})
}

// Future returns the underlying Future.
func (x *future[T]) Future() Future[T] {
	return x
}

func (x *future[T]) complete(result *Result[T]) bool {
	completed := false
	x.once.Do(func() {
		x.result = result
		close(x.done)
		completed = true
	})
	return completed
}
