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

package actor

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/atomic"

	gerrors "github.com/remactgo/remact/errors"
	"github.com/remactgo/remact/internal/queue"
	"github.com/remactgo/remact/log"
)

const (
	idle int32 = iota
	busy
)

type loopCtxKey struct{}

// Task is a unit of work run by a Loop
type Task func(ctx context.Context)

// Loop runs posted tasks one at a time, in posting order.
// A port that is not multithreaded is bound to one Loop and all its
// dispatch happens on that Loop, which is what keeps port and handler state
// free of data races.
type Loop struct {
	name       string
	queue      *queue.Mpsc[Task]
	processing *atomic.Int32
	running    *atomic.Bool
	stopped    *atomic.Bool
	logger     log.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewLoop creates a Loop. Tasks posted before Start are run once the Loop starts.
func NewLoop(name string, opts ...LoopOption) *Loop {
	l := &Loop{
		name:       name,
		queue:      queue.NewMpsc[Task](),
		processing: atomic.NewInt32(idle),
		running:    atomic.NewBool(false),
		stopped:    atomic.NewBool(false),
		logger:     log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(l)
	}

	l.ctx, l.cancel = context.WithCancel(WithLoop(context.Background(), l))
	return l
}

// StartLoop creates and starts a Loop
func StartLoop(name string, opts ...LoopOption) *Loop {
	l := NewLoop(name, opts...)
	l.Start()
	return l
}

// Name returns the loop name
func (l *Loop) Name() string {
	return l.name
}

// Context returns the context passed to the tasks of the loop.
// It is canceled when the loop stops.
func (l *Loop) Context() context.Context {
	return l.ctx
}

// Running returns true between Start and Stop
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Start runs the tasks posted so far and the ones to come
func (l *Loop) Start() {
	if l.stopped.Load() || !l.running.CompareAndSwap(false, true) {
		return
	}
	l.process()
}

// Post enqueues a task. It is safe to call from any goroutine.
func (l *Loop) Post(task Task) error {
	if l.stopped.Load() {
		return gerrors.ErrLoopStopped
	}
	l.enqueue(task)
	return nil
}

// Invoke runs fn on the loop and waits for its result.
// When ctx already belongs to the loop fn runs right away.
func (l *Loop) Invoke(ctx context.Context, fn func(ctx context.Context) error) error {
	if LoopFromContext(ctx) == l {
		return fn(ctx)
	}

	result := make(chan error, 1)
	if err := l.Post(func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				result <- gerrors.NewPanicError(fmt.Errorf("%v", r))
			}
		}()
		result <- fn(ctx)
	}); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop runs the tasks already posted then stops the loop.
// Posting to a stopped loop returns ErrLoopStopped.
func (l *Loop) Stop(ctx context.Context) error {
	if !l.stopped.CompareAndSwap(false, true) {
		return nil
	}

	// a task stopping its own loop cannot wait for itself
	if LoopFromContext(ctx) == l || !l.running.Load() {
		l.running.Store(false)
		l.cancel()
		return nil
	}

	done := make(chan struct{})
	l.enqueue(func(context.Context) { close(done) })

	defer func() {
		l.running.Store(false)
		l.cancel()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// String returns the loop name
func (l *Loop) String() string {
	return fmt.Sprintf("Loop(%s)", l.name)
}

func (l *Loop) enqueue(task Task) {
	l.queue.Push(task)
	if l.running.Load() {
		l.process()
	}
}

// process drains the queue on a goroutine. Only one drain runs at a time.
func (l *Loop) process() {
	if !l.processing.CompareAndSwap(idle, busy) {
		return
	}

	go func() {
		for {
			for {
				task, ok := l.queue.Pop()
				if !ok {
					break
				}
				l.run(task)
			}

			l.processing.Store(idle)

			// a task may have been pushed between the last Pop and the state change
			if !l.queue.IsEmpty() && l.processing.CompareAndSwap(idle, busy) {
				continue
			}
			return
		}
	}()
}

func (l *Loop) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("loop (%s) recovered from a task panic: %v\n%s", l.name, r, debug.Stack())
		}
	}()
	task(l.ctx)
}

// WithLoop returns a copy of ctx carrying loop
func WithLoop(ctx context.Context, loop *Loop) context.Context {
	return context.WithValue(ctx, loopCtxKey{}, loop)
}

// LoopFromContext returns the loop carried by ctx, nil when there is none
func LoopFromContext(ctx context.Context) *Loop {
	if ctx == nil {
		return nil
	}
	loop, _ := ctx.Value(loopCtxKey{}).(*Loop)
	return loop
}
