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

package queue

import (
	"sync"
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Mpsc is an unbounded Multi-Producer-Single-Consumer queue. Push can be
// called from any goroutine, Pop and IsEmpty only from the consumer.
// reference: https://concurrencyfreaks.blogspot.com/2014/04/multi-producer-single-consumer-queue.html
type Mpsc[T any] struct {
	head   atomic.Pointer[node[T]]
	tail   *node[T]
	length atomic.Int64
	lock   sync.Mutex
}

// NewMpsc creates an instance of Mpsc
func NewMpsc[T any]() *Mpsc[T] {
	stub := new(node[T])
	q := &Mpsc[T]{tail: stub}
	q.head.Store(stub)
	return q
}

// Push places the given value at the queue head (FIFO). Returns always true
func (q *Mpsc[T]) Push(value T) bool {
	tnode := &node[T]{value: value}
	previous := q.head.Swap(tnode)
	previous.next.Store(tnode)
	q.length.Add(1)
	return true
}

// Pop takes the value at the queue tail.
// Returns false if the queue is empty.
func (q *Mpsc[T]) Pop() (T, bool) {
	var zero T
	q.lock.Lock()
	next := q.tail.next.Load()
	if next == nil {
		q.lock.Unlock()
		return zero, false
	}
	q.tail = next
	q.lock.Unlock()

	value := next.value
	next.value = zero
	q.length.Add(-1)
	return value, true
}

// Len returns queue length
func (q *Mpsc[T]) Len() int64 {
	return q.length.Load()
}

// IsEmpty returns true when the queue is empty
func (q *Mpsc[T]) IsEmpty() bool {
	q.lock.Lock()
	tail := q.tail
	q.lock.Unlock()
	return tail.next.Load() == nil
}
