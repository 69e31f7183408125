/*
(c) Copyright 2018 Hewlett Packard Enterprise Development LP
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package concurrent

import (
	"sync"
)

// Queue is an unbounded FIFO shared between one producer and one consumer.  Items can only be
// appended or drained as a whole; there is no indexed access.
type Queue[T any] struct {
	mutex *sync.Mutex
	items []T
}

// NewQueue returns an empty queue
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{mutex: &sync.Mutex{}}
}

// Push appends an item to the tail of the queue
func (q *Queue[T]) Push(item T) {
	q.mutex.Lock()
	q.items = append(q.items, item)
	q.mutex.Unlock()
}

// DrainAll removes and returns every queued item in arrival order.  It returns nil when the
// queue is empty.
func (q *Queue[T]) DrainAll() []T {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.items)
}
