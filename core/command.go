// Copyright 2024 bbaa
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"sync/atomic"
)

const TaskQueueSize = 16384

// TaskQueue carries work from background goroutines onto the tick thread.
type TaskQueue struct {
	queue   chan func()
	dropped atomic.Uint64
}

func NewTaskQueue(size int) *TaskQueue {
	if size <= 0 {
		size = TaskQueueSize
	}
	return &TaskQueue{queue: make(chan func(), size)}
}

// Submit never blocks. A full queue drops the task.
func (q *TaskQueue) Submit(task func()) bool {
	select {
	case q.queue <- task:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Drain runs the tasks that were queued when it was called. Tasks submitted
// while draining wait for the next call.
func (q *TaskQueue) Drain(run func(task func())) int {
	n := len(q.queue)
	for i := 0; i < n; i++ {
		run(<-q.queue)
	}
	return n
}

func (q *TaskQueue) Len() int {
	return len(q.queue)
}

func (q *TaskQueue) Dropped() uint64 {
	return q.dropped.Load()
}
