// seehuhn.de/go/pdfview - on-demand page rendering for PDF viewers
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package workpool runs background tasks with bounded concurrency.
package workpool

import (
	"runtime"
	"sync"
)

// Pool runs tasks on at most a fixed number of goroutines.
//
// Tasks are queued and run in the order they were submitted.  Worker
// goroutines are started on demand and exit when the queue is empty, so an
// idle pool holds no goroutines.
type Pool struct {
	size int
	wg   sync.WaitGroup

	mu      sync.Mutex
	queue   []func()
	running int
}

// New creates a pool which runs up to workers tasks concurrently.
// If workers is not positive, the number of CPUs is used.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{size: workers}
}

// Go queues task for execution.  Go never blocks.
func (p *Pool) Go(task func()) {
	p.wg.Add(1)

	p.mu.Lock()
	p.queue = append(p.queue, task)
	start := p.running < p.size
	if start {
		p.running++
	}
	p.mu.Unlock()

	if start {
		go p.work()
	}
}

func (p *Pool) work() {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.queue = nil
			p.running--
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		task()
		p.wg.Done()
	}
}

// Wait waits until all tasks have finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size returns the maximal number of concurrent tasks.
func (p *Pool) Size() int {
	return p.size
}

// Workers returns the number of worker goroutines currently running.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
