// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package status

import (
	"sync"
	"time"
)

// 📡 Reporter multiplexes events from many jobs onto one consumer goroutine.
// Emit is safe for concurrent use; events from one producer keep their order.
type Reporter struct {
	events chan Event
	sink   Sink
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

// 🏭 NewReporter starts the consumer goroutine. Close must be called to stop it.
func NewReporter(sink Sink, buffer int) *Reporter {
	if sink == nil {
		sink = Discard
	}
	if buffer < 0 {
		buffer = 0
	}
	r := &Reporter{
		events: make(chan Event, buffer),
		sink:   sink,
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go r.consume()
	return r
}

func (r *Reporter) consume() {
	defer close(r.done)
	for e := range r.events {
		r.sink.Handle(e)
	}
}

// Emit queues e for the sink. Events emitted after Close are dropped.
func (r *Reporter) Emit(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	if e.At.IsZero() {
		e.At = r.now()
	}
	r.events <- e
}

// Close stops accepting events and waits until the sink handled every queued one.
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	<-r.done
}
