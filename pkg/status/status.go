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
	"time"
)

// 📊 Stage is the position of a job in the acquisition pipeline
type Stage int

const (
	StageIdle Stage = iota
	StageMetadataFetching
	StageContentFetching
	StageDecoding
	StageAssembling
	StageDone
	StageFailed
	StageCanceled
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageMetadataFetching:
		return "fetching metadata"
	case StageContentFetching:
		return "fetching content"
	case StageDecoding:
		return "decoding"
	case StageAssembling:
		return "assembling"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	case StageCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition can follow s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCanceled
}

// CanAdvance reports whether a job in stage from may move to to.
// Working stages advance strictly one at a time; any working stage may end
// in Failed or Canceled.
func CanAdvance(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StageFailed, StageCanceled:
		return true
	case StageIdle:
		return false
	default:
		return to == from+1
	}
}

// 🏷️ EventType distinguishes stage changes from in-stage notices
type EventType int

const (
	EventTransition EventType = iota // the job entered Stage
	EventWarning                     // non-fatal notice, e.g. unsupported extensions
	EventAsset                       // one asset stored
)

func (t EventType) String() string {
	switch t {
	case EventTransition:
		return "transition"
	case EventWarning:
		return "warning"
	case EventAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// 📨 Event is one progress notification of one job
type Event struct {
	Job    int       // Index of the job in the run
	Label  string    // Locator of the job
	Type   EventType // Kind of notification
	Stage  Stage     // Stage the job is in after the event
	Detail string    // Human readable detail, may be empty
	Err    error     // Set on Failed and Canceled transitions
	At     time.Time // When the event was emitted
}

// 🔌 Sink consumes events. A sink is only ever called from one goroutine.
type Sink interface {
	Handle(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

func (f SinkFunc) Handle(e Event) {
	f(e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type multi []Sink

func (m multi) Handle(e Event) {
	for _, s := range m {
		s.Handle(e)
	}
}

// Chain returns a sink that hands every event to each sink in order.
func Chain(sinks ...Sink) Sink {
	return multi(sinks)
}
