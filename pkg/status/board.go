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
	"sort"
	"sync"
)

// 📄 JobInfo is what the board knows about one job
type JobInfo struct {
	Job      int
	Label    string
	Stage    Stage
	Detail   string // Detail of the last transition
	Err      error
	Assets   int      // Stored assets
	Warnings []string // Warning details in arrival order
}

// 📋 Board tracks the latest state of every job and forwards events to next.
// Reads are safe while events are being handled.
type Board struct {
	next Sink

	mu   sync.RWMutex
	jobs map[int]*JobInfo
}

// 🏭 NewBoard creates a board; next may be nil
func NewBoard(next Sink) *Board {
	if next == nil {
		next = Discard
	}
	return &Board{next: next, jobs: make(map[int]*JobInfo)}
}

func (b *Board) Handle(e Event) {
	b.mu.Lock()
	info, ok := b.jobs[e.Job]
	if !ok {
		info = &JobInfo{Job: e.Job, Label: e.Label}
		b.jobs[e.Job] = info
	}
	switch e.Type {
	case EventTransition:
		info.Stage = e.Stage
		info.Detail = e.Detail
		if e.Err != nil {
			info.Err = e.Err
		}
	case EventWarning:
		info.Warnings = append(info.Warnings, e.Detail)
	case EventAsset:
		info.Assets++
	}
	b.mu.Unlock()

	b.next.Handle(e)
}

// Get returns the state of one job.
func (b *Board) Get(job int) (JobInfo, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info, ok := b.jobs[job]
	if !ok {
		return JobInfo{}, false
	}
	return copyInfo(info), true
}

// Snapshot returns every job ordered by index.
func (b *Board) Snapshot() []JobInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]JobInfo, 0, len(b.jobs))
	for _, info := range b.jobs {
		out = append(out, copyInfo(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// Progress returns how many tracked jobs reached a terminal stage.
func (b *Board) Progress() (finished, total int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, info := range b.jobs {
		if info.Stage.Terminal() {
			finished++
		}
	}
	return finished, len(b.jobs)
}

func copyInfo(info *JobInfo) JobInfo {
	c := *info
	c.Warnings = append([]string(nil), info.Warnings...)
	return c
}
