// Copyright 2024 The Kernel Gossip Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observer

import (
	"sync"
	"time"
)

// LineageState is the explicit state of a tracked process lineage. Modeled
// as a tagged variant with the legal transitions documented below, not as
// suspended control flow.
type LineageState string

const (
	// LineageObserved is the initial state: a process start was seen but it
	// is not (yet) known to be part of a container-runtime lineage.
	LineageObserved LineageState = "observed"
	// LineageRuntime means the process is the runtime itself, or a
	// descendant of one that hasn't exec'd its main process yet.
	LineageRuntime LineageState = "runtime"
	// LineageMainFound means CONTAINER_MAIN fired for this pid: it is the
	// container's primary process.
	LineageMainFound LineageState = "main-found"
	// LineageCompleted means CONTAINER_BIRTH_COMPLETE fired for this pid.
	LineageCompleted LineageState = "completed"
	// LineageExpired means the lineage was torn down, by exit event or reap sweep.
	LineageExpired LineageState = "expired"
)

// Lineage is the aggregator's bookkeeping record for one pid. It is never
// persisted outside the observer process.
type Lineage struct {
	PID              uint32
	ParentPID        uint32
	IsRuntime        bool
	State            LineageState
	StartedAt        time.Time
	SyscallCount     uint64
	NamespaceOpCount uint64
	MountOpCount     uint64
	MainChildPID     uint32
	LastUpdated      time.Time
}

// ThrottlePublishRequest is emitted by the Aggregator when a CPU_THROTTLE_EVENT
// warrants resolving a workload and publishing a ThrottleObservation.
type ThrottlePublishRequest struct {
	PID        uint32
	Comm       string
	ThrottleNs uint64
	Timestamp  uint64
}

// CreationPublishRequest is emitted by the Aggregator when a
// CONTAINER_BIRTH_COMPLETE event completes a lineage.
type CreationPublishRequest struct {
	PID           uint32
	TotalSyscalls uint64
	NamespaceOps  uint64
	MountOps      uint64
	DurationNs    uint64
	TimestampMs   uint64
}

// Aggregator tracks runtime-process lineages and turns recognized events
// into publish requests. It is safe for concurrent use, though the intended
// usage is a single goroutine driving Handle() in stream order while a
// separate goroutine periodically calls Reap().
type Aggregator struct {
	mu        sync.Mutex
	byPID     map[uint32]*Lineage
	children  map[uint32][]uint32
	now       func() time.Time
	reapAfter time.Duration
}

// NewAggregator returns an Aggregator that reaps lineages idle for longer
// than reapAfter.
func NewAggregator(reapAfter time.Duration) *Aggregator {
	return &Aggregator{
		byPID:     make(map[uint32]*Lineage),
		children:  make(map[uint32][]uint32),
		now:       time.Now,
		reapAfter: reapAfter,
	}
}

// Handle processes one event in stream order, mutating lineage state and
// returning at most one publish request. A nil, nil, nil result means the
// event was handled (or ignored) without triggering a publish.
func (a *Aggregator) Handle(ev Event) (*ThrottlePublishRequest, *CreationPublishRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e := ev.(type) {
	case ProcessStartEvent:
		a.handleProcessStart(e)
		return nil, nil, nil

	case NamespaceOpEvent:
		if l := a.byPID[e.PID]; l != nil {
			l.NamespaceOpCount++
			l.LastUpdated = a.now()
		}
		return nil, nil, nil

	case MountOpEvent:
		if l := a.byPID[e.PID]; l != nil {
			l.MountOpCount++
			l.LastUpdated = a.now()
		}
		return nil, nil, nil

	case SyscallProgressEvent:
		// Discarded for output: final aggregation comes from
		// CONTAINER_BIRTH_COMPLETE, not these running totals.
		if l := a.byPID[e.PID]; l != nil {
			l.SyscallCount = e.Total
			l.LastUpdated = a.now()
		}
		return nil, nil, nil

	case ContainerMainEvent:
		a.handleContainerMain(e)
		return nil, nil, nil

	case BirthCompleteEvent:
		return nil, a.handleBirthComplete(e), nil

	case ThrottleEvent:
		if l := a.byPID[e.PID]; l != nil {
			l.LastUpdated = a.now()
		}
		return &ThrottlePublishRequest{
			PID:        e.PID,
			Comm:       e.Comm,
			ThrottleNs: e.ThrottleNs,
			Timestamp:  e.Timestamp,
		}, nil, nil

	case ProcessExitEvent:
		a.expireLocked(e.PID)
		return nil, nil, nil
	}

	return nil, nil, nil
}

func (a *Aggregator) handleProcessStart(e ProcessStartEvent) {
	l := a.byPID[e.PID]
	if l == nil {
		l = &Lineage{PID: e.PID, State: LineageObserved, StartedAt: a.now()}
		a.byPID[e.PID] = l
		a.children[e.PPID] = append(a.children[e.PPID], e.PID)
	}
	l.ParentPID = e.PPID
	l.LastUpdated = a.now()

	switch {
	case isRuntimeComm(e.Comm):
		l.IsRuntime = true
		l.State = LineageRuntime
	case a.isRuntimeLineageLocked(e.PPID):
		// Lineage propagation: a child of a runtime pid inherits is_runtime
		// until a CONTAINER_MAIN event clears it for that subtree.
		l.IsRuntime = true
		l.State = LineageRuntime
	}
}

// isRuntimeLineageLocked reports whether pid is itself tracked as part of a
// runtime lineage. Caller must hold a.mu.
func (a *Aggregator) isRuntimeLineageLocked(pid uint32) bool {
	l := a.byPID[pid]
	return l != nil && l.IsRuntime
}

func (a *Aggregator) handleContainerMain(e ContainerMainEvent) {
	l := a.byPID[e.PID]
	if l == nil {
		l = &Lineage{PID: e.PID, ParentPID: e.PPID, StartedAt: a.now()}
		a.byPID[e.PID] = l
	}
	// CONTAINER_MAIN clears is_runtime for this subtree: this pid is now the
	// container's actual workload process, not part of the runtime shim.
	l.IsRuntime = false
	l.State = LineageMainFound
	l.LastUpdated = a.now()

	if parent := a.byPID[e.PPID]; parent != nil {
		parent.MainChildPID = e.PID
	}
}

func (a *Aggregator) handleBirthComplete(e BirthCompleteEvent) *CreationPublishRequest {
	l := a.byPID[e.PID]
	if l == nil {
		l = &Lineage{PID: e.PID, ParentPID: e.PPID, StartedAt: a.now()}
		a.byPID[e.PID] = l
	}
	l.State = LineageCompleted
	l.LastUpdated = a.now()

	return &CreationPublishRequest{
		PID:           e.PID,
		TotalSyscalls: e.TotalSyscalls,
		NamespaceOps:  e.NamespaceOps,
		MountOps:      e.MountOps,
		DurationNs:    e.DurationNs,
		TimestampMs:   e.TimestampMs,
	}
}

func (a *Aggregator) expireLocked(pid uint32) {
	l := a.byPID[pid]
	if l == nil {
		return
	}
	delete(a.byPID, pid)
	children := a.children[l.ParentPID]
	for i, c := range children {
		if c == pid {
			a.children[l.ParentPID] = append(children[:i], children[i+1:]...)
			break
		}
	}
	delete(a.children, pid)
}

// Reap removes lineages that haven't been updated within reapAfter of now.
// It returns the number of lineages reaped, for metrics/logging.
func (a *Aggregator) Reap() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := a.now().Add(-a.reapAfter)
	var stale []uint32
	for pid, l := range a.byPID {
		if l.LastUpdated.Before(cutoff) {
			stale = append(stale, pid)
		}
	}
	for _, pid := range stale {
		a.expireLocked(pid)
	}
	return len(stale)
}

// Len reports the number of lineages currently tracked, for tests and metrics.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byPID)
}

// Lookup returns a copy of the lineage record for pid, if tracked.
func (a *Aggregator) Lookup(pid uint32) (Lineage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.byPID[pid]
	if !ok {
		return Lineage{}, false
	}
	return *l, true
}
