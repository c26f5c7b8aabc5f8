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

// Package observer implements the node-local kernel-event pipeline: parsing
// the tracing runtime's output, aggregating it per container-runtime
// lineage, resolving it to a workload identity, and posting the result to
// the ingress controller.
package observer

// Event tags recognized on the tracing runtime's stdout. Any other tag is
// discarded by the parser.
const (
	tagCPUThrottle       = "CPU_THROTTLE_EVENT"
	tagProcessStart      = "CONTAINER_PROCESS_START"
	tagNamespaceOp       = "CONTAINER_NAMESPACE_OP"
	tagMountOp           = "CONTAINER_MOUNT_OP"
	tagSyscalls          = "CONTAINER_SYSCALLS"
	tagContainerMain     = "CONTAINER_MAIN"
	tagBirthComplete     = "CONTAINER_BIRTH_COMPLETE"
	tagProcessExit       = "sched_process_exit"
)

// Event is implemented by every typed record the parser can produce.
type Event interface {
	// Tag returns the event's wire tag, e.g. "CPU_THROTTLE_EVENT".
	Tag() string
}

// ThrottleEvent corresponds to a CPU_THROTTLE_EVENT record.
type ThrottleEvent struct {
	PID        uint32
	Comm       string
	ThrottleNs uint64
	Timestamp  uint64
}

func (ThrottleEvent) Tag() string { return tagCPUThrottle }

// ProcessStartEvent corresponds to a CONTAINER_PROCESS_START record.
type ProcessStartEvent struct {
	PID         uint32
	PPID        uint32
	Comm        string
	TimestampMs uint64
}

func (ProcessStartEvent) Tag() string { return tagProcessStart }

// NamespaceOpEvent corresponds to a CONTAINER_NAMESPACE_OP record.
type NamespaceOpEvent struct {
	PID         uint32
	Type        string
	TimestampMs uint64
}

func (NamespaceOpEvent) Tag() string { return tagNamespaceOp }

// MountOpEvent corresponds to a CONTAINER_MOUNT_OP record.
type MountOpEvent struct {
	PID         uint32
	Type        string
	TimestampMs uint64
}

func (MountOpEvent) Tag() string { return tagMountOp }

// SyscallProgressEvent corresponds to a CONTAINER_SYSCALLS record. This is a
// mid-stream progress signal; final counts come from BirthCompleteEvent.
type SyscallProgressEvent struct {
	PID         uint32
	Total       uint64
	TimestampMs uint64
}

func (SyscallProgressEvent) Tag() string { return tagSyscalls }

// ContainerMainEvent corresponds to a CONTAINER_MAIN record: the first
// non-runtime exec under a runtime lineage.
type ContainerMainEvent struct {
	PID         uint32
	PPID        uint32
	Comm        string
	TimestampMs uint64
}

func (ContainerMainEvent) Tag() string { return tagContainerMain }

// BirthCompleteEvent corresponds to a CONTAINER_BIRTH_COMPLETE record: the
// publish trigger for a CreationObservation.
type BirthCompleteEvent struct {
	PID           uint32
	PPID          uint32
	Comm          string
	TotalSyscalls uint64
	NamespaceOps  uint64
	MountOps      uint64
	DurationNs    uint64
	TimestampMs   uint64
}

func (BirthCompleteEvent) Tag() string { return tagBirthComplete }

// ProcessExitEvent corresponds to a sched_process_exit record and triggers
// immediate lineage teardown for its pid.
type ProcessExitEvent struct {
	PID         uint32
	TimestampMs uint64
}

func (ProcessExitEvent) Tag() string { return tagProcessExit }

// runtimeComms is the set of comm values that mark a process as a container
// runtime. containerd-shim is matched by prefix.
var runtimeComms = map[string]bool{
	"runc":   true,
	"crun":   true,
	"conmon": true,
}

func isRuntimeComm(comm string) bool {
	if runtimeComms[comm] {
		return true
	}
	const shimPrefix = "containerd-shim"
	return len(comm) >= len(shimPrefix) && comm[:len(shimPrefix)] == shimPrefix
}
