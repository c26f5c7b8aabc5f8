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

// Package v1alpha1 defines the kernelgossip.dev/v1alpha1 custom resources:
// ThrottleObservation and CreationObservation.
package v1alpha1

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Severity classifies how badly a pod is being CPU throttled. It is always
// derived from ThrottledPercent and must never be stored independently of it.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SeverityForThrottledPercent derives the severity of a throttle percentage.
// severity = critical iff throttled_percent > 80; warning iff 50 < throttled_percent <= 80;
// info iff throttled_percent <= 50. Recompute this on every upsert; never persist a
// severity that didn't come straight from this function.
func SeverityForThrottledPercent(p float64) Severity {
	switch {
	case p > 80:
		return SeverityCritical
	case p > 50:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// KernelTruth holds the kernel-observed ground truth for a throttled pod.
type KernelTruth struct {
	// ThrottledPercent is the share of the last CFS period the container spent throttled, in [0, 100].
	ThrottledPercent float64 `json:"throttledPercent"`
	// ActualCPUCores is a conservative estimate of actual CPU demand derived from throttle time.
	ActualCPUCores float64 `json:"actualCpuCores"`
}

// MetricsLie holds what conventional user-space metrics reported for the same pod.
type MetricsLie struct {
	// CPUPercent is the self-reported CPU utilization percentage, in [0, 100].
	CPUPercent float64 `json:"cpuPercent"`
	// ReportedStatus is the health status conventional metrics pipelines surfaced.
	ReportedStatus string `json:"reportedStatus"`
}

// ThrottleObservationSpec is the kernel-truth payload for a single detection.
type ThrottleObservationSpec struct {
	PodName       string      `json:"podName"`
	Namespace     string      `json:"namespace"`
	ContainerName string      `json:"containerName,omitempty"`
	DetectedAt    metav1.Time `json:"detectedAt"`
	KernelTruth   KernelTruth `json:"kernelTruth"`
	MetricsLie    MetricsLie  `json:"metricsLie"`
	// Severity is derived from KernelTruth.ThrottledPercent; see SeverityForThrottledPercent.
	Severity Severity `json:"severity"`
}

// ThrottleObservationStatus holds the reconciler's most recent recommendation.
type ThrottleObservationStatus struct {
	// Insight is a one-line human description of what the kernel observed.
	Insight string `json:"insight,omitempty"`
	// Action is the suggested operator action, if any.
	Action string `json:"action,omitempty"`
	// Evidence cites the kernel data backing the insight.
	Evidence string `json:"evidence,omitempty"`
	// Priority is "high", "medium", or empty when no recommendation applies.
	Priority string `json:"priority,omitempty"`
	// UpdatedAt is when the reconciler last wrote this status.
	UpdatedAt metav1.Time `json:"updatedAt,omitempty"`
}

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=kto,categories=kernelgossip
// +kubebuilder:printcolumn:name="Severity",type=string,JSONPath=`.spec.severity`
// +kubebuilder:printcolumn:name="Throttled%",type=number,JSONPath=`.spec.kernelTruth.throttledPercent`

// ThrottleObservation records a single CPU-throttle detection for a pod, as
// observed directly from the kernel rather than from self-reported metrics.
type ThrottleObservation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ThrottleObservationSpec   `json:"spec"`
	Status ThrottleObservationStatus `json:"status,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// ThrottleObservationList is a list of ThrottleObservations.
type ThrottleObservationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []ThrottleObservation `json:"items"`
}

// Actor identifies which part of the pod-creation pipeline produced a
// timeline entry.
type Actor string

const (
	ActorScheduler Actor = "scheduler"
	ActorKubelet   Actor = "kubelet"
	ActorRuntime   Actor = "runtime"
	ActorKernel    Actor = "kernel"
)

// TimelineEntry is one step of a pod's creation, as reconstructed from kernel
// and control-plane events.
type TimelineEntry struct {
	// TimestampMs is monotonic-non-decreasing across a single CreationObservation's timeline.
	TimestampMs uint64 `json:"timestampMs"`
	Actor       Actor  `json:"actor"`
	Action      string `json:"action"`
	Details     string `json:"details,omitempty"`
}

// KernelStats summarizes the kernel work performed to create a container.
type KernelStats struct {
	TotalSyscalls      uint32 `json:"totalSyscalls"`
	NamespacesCreated  uint8  `json:"namespacesCreated"`
	CgroupWrites       uint32 `json:"cgroupWrites"`
	IptablesRules      uint32 `json:"iptablesRules"`
	TotalDurationMs    uint64 `json:"totalDurationMs"`
}

// CreationObservationSpec is the kernel-truth payload for how a pod came to be.
type CreationObservationSpec struct {
	PodName     string          `json:"podName"`
	Namespace   string          `json:"namespace"`
	Timeline    []TimelineEntry `json:"timeline"`
	KernelStats KernelStats     `json:"kernelStats"`
}

// CreationObservationStatus holds the reconciler's most recent summary.
type CreationObservationStatus struct {
	Summary   string      `json:"summary,omitempty"`
	UpdatedAt metav1.Time `json:"updatedAt,omitempty"`
}

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=kco,categories=kernelgossip
// +kubebuilder:printcolumn:name="Syscalls",type=integer,JSONPath=`.spec.kernelStats.totalSyscalls`
// +kubebuilder:printcolumn:name="DurationMs",type=integer,JSONPath=`.spec.kernelStats.totalDurationMs`

// CreationObservation records how a pod's containers actually came into
// being at the kernel level: namespace setup, mount operations, cgroup
// writes, and the syscalls the runtime issued to do it.
type CreationObservation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   CreationObservationSpec   `json:"spec"`
	Status CreationObservationStatus `json:"status,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// CreationObservationList is a list of CreationObservations.
type CreationObservationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`

	Items []CreationObservation `json:"items"`
}

// Validate checks the structural invariants of a ThrottleObservation that
// aren't already enforced by the type system: the percent/cpu ranges and the
// severity/percent derivation.
func (t *ThrottleObservation) Validate() error {
	tp := t.Spec.KernelTruth.ThrottledPercent
	if tp < 0 || tp > 100 {
		return fmt.Errorf("kernelTruth.throttledPercent %v out of range [0, 100]", tp)
	}
	if t.Spec.KernelTruth.ActualCPUCores < 0 {
		return fmt.Errorf("kernelTruth.actualCpuCores %v must be >= 0", t.Spec.KernelTruth.ActualCPUCores)
	}
	cp := t.Spec.MetricsLie.CPUPercent
	if cp < 0 || cp > 100 {
		return fmt.Errorf("metricsLie.cpuPercent %v out of range [0, 100]", cp)
	}
	if want := SeverityForThrottledPercent(tp); t.Spec.Severity != want {
		return fmt.Errorf("severity %q does not match derived severity %q for throttledPercent %v", t.Spec.Severity, want, tp)
	}
	if t.Spec.PodName == "" || t.Spec.Namespace == "" {
		return fmt.Errorf("podName and namespace are required")
	}
	return nil
}

// Validate checks the structural invariants of a CreationObservation: a
// non-empty, time-ordered timeline and a duration consistent with it.
func (c *CreationObservation) Validate() error {
	if c.Spec.PodName == "" || c.Spec.Namespace == "" {
		return fmt.Errorf("podName and namespace are required")
	}
	if len(c.Spec.Timeline) == 0 {
		return fmt.Errorf("timeline must not be empty")
	}
	if c.Spec.KernelStats.NamespacesCreated > 6 {
		return fmt.Errorf("namespacesCreated %d exceeds maximum of 6", c.Spec.KernelStats.NamespacesCreated)
	}
	var prev uint64
	var minTs, maxTs uint64
	minTs = c.Spec.Timeline[0].TimestampMs
	for i, e := range c.Spec.Timeline {
		if i > 0 && e.TimestampMs < prev {
			return fmt.Errorf("timeline entry %d has timestampMs %d which is less than the previous entry's %d", i, e.TimestampMs, prev)
		}
		prev = e.TimestampMs
		if e.TimestampMs < minTs {
			minTs = e.TimestampMs
		}
		if e.TimestampMs > maxTs {
			maxTs = e.TimestampMs
		}
	}
	if span := maxTs - minTs; c.Spec.KernelStats.TotalDurationMs < span {
		return fmt.Errorf("kernelStats.totalDurationMs %d is less than the timeline span %d", c.Spec.KernelStats.TotalDurationMs, span)
	}
	return nil
}
