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

// Package ingress implements the webhook controller that receives observer
// payloads over HTTP and upserts them as kernelgossip.dev custom resources.
package ingress

import (
	"github.com/go-playground/validator/v10"
)

// Payload types recognized on the "type" discriminator field.
const (
	TypeCPUThrottle = "cpu_throttle"
	TypePodCreation = "pod_creation"
)

// TimelineEntry is one entry in a pod_creation payload's timeline.
type TimelineEntry struct {
	// TimestampMs is unvalidated: 0 is the legitimate timestamp of the
	// first entry in a pod's creation timeline.
	TimestampMs uint64 `json:"timestamp_ms"`
	Action      string `json:"action" validate:"required"`
}

// WebhookPayload is the envelope for both wire shapes, matching the
// observer's internally-tagged JSON encoding: the discriminator and every
// variant's fields live at the top level of one JSON object.
type WebhookPayload struct {
	Type string `json:"type" validate:"required,oneof=cpu_throttle pod_creation"`

	PodName   string `json:"pod_name" validate:"required"`
	Namespace string `json:"namespace" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`

	// cpu_throttle fields.
	ContainerName string `json:"container_name" validate:"required_if=Type cpu_throttle"`
	// ThrottlePercentage is 0-100; 0 is the legitimate unthrottled boundary,
	// so it carries only a range check, never "required".
	ThrottlePercentage float64 `json:"throttle_percentage" validate:"min=0,max=100"`
	ActualCPUUsage     float64 `json:"actual_cpu_usage" validate:"omitempty,min=0"`
	ReportedCPUUsage   float64 `json:"reported_cpu_usage" validate:"omitempty,min=0"`
	PeriodSeconds      uint64  `json:"period_seconds"`
	ThrottleNs         uint64  `json:"throttle_ns"`

	// pod_creation fields.
	TotalSyscalls uint64 `json:"total_syscalls"`
	NamespaceOps  uint64 `json:"namespace_ops"`
	CgroupWrites  uint64 `json:"cgroup_writes"`
	// DurationNs is unvalidated: a sufficiently fast creation can legitimately
	// report 0.
	DurationNs uint64          `json:"duration_ns"`
	Timeline   []TimelineEntry `json:"timeline" validate:"required_if=Type pod_creation,dive"`

	EBPFDetection bool `json:"ebpf_detection"`
}

var validate = validator.New()

// Validate runs struct-tag validation over p.
func (p *WebhookPayload) Validate() error {
	return validate.Struct(p)
}
