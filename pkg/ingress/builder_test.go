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

package ingress

import (
	"testing"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

func TestBuildThrottleObservationDerivesSeverity(t *testing.T) {
	payload := &WebhookPayload{
		Type:               TypeCPUThrottle,
		PodName:            "web",
		Namespace:          "prod",
		Timestamp:          "2024-01-01T00:00:00Z",
		ContainerName:      "app",
		ThrottlePercentage: 85,
		ActualCPUUsage:     0.9,
		ReportedCPUUsage:   0.3,
	}
	obj := buildThrottleObservation(payload)

	if obj.Name != kgv1alpha1.ThrottleObservationName("web") {
		t.Fatalf("unexpected name %q", obj.Name)
	}
	if obj.Spec.Severity != kgv1alpha1.SeverityCritical {
		t.Fatalf("expected critical severity for 85%% throttled, got %q", obj.Spec.Severity)
	}
	if obj.Spec.MetricsLie.CPUPercent != 30 {
		t.Fatalf("expected metricsLie.cpuPercent 30 (reported_cpu_usage * 100), got %v", obj.Spec.MetricsLie.CPUPercent)
	}
	if err := obj.Validate(); err != nil {
		t.Fatalf("built object failed validation: %v", err)
	}
}

func TestBuildCreationObservationProducesValidTimeline(t *testing.T) {
	payload := &WebhookPayload{
		Type:          TypePodCreation,
		PodName:       "web",
		Namespace:     "prod",
		Timestamp:     "2024-01-01T00:00:00Z",
		TotalSyscalls: 120,
		CgroupWrites:  6,
		DurationNs:    900_000_000,
		Timeline: []TimelineEntry{
			{TimestampMs: 10, Action: "namespaces created"},
			{TimestampMs: 900, Action: "main process started"},
		},
	}
	obj := buildCreationObservation(payload)

	if obj.Name != kgv1alpha1.CreationObservationName("web") {
		t.Fatalf("unexpected name %q", obj.Name)
	}
	if len(obj.Spec.Timeline) != 2 {
		t.Fatalf("expected 2 timeline entries (the payload's own, no synthetic entry), got %d", len(obj.Spec.Timeline))
	}
	if obj.Spec.KernelStats.TotalSyscalls != 120 || obj.Spec.KernelStats.CgroupWrites != 6 {
		t.Fatalf("unexpected kernel stats: %+v", obj.Spec.KernelStats)
	}
	if obj.Spec.KernelStats.TotalDurationMs != 900 {
		t.Fatalf("expected totalDurationMs 900, got %d", obj.Spec.KernelStats.TotalDurationMs)
	}
	if err := obj.Validate(); err != nil {
		t.Fatalf("built object failed validation: %v", err)
	}
}
