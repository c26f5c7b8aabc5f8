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
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

// buildThrottleObservation turns a validated cpu_throttle payload into the
// ThrottleObservation it should be upserted as.
func buildThrottleObservation(p *WebhookPayload) *kgv1alpha1.ThrottleObservation {
	detectedAt := parseTimestamp(p.Timestamp)
	severity := kgv1alpha1.SeverityForThrottledPercent(p.ThrottlePercentage)

	return &kgv1alpha1.ThrottleObservation{
		ObjectMeta: metav1.ObjectMeta{
			Name:      kgv1alpha1.ThrottleObservationName(p.PodName),
			Namespace: p.Namespace,
		},
		Spec: kgv1alpha1.ThrottleObservationSpec{
			PodName:       p.PodName,
			Namespace:     p.Namespace,
			ContainerName: p.ContainerName,
			DetectedAt:    metav1.NewTime(detectedAt),
			KernelTruth: kgv1alpha1.KernelTruth{
				ThrottledPercent: p.ThrottlePercentage,
				ActualCPUCores:   p.ActualCPUUsage,
			},
			MetricsLie: kgv1alpha1.MetricsLie{
				// Conventional metrics pipelines report the pod as healthy
				// right up until the kernel-observed throttling is severe
				// enough to affect request latency visibly; that's the lie
				// this resource exists to expose.
				CPUPercent:     p.ReportedCPUUsage * 100,
				ReportedStatus: "Healthy",
			},
			Severity: severity,
		},
	}
}

// buildCreationObservation turns a validated pod_creation payload into the
// CreationObservation it should be upserted as.
func buildCreationObservation(p *WebhookPayload) *kgv1alpha1.CreationObservation {
	timestampMs := uint64(parseTimestamp(p.Timestamp).UnixMilli())

	// The payload carries its own timeline; only synthesize a kernel-actor
	// entry when it doesn't (e.g. a malformed delivery with none), so a
	// payload with N entries yields exactly N resource entries.
	var timeline []kgv1alpha1.TimelineEntry
	if len(p.Timeline) == 0 {
		timeline = []kgv1alpha1.TimelineEntry{{
			TimestampMs: timestampMs,
			Actor:       kgv1alpha1.ActorKernel,
			Action:      "Pod creation started",
			Details:     "total syscalls observed so far unknown at start",
		}}
	} else {
		timeline = make([]kgv1alpha1.TimelineEntry, 0, len(p.Timeline))
		for _, e := range p.Timeline {
			timeline = append(timeline, kgv1alpha1.TimelineEntry{
				TimestampMs: timestampMs + e.TimestampMs,
				Actor:       kgv1alpha1.ActorRuntime,
				Action:      e.Action,
			})
		}
	}

	return &kgv1alpha1.CreationObservation{
		ObjectMeta: metav1.ObjectMeta{
			Name:      kgv1alpha1.CreationObservationName(p.PodName),
			Namespace: p.Namespace,
		},
		Spec: kgv1alpha1.CreationObservationSpec{
			PodName:   p.PodName,
			Namespace: p.Namespace,
			Timeline:  timeline,
			KernelStats: kgv1alpha1.KernelStats{
				TotalSyscalls:     clampUint32(p.TotalSyscalls),
				NamespacesCreated: 1,
				CgroupWrites:      clampUint32(p.CgroupWrites),
				TotalDurationMs:   p.DurationNs / 1_000_000,
			},
		},
	}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

func clampUint32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
