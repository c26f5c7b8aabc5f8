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

package reconciler

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

// throttleStatusFor builds the status a ThrottleObservation should carry
// after applying rec (nil when the pod is healthy enough that no
// recommendation fires).
func throttleStatusFor(now metav1.Time, rec *Recommendation) kgv1alpha1.ThrottleObservationStatus {
	if rec == nil {
		return kgv1alpha1.ThrottleObservationStatus{
			Insight:   "Pod operating within normal parameters - System is healthy",
			UpdatedAt: now,
		}
	}
	return kgv1alpha1.ThrottleObservationStatus{
		Insight:   rec.Insight,
		Action:    rec.SuggestedAction,
		Evidence:  rec.KernelEvidence,
		Priority:  rec.Priority,
		UpdatedAt: now,
	}
}

// creationStatusFor builds the status a CreationObservation should carry
// after observing its current kernel stats.
func creationStatusFor(now metav1.Time, obj *kgv1alpha1.CreationObservation) kgv1alpha1.CreationObservationStatus {
	stats := obj.Spec.KernelStats
	return kgv1alpha1.CreationObservationStatus{
		Summary: fmt.Sprintf(
			"pod created in %dms: %d syscalls, %d namespaces, %d cgroup writes",
			stats.TotalDurationMs, stats.TotalSyscalls, stats.NamespacesCreated, stats.CgroupWrites,
		),
		UpdatedAt: now,
	}
}
