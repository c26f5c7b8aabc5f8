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

// Package reconciler watches the kernelgossip.dev CRDs and turns kernel-truth
// observations into human-facing recommendations persisted on status.
package reconciler

import (
	"fmt"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

// Recommendation is the operator-facing advice derived from a
// ThrottleObservation's kernel truth. Its priority thresholds are a
// distinct axis from Severity: Severity classifies the observation itself
// (>80 critical, 50-80 warning, <=50 info), while a Recommendation only
// fires at all once throttling is heavy enough to warrant acting on
// (>=80 high priority, >=40 medium priority, otherwise no recommendation).
type Recommendation struct {
	Insight         string
	SuggestedAction string
	KernelEvidence  string
	Priority        string
}

// AnalyzeThrottleObservation returns the recommendation for obj, or nil if
// none applies.
func AnalyzeThrottleObservation(obj *kgv1alpha1.ThrottleObservation) *Recommendation {
	pct := obj.Spec.KernelTruth.ThrottledPercent

	switch {
	case pct >= 80:
		return &Recommendation{
			Insight:         fmt.Sprintf("Pod %s is experiencing high CPU throttling at %.1f%%", obj.Spec.PodName, pct),
			SuggestedAction: "Consider increase CPU limits by 50% to prevent throttling",
			KernelEvidence:  fmt.Sprintf("Kernel shows %.1f%% throttled time in recent period", pct),
			Priority:        "high",
		}
	case pct >= 40:
		return &Recommendation{
			Insight:         fmt.Sprintf("Pod %s is experiencing moderate CPU throttling at %.1f%%", obj.Spec.PodName, pct),
			SuggestedAction: "monitor CPU usage patterns and consider optimization",
			KernelEvidence:  fmt.Sprintf("Kernel shows %.1f%% throttled time in recent period", pct),
			Priority:        "medium",
		}
	default:
		return nil
	}
}

// RequeueSecondsForSeverity returns how long to wait before the next
// reconcile of a ThrottleObservation of the given severity: more severe
// observations are checked more often.
func RequeueSecondsForSeverity(s kgv1alpha1.Severity) int {
	switch s {
	case kgv1alpha1.SeverityCritical:
		return 60
	case kgv1alpha1.SeverityWarning:
		return 180
	default:
		return 600
	}
}

// CreationRequeueSeconds is how long to wait before the next reconcile of a
// CreationObservation; its state doesn't escalate the way a throttle does,
// so one fixed cadence suffices.
const CreationRequeueSeconds = 300

// InvalidResourceRequeueSeconds is the backoff applied when a resource fails
// its own Validate() at reconcile time.
const InvalidResourceRequeueSeconds = 30

// TransientErrorRequeueSeconds is the backoff applied after an API error
// that isn't specific to the resource's content (timeouts, conflicts).
const TransientErrorRequeueSeconds = 60
