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

package v1alpha1

// ThrottleObservationName returns the stable, deterministic resource name for
// the ThrottleObservation belonging to podName. Two throttle events for the
// same pod always resolve to this one name, making upsert idempotent.
func ThrottleObservationName(podName string) string {
	return podName + "-cpu-throttle"
}

// CreationObservationName returns the stable, deterministic resource name for
// the CreationObservation belonging to podName.
//
// The source this was distilled from computed this name two different ways
// in two different places ("<pod>-pbc" on the path that actually creates the
// resource, "<pod>-birth" in a comment describing the schema). We standardize
// on "<pod>-pbc" because that's what the live code path used.
func CreationObservationName(podName string) string {
	return podName + "-pbc"
}
