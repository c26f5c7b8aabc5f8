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
	"context"
	"strings"
)

// MonitorAnnotation, set "true" on a pod, opts it into resource creation.
const MonitorAnnotation = "kernelgossip.dev/monitor"

// systemNamespaces are never monitored, regardless of annotation.
var systemNamespaces = map[string]bool{
	"kube-system":              true,
	"kube-public":              true,
	"kube-node-lease":          true,
	"gke-gmp-system":           true,
	"gmp-system":               true,
	"gke-managed-filestorecsi": true,
}

// isSystemNamespace reports whether ns is in systemNamespaces or matches
// the *gke-*-system* or *gmp-system* patterns.
func isSystemNamespace(ns string) bool {
	if systemNamespaces[ns] || strings.Contains(ns, "gmp-system") {
		return true
	}
	if i := strings.Index(ns, "gke-"); i >= 0 {
		return strings.Contains(ns[i+len("gke-"):], "-system")
	}
	return false
}

// PodGetter looks up a single namespaced pod.
type PodGetter interface {
	GetPod(ctx context.Context, namespace, name string) (annotations map[string]string, exists bool, err error)
}

// Gate decides whether a payload should result in a stored resource.
type Gate struct {
	pods PodGetter
}

// NewGate returns a Gate backed by pods.
func NewGate(pods PodGetter) *Gate {
	return &Gate{pods: pods}
}

// GateResult reports a gating decision and, if rejected, the reason to
// surface to the caller.
type GateResult struct {
	Allowed bool
	Reason  string
}

// Evaluate applies the system-namespace and monitoring-annotation gates.
//
// A pod_creation event for a pod that isn't in the API yet (the common case:
// the kernel event races the pod's own apiserver registration) defaults to
// allowed, matching the rationale that creation observability should not
// depend on winning that race. A cpu_throttle event requires the pod to
// exist and carry the monitoring annotation, since by the time a pod is
// being throttled it has long since been admitted.
func (g *Gate) Evaluate(ctx context.Context, payload *WebhookPayload) (GateResult, error) {
	if isSystemNamespace(payload.Namespace) {
		return GateResult{Allowed: false, Reason: "system namespace " + payload.Namespace}, nil
	}

	annotations, exists, err := g.pods.GetPod(ctx, payload.Namespace, payload.PodName)
	if err != nil {
		return GateResult{}, err
	}

	if !exists {
		if payload.Type == TypePodCreation {
			return GateResult{Allowed: true}, nil
		}
		return GateResult{Allowed: false, Reason: "pod not found or is a system process"}, nil
	}

	if annotations[MonitorAnnotation] != "true" {
		return GateResult{Allowed: false, Reason: "pod not configured for monitoring"}, nil
	}
	return GateResult{Allowed: true}, nil
}
