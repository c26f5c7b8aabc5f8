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
	"sync"

	"github.com/pkg/errors"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

// ThrottleStore and CreationStore are the subset of resourcestore.Store that
// the upserter needs, kept narrow so tests can fake them without a real
// client.Client.
type ThrottleStore interface {
	GetThrottleObservation(ctx context.Context, namespace, name string) (*kgv1alpha1.ThrottleObservation, bool, error)
	CreateThrottleObservation(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error
	ReplaceThrottleObservation(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error
}

type CreationStore interface {
	GetCreationObservation(ctx context.Context, namespace, name string) (*kgv1alpha1.CreationObservation, bool, error)
	CreateCreationObservation(ctx context.Context, obj *kgv1alpha1.CreationObservation) error
	ReplaceCreationObservation(ctx context.Context, obj *kgv1alpha1.CreationObservation) error
}

// nameLocks serializes upserts addressed to the same resource name within
// this process, so two racing webhook deliveries for the same pod (common:
// the kernel fires throttle events far faster than the reconciler can drain
// them) can't interleave a read-modify-write and drop one of them.
type nameLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newNameLocks() *nameLocks {
	return &nameLocks{locks: make(map[string]*sync.Mutex)}
}

func (n *nameLocks) lock(key string) func() {
	n.mu.Lock()
	l, ok := n.locks[key]
	if !ok {
		l = &sync.Mutex{}
		n.locks[key] = l
	}
	n.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Upserter applies WebhookPayloads to the CRD store, one resource per
// logical pod, merging pod_creation timelines rather than overwriting them.
type Upserter struct {
	throttle  ThrottleStore
	creation  CreationStore
	nameLocks *nameLocks
}

// NewUpserter returns an Upserter backed by the given stores.
func NewUpserter(throttle ThrottleStore, creation CreationStore) *Upserter {
	return &Upserter{throttle: throttle, creation: creation, nameLocks: newNameLocks()}
}

// Apply builds the resource named by payload and creates or replaces it in
// the store. cpu_throttle observations are last-writer-wins on the whole
// spec, since each detection supersedes the last kernel truth entirely.
// pod_creation observations merge: the timeline and stats accumulate as more
// of the pod's creation is observed, rather than each event overwriting the
// last.
func (u *Upserter) Apply(ctx context.Context, payload *WebhookPayload) error {
	switch payload.Type {
	case TypeCPUThrottle:
		return u.applyThrottle(ctx, payload)
	case TypePodCreation:
		return u.applyCreation(ctx, payload)
	default:
		return errors.Errorf("unknown payload type %q", payload.Type)
	}
}

func (u *Upserter) applyThrottle(ctx context.Context, payload *WebhookPayload) error {
	obj := buildThrottleObservation(payload)
	unlock := u.nameLocks.lock(obj.Namespace + "/" + obj.Name)
	defer unlock()

	existing, exists, err := u.throttle.GetThrottleObservation(ctx, obj.Namespace, obj.Name)
	if err != nil {
		return errors.Wrap(err, "checking for existing ThrottleObservation")
	}
	if !exists {
		return u.throttle.CreateThrottleObservation(ctx, obj)
	}
	obj.ResourceVersion = existing.ResourceVersion
	obj.Status = existing.Status
	return u.throttle.ReplaceThrottleObservation(ctx, obj)
}

func (u *Upserter) applyCreation(ctx context.Context, payload *WebhookPayload) error {
	incoming := buildCreationObservation(payload)
	unlock := u.nameLocks.lock(incoming.Namespace + "/" + incoming.Name)
	defer unlock()

	existing, exists, err := u.creation.GetCreationObservation(ctx, incoming.Namespace, incoming.Name)
	if err != nil {
		return errors.Wrap(err, "checking for existing CreationObservation")
	}
	if !exists {
		return u.creation.CreateCreationObservation(ctx, incoming)
	}

	merged := mergeCreationObservation(existing, incoming)
	return u.creation.ReplaceCreationObservation(ctx, merged)
}

// mergeCreationObservation folds incoming's timeline entries and kernel
// stats into existing, preserving existing's identity (resource version,
// status) so the replace doesn't race the reconciler's own status writes.
func mergeCreationObservation(existing, incoming *kgv1alpha1.CreationObservation) *kgv1alpha1.CreationObservation {
	merged := existing.DeepCopy()

	seen := make(map[string]bool, len(existing.Spec.Timeline))
	for _, e := range existing.Spec.Timeline {
		seen[timelineKey(e)] = true
	}
	for _, e := range incoming.Spec.Timeline {
		if !seen[timelineKey(e)] {
			merged.Spec.Timeline = append(merged.Spec.Timeline, e)
			seen[timelineKey(e)] = true
		}
	}

	merged.Spec.KernelStats.TotalSyscalls += incoming.Spec.KernelStats.TotalSyscalls
	merged.Spec.KernelStats.CgroupWrites += incoming.Spec.KernelStats.CgroupWrites
	merged.Spec.KernelStats.IptablesRules += incoming.Spec.KernelStats.IptablesRules
	if incoming.Spec.KernelStats.NamespacesCreated > merged.Spec.KernelStats.NamespacesCreated {
		merged.Spec.KernelStats.NamespacesCreated = incoming.Spec.KernelStats.NamespacesCreated
	}
	merged.Spec.KernelStats.TotalDurationMs += incoming.Spec.KernelStats.TotalDurationMs

	return merged
}

func timelineKey(e kgv1alpha1.TimelineEntry) string {
	return string(e.Actor) + "|" + e.Action
}
