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
	"testing"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

type fakeThrottleStore struct {
	objects map[string]*kgv1alpha1.ThrottleObservation
}

func newFakeThrottleStore() *fakeThrottleStore {
	return &fakeThrottleStore{objects: make(map[string]*kgv1alpha1.ThrottleObservation)}
}

func (s *fakeThrottleStore) GetThrottleObservation(ctx context.Context, namespace, name string) (*kgv1alpha1.ThrottleObservation, bool, error) {
	obj, ok := s.objects[namespace+"/"+name]
	return obj, ok, nil
}

func (s *fakeThrottleStore) CreateThrottleObservation(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error {
	obj.ResourceVersion = "1"
	s.objects[obj.Namespace+"/"+obj.Name] = obj
	return nil
}

func (s *fakeThrottleStore) ReplaceThrottleObservation(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error {
	s.objects[obj.Namespace+"/"+obj.Name] = obj
	return nil
}

type fakeCreationStore struct {
	objects map[string]*kgv1alpha1.CreationObservation
}

func newFakeCreationStore() *fakeCreationStore {
	return &fakeCreationStore{objects: make(map[string]*kgv1alpha1.CreationObservation)}
}

func (s *fakeCreationStore) GetCreationObservation(ctx context.Context, namespace, name string) (*kgv1alpha1.CreationObservation, bool, error) {
	obj, ok := s.objects[namespace+"/"+name]
	return obj, ok, nil
}

func (s *fakeCreationStore) CreateCreationObservation(ctx context.Context, obj *kgv1alpha1.CreationObservation) error {
	obj.ResourceVersion = "1"
	s.objects[obj.Namespace+"/"+obj.Name] = obj
	return nil
}

func (s *fakeCreationStore) ReplaceCreationObservation(ctx context.Context, obj *kgv1alpha1.CreationObservation) error {
	s.objects[obj.Namespace+"/"+obj.Name] = obj
	return nil
}

func TestUpsertThrottleCreatesThenReplaces(t *testing.T) {
	throttleStore := newFakeThrottleStore()
	u := NewUpserter(throttleStore, newFakeCreationStore())

	first := &WebhookPayload{Type: TypeCPUThrottle, PodName: "web", Namespace: "prod", Timestamp: "2024-01-01T00:00:00Z", ContainerName: "app", ThrottlePercentage: 30}
	if err := u.Apply(context.Background(), first); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	stored := throttleStore.objects["prod/"+string(kgv1alpha1.ThrottleObservationName("web"))]
	if stored == nil || stored.Spec.Severity != kgv1alpha1.SeverityInfo {
		t.Fatalf("unexpected stored object after create: %+v", stored)
	}

	second := &WebhookPayload{Type: TypeCPUThrottle, PodName: "web", Namespace: "prod", Timestamp: "2024-01-01T00:01:00Z", ContainerName: "app", ThrottlePercentage: 90}
	if err := u.Apply(context.Background(), second); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	stored = throttleStore.objects["prod/"+string(kgv1alpha1.ThrottleObservationName("web"))]
	if stored.Spec.Severity != kgv1alpha1.SeverityCritical {
		t.Fatalf("expected last-writer-wins to update severity to critical, got %q", stored.Spec.Severity)
	}
	if stored.ResourceVersion != "1" {
		t.Fatalf("expected replace to preserve resourceVersion, got %q", stored.ResourceVersion)
	}
}

func TestUpsertCreationMergesTimelineAndStats(t *testing.T) {
	creationStore := newFakeCreationStore()
	u := NewUpserter(newFakeThrottleStore(), creationStore)

	first := &WebhookPayload{
		Type: TypePodCreation, PodName: "web", Namespace: "prod", Timestamp: "2024-01-01T00:00:00Z",
		TotalSyscalls: 40, CgroupWrites: 2, DurationNs: 200_000_000,
		Timeline: []TimelineEntry{{TimestampMs: 5, Action: "namespaces created"}},
	}
	if err := u.Apply(context.Background(), first); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	second := &WebhookPayload{
		Type: TypePodCreation, PodName: "web", Namespace: "prod", Timestamp: "2024-01-01T00:00:01Z",
		TotalSyscalls: 60, CgroupWrites: 3, DurationNs: 900_000_000,
		Timeline: []TimelineEntry{{TimestampMs: 900, Action: "main process started"}},
	}
	if err := u.Apply(context.Background(), second); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	name := string(kgv1alpha1.CreationObservationName("web"))
	stored := creationStore.objects["prod/"+name]
	if stored == nil {
		t.Fatal("expected a stored CreationObservation")
	}
	if stored.Spec.KernelStats.TotalSyscalls != 100 {
		t.Fatalf("expected merged totalSyscalls 100 (40+60), got %d", stored.Spec.KernelStats.TotalSyscalls)
	}
	if stored.Spec.KernelStats.CgroupWrites != 5 {
		t.Fatalf("expected merged cgroupWrites 5 (2+3), got %d", stored.Spec.KernelStats.CgroupWrites)
	}
	if stored.Spec.KernelStats.TotalDurationMs != 1100 {
		t.Fatalf("expected merged totalDurationMs 1100 (200+900), got %d", stored.Spec.KernelStats.TotalDurationMs)
	}
	// Each apply carries its own payload timeline entries (no synthetic entry
	// injected when the payload already has one), merged in order.
	if len(stored.Spec.Timeline) != 2 {
		t.Fatalf("expected 2 merged timeline entries, got %d: %+v", len(stored.Spec.Timeline), stored.Spec.Timeline)
	}
}
