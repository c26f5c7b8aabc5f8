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
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
	"github.com/vfiftyfive/kernel-gossip/pkg/resourcestore"
)

func TestCreationReconcilerSummarizesStats(t *testing.T) {
	obj := &kgv1alpha1.CreationObservation{
		ObjectMeta: metav1.ObjectMeta{Name: "web-kco", Namespace: "prod"},
		Spec: kgv1alpha1.CreationObservationSpec{
			PodName: "web", Namespace: "prod",
			Timeline: []kgv1alpha1.TimelineEntry{
				{TimestampMs: 0, Actor: kgv1alpha1.ActorKernel, Action: "Pod creation started"},
				{TimestampMs: 900, Actor: kgv1alpha1.ActorRuntime, Action: "main process started"},
			},
			KernelStats: kgv1alpha1.KernelStats{TotalSyscalls: 120, NamespacesCreated: 5, CgroupWrites: 6, TotalDurationMs: 900},
		},
	}
	scheme := newScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(obj).WithStatusSubresource(obj).Build()
	store := resourcestore.New(c)
	r := NewCreationReconciler(c, store, log.NewNopLogger())

	result, err := r.Reconcile(context.Background(), reconcile.Request{NamespacedName: types.NamespacedName{Namespace: "prod", Name: "web-kco"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequeueAfter != 300*time.Second {
		t.Fatalf("expected 300s requeue, got %v", result.RequeueAfter)
	}

	var got kgv1alpha1.CreationObservation
	if err := c.Get(context.Background(), types.NamespacedName{Namespace: "prod", Name: "web-kco"}, &got); err != nil {
		t.Fatalf("getting updated object: %v", err)
	}
	if got.Status.Summary == "" {
		t.Fatal("expected a non-empty status summary")
	}
}

func TestCreationReconcilerInvalidResourceBacksOff(t *testing.T) {
	obj := &kgv1alpha1.CreationObservation{
		ObjectMeta: metav1.ObjectMeta{Name: "web-kco", Namespace: "prod"},
		Spec: kgv1alpha1.CreationObservationSpec{
			PodName: "web", Namespace: "prod",
			Timeline: nil, // invalid: empty timeline
		},
	}
	scheme := newScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(obj).WithStatusSubresource(obj).Build()
	store := resourcestore.New(c)
	r := NewCreationReconciler(c, store, log.NewNopLogger())

	result, err := r.Reconcile(context.Background(), reconcile.Request{NamespacedName: types.NamespacedName{Namespace: "prod", Name: "web-kco"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RequeueAfter != 30*time.Second {
		t.Fatalf("expected 30s backoff for invalid resource, got %v", result.RequeueAfter)
	}
}
