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
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sruntime "k8s.io/apimachinery/pkg/util/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
	"github.com/vfiftyfive/kernel-gossip/pkg/resourcestore"
)

// CreationReconciler summarizes a CreationObservation's kernel stats onto
// its status subresource.
type CreationReconciler struct {
	client client.Client
	store  *resourcestore.Store
	logger log.Logger
}

// NewCreationReconciler returns a CreationReconciler reading through c and
// persisting status through store.
func NewCreationReconciler(c client.Client, store *resourcestore.Store, logger log.Logger) *CreationReconciler {
	return &CreationReconciler{client: c, store: store, logger: logger}
}

// Reconcile implements reconcile.Reconciler.
func (r *CreationReconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	defer k8sruntime.HandleCrash()

	var obj kgv1alpha1.CreationObservation
	if err := r.client.Get(ctx, req.NamespacedName, &obj); err != nil {
		if apierrors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{RequeueAfter: time.Duration(TransientErrorRequeueSeconds) * time.Second},
			errors.Wrapf(err, "getting CreationObservation %s", req.String())
	}

	if err := obj.Validate(); err != nil {
		level.Warn(r.logger).Log("msg", "invalid CreationObservation, requeueing with backoff", "name", req.String(), "err", err)
		return reconcile.Result{RequeueAfter: time.Duration(InvalidResourceRequeueSeconds) * time.Second}, nil
	}

	obj.Status = creationStatusFor(metav1.Now(), &obj)
	if err := r.store.UpdateCreationObservationStatus(ctx, &obj); err != nil {
		level.Warn(r.logger).Log("msg", "failed to update CreationObservation status", "name", req.String(), "err", err)
		return reconcile.Result{RequeueAfter: time.Duration(TransientErrorRequeueSeconds) * time.Second}, nil
	}

	for _, e := range obj.Spec.Timeline {
		level.Info(r.logger).Log("msg", "timeline entry", "pod", obj.Spec.PodName, "namespace", obj.Spec.Namespace,
			"timestamp_ms", e.TimestampMs, "actor", e.Actor, "action", e.Action)
	}
	level.Info(r.logger).Log("msg", obj.Status.Summary, "pod", obj.Spec.PodName, "namespace", obj.Spec.Namespace)

	return reconcile.Result{RequeueAfter: time.Duration(CreationRequeueSeconds) * time.Second}, nil
}
