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

// ThrottleReconciler turns a ThrottleObservation's kernel truth into a
// persisted recommendation on its status subresource, re-checking more
// often the more severe the observation.
type ThrottleReconciler struct {
	client client.Client
	store  *resourcestore.Store
	logger log.Logger
}

// NewThrottleReconciler returns a ThrottleReconciler reading through c and
// persisting status through store.
func NewThrottleReconciler(c client.Client, store *resourcestore.Store, logger log.Logger) *ThrottleReconciler {
	return &ThrottleReconciler{client: c, store: store, logger: logger}
}

// Reconcile implements reconcile.Reconciler.
func (r *ThrottleReconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	defer k8sruntime.HandleCrash()

	var obj kgv1alpha1.ThrottleObservation
	if err := r.client.Get(ctx, req.NamespacedName, &obj); err != nil {
		if apierrors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{RequeueAfter: time.Duration(TransientErrorRequeueSeconds) * time.Second},
			errors.Wrapf(err, "getting ThrottleObservation %s", req.String())
	}

	if err := obj.Validate(); err != nil {
		level.Warn(r.logger).Log("msg", "invalid ThrottleObservation, requeueing with backoff", "name", req.String(), "err", err)
		return reconcile.Result{RequeueAfter: time.Duration(InvalidResourceRequeueSeconds) * time.Second}, nil
	}

	rec := AnalyzeThrottleObservation(&obj)
	obj.Status = throttleStatusFor(metav1.Now(), rec)

	if err := r.store.UpdateThrottleObservationStatus(ctx, &obj); err != nil {
		level.Warn(r.logger).Log("msg", "failed to update ThrottleObservation status", "name", req.String(), "err", err)
		return reconcile.Result{RequeueAfter: time.Duration(TransientErrorRequeueSeconds) * time.Second}, nil
	}

	if rec != nil {
		logFn := level.Info
		if obj.Spec.Severity == kgv1alpha1.SeverityCritical {
			logFn = level.Warn
		}
		logFn(r.logger).Log("msg", rec.Insight, "action", rec.SuggestedAction, "evidence", rec.KernelEvidence, "priority", rec.Priority)
	} else {
		level.Debug(r.logger).Log("msg", "pod operating within normal parameters", "name", req.String())
	}

	requeue := time.Duration(RequeueSecondsForSeverity(obj.Spec.Severity)) * time.Second
	return reconcile.Result{RequeueAfter: requeue}, nil
}
