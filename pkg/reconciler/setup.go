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
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
	"github.com/vfiftyfive/kernel-gossip/pkg/resourcestore"
)

// SetupWithManager registers both the ThrottleObservation and
// CreationObservation controllers against mgr. mgr's cache is what actually
// provides the change-stream "watch" operation named in the spec;
// resourcestore.Store only wraps the request/response calls the
// reconcilers make once notified.
func SetupWithManager(mgr manager.Manager, logger log.Logger) error {
	store := resourcestore.New(mgr.GetClient())

	if err := ctrl.NewControllerManagedBy(mgr).
		Named("throttle-observation").
		WithEventFilter(predicate.ResourceVersionChangedPredicate{}).
		For(&kgv1alpha1.ThrottleObservation{}).
		Complete(NewThrottleReconciler(mgr.GetClient(), store, logger)); err != nil {
		return errors.Wrap(err, "setting up ThrottleObservation controller")
	}

	if err := ctrl.NewControllerManagedBy(mgr).
		Named("creation-observation").
		WithEventFilter(predicate.ResourceVersionChangedPredicate{}).
		For(&kgv1alpha1.CreationObservation{}).
		Complete(NewCreationReconciler(mgr.GetClient(), store, logger)); err != nil {
		return errors.Wrap(err, "setting up CreationObservation controller")
	}

	return nil
}
