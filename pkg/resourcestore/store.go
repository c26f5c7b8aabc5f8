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

// Package resourcestore provides a thin, typed wrapper around a
// controller-runtime client for the kernelgossip.dev CRDs, and around a
// client-go clientset for core Pod lookups. It is shared by the ingress
// controller and the reconciler; the observer's Workload Resolver does its
// pod lookups through its own ClientsetPodIndex instead.
package resourcestore

import (
	"context"

	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

// Store provides get/list/create/replace/delete operations for the
// kernelgossip.dev CRDs, on top of a controller-runtime client.Client. The
// change-stream "watch" operation named in the interfaces this wraps is
// provided separately, by controller-runtime's own manager/cache machinery
// at reconciler setup time (see pkg/reconciler/setup.go); there is nothing
// for this type itself to expose for it.
type Store struct {
	client client.Client
}

// New returns a Store backed by c.
func New(c client.Client) *Store {
	return &Store{client: c}
}

// GetThrottleObservation fetches a ThrottleObservation by namespace/name. It
// returns (nil, false, nil) if the resource doesn't exist.
func (s *Store) GetThrottleObservation(ctx context.Context, namespace, name string) (*kgv1alpha1.ThrottleObservation, bool, error) {
	var obj kgv1alpha1.ThrottleObservation
	if err := s.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &obj); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "getting ThrottleObservation %s/%s", namespace, name)
	}
	return &obj, true, nil
}

// CreateThrottleObservation creates obj.
func (s *Store) CreateThrottleObservation(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error {
	if err := s.client.Create(ctx, obj); err != nil {
		return errors.Wrapf(err, "creating ThrottleObservation %s/%s", obj.Namespace, obj.Name)
	}
	return nil
}

// ReplaceThrottleObservation updates obj's spec in place.
func (s *Store) ReplaceThrottleObservation(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error {
	if err := s.client.Update(ctx, obj); err != nil {
		return errors.Wrapf(err, "replacing ThrottleObservation %s/%s", obj.Namespace, obj.Name)
	}
	return nil
}

// UpdateThrottleObservationStatus persists obj's status subresource.
func (s *Store) UpdateThrottleObservationStatus(ctx context.Context, obj *kgv1alpha1.ThrottleObservation) error {
	if err := s.client.Status().Update(ctx, obj); err != nil {
		return errors.Wrapf(err, "updating ThrottleObservation status %s/%s", obj.Namespace, obj.Name)
	}
	return nil
}

// DeleteThrottleObservation deletes the named resource.
func (s *Store) DeleteThrottleObservation(ctx context.Context, namespace, name string) error {
	obj := &kgv1alpha1.ThrottleObservation{}
	obj.Namespace, obj.Name = namespace, name
	if err := s.client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return errors.Wrapf(err, "deleting ThrottleObservation %s/%s", namespace, name)
	}
	return nil
}

// GetCreationObservation fetches a CreationObservation by namespace/name. It
// returns (nil, false, nil) if the resource doesn't exist.
func (s *Store) GetCreationObservation(ctx context.Context, namespace, name string) (*kgv1alpha1.CreationObservation, bool, error) {
	var obj kgv1alpha1.CreationObservation
	if err := s.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &obj); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "getting CreationObservation %s/%s", namespace, name)
	}
	return &obj, true, nil
}

// CreateCreationObservation creates obj.
func (s *Store) CreateCreationObservation(ctx context.Context, obj *kgv1alpha1.CreationObservation) error {
	if err := s.client.Create(ctx, obj); err != nil {
		return errors.Wrapf(err, "creating CreationObservation %s/%s", obj.Namespace, obj.Name)
	}
	return nil
}

// ReplaceCreationObservation updates obj's spec in place.
func (s *Store) ReplaceCreationObservation(ctx context.Context, obj *kgv1alpha1.CreationObservation) error {
	if err := s.client.Update(ctx, obj); err != nil {
		return errors.Wrapf(err, "replacing CreationObservation %s/%s", obj.Namespace, obj.Name)
	}
	return nil
}

// UpdateCreationObservationStatus persists obj's status subresource.
func (s *Store) UpdateCreationObservationStatus(ctx context.Context, obj *kgv1alpha1.CreationObservation) error {
	if err := s.client.Status().Update(ctx, obj); err != nil {
		return errors.Wrapf(err, "updating CreationObservation status %s/%s", obj.Namespace, obj.Name)
	}
	return nil
}

// DeleteCreationObservation deletes the named resource.
func (s *Store) DeleteCreationObservation(ctx context.Context, namespace, name string) error {
	obj := &kgv1alpha1.CreationObservation{}
	obj.Namespace, obj.Name = namespace, name
	if err := s.client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return errors.Wrapf(err, "deleting CreationObservation %s/%s", namespace, name)
	}
	return nil
}
