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

package resourcestore

import (
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PodLookup is a namespaced Pod getter, used by the ingress controller's
// monitoring-annotation gate. Unlike the observer's PodIndex, the namespace
// is already known here, so this is a direct Get rather than a cluster-wide
// list-and-scan.
type PodLookup struct {
	clientset kubernetes.Interface
}

// NewPodLookup returns a PodLookup backed by clientset.
func NewPodLookup(clientset kubernetes.Interface) *PodLookup {
	return &PodLookup{clientset: clientset}
}

// GetPod returns the named pod, or (nil, false, nil) if it doesn't exist.
func (p *PodLookup) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, bool, error) {
	pod, err := p.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "getting pod %s/%s", namespace, name)
	}
	return pod, true, nil
}
