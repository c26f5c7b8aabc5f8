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

package observer

import (
	"context"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// ClientsetPodIndex implements PodIndex against the live Kubernetes API via
// client-go, listing all pods cluster-wide and scanning for a match. This
// mirrors the node agent's historical Api::all(...).list(...) behavior; it
// is the Resolver's only expensive path, which is why Resolver caches
// results by pid rather than calling it per event.
type ClientsetPodIndex struct {
	clientset kubernetes.Interface
}

// NewClientsetPodIndex returns a PodIndex backed by clientset.
func NewClientsetPodIndex(clientset kubernetes.Interface) *ClientsetPodIndex {
	return &ClientsetPodIndex{clientset: clientset}
}

// PodByUID returns the pod whose metadata.uid equals uid.
func (c *ClientsetPodIndex) PodByUID(ctx context.Context, uid string) (*corev1.Pod, bool, error) {
	pods, err := c.clientset.CoreV1().Pods(corev1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, false, errors.Wrap(err, "listing pods to resolve by uid")
	}
	for i := range pods.Items {
		if string(pods.Items[i].UID) == uid {
			return &pods.Items[i], true, nil
		}
	}
	return nil, false, nil
}

// PodByName returns the first pod, across all namespaces, whose
// metadata.name equals name. Pod names aren't cluster-unique, but this
// matches how Kubernetes sets a pod's HOSTNAME env var: it's the best
// fallback available once cgroup-UID extraction has already failed.
func (c *ClientsetPodIndex) PodByName(ctx context.Context, name string) (*corev1.Pod, bool, error) {
	pods, err := c.clientset.CoreV1().Pods(corev1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, false, errors.Wrap(err, "listing pods to resolve by name")
	}
	for i := range pods.Items {
		if pods.Items[i].Name == name {
			return &pods.Items[i], true, nil
		}
	}
	return nil, false, nil
}
