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

	"github.com/vfiftyfive/kernel-gossip/pkg/resourcestore"
)

// storePodGetter adapts a resourcestore.PodLookup to PodGetter.
type storePodGetter struct {
	lookup *resourcestore.PodLookup
}

// NewStorePodGetter returns a PodGetter backed by lookup.
func NewStorePodGetter(lookup *resourcestore.PodLookup) PodGetter {
	return &storePodGetter{lookup: lookup}
}

func (g *storePodGetter) GetPod(ctx context.Context, namespace, name string) (map[string]string, bool, error) {
	pod, exists, err := g.lookup.GetPod(ctx, namespace, name)
	if err != nil || !exists {
		return nil, exists, err
	}
	return pod.Annotations, true, nil
}
