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
	"fmt"
	"os"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
)

// Workload is a kernel pid resolved to the Kubernetes object that owns it.
type Workload struct {
	PodName         string
	Namespace       string
	ContainerName   string
	CPURequestCores float64
	CPULimitCores   float64
}

// PodIndex looks up pods by identity. It exists so Resolver doesn't depend
// directly on a Kubernetes client, which keeps it unit-testable with a fake.
type PodIndex interface {
	PodByUID(ctx context.Context, uid string) (*corev1.Pod, bool, error)
	PodByName(ctx context.Context, name string) (*corev1.Pod, bool, error)
}

// Resolver turns a kernel pid into a Workload. It never invents an identity:
// a pid that can't be tied to a pod resolves to (Workload{}, false, nil).
type Resolver struct {
	procRoot string
	pods     PodIndex
	cache    *workloadCache
}

// NewResolver returns a Resolver backed by pods, caching up to cacheSize
// resolved workloads.
func NewResolver(pods PodIndex, cacheSize int) *Resolver {
	return &Resolver{
		procRoot: "/proc",
		pods:     pods,
		cache:    newWorkloadCache(cacheSize),
	}
}

// Resolve resolves pid to a Workload, trying the cache first.
func (r *Resolver) Resolve(ctx context.Context, pid uint32) (Workload, bool, error) {
	key := strconv.FormatUint(uint64(pid), 10)
	if w, ok := r.cache.get(key); ok {
		return w, true, nil
	}

	w, ok, err := r.resolveUncached(ctx, pid)
	if err != nil || !ok {
		return Workload{}, false, err
	}
	r.cache.add(key, w)
	return w, true, nil
}

func (r *Resolver) resolveUncached(ctx context.Context, pid uint32) (Workload, bool, error) {
	// Strategy 1: pid may already be the container's main process, with its
	// own cgroup membership pointing straight at a pod.
	if w, ok, err := r.resolveContainerPID(ctx, pid); err != nil {
		return Workload{}, false, err
	} else if ok {
		return w, true, nil
	}

	// Strategy 2: walk the process tree to find a container-runtime
	// ancestor, then resolve that pid's cgroup instead.
	if ancestor, ok := r.findContainerRuntimeAncestor(pid); ok {
		if w, ok, err := r.resolveContainerPID(ctx, ancestor); err != nil {
			return Workload{}, false, err
		} else if ok {
			return w, true, nil
		}
	}

	return Workload{}, false, nil
}

func (r *Resolver) findContainerRuntimeAncestor(pid uint32) (uint32, bool) {
	current := pid
	for i := 0; i < 10; i++ {
		if comm, err := r.readComm(current); err == nil && isRuntimeComm(comm) {
			return current, true
		}
		ppid, ok := r.readPPID(current)
		if !ok || ppid == 1 || ppid == current {
			break
		}
		current = ppid
	}
	return 0, false
}

func (r *Resolver) readComm(pid uint32) (string, error) {
	b, err := os.ReadFile(fmt.Sprintf("%s/%d/comm", r.procRoot, pid))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (r *Resolver) readPPID(pid uint32) (uint32, bool) {
	b, err := os.ReadFile(fmt.Sprintf("%s/%d/stat", r.procRoot, pid))
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(b))
	if len(fields) <= 3 {
		return 0, false
	}
	ppid, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(ppid), true
}

// resolveContainerPID tries to resolve a single pid believed to be (or be
// adjacent to) the container process: first via its cgroup membership, then
// by falling back to the HOSTNAME environment variable, which Kubernetes
// sets to the pod name by default.
func (r *Resolver) resolveContainerPID(ctx context.Context, pid uint32) (Workload, bool, error) {
	if uid, ok := r.readPodUIDFromCgroup(pid); ok {
		pod, ok, err := r.pods.PodByUID(ctx, uid)
		if err != nil {
			return Workload{}, false, err
		}
		if ok {
			return workloadFromPod(pod), true, nil
		}
	}

	if hostname, ok := r.readHostnameFromEnviron(pid); ok {
		pod, ok, err := r.pods.PodByName(ctx, hostname)
		if err != nil {
			return Workload{}, false, err
		}
		if ok {
			return workloadFromPod(pod), true, nil
		}
	}

	return Workload{}, false, nil
}

func (r *Resolver) readPodUIDFromCgroup(pid uint32) (string, bool) {
	b, err := os.ReadFile(fmt.Sprintf("%s/%d/cgroup", r.procRoot, pid))
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(b), "\n") {
		if uid, ok := extractPodUIDFromCgroupLine(line); ok {
			return uid, true
		}
	}
	return "", false
}

func (r *Resolver) readHostnameFromEnviron(pid uint32) (string, bool) {
	b, err := os.ReadFile(fmt.Sprintf("%s/%d/environ", r.procRoot, pid))
	if err != nil {
		return "", false
	}
	for _, v := range strings.Split(string(b), "\x00") {
		if hostname, ok := strings.CutPrefix(v, "HOSTNAME="); ok && hostname != "" {
			return hostname, true
		}
	}
	return "", false
}

// extractPodUIDFromCgroupLine recognizes both the minikube-style raw UUID
// path and the systemd-slice "kubepods...-pod<uid>.slice" format, where the
// uid's underscores stand in for dashes.
func extractPodUIDFromCgroupLine(line string) (string, bool) {
	if strings.Contains(line, "/pod") && strings.Contains(line, "-") {
		for _, part := range strings.Split(line, "/") {
			podPart, ok := strings.CutPrefix(part, "pod")
			if !ok || len(podPart) < 32 || !strings.Contains(podPart, "-") {
				continue
			}
			uid := filterHexDashChars(podPart)
			if len(uid) >= 32 && strings.Count(uid, "-") >= 4 {
				return uid, true
			}
		}
	}

	if !strings.Contains(line, "kubepods") {
		return "", false
	}

	if idx := strings.Index(line, "-pod"); idx >= 0 {
		uid := scanUIDChars(line[idx+len("-pod"):])
		if len(uid) >= 32 {
			return strings.ReplaceAll(uid, "_", "-"), true
		}
		return "", false
	}
	if idx := strings.Index(line, "pod"); idx >= 0 {
		uid := scanUIDChars(line[idx+len("pod"):])
		if len(uid) >= 32 {
			return strings.ReplaceAll(uid, "_", "-"), true
		}
	}
	return "", false
}

func scanUIDChars(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if isHexDigit(ch) || ch == '-' || ch == '_' {
			b.WriteRune(ch)
			continue
		}
		break
	}
	return b.String()
}

func filterHexDashChars(s string) string {
	var b strings.Builder
	for _, ch := range s {
		if isHexDigit(ch) || ch == '-' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func workloadFromPod(pod *corev1.Pod) Workload {
	containerName := "main"
	var reqCores, limCores float64
	if len(pod.Spec.Containers) > 0 {
		containerName = pod.Spec.Containers[0].Name
	}
	for _, c := range pod.Spec.Containers {
		if q, ok := c.Resources.Requests[corev1.ResourceCPU]; ok {
			reqCores += float64(q.MilliValue()) / 1000.0
		}
		if q, ok := c.Resources.Limits[corev1.ResourceCPU]; ok {
			limCores += float64(q.MilliValue()) / 1000.0
		}
	}
	return Workload{
		PodName:         pod.Name,
		Namespace:       pod.Namespace,
		ContainerName:   containerName,
		CPURequestCores: reqCores,
		CPULimitCores:   limCores,
	}
}

// parseCPUQuantity parses a Kubernetes CPU quantity string such as "500m" or
// "2" into cores. workloadFromPod does not use it; it reads resource.Quantity
// values directly.
func parseCPUQuantity(quantity string) (float64, error) {
	if m, ok := strings.CutSuffix(quantity, "m"); ok {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid millicore quantity %q: %w", quantity, err)
		}
		return v / 1000.0, nil
	}
	v, err := strconv.ParseFloat(quantity, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu quantity %q: %w", quantity, err)
	}
	return v, nil
}
