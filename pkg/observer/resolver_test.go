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
	"path/filepath"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

type fakePodIndex struct {
	byUID  map[string]*corev1.Pod
	byName map[string]*corev1.Pod
}

func (f *fakePodIndex) PodByUID(_ context.Context, uid string) (*corev1.Pod, bool, error) {
	p, ok := f.byUID[uid]
	return p, ok, nil
}

func (f *fakePodIndex) PodByName(_ context.Context, name string) (*corev1.Pod, bool, error) {
	p, ok := f.byName[name]
	return p, ok, nil
}

func writeProcFile(t *testing.T, root string, pid uint32, name, content string) {
	t.Helper()
	dir := filepath.Join(root, fmt.Sprint(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractPodUIDFromCgroupLineSystemd(t *testing.T) {
	line := "0::/kubepods.slice/kubepods-burstable.slice/kubepods-burstable-pod2bac1a6a_95d3_4abc_990f_aefaf5c74812.slice/cri-containerd-abc.scope"
	uid, ok := extractPodUIDFromCgroupLine(line)
	if !ok {
		t.Fatal("expected to extract a uid")
	}
	if want := "2bac1a6a-95d3-4abc-990f-aefaf5c74812"; uid != want {
		t.Fatalf("got %q, want %q", uid, want)
	}
}

func TestExtractPodUIDFromCgroupLineMinikube(t *testing.T) {
	line := "0::/../../pod2bac1a6a-95d3-4abc-990f-aefaf5c74812/abcdef0123456789"
	uid, ok := extractPodUIDFromCgroupLine(line)
	if !ok {
		t.Fatal("expected to extract a uid")
	}
	if want := "2bac1a6a-95d3-4abc-990f-aefaf5c74812"; uid != want {
		t.Fatalf("got %q, want %q", uid, want)
	}
}

func TestExtractPodUIDFromCgroupLineNoMatch(t *testing.T) {
	if _, ok := extractPodUIDFromCgroupLine("0::/user.slice/user-1000.slice"); ok {
		t.Fatal("expected no match for a non-kubepods line")
	}
}

func TestResolverDirectCgroupStrategy(t *testing.T) {
	root := t.TempDir()
	writeProcFile(t, root, 500, "cgroup", "0::/kubepods.slice/kubepods-burstable.slice/kubepods-burstable-pod2bac1a6a_95d3_4abc_990f_aefaf5c74812.slice/cri-containerd-x.scope\n")

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web-0", Namespace: "prod", UID: "2bac1a6a-95d3-4abc-990f-aefaf5c74812"},
		Spec: corev1.PodSpec{Containers: []corev1.Container{{
			Name: "web",
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("500m")},
				Limits:   corev1.ResourceList{corev1.ResourceCPU: resource.MustParse("1")},
			},
		}}},
	}
	idx := &fakePodIndex{byUID: map[string]*corev1.Pod{"2bac1a6a-95d3-4abc-990f-aefaf5c74812": pod}}

	r := NewResolver(idx, 10)
	r.procRoot = root

	w, ok, err := r.Resolve(context.Background(), 500)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if w.PodName != "web-0" || w.Namespace != "prod" || w.ContainerName != "web" {
		t.Fatalf("unexpected workload: %+v", w)
	}
	if w.CPURequestCores != 0.5 || w.CPULimitCores != 1 {
		t.Fatalf("unexpected cpu resources: %+v", w)
	}
}

func TestResolverAncestorWalkStrategy(t *testing.T) {
	root := t.TempDir()
	// pid 700 is the actual container process, with no cgroup info of its
	// own; pid 650 is its containerd-shim runtime ancestor.
	writeProcFile(t, root, 700, "comm", "nginx\n")
	writeProcFile(t, root, 700, "stat", "700 (nginx) S 650 700 700 0 -1 4194560\n")
	writeProcFile(t, root, 650, "comm", "containerd-shim\n")
	writeProcFile(t, root, 650, "stat", "650 (containerd-shim) S 1 650 650 0 -1 4194560\n")
	writeProcFile(t, root, 650, "cgroup", "0::/kubepods.slice/kubepods-burstable-pod2bac1a6a_95d3_4abc_990f_aefaf5c74812.slice\n")

	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: "default", UID: "2bac1a6a-95d3-4abc-990f-aefaf5c74812"}}
	idx := &fakePodIndex{byUID: map[string]*corev1.Pod{"2bac1a6a-95d3-4abc-990f-aefaf5c74812": pod}}

	r := NewResolver(idx, 10)
	r.procRoot = root

	w, ok, err := r.Resolve(context.Background(), 700)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !ok || w.PodName != "api" {
		t.Fatalf("expected ancestor-walk resolution to find pod api, got %+v ok=%v", w, ok)
	}
}

func TestResolverHostnameFallback(t *testing.T) {
	root := t.TempDir()
	writeProcFile(t, root, 900, "cgroup", "0::/user.slice\n")
	writeProcFile(t, root, 900, "environ", "PATH=/bin\x00HOSTNAME=cache-7\x00HOME=/root\x00")

	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "cache-7", Namespace: "default"}}
	idx := &fakePodIndex{byName: map[string]*corev1.Pod{"cache-7": pod}}

	r := NewResolver(idx, 10)
	r.procRoot = root

	w, ok, err := r.Resolve(context.Background(), 900)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !ok || w.PodName != "cache-7" {
		t.Fatalf("expected hostname-fallback resolution, got %+v ok=%v", w, ok)
	}
}

func TestResolverReturnsFalseRatherThanSynthesize(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(&fakePodIndex{}, 10)
	r.procRoot = root

	_, ok, err := r.Resolve(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if ok {
		t.Fatal("expected resolution to fail cleanly rather than synthesize an identity")
	}
}

func TestResolverCachesResult(t *testing.T) {
	root := t.TempDir()
	writeProcFile(t, root, 500, "cgroup", "0::/kubepods.slice/kubepods-burstable-pod2bac1a6a_95d3_4abc_990f_aefaf5c74812.slice\n")
	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "web-0", Namespace: "prod", UID: "2bac1a6a-95d3-4abc-990f-aefaf5c74812"}}
	idx := &fakePodIndex{byUID: map[string]*corev1.Pod{"2bac1a6a-95d3-4abc-990f-aefaf5c74812": pod}}

	r := NewResolver(idx, 10)
	r.procRoot = root

	if _, ok, _ := r.Resolve(context.Background(), 500); !ok {
		t.Fatal("expected first resolution to succeed")
	}
	// Remove the procfs fixture: a cached hit must not need it again.
	os.RemoveAll(root)
	w, ok, err := r.Resolve(context.Background(), 500)
	if err != nil || !ok {
		t.Fatalf("expected cached resolution to succeed without procfs, got ok=%v err=%v", ok, err)
	}
	if w.PodName != "web-0" {
		t.Fatalf("unexpected cached workload: %+v", w)
	}
}

func TestParseCPUQuantity(t *testing.T) {
	cases := map[string]float64{"500m": 0.5, "1": 1, "2": 2, "100m": 0.1}
	for in, want := range cases {
		got, err := parseCPUQuantity(in)
		if err != nil {
			t.Fatalf("parseCPUQuantity(%q): %s", in, err)
		}
		if got != want {
			t.Errorf("parseCPUQuantity(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseCPUQuantity("not-a-number"); err == nil {
		t.Fatal("expected error for invalid quantity")
	}
}
