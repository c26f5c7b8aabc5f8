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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
)

func newTestHandler(pods *fakePodGetter) (*Handler, *fakeThrottleStore, *fakeCreationStore) {
	throttleStore := newFakeThrottleStore()
	creationStore := newFakeCreationStore()
	gate := NewGate(pods)
	upsert := NewUpserter(throttleStore, creationStore)
	return NewHandler(gate, upsert, log.NewNopLogger()), throttleStore, creationStore
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/pixie", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestServeWebhookCriticalThrottleIsAccepted(t *testing.T) {
	h, throttleStore, _ := newTestHandler(&fakePodGetter{exists: true, annotations: map[string]string{MonitorAnnotation: "true"}})

	body := `{"type":"cpu_throttle","pod_name":"web","namespace":"prod","timestamp":"2024-01-01T00:00:00Z",
		"container_name":"app","throttle_percentage":92,"actual_cpu_usage":1.4,"reported_cpu_usage":0.3}`
	rec := postJSON(t, h.ServeWebhook, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp webhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "accepted" {
		t.Fatalf("expected accepted, got %+v", resp)
	}
	stored := throttleStore.objects["prod/"+string(kgv1alpha1.ThrottleObservationName("web"))]
	if stored == nil || stored.Spec.Severity != kgv1alpha1.SeverityCritical {
		t.Fatalf("expected a critical ThrottleObservation, got %+v", stored)
	}
}

func TestServeWebhookWarningAndInfoThrottle(t *testing.T) {
	cases := []struct {
		pct      float64
		severity kgv1alpha1.Severity
	}{
		{pct: 65, severity: kgv1alpha1.SeverityWarning},
		{pct: 20, severity: kgv1alpha1.SeverityInfo},
	}
	for _, c := range cases {
		h, throttleStore, _ := newTestHandler(&fakePodGetter{exists: true, annotations: map[string]string{MonitorAnnotation: "true"}})
		body := `{"type":"cpu_throttle","pod_name":"web","namespace":"prod","timestamp":"2024-01-01T00:00:00Z",
			"container_name":"app","throttle_percentage":` + jsonFloat(c.pct) + `,"actual_cpu_usage":0.5,"reported_cpu_usage":0.2}`
		rec := postJSON(t, h.ServeWebhook, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("pct %v: expected 200, got %d: %s", c.pct, rec.Code, rec.Body.String())
		}
		stored := throttleStore.objects["prod/"+string(kgv1alpha1.ThrottleObservationName("web"))]
		if stored == nil || stored.Spec.Severity != c.severity {
			t.Fatalf("pct %v: expected severity %q, got %+v", c.pct, c.severity, stored)
		}
	}
}

func TestServeWebhookSkipsSystemNamespace(t *testing.T) {
	h, throttleStore, _ := newTestHandler(&fakePodGetter{exists: true, annotations: map[string]string{MonitorAnnotation: "true"}})
	body := `{"type":"cpu_throttle","pod_name":"coredns","namespace":"kube-system","timestamp":"2024-01-01T00:00:00Z",
		"container_name":"coredns","throttle_percentage":90,"actual_cpu_usage":0.5,"reported_cpu_usage":0.1}`
	rec := postJSON(t, h.ServeWebhook, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp webhookResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "skipped" {
		t.Fatalf("expected skipped status, got %+v", resp)
	}
	if len(throttleStore.objects) != 0 {
		t.Fatalf("expected no resource stored for system namespace, got %+v", throttleStore.objects)
	}
}

func TestServeWebhookRejectsMalformedBody(t *testing.T) {
	h, _, _ := newTestHandler(&fakePodGetter{})
	rec := postJSON(t, h.ServeWebhook, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServeWebhookRejectsInvalidPayload(t *testing.T) {
	h, _, _ := newTestHandler(&fakePodGetter{})
	rec := postJSON(t, h.ServeWebhook, `{"type":"cpu_throttle","pod_name":"web","namespace":"prod","timestamp":"2024-01-01T00:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing required cpu_throttle fields, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServeWebhookRejectsWrongContentType(t *testing.T) {
	h, _, _ := newTestHandler(&fakePodGetter{})
	req := httptest.NewRequest(http.MethodPost, "/webhook/pixie", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeWebhook(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestServeWebhookPodCreationMergesAcrossRequests(t *testing.T) {
	h, _, creationStore := newTestHandler(&fakePodGetter{exists: false})

	first := `{"type":"pod_creation","pod_name":"web","namespace":"prod","timestamp":"2024-01-01T00:00:00Z",
		"total_syscalls":40,"namespace_ops":3,"cgroup_writes":2,"duration_ns":200000000,
		"timeline":[{"timestamp_ms":5,"action":"namespaces created"}]}`
	if rec := postJSON(t, h.ServeWebhook, first); rec.Code != http.StatusOK {
		t.Fatalf("first post: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	second := `{"type":"pod_creation","pod_name":"web","namespace":"prod","timestamp":"2024-01-01T00:00:01Z",
		"total_syscalls":60,"namespace_ops":1,"cgroup_writes":3,"duration_ns":900000000,
		"timeline":[{"timestamp_ms":900,"action":"main process started"}]}`
	if rec := postJSON(t, h.ServeWebhook, second); rec.Code != http.StatusOK {
		t.Fatalf("second post: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored := creationStore.objects["prod/"+string(kgv1alpha1.CreationObservationName("web"))]
	if stored == nil {
		t.Fatal("expected a stored CreationObservation")
	}
	if stored.Spec.KernelStats.TotalSyscalls != 100 {
		t.Fatalf("expected merged totalSyscalls 100, got %d", stored.Spec.KernelStats.TotalSyscalls)
	}
}

func TestServeWebhookAcceptsZeroValuedBoundaries(t *testing.T) {
	// A pod_creation payload's first timeline entry legitimately starts at
	// timestamp_ms 0 (this is exactly what the observer always emits), and
	// a cpu_throttle payload may legitimately report 0% throttling. Neither
	// should be rejected as "missing".
	h, _, creationStore := newTestHandler(&fakePodGetter{exists: false})
	creationBody := `{"type":"pod_creation","pod_name":"idle","namespace":"prod","timestamp":"2024-01-01T00:00:00Z",
		"total_syscalls":10,"namespace_ops":1,"cgroup_writes":1,"duration_ns":50000000,
		"timeline":[{"timestamp_ms":0,"action":"Pod creation started"}]}`
	rec := postJSON(t, h.ServeWebhook, creationBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a zero-timestamp first timeline entry, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp webhookResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "accepted" {
		t.Fatalf("expected accepted, got %+v", resp)
	}
	if creationStore.objects["prod/"+string(kgv1alpha1.CreationObservationName("idle"))] == nil {
		t.Fatal("expected the zero-timestamp creation observation to be stored")
	}

	h, throttleStore, _ := newTestHandler(&fakePodGetter{exists: true, annotations: map[string]string{MonitorAnnotation: "true"}})
	throttleBody := `{"type":"cpu_throttle","pod_name":"web","namespace":"prod","timestamp":"2024-01-01T00:00:00Z",
		"container_name":"app","throttle_percentage":0,"actual_cpu_usage":0.1,"reported_cpu_usage":0.1}`
	rec = postJSON(t, h.ServeWebhook, throttleBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a 0%% throttle_percentage, got %d: %s", rec.Code, rec.Body.String())
	}
	stored := throttleStore.objects["prod/"+string(kgv1alpha1.ThrottleObservationName("web"))]
	if stored == nil || stored.Spec.Severity != kgv1alpha1.SeverityInfo {
		t.Fatalf("expected a stored info-severity ThrottleObservation, got %+v", stored)
	}
}

func jsonFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
