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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookClientPostThrottle(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content-type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, time.Second)
	err := c.PostThrottle(context.Background(), CPUThrottlePayload{
		Timestamp: "2024-01-01T00:00:00Z", PodName: "web", Namespace: "prod",
		ContainerName: "web", ThrottlePercentage: 85.5, ActualCPUUsage: 0.8,
		ReportedCPUUsage: 0.5, PeriodSeconds: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got["type"] != "cpu_throttle" || got["pod_name"] != "web" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestWebhookClientNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"status":"error"}`))
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, time.Second)
	err := c.PostCreation(context.Background(), PodCreationPayload{PodName: "web", Namespace: "prod"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, 5*time.Millisecond)
	err := c.PostThrottle(context.Background(), CPUThrottlePayload{PodName: "web"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
