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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultWebhookTimeout is used when WEBHOOK_TIMEOUT is unset.
const DefaultWebhookTimeout = 5 * time.Second

// CPUThrottlePayload is posted to the ingress controller's webhook for a
// ThrottleEvent that resolved to a workload.
type CPUThrottlePayload struct {
	Type               string  `json:"type"`
	Timestamp          string  `json:"timestamp"`
	PodName            string  `json:"pod_name"`
	Namespace          string  `json:"namespace"`
	ContainerName      string  `json:"container_name"`
	ThrottlePercentage float64 `json:"throttle_percentage"`
	ActualCPUUsage     float64 `json:"actual_cpu_usage"`
	ReportedCPUUsage   float64 `json:"reported_cpu_usage"`
	PeriodSeconds      uint64  `json:"period_seconds"`
	EBPFDetection      bool    `json:"ebpf_detection"`
	ThrottleNs         uint64  `json:"throttle_ns"`
}

// PodCreationTimelineEntry is one entry in a PodCreationPayload's timeline.
type PodCreationTimelineEntry struct {
	TimestampMs uint64 `json:"timestamp_ms"`
	Action      string `json:"action"`
}

// PodCreationPayload is posted to the ingress controller's webhook for a
// completed container-birth lineage.
type PodCreationPayload struct {
	Type          string                     `json:"type"`
	Timestamp     string                     `json:"timestamp"`
	PodName       string                     `json:"pod_name"`
	Namespace     string                     `json:"namespace"`
	TotalSyscalls uint64                     `json:"total_syscalls"`
	NamespaceOps  uint64                     `json:"namespace_ops"`
	CgroupWrites  uint64                     `json:"cgroup_writes"`
	DurationNs    uint64                     `json:"duration_ns"`
	Timeline      []PodCreationTimelineEntry `json:"timeline"`
	EBPFDetection bool                       `json:"ebpf_detection"`
}

// WebhookClient posts observer payloads to the ingress controller. It does
// not retry: a failed post is logged by the caller and the event is dropped,
// matching the fire-and-forget nature of the upstream kernel trace.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

// NewWebhookClient returns a client posting to url with the given timeout.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// PostThrottle posts a CPUThrottlePayload.
func (c *WebhookClient) PostThrottle(ctx context.Context, p CPUThrottlePayload) error {
	p.Type = "cpu_throttle"
	return c.post(ctx, p)
}

// PostCreation posts a PodCreationPayload.
func (c *WebhookClient) PostCreation(ctx context.Context, p PodCreationPayload) error {
	p.Type = "pod_creation"
	return c.post(ctx, p)
}

func (c *WebhookClient) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshaling webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "posting webhook payload")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("webhook returned %s: %s", resp.Status, bytes.TrimSpace(respBody))
	}
	return nil
}
