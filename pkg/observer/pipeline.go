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
	"math"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// cfsPeriodNs is the kernel's default CFS bandwidth-control period. A
// throttle_ns reading is normalized against it to get a percentage.
const cfsPeriodNs = 100_000_000

// monitoringWindowSeconds is the nominal window conventional metrics
// pipelines average CPU usage over; it accompanies throttle payloads so the
// ingress side can present "X% throttled over Ys" without itself knowing
// the observer's sampling cadence.
const monitoringWindowSeconds = 60

// Pipeline wires the Parser, Aggregator, Resolver and WebhookClient into
// the node observer's end-to-end event flow.
type Pipeline struct {
	parser     *Parser
	aggregator *Aggregator
	resolver   *Resolver
	webhook    *WebhookClient
	logger     log.Logger
	now        func() time.Time
}

// NewPipeline returns a Pipeline built from its components.
func NewPipeline(parser *Parser, aggregator *Aggregator, resolver *Resolver, webhook *WebhookClient, logger log.Logger) *Pipeline {
	return &Pipeline{
		parser:     parser,
		aggregator: aggregator,
		resolver:   resolver,
		webhook:    webhook,
		logger:     logger,
		now:        time.Now,
	}
}

// Run consumes lines until the channel is closed or ctx is canceled.
func (p *Pipeline) Run(ctx context.Context, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			p.HandleLine(ctx, line)
		}
	}
}

// HandleLine parses and processes a single trace line. Parse and
// resolution failures are logged and dropped; they never stop the pipeline.
func (p *Pipeline) HandleLine(ctx context.Context, line string) {
	ev, err := p.parser.ParseLine(line)
	if err != nil {
		level.Warn(p.logger).Log("msg", "failed to parse trace line", "line", line, "err", err)
		return
	}
	if ev == nil {
		return
	}

	throttle, creation, err := p.aggregator.Handle(ev)
	if err != nil {
		level.Warn(p.logger).Log("msg", "failed to aggregate event", "event", ev, "err", err)
		return
	}

	switch {
	case throttle != nil:
		p.publishThrottle(ctx, *throttle)
	case creation != nil:
		p.publishCreation(ctx, *creation)
	}
}

func (p *Pipeline) publishThrottle(ctx context.Context, req ThrottlePublishRequest) {
	workload, ok, err := p.resolver.Resolve(ctx, req.PID)
	if err != nil {
		level.Warn(p.logger).Log("msg", "workload resolution failed", "pid", req.PID, "err", err)
		return
	}
	if !ok {
		level.Debug(p.logger).Log("msg", "dropping throttle event: no workload for pid", "pid", req.PID, "comm", req.Comm)
		return
	}

	throttledPercent := math.Min(100, round(float64(req.ThrottleNs)/cfsPeriodNsFloat()*100, 1))
	actualCPUCores := round(workload.CPURequestCores+(float64(req.ThrottleNs)/1e9)*0.1, 2)

	payload := CPUThrottlePayload{
		Timestamp:          p.now().UTC().Format(time.RFC3339),
		PodName:            workload.PodName,
		Namespace:          workload.Namespace,
		ContainerName:      workload.ContainerName,
		ThrottlePercentage: throttledPercent,
		ActualCPUUsage:     actualCPUCores,
		ReportedCPUUsage:   workload.CPURequestCores,
		PeriodSeconds:      monitoringWindowSeconds,
		EBPFDetection:      true,
		ThrottleNs:         req.ThrottleNs,
	}
	if err := p.webhook.PostThrottle(ctx, payload); err != nil {
		level.Warn(p.logger).Log("msg", "failed to post throttle event", "pod", workload.PodName, "namespace", workload.Namespace, "err", err)
	}
}

func (p *Pipeline) publishCreation(ctx context.Context, req CreationPublishRequest) {
	workload, ok, err := p.resolver.Resolve(ctx, req.PID)
	if err != nil {
		level.Warn(p.logger).Log("msg", "workload resolution failed", "pid", req.PID, "err", err)
		return
	}
	if !ok {
		level.Debug(p.logger).Log("msg", "dropping creation event: no workload for pid", "pid", req.PID)
		return
	}

	payload := PodCreationPayload{
		Timestamp:     p.now().UTC().Format(time.RFC3339),
		PodName:       workload.PodName,
		Namespace:     workload.Namespace,
		TotalSyscalls: req.TotalSyscalls,
		NamespaceOps:  req.NamespaceOps,
		CgroupWrites:  req.MountOps,
		DurationNs:    req.DurationNs,
		Timeline: []PodCreationTimelineEntry{
			{TimestampMs: 0, Action: "Pod creation started"},
			{TimestampMs: req.DurationNs / 1_000_000, Action: "Container birth complete"},
		},
		EBPFDetection: true,
	}
	if err := p.webhook.PostCreation(ctx, payload); err != nil {
		level.Warn(p.logger).Log("msg", "failed to post creation event", "pod", workload.PodName, "namespace", workload.Namespace, "err", err)
	}
}

func cfsPeriodNsFloat() float64 { return float64(cfsPeriodNs) }

func round(v float64, places int) float64 {
	mult := math.Pow(10, float64(places))
	return math.Round(v*mult) / mult
}
