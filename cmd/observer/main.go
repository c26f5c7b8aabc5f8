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

// Command observer runs the node-level kernel event pipeline: it launches
// the bpftrace tracer, aggregates raw kernel events into pod lineage, and
// posts CPU-throttle and pod-creation observations to the ingress webhook.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/vfiftyfive/kernel-gossip/pkg/config"
	"github.com/vfiftyfive/kernel-gossip/pkg/logging"
	"github.com/vfiftyfive/kernel-gossip/pkg/observer"
)

func main() {
	var kubeconfig string

	root := &cobra.Command{
		Use:   "observer",
		Short: "Runs the kernel-gossip node observer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObserver(kubeconfig)
		},
	}
	defaultKubeconfig := ""
	if home := homedir.HomeDir(); home != "" {
		defaultKubeconfig = filepath.Join(home, ".kube", "config")
	}
	root.Flags().StringVar(&kubeconfig, "kubeconfig", defaultKubeconfig, "(optional) absolute path to the kubeconfig file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runObserver(kubeconfig string) error {
	cfg, err := config.LoadObserverConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger failed: %s\n", err)
		os.Exit(2)
	}

	restCfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		level.Error(logger).Log("msg", "building kubeconfig failed", "err", err)
		os.Exit(1)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		level.Error(logger).Log("msg", "building clientset failed", "err", err)
		os.Exit(1)
	}

	podIndex := observer.NewClientsetPodIndex(clientset)
	resolver := observer.NewResolver(podIndex, cfg.ResolverCacheSize)
	aggregator := observer.NewAggregator(cfg.LineageTTL)
	webhookClient := observer.NewWebhookClient(cfg.WebhookURL, cfg.WebhookTimeout)
	pipeline := observer.NewPipeline(observer.NewParser(), aggregator, resolver, webhookClient, logger)
	tracer := observer.NewTracingRuntime(cfg.BpftraceScriptDir, cfg.BpftraceScript, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	var g run.Group
	// Termination handler.
	{
		term := make(chan os.Signal, 1)
		cancel := make(chan struct{})
		signal.Notify(term, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-term:
				level.Info(logger).Log("msg", "received SIGTERM, exiting gracefully...")
			case <-cancel:
			}
			return nil
		}, func(err error) {
			close(cancel)
		})
	}
	// Metrics server.
	{
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		g.Add(func() error {
			return server.ListenAndServe()
		}, func(err error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			server.Shutdown(ctx)
		})
	}
	// Tracer process.
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			if err := tracer.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		}, func(err error) {
			tracer.Stop()
			cancel()
		})
	}
	// Lineage reap loop.
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			ticker := time.NewTicker(cfg.LineageReapInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if n := aggregator.Reap(); n > 0 {
						level.Debug(logger).Log("msg", "reaped stale lineages", "count", n)
					}
				}
			}
		}, func(err error) {
			cancel()
		})
	}
	// Pipeline loop, consuming lines from the tracer.
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			pipeline.Run(ctx, tracer.Lines())
			return nil
		}, func(err error) {
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "exit with error", "err", err)
		os.Exit(1)
	}
	return nil
}
