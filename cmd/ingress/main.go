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

// Command ingress runs the webhook controller that receives observer
// payloads and upserts them as kernelgossip.dev custom resources.
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
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
	"github.com/vfiftyfive/kernel-gossip/pkg/config"
	"github.com/vfiftyfive/kernel-gossip/pkg/ingress"
	"github.com/vfiftyfive/kernel-gossip/pkg/logging"
	"github.com/vfiftyfive/kernel-gossip/pkg/resourcestore"
)

func main() {
	var kubeconfig string

	root := &cobra.Command{
		Use:   "ingress",
		Short: "Runs the kernel-gossip ingress webhook controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngress(kubeconfig)
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

func runIngress(kubeconfig string) error {
	cfg, err := config.LoadIngressConfig()
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

	scheme := kubernetesScheme()
	crdClient, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		level.Error(logger).Log("msg", "building controller-runtime client failed", "err", err)
		os.Exit(1)
	}

	store := resourcestore.New(crdClient)
	podLookup := resourcestore.NewPodLookup(clientset)
	gate := ingress.NewGate(ingress.NewStorePodGetter(podLookup))
	upsert := ingress.NewUpserter(store, store)
	handler := ingress.NewHandler(gate, upsert, logger)

	registry := prometheus.NewRegistry()
	up := prometheus.NewGauge(prometheus.GaugeOpts{Name: "kernel_gossip_ingress_up", Help: "Set to 1 while the ingress controller is running."})
	up.Set(1)
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}), up)
	server := ingress.NewServer(cfg.ListenAddr, cfg.IngressPath, handler, registry)

	var g run.Group
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
	{
		g.Add(func() error {
			return server.ListenAndServe()
		}, func(err error) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			server.Shutdown(ctx)
		})
	}

	if err := g.Run(); err != nil {
		level.Error(logger).Log("msg", "exit with error", "err", err)
		os.Exit(1)
	}
	return nil
}

func kubernetesScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	_ = kgv1alpha1.AddToScheme(scheme)
	return scheme
}
