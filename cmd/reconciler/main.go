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

// Command reconciler watches the kernelgossip.dev CRDs and writes
// recommendations/summaries onto their status subresources.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/metrics/server"

	kgv1alpha1 "github.com/vfiftyfive/kernel-gossip/pkg/apis/kernelgossip/v1alpha1"
	"github.com/vfiftyfive/kernel-gossip/pkg/config"
	"github.com/vfiftyfive/kernel-gossip/pkg/logging"
	"github.com/vfiftyfive/kernel-gossip/pkg/reconciler"
)

func main() {
	var kubeconfig string

	root := &cobra.Command{
		Use:   "reconciler",
		Short: "Runs the kernel-gossip reconciliation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconciler(kubeconfig)
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

func runReconciler(kubeconfig string) error {
	cfg, err := config.LoadReconcilerConfig()
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

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		level.Error(logger).Log("msg", "registering core scheme failed", "err", err)
		os.Exit(1)
	}
	if err := kgv1alpha1.AddToScheme(scheme); err != nil {
		level.Error(logger).Log("msg", "registering kernelgossip scheme failed", "err", err)
		os.Exit(1)
	}

	mgrOpts := ctrl.Options{
		Scheme:                 scheme,
		Metrics:                server.Options{BindAddress: cfg.MetricsAddr},
		HealthProbeBindAddress: "0",
	}
	if cfg.Namespace != "" {
		mgrOpts.Cache.DefaultNamespaces = map[string]cache.Config{cfg.Namespace: {}}
	}

	mgr, err := ctrl.NewManager(restCfg, mgrOpts)
	if err != nil {
		level.Error(logger).Log("msg", "building manager failed", "err", err)
		os.Exit(1)
	}

	if err := reconciler.SetupWithManager(mgr, logger); err != nil {
		level.Error(logger).Log("msg", "setting up controllers failed", "err", err)
		os.Exit(1)
	}

	level.Info(logger).Log("msg", "starting reconciler", "metrics_addr", cfg.MetricsAddr)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		level.Error(logger).Log("msg", "manager exited with error", "err", err)
		os.Exit(1)
	}
	return nil
}
