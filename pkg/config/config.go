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

// Package config loads the environment-variable configuration shared by the
// observer, ingress and reconciler binaries via viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// ObserverConfig configures the node observer binary.
type ObserverConfig struct {
	LogLevel            string        `mapstructure:"log_level"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`
	WebhookURL          string        `mapstructure:"webhook_url"`
	WebhookTimeout      time.Duration `mapstructure:"webhook_timeout"`
	BpftraceScript      string        `mapstructure:"bpftrace_script"`
	BpftraceScriptDir   string        `mapstructure:"bpftrace_script_dir"`
	ResolverCacheSize   int           `mapstructure:"resolver_cache_size"`
	LineageReapInterval time.Duration `mapstructure:"lineage_reap_interval"`
	LineageTTL          time.Duration `mapstructure:"lineage_ttl"`
}

// LoadObserverConfig reads the observer's environment-variable configuration.
func LoadObserverConfig() (ObserverConfig, error) {
	v := newViper()
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("webhook_url", "http://kernel-gossip-ingress.kernel-gossip-system.svc:8080/webhook/pixie")
	v.SetDefault("webhook_timeout", 5*time.Second)
	v.SetDefault("bpftrace_script", "monitoring.bt")
	v.SetDefault("bpftrace_script_dir", "/etc/kernel-gossip/scripts")
	v.SetDefault("resolver_cache_size", 4096)
	v.SetDefault("lineage_reap_interval", 60*time.Second)
	v.SetDefault("lineage_ttl", 60*time.Second)

	bindEnv(v,
		"log_level", "LOG_LEVEL",
		"metrics_addr", "METRICS_PORT",
		"webhook_url", "WEBHOOK_URL",
		"webhook_timeout", "WEBHOOK_TIMEOUT",
		"bpftrace_script", "BPFTRACE_SCRIPT",
		"bpftrace_script_dir", "BPFTRACE_SCRIPT_DIR",
		"resolver_cache_size", "RESOLVER_CACHE_SIZE",
		"lineage_reap_interval", "LINEAGE_REAP_INTERVAL",
		"lineage_ttl", "LINEAGE_TTL",
	)

	var cfg ObserverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ObserverConfig{}, err
	}
	return cfg, nil
}

// IngressConfig configures the ingress controller binary.
type IngressConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	ListenAddr  string `mapstructure:"webhook_port"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	IngressPath string `mapstructure:"ingress_path"`
}

// LoadIngressConfig reads the ingress controller's environment-variable configuration.
func LoadIngressConfig() (IngressConfig, error) {
	v := newViper()
	v.SetDefault("webhook_port", ":8080")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("ingress_path", "/webhook/pixie")

	bindEnv(v,
		"log_level", "LOG_LEVEL",
		"webhook_port", "WEBHOOK_PORT",
		"metrics_addr", "METRICS_PORT",
		"ingress_path", "INGRESS_PATH",
	)

	var cfg IngressConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return IngressConfig{}, err
	}
	return cfg, nil
}

// ReconcilerConfig configures the reconciliation-loop binary.
type ReconcilerConfig struct {
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	Namespace   string `mapstructure:"watch_namespace"`
}

// LoadReconcilerConfig reads the reconciler's environment-variable configuration.
func LoadReconcilerConfig() (ReconcilerConfig, error) {
	v := newViper()
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("watch_namespace", "")

	bindEnv(v,
		"log_level", "LOG_LEVEL",
		"metrics_addr", "METRICS_PORT",
		"watch_namespace", "WATCH_NAMESPACE",
	)

	var cfg ReconcilerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ReconcilerConfig{}, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.AutomaticEnv()
	return v
}

func bindEnv(v *viper.Viper, keyEnvPairs ...string) {
	for i := 0; i+1 < len(keyEnvPairs); i += 2 {
		// BindEnv's error is only non-nil for malformed arguments, which
		// these calls never produce.
		_ = v.BindEnv(keyEnvPairs[i], keyEnvPairs[i+1])
	}
}
