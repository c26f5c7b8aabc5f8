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
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer builds the *http.Server the ingress binary runs under
// oklog/run: one webhook endpoint, a health check, and a metrics endpoint
// sharing the registry the caller passes in.
func NewServer(addr, path string, handler *Handler, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(path, handler.ServeWebhook)
	mux.HandleFunc("/health", handler.ServeHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
