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
	"encoding/json"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type webhookResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Handler serves the observer's webhook deliveries.
type Handler struct {
	gate   *Gate
	upsert *Upserter
	logger log.Logger
}

// NewHandler returns a Handler wiring the monitoring gate to the upserter.
func NewHandler(gate *Gate, upsert *Upserter, logger log.Logger) *Handler {
	return &Handler{gate: gate, upsert: upsert, logger: logger}
}

// ServeWebhook decodes, validates, gates, and upserts a single payload.
func (h *Handler) ServeWebhook(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, webhookResponse{Status: "error", Reason: "content-type must be application/json"})
		return
	}

	var payload WebhookPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		level.Debug(h.logger).Log("msg", "malformed webhook body", "err", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Reason: "malformed JSON body"})
		return
	}
	if err := payload.Validate(); err != nil {
		level.Debug(h.logger).Log("msg", "invalid webhook payload", "err", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Status: "error", Reason: err.Error()})
		return
	}

	ctx := r.Context()
	result, err := h.gate.Evaluate(ctx, &payload)
	if err != nil {
		level.Error(h.logger).Log("msg", "gate evaluation failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Status: "error", Reason: "internal error"})
		return
	}
	if !result.Allowed {
		level.Debug(h.logger).Log("msg", "payload skipped", "reason", result.Reason, "pod", payload.PodName, "namespace", payload.Namespace)
		writeJSON(w, http.StatusOK, webhookResponse{Status: "skipped", Reason: result.Reason})
		return
	}

	if err := h.upsert.Apply(ctx, &payload); err != nil {
		level.Error(h.logger).Log("msg", "upsert failed", "err", err, "pod", payload.PodName, "namespace", payload.Namespace)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Status: "error", Reason: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Status: "accepted"})
}

// ServeHealth reports liveness.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, webhookResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, code int, body webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
