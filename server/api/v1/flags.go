// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package v1

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/flags"
	"github.com/zintix-labs/footprob/server/httperr"
)

type FlagsResponse struct {
	V2Enabled bool        `json:"v2_enabled"`
	Flags     flags.State `json:"flags"`
}

type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// Flags GET /v1/flags
func (h *Handler) Flags(w http.ResponseWriter, q *http.Request) {
	ctx, cancel := h.withTimeout(q)
	defer cancel()
	st, err := h.lab.Flags().Load(ctx)
	if err != nil {
		h.fail(w, q, "flags", err)
		return
	}
	writeJSON(w, flagsResponse(st, time.Now()))
}

// ToggleV2 POST /v1/flags/v2，需帶 Authorization: Bearer <token>。
// 手動開關與斷路器共用同一個鍵，切換時一併結束冷卻。
func (h *Handler) ToggleV2(w http.ResponseWriter, q *http.Request) {
	if !h.authorized(q) {
		h.fail(w, q, "toggle v2", httperr.ErrUnauthorized)
		return
	}
	raw, err := h.readBody(w, q)
	if err != nil {
		h.fail(w, q, "toggle v2", err)
		return
	}
	var req ToggleRequest
	if err := decodeStrict(raw, &req); err != nil {
		h.fail(w, q, "toggle v2", err)
		return
	}
	if req.Enabled == nil {
		h.fail(w, q, "toggle v2", errs.Kindf(errs.MissingInput, "enabled is required"))
		return
	}

	ctx, cancel := h.withTimeout(q)
	defer cancel()
	st, err := h.lab.Flags().Load(ctx)
	if err != nil {
		h.fail(w, q, "toggle v2", err)
		return
	}
	st.Enabled = req.Enabled
	st.OpenUntil = time.Time{}
	if err := h.lab.Flags().Save(ctx, st); err != nil {
		h.fail(w, q, "toggle v2", err)
		return
	}
	h.log.Info("v2 flag toggled", slog.Bool("enabled", *req.Enabled))
	writeJSON(w, flagsResponse(st, time.Now()))
}

func (h *Handler) authorized(q *http.Request) bool {
	if h.cfg.Token == "" {
		return false
	}
	got, ok := strings.CutPrefix(q.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.Token)) == 1
}

func flagsResponse(st flags.State, now time.Time) FlagsResponse {
	return FlagsResponse{V2Enabled: st.EnabledOr(true) && !st.OpenUntil.After(now), Flags: st}
}
