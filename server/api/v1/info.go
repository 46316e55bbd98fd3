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
	"net/http"
	"strings"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/flags"
	"github.com/zintix-labs/footprob/sdk/blend"
)

type WeightResponse struct {
	League string       `json:"league"`
	Market string       `json:"market"`
	Weight float64      `json:"weight"`
	Source blend.Source `json:"source"`
}

// Weights GET /v1/weights?league=&market=
func (h *Handler) Weights(w http.ResponseWriter, q *http.Request) {
	league := strings.TrimSpace(q.URL.Query().Get("league"))
	market := strings.ToLower(strings.TrimSpace(q.URL.Query().Get("market")))
	switch market {
	case blend.Market1X2, blend.MarketO25, blend.MarketBTS:
	case "":
		h.fail(w, q, "weights", errs.Kindf(errs.MissingInput, "market is required"))
		return
	default:
		h.fail(w, q, "weights", errs.Kindf(errs.MalformedInput, "unknown market: %s", market))
		return
	}
	wt, src := h.lab.Weight(league, market)
	writeJSON(w, WeightResponse{League: league, Market: market, Weight: wt, Source: src})
}

type HealthResponse struct {
	Status       string      `json:"status"`
	Enabled      bool        `json:"enabled"`
	Calibrations int         `json:"calibrations"`
	Flags        flags.State `json:"flags"`
	FlagsErr     string      `json:"flags_error,omitempty"`
}

// Health GET /v1/health
func (h *Handler) Health(w http.ResponseWriter, q *http.Request) {
	ctx, cancel := h.withTimeout(q)
	defer cancel()
	resp := HealthResponse{
		Status:       "ok",
		Enabled:      h.lab.Config().Pipeline.Enabled,
		Calibrations: h.lab.Catalog().Len(),
	}
	st, err := h.lab.Flags().Load(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.FlagsErr = err.Error()
	}
	resp.Flags = st
	resp.Enabled = resp.Enabled && st.EnabledOr(true)
	writeJSON(w, resp)
}
