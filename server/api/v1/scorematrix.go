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

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/pipeline"
	"github.com/zintix-labs/footprob/sdk/score"
)

// ScoreMatrixRequest POST /v1/scorematrix 的請求
type ScoreMatrixRequest struct {
	LambdaHome *float64 `json:"lambda_home"`
	LambdaAway *float64 `json:"lambda_away"`
	Lambda3    *float64 `json:"lambda3,omitempty"`
	League     any      `json:"league_id,omitempty"`
	MaxGoals   int      `json:"max_goals,omitempty"`
	Top        int      `json:"top,omitempty"`
}

// ScoreMatrixResponse 市場摘要與可直接餵給後處理的 predictions
type ScoreMatrixResponse struct {
	League      string         `json:"league_id,omitempty"`
	Summary     score.Summary  `json:"summary"`
	Predictions map[string]any `json:"predictions"`
}

// ScoreMatrix POST /v1/scorematrix
func (h *Handler) ScoreMatrix(w http.ResponseWriter, q *http.Request) {
	raw, err := h.readBody(w, q)
	if err != nil {
		h.fail(w, q, "scorematrix read body", err)
		return
	}
	req := new(ScoreMatrixRequest)
	if err := decodeStrict(raw, req); err != nil {
		h.fail(w, q, "scorematrix decode", err)
		return
	}
	if req.LambdaHome == nil || req.LambdaAway == nil {
		h.fail(w, q, "scorematrix", errs.Kindf(errs.MissingInput, "lambda_home and lambda_away are required"))
		return
	}
	if req.Top <= 0 {
		req.Top = 3
	}
	if req.Top > 50 {
		h.fail(w, q, "scorematrix", errs.Kindf(errs.MalformedInput, "top must be between 1 and 50"))
		return
	}
	league := pipeline.Item{pipeline.KeyLeague: req.League}.League()
	r := score.Rates{Home: *req.LambdaHome, Away: *req.LambdaAway}
	m, err := h.lab.ScoreMatrix(r, league, req.Lambda3, req.MaxGoals)
	if err != nil {
		h.fail(w, q, "scorematrix", err)
		return
	}
	writeJSON(w, ScoreMatrixResponse{
		League:      league,
		Summary:     m.Summary(req.Top),
		Predictions: pipeline.PredictionsFromRates(m.Predict()),
	})
}
