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

package pipeline

import (
	"github.com/zintix-labs/footprob/sdk/score"
)

// PredictionsFromRates 將比分矩陣的預測轉為 predictions 物件格式。
func PredictionsFromRates(pr score.Prediction) map[string]any {
	top3 := make([]any, 0, len(pr.Top3))
	for _, s := range pr.Top3 {
		top3 = append(top3, map[string]any{"score": s.String(), "prob": s.P})
	}
	cs := map[string]any{"top3": top3}
	if len(pr.Top3) > 0 {
		cs["best"] = pr.Top3[0].String()
	}
	return map[string]any{
		"winner": map[string]any{
			"class": float64(pr.WinnerClass),
			"prob":  pr.WinnerProb,
			"home":  pr.P1X2.Home,
			"draw":  pr.P1X2.Draw,
			"away":  pr.P1X2.Away,
		},
		"over_2_5": map[string]any{
			"class": boolClass(pr.Over25), "prob": pr.Over25,
		},
		"over_1_5": map[string]any{
			"class": boolClass(pr.Over15), "prob": pr.Over15,
		},
		"btts": map[string]any{
			"class": boolClass(pr.BTTS), "prob": pr.BTTS,
		},
		"double_chance": map[string]any{
			"1x": pr.DoubleChance.HomeOrDraw,
			"x2": pr.DoubleChance.DrawOrAway,
			"12": pr.DoubleChance.HomeOrAway,
		},
		"correct_score": cs,
	}
}

func boolClass(p float64) float64 {
	if p >= 0.5 {
		return 1
	}
	return 0
}

// fromRates 物件沒有 predictions 但帶有 lambda_home / lambda_away 時，
// 以聯賽 λ3 建立比分矩陣並推導原始預測。
func (p *Pipeline) fromRates(it Item, league string) (preds, info map[string]any, ok bool) {
	lh, okh := num(it[KeyLambdaHome])
	la, oka := num(it[KeyLambdaAway])
	if !okh || !oka {
		return nil, nil, false
	}
	cfg := p.snap.Config
	r := score.Rates{Home: lh, Away: la}
	l3 := score.ClampLambda3(r, cfg.Lambda3For(league))
	pr := score.Predict(r, l3, cfg.Pipeline.MaxGoals)
	info = map[string]any{
		KeyLambdaHome: lh,
		KeyLambdaAway: la,
		"lambda3":     l3,
		"max_goals":   cfg.Pipeline.MaxGoals,
	}
	return PredictionsFromRates(pr), info, true
}
