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

package score

import "github.com/zintix-labs/footprob/sdk/prob"

// Winner 類別編碼：0=主勝 1=和 2=客勝
const (
	ClassHome = 0
	ClassDraw = 1
	ClassAway = 2
)

// Prediction 由進球率直接產生的原始預測，欄位對應 pipeline 的 predictions 物件。
type Prediction struct {
	WinnerClass  int
	WinnerProb   float64
	P1X2         prob.Triplet
	Over15       float64
	Over25       float64
	BTTS         float64
	DoubleChance DoubleChance
	Top3         []Score
}

// DoubleChance 雙勝彩：1X / X2 / 12
type DoubleChance struct {
	HomeOrDraw float64 `json:"1x"`
	DrawOrAway float64 `json:"x2"`
	HomeOrAway float64 `json:"12"`
}

// Predict 以進球率與 λ3 產生一場比賽的原始預測。
func Predict(r Rates, lambda3 float64, maxGoals int) Prediction {
	return New(r, lambda3, maxGoals).Predict()
}

// Predict 由既有矩陣產生原始預測
func (m *Matrix) Predict() Prediction {
	p := m.OneXTwo()
	class, pr := WinnerOf(p)
	return Prediction{
		WinnerClass: class,
		WinnerProb:  pr,
		P1X2:        p,
		Over15:      m.Over(1.5),
		Over25:      m.Over(2.5),
		BTTS:        m.BTTS(),
		DoubleChance: DoubleChance{
			HomeOrDraw: p.Home + p.Draw,
			DrawOrAway: p.Draw + p.Away,
			HomeOrAway: p.Home + p.Away,
		},
		Top3: m.TopScores(3),
	}
}

// WinnerOf 取最大者；平手時主勝優先，其次客勝，最後才是和局。
func WinnerOf(p prob.Triplet) (class int, pr float64) {
	switch {
	case p.Home >= p.Draw && p.Home >= p.Away:
		return ClassHome, p.Home
	case p.Away >= p.Home && p.Away >= p.Draw:
		return ClassAway, p.Away
	default:
		return ClassDraw, p.Draw
	}
}
