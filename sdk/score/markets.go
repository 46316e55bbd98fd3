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

import (
	"fmt"
	"sort"

	"github.com/zintix-labs/footprob/sdk/prob"
)

// Score 單一比分與其機率
type Score struct {
	Home int     `json:"home"`
	Away int     `json:"away"`
	P    float64 `json:"prob"`
}

func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// OneXTwo 主勝 / 和 / 客勝；客勝以 1 - 主 - 和 取得，確保三者總和為 1。
func (m *Matrix) OneXTwo() prob.Triplet {
	var home, draw float64
	for i, row := range m.cells {
		for j, p := range row {
			switch {
			case i > j:
				home += p
			case i == j:
				draw += p
			}
		}
	}
	return prob.Triplet{Home: home, Draw: draw, Away: 1 - home - draw}
}

// Over 總進球數大於 line 的機率，line 通常為 x.5。
func (m *Matrix) Over(line float64) float64 {
	s := 0.0
	for i, row := range m.cells {
		for j, p := range row {
			if float64(i+j) > line {
				s += p
			}
		}
	}
	return s
}

// BTTS 雙方皆進球的機率
func (m *Matrix) BTTS() float64 {
	s := 0.0
	for i := 1; i < len(m.cells); i++ {
		for j := 1; j < len(m.cells[i]); j++ {
			s += m.cells[i][j]
		}
	}
	return s
}

// TopScores 回傳機率最高的 n 個比分。
// 排序：機率遞減，同機率時主隊進球少者優先，再比客隊進球。
func (m *Matrix) TopScores(n int) []Score {
	if n <= 0 {
		return nil
	}
	all := make([]Score, 0, len(m.cells)*len(m.cells))
	for i, row := range m.cells {
		for j, p := range row {
			all = append(all, Score{Home: i, Away: j, P: p})
		}
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].P != all[b].P {
			return all[a].P > all[b].P
		}
		if all[a].Home != all[b].Home {
			return all[a].Home < all[b].Home
		}
		return all[a].Away < all[b].Away
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// ExpectedGoals 截斷後矩陣的期望進球數
func (m *Matrix) ExpectedGoals() (home, away float64) {
	for i, row := range m.cells {
		for j, p := range row {
			home += float64(i) * p
			away += float64(j) * p
		}
	}
	return home, away
}

// Summary 矩陣推導出的市場總覽
type Summary struct {
	Rates    Rates              `json:"rates"`
	Lambda3  float64            `json:"lambda3"`
	MaxGoals int                `json:"max_goals"`
	P1X2     prob.Triplet       `json:"p1x2"`
	Over     map[string]float64 `json:"over"`
	BTTS     float64            `json:"btts"`
	XGHome   float64            `json:"xg_home"`
	XGAway   float64            `json:"xg_away"`
	Top      []Score            `json:"top_scores"`
}

// SummaryLines 預設輸出的大小球盤口
var SummaryLines = []float64{0.5, 1.5, 2.5, 3.5, 4.5}

func (m *Matrix) Summary(top int) Summary {
	over := make(map[string]float64, len(SummaryLines))
	for _, l := range SummaryLines {
		over[fmt.Sprintf("%.1f", l)] = m.Over(l)
	}
	xh, xa := m.ExpectedGoals()
	return Summary{
		Rates:    m.rates,
		Lambda3:  m.lambda3,
		MaxGoals: m.maxGoals,
		P1X2:     m.OneXTwo(),
		Over:     over,
		BTTS:     m.BTTS(),
		XGHome:   xh,
		XGAway:   xa,
		Top:      m.TopScores(top),
	}
}
