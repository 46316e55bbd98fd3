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

package stats

import (
	"sort"

	"github.com/zintix-labs/footprob/pipeline"
)

// 極端機率門檻
const (
	ExtremeHigh = 0.99
	ExtremeLow  = 0.01
)

// Rate 比例的點估計與 95% 信賴區間
type Rate struct {
	Hat float64 `json:"hat" yaml:"hat"`
	CI  CI      `json:"ci" yaml:"ci"`
}

// LeagueAudit 單一聯賽的 O/U 2.5 極端機率計數
type LeagueAudit struct {
	League   string `json:"league" yaml:"league"`
	Count    int    `json:"count" yaml:"count"`
	FinalGE  int    `json:"final_over_ge_0_99" yaml:"final_over_ge_0_99"`
	FinalLE  int    `json:"final_over_le_0_01" yaml:"final_over_le_0_01"`
	RawGE    int    `json:"raw_over_ge_0_99" yaml:"raw_over_ge_0_99"`
	RawLE    int    `json:"raw_over_le_0_01" yaml:"raw_over_le_0_01"`
	FinalExt Rate   `json:"final_extreme" yaml:"final_extreme"` // (FinalGE+FinalLE)/Count
	RawExt   Rate   `json:"raw_extreme" yaml:"raw_extreme"`
}

// AuditReport 整批稽核結果；Leagues 依 Count 由大到小排序。
type AuditReport struct {
	Items   int            `json:"items" yaml:"items"`
	Errors  int            `json:"errors" yaml:"errors"` // 整場失敗，不計入聯賽
	Leagues []*LeagueAudit `json:"leagues" yaml:"leagues"`
	byKey   map[string]*LeagueAudit
	isDone  bool
}

func NewAudit() *AuditReport {
	return &AuditReport{byKey: map[string]*LeagueAudit{}}
}

// Add 記錄一場已處理的比賽
func (a *AuditReport) Add(it pipeline.Item) {
	a.isDone = false
	a.Items++
	if v2 := it.V2(); v2 != nil {
		if _, failed := v2["error"]; failed {
			a.Errors++
			return
		}
	}
	lid := it.League()
	la, ok := a.byKey[lid]
	if !ok {
		la = &LeagueAudit{League: lid}
		a.byKey[lid] = la
	}
	la.Count++
	if final, ok := pipeline.FinalOver(it); ok {
		if final >= ExtremeHigh {
			la.FinalGE++
		}
		if final <= ExtremeLow {
			la.FinalLE++
		}
	}
	if preds, ok := it[pipeline.KeyPredictions].(map[string]any); ok {
		if raw, err := pipeline.ParseBinary(preds, "over_2_5"); err == nil {
			if raw >= ExtremeHigh {
				la.RawGE++
			}
			if raw <= ExtremeLow {
				la.RawLE++
			}
		}
	}
}

// AddAll 記錄整批
func (a *AuditReport) AddAll(items []pipeline.Item) *AuditReport {
	for _, it := range items {
		a.Add(it)
	}
	return a
}

// Done 排序並計算信賴區間；重複呼叫無副作用。
func (a *AuditReport) Done() {
	if a.isDone {
		return
	}
	a.Leagues = a.Leagues[:0]
	for _, la := range a.byKey {
		la.FinalExt.Hat, la.FinalExt.CI = proportionCICP(la.FinalGE+la.FinalLE, la.Count, 0.95)
		la.RawExt.Hat, la.RawExt.CI = proportionCICP(la.RawGE+la.RawLE, la.Count, 0.95)
		a.Leagues = append(a.Leagues, la)
	}
	sort.Slice(a.Leagues, func(i, j int) bool {
		if a.Leagues[i].Count != a.Leagues[j].Count {
			return a.Leagues[i].Count > a.Leagues[j].Count
		}
		return a.Leagues[i].League < a.Leagues[j].League
	})
	a.isDone = true
}
