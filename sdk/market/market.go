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

// Package market 將莊家小數賠率轉為隱含機率。
//
// 轉換刻意有損：非零機率會先截斷到 [Min,Max] 再正規化，
// 避免單一極端賠率把融合結果推到 0 或 1。
package market

import (
	"math"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/prob"
)

const (
	DefaultMin = 0.02
	DefaultMax = 0.98
)

// Odds1X2 小數賠率，0 代表未報價
type Odds1X2 struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// OddsBinary 二元市場小數賠率（over/under 或 yes/no），0 代表未報價
type OddsBinary struct {
	Yes float64 `json:"yes"`
	No  float64 `json:"no"`
}

// Normalizer 隱含機率正規化器
type Normalizer struct {
	Min float64
	Max float64
}

// Default 預設截斷範圍 [0.02, 0.98]
var Default = Normalizer{Min: DefaultMin, Max: DefaultMax}

// New 建立自訂截斷範圍的 Normalizer，需滿足 0 <= lo < hi <= 1。
func New(lo, hi float64) (Normalizer, error) {
	if !prob.Finite(lo) || !prob.Finite(hi) || lo < 0 || hi > 1 || lo >= hi {
		return Default, errs.Kindf(errs.Config, "invalid implied clamp [%v,%v]", lo, hi)
	}
	return Normalizer{Min: lo, Max: hi}, nil
}

// Quote 正規化結果
type Quote struct {
	P         []float64 // 正規化後機率，未報價時全為 0
	Overround float64   // 原始隱含機率總和 - 1
	Quoted    bool      // 至少一個選項有效
}

// Normalize 將一組小數賠率轉為正規化的隱含機率。
//   - odds <= 1 或非有限值視為未報價（隱含機率 0）
//   - 原始總和為 0 時回傳全 0（無市場）
//   - 非零值截斷至 [Min,Max] 後除以截斷後總和
func (n Normalizer) Normalize(odds ...float64) Quote {
	raw := make([]float64, len(odds))
	s := 0.0
	for i, o := range odds {
		if prob.Finite(o) && o > 1 {
			raw[i] = 1 / o
			s += raw[i]
		}
	}
	if s <= 0 {
		return Quote{P: raw}
	}
	q := Quote{P: make([]float64, len(odds)), Overround: s - 1, Quoted: true}
	cs := 0.0
	for i, r := range raw {
		if r > 0 {
			q.P[i] = math.Min(math.Max(r, n.Min), n.Max)
			cs += q.P[i]
		}
	}
	if cs <= 0 {
		for i, r := range raw {
			q.P[i] = r / s
		}
		return q
	}
	for i := range q.P {
		q.P[i] /= cs
	}
	return q
}

// Triplet 1X2 隱含機率；未報價時回傳零值與 false。
func (n Normalizer) Triplet(o Odds1X2) (prob.Triplet, Quote) {
	q := n.Normalize(o.Home, o.Draw, o.Away)
	return prob.Triplet{Home: q.P[0], Draw: q.P[1], Away: q.P[2]}, q
}

// Binary 二元市場隱含機率
func (n Normalizer) Binary(o OddsBinary) (prob.Binary, Quote) {
	q := n.Normalize(o.Yes, o.No)
	return prob.Binary{Yes: q.P[0], No: q.P[1]}, q
}
