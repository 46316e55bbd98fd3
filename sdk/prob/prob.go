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

// Package prob 定義各階段共用的機率型別與正規化規則。
package prob

import "math"

// Triplet 1X2 三向機率
type Triplet struct {
	Home float64 `json:"home" yaml:"home"`
	Draw float64 `json:"draw" yaml:"draw"`
	Away float64 `json:"away" yaml:"away"`
}

// Binary 二元市場機率，Yes 對應 over / yes。
type Binary struct {
	Yes float64 `json:"yes" yaml:"yes"`
	No  float64 `json:"no"  yaml:"no"`
}

// Uniform 均勻分配的 1X2
var Uniform = Triplet{Home: 1.0 / 3.0, Draw: 1.0 / 3.0, Away: 1.0 / 3.0}

// Clamp01 將 p 截斷至 [0,1]，NaN 視為 0。
func Clamp01(p float64) float64 {
	return Clamp(p, 0, 1)
}

// Clamp 將 p 截斷至 [lo,hi]，NaN 視為 lo。
func Clamp(p, lo, hi float64) float64 {
	if math.IsNaN(p) || p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}

// Finite 回報 v 是否為有限實數
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (t Triplet) Sum() float64 {
	return t.Home + t.Draw + t.Away
}

func (t Triplet) Slice() []float64 {
	return []float64{t.Home, t.Draw, t.Away}
}

// Renorm 先逐項截斷至 [0,1] 再除以總和；總和 <= 0 時回傳 Uniform。
func (t Triplet) Renorm() Triplet {
	c := Triplet{Home: Clamp01(t.Home), Draw: Clamp01(t.Draw), Away: Clamp01(t.Away)}
	s := c.Sum()
	if s <= 0 {
		return Uniform
	}
	return Triplet{Home: c.Home / s, Draw: c.Draw / s, Away: c.Away / s}
}

// NewBinary 以 yes 機率建立互補的 Binary。
func NewBinary(yes float64) Binary {
	y := Clamp01(yes)
	return Binary{Yes: y, No: 1 - y}
}
