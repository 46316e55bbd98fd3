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

// Package score 建構比分機率矩陣（獨立 Poisson 與共享成分的雙變量 Poisson），
// 並由矩陣推導 1X2、大小球、BTTS 與正確比分等市場機率。
package score

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// Eps 進球率的下限，避免 log(0)
	Eps = 1e-6
	// DefaultMaxGoals 單隊最大進球截斷
	DefaultMaxGoals = 10
)

// Rates 主客隊期望進球數
type Rates struct {
	Home float64 `json:"lambda_home" yaml:"lambda_home"`
	Away float64 `json:"lambda_away" yaml:"lambda_away"`
}

// Matrix 截斷後重新正規化的比分分佈，cells[i][j] = P(主 i 球, 客 j 球)。
type Matrix struct {
	rates    Rates
	lambda3  float64
	maxGoals int
	cells    [][]float64
}

// NewIndependent 以獨立 Poisson 建構矩陣
func NewIndependent(r Rates, maxGoals int) *Matrix {
	r = r.sanitize()
	n := normMaxGoals(maxGoals) + 1
	ph := distuv.Poisson{Lambda: r.Home}
	pa := distuv.Poisson{Lambda: r.Away}
	logp := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		lh := ph.LogProb(float64(i))
		for j := 0; j < n; j++ {
			logp = append(logp, lh+pa.LogProb(float64(j)))
		}
	}
	return build(r, 0, n, logp)
}

// NewBivariate 以雙變量 Poisson 建構矩陣：
// X = X1 + X3, Y = X2 + X3，X1~Pois(λh-λ3)、X2~Pois(λa-λ3)、X3~Pois(λ3)。
// λ3 = 0 時與 NewIndependent 等價。
func NewBivariate(r Rates, lambda3 float64, maxGoals int) *Matrix {
	r = r.sanitize()
	bv := newBivar(r, lambda3)
	n := normMaxGoals(maxGoals) + 1

	terms := make([]float64, 0, n)
	logp := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var lp float64
			lp, terms = bv.logProb(i, j, terms)
			logp = append(logp, lp)
		}
	}
	return build(r, bv.l3, n, logp)
}

// LogPMF 未截斷的雙變量 Poisson 對數機率 log P(X=i, Y=j)，λ3 先經過 ClampLambda3。
func LogPMF(r Rates, lambda3 float64, i, j int) float64 {
	if i < 0 || j < 0 {
		return math.Inf(-1)
	}
	lp, _ := newBivar(r.sanitize(), lambda3).logProb(i, j, nil)
	return lp
}

type bivar struct {
	l3                  float64
	logL1, logL2, logL3 float64
	base                float64
}

func newBivar(r Rates, lambda3 float64) bivar {
	l3 := ClampLambda3(r, lambda3)
	l1 := math.Max(r.Home-l3, Eps)
	l2 := math.Max(r.Away-l3, Eps)
	b := bivar{
		l3:    l3,
		logL1: math.Log(l1),
		logL2: math.Log(l2),
		logL3: math.Inf(-1),
		base:  -(l1 + l2 + l3),
	}
	if l3 > 0 {
		b.logL3 = math.Log(l3)
	}
	return b
}

// logProb 以 log-sum-exp 加總共享成分 k；terms 為可重用的暫存。
func (b bivar) logProb(i, j int, terms []float64) (float64, []float64) {
	kmax := min(i, j)
	if b.l3 == 0 {
		// 只剩 k=0 一項
		kmax = 0
	}
	terms = terms[:0]
	for k := 0; k <= kmax; k++ {
		t := float64(i-k)*b.logL1 - lgamma(i-k+1) +
			float64(j-k)*b.logL2 - lgamma(j-k+1)
		if k > 0 {
			t += float64(k)*b.logL3 - lgamma(k+1)
		}
		terms = append(terms, t)
	}
	return b.base + floats.LogSumExp(terms), terms
}

// New 依 λ3 決定使用哪一種模型
func New(r Rates, lambda3 float64, maxGoals int) *Matrix {
	if lambda3 > 0 {
		return NewBivariate(r, lambda3, maxGoals)
	}
	return NewIndependent(r, maxGoals)
}

// ClampLambda3 將 λ3 限制在 [0, min(λh,λa)-ε]。
func ClampLambda3(r Rates, lambda3 float64) float64 {
	r = r.sanitize()
	if !(lambda3 > 0) || math.IsInf(lambda3, 0) {
		return 0
	}
	hi := math.Max(math.Min(r.Home, r.Away)-Eps, 0)
	return math.Min(lambda3, hi)
}

// 在 log 空間除以截斷總和，避免大 λ 時 underflow。
func build(r Rates, l3 float64, n int, logp []float64) *Matrix {
	logZ := floats.LogSumExp(logp)
	cells := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = math.Exp(logp[i*n+j] - logZ)
		}
		cells[i] = row
	}
	return &Matrix{rates: r, lambda3: l3, maxGoals: n - 1, cells: cells}
}

func (r Rates) sanitize() Rates {
	return Rates{Home: floorRate(r.Home), Away: floorRate(r.Away)}
}

func floorRate(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < Eps {
		return Eps
	}
	return v
}

func normMaxGoals(m int) int {
	if m <= 0 {
		return DefaultMaxGoals
	}
	return m
}

func lgamma(n int) float64 {
	v, _ := math.Lgamma(float64(n))
	return v
}

// Cell 回傳 P(主 i 球, 客 j 球)，超出截斷範圍回傳 0。
func (m *Matrix) Cell(i, j int) float64 {
	if i < 0 || j < 0 || i > m.maxGoals || j > m.maxGoals {
		return 0
	}
	return m.cells[i][j]
}

func (m *Matrix) MaxGoals() int { return m.maxGoals }

func (m *Matrix) Rates() Rates { return m.rates }

func (m *Matrix) Lambda3() float64 { return m.lambda3 }

// Total 所有格子的總和，正常情況下為 1（浮點誤差內）。
func (m *Matrix) Total() float64 {
	s := 0.0
	for _, row := range m.cells {
		s += floats.Sum(row)
	}
	return s
}
