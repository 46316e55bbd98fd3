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

// Package calib 提供事後機率校準：Platt 式 logistic 與 isotonic 階梯函數，
// 以及對應的離線擬合。套用失敗時一律退回 identity，不向上拋錯。
package calib

import (
	"fmt"
	"math"
	"sort"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/prob"
)

// PEps logit 前的截斷
const PEps = 1e-6

const (
	MethodLogistic = "logistic"
	MethodIsotonic = "isotonic"
)

// Model 單一二元市場的校準模型
type Model interface {
	Method() string
	Apply(p float64) (float64, error)
	Valid() error
}

// ============================================================
// ** Logistic **
// ============================================================

// Logistic q = sigmoid(A·logit(p) + B)
type Logistic struct {
	A float64
	B float64
}

func (l *Logistic) Method() string { return MethodLogistic }

func (l *Logistic) Valid() error {
	if !prob.Finite(l.A) || !prob.Finite(l.B) {
		return errs.Kindf(errs.NumericalDegeneracy, "logistic params not finite: a=%v b=%v", l.A, l.B)
	}
	return nil
}

func (l *Logistic) Apply(p float64) (float64, error) {
	if err := l.Valid(); err != nil {
		return p, err
	}
	q := Sigmoid(l.A*Logit(p) + l.B)
	if !prob.Finite(q) {
		return p, errs.Kindf(errs.NumericalDegeneracy, "logistic output not finite")
	}
	return q, nil
}

// Logit p 先截斷至 [PEps, 1-PEps]
func Logit(p float64) float64 {
	p = prob.Clamp(p, PEps, 1-PEps)
	return math.Log(p / (1 - p))
}

func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// ============================================================
// ** Isotonic **
// ============================================================

// Isotonic 單調遞增的階梯函數，X 嚴格遞增、Y 非遞減且落在 [0,1]。
// Interpolate 為 true 時在相鄰斷點間線性內插。
type Isotonic struct {
	X           []float64
	Y           []float64
	Interpolate bool
}

func (iso *Isotonic) Method() string { return MethodIsotonic }

func (iso *Isotonic) Valid() error {
	if len(iso.X) == 0 || len(iso.X) != len(iso.Y) {
		return errs.Kindf(errs.MalformedInput, "isotonic table size mismatch: x=%d y=%d", len(iso.X), len(iso.Y))
	}
	for i := range iso.X {
		if !prob.Finite(iso.X[i]) || !prob.Finite(iso.Y[i]) {
			return errs.Kindf(errs.NumericalDegeneracy, "isotonic breakpoint %d not finite", i)
		}
		if iso.Y[i] < 0 || iso.Y[i] > 1 {
			return errs.Kindf(errs.MalformedInput, "isotonic y[%d]=%v out of [0,1]", i, iso.Y[i])
		}
		if i > 0 {
			if iso.X[i] <= iso.X[i-1] {
				return errs.Kindf(errs.MalformedInput, "isotonic x not strictly increasing at %d", i)
			}
			if iso.Y[i] < iso.Y[i-1] {
				return errs.Kindf(errs.MalformedInput, "isotonic y decreasing at %d", i)
			}
		}
	}
	return nil
}

// Apply p 先截斷至 [0,1]，再截斷到觀測範圍 [X0, Xn]。
func (iso *Isotonic) Apply(p float64) (float64, error) {
	if err := iso.Valid(); err != nil {
		return p, err
	}
	n := len(iso.X)
	p = prob.Clamp(prob.Clamp01(p), iso.X[0], iso.X[n-1])
	// 最後一個 X[k] <= p
	k := sort.Search(n, func(i int) bool { return iso.X[i] > p }) - 1
	if k < 0 {
		k = 0
	}
	if !iso.Interpolate || k == n-1 || iso.X[k] == p {
		return iso.Y[k], nil
	}
	t := (p - iso.X[k]) / (iso.X[k+1] - iso.X[k])
	return iso.Y[k] + t*(iso.Y[k+1]-iso.Y[k]), nil
}

// ============================================================
// ** Calibrate **
// ============================================================

// Source 校準值的來源
type Source string

const (
	SourceModel    Source = "model"
	SourceIdentity Source = "identity" // 無模型
	SourceFallback Source = "fallback" // 模型套用失敗
)

// Result 校準結果，Err 只在 SourceFallback 時非 nil。
type Result struct {
	P      float64
	Source Source
	Err    error
}

// Calibrate 套用校準模型。m 為 nil 時回傳 clamp(p,0,1)；
// 套用過程發生錯誤或 panic 時同樣退回 identity 並把原因放在 Err。
func Calibrate(m Model, p float64) (res Result) {
	identity := prob.Clamp01(p)
	if m == nil {
		return Result{P: identity, Source: SourceIdentity}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{P: identity, Source: SourceFallback,
				Err: errs.Kindf(errs.NumericalDegeneracy, "calibration panic: %v", r)}
		}
	}()
	q, err := m.Apply(identity)
	if err != nil {
		return Result{P: identity, Source: SourceFallback, Err: err}
	}
	if !prob.Finite(q) {
		return Result{P: identity, Source: SourceFallback,
			Err: errs.Kindf(errs.NumericalDegeneracy, "calibrated value not finite")}
	}
	return Result{P: prob.Clamp01(q), Source: SourceModel}
}

// Describe 簡短描述模型，供輸出標註
func Describe(m Model) string {
	switch v := m.(type) {
	case nil:
		return string(SourceIdentity)
	case *Logistic:
		return fmt.Sprintf("logistic(a=%.4f,b=%.4f)", v.A, v.B)
	case *Isotonic:
		return fmt.Sprintf("isotonic(n=%d)", len(v.X))
	default:
		return m.Method()
	}
}
