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

package calib

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/prob"
)

// 擬合時 x 的截斷
const fitEps = 1e-9

// LogisticOptions 梯度下降參數，零值使用預設。
type LogisticOptions struct {
	Epochs int     // 預設 200
	LR     float64 // 預設 0.05
}

func (o LogisticOptions) norm() LogisticOptions {
	if o.Epochs <= 0 {
		o.Epochs = 200
	}
	if !(o.LR > 0) {
		o.LR = 0.05
	}
	return o
}

// FitLogistic 以全批次梯度下降最小化交叉熵，從 a=1, b=0 (identity) 出發。
func FitLogistic(ps []float64, ys []float64, opt LogisticOptions) (*Logistic, error) {
	if err := checkSamples(ps, ys, 2); err != nil {
		return nil, err
	}
	opt = opt.norm()
	xs := make([]float64, len(ps))
	for i, p := range ps {
		xs[i] = Logit(p)
	}
	n := float64(len(xs))
	l := &Logistic{A: 1, B: 0}
	for e := 0; e < opt.Epochs; e++ {
		var ga, gb float64
		for i, x := range xs {
			d := Sigmoid(l.A*x+l.B) - ys[i]
			ga += d * x
			gb += d
		}
		l.A -= opt.LR * ga / n
		l.B -= opt.LR * gb / n
	}
	if err := l.Valid(); err != nil {
		return nil, err
	}
	return l, nil
}

// IsotonicOptions 擬合門檻
type IsotonicOptions struct {
	MinSamples  int // 預設 150
	Interpolate bool
}

// DefaultMinSamples 每個聯賽擬合 isotonic 所需最少樣本
const DefaultMinSamples = 150

// FitIsotonic 以 PAV (pool adjacent violators) 擬合單調遞增的階梯函數。
// 需要至少 MinSamples 筆、兩種類別都出現、且 p 有變異。
func FitIsotonic(ps []float64, ys []float64, opt IsotonicOptions) (*Isotonic, error) {
	minN := opt.MinSamples
	if minN <= 0 {
		minN = DefaultMinSamples
	}
	if err := checkSamples(ps, ys, minN); err != nil {
		return nil, err
	}
	if floats.Min(ys) == floats.Max(ys) {
		return nil, errs.Kindf(errs.MissingInput, "isotonic fit needs both classes")
	}
	xs := make([]float64, len(ps))
	for i, p := range ps {
		xs[i] = prob.Clamp(p, fitEps, 1-fitEps)
	}
	if stat.Variance(xs, nil) <= 0 {
		return nil, errs.Kindf(errs.MissingInput, "isotonic fit needs variation in p")
	}

	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	// 同 x 合併後再做 PAV
	type block struct {
		lo, hi float64 // block 內最小 / 最大 x
		sum, w float64
	}
	blocks := make([]block, 0, len(xs))
	for _, i := range idx {
		x, y := xs[i], ys[i]
		if k := len(blocks) - 1; k >= 0 && blocks[k].hi == x {
			blocks[k].sum += y
			blocks[k].w++
		} else {
			blocks = append(blocks, block{lo: x, hi: x, sum: y, w: 1})
		}
		for len(blocks) > 1 {
			k := len(blocks) - 1
			a, b := blocks[k-1], blocks[k]
			if a.sum/a.w <= b.sum/b.w {
				break
			}
			blocks[k-1] = block{lo: a.lo, hi: b.hi, sum: a.sum + b.sum, w: a.w + b.w}
			blocks = blocks[:k]
		}
	}

	iso := &Isotonic{Interpolate: opt.Interpolate}
	for _, b := range blocks {
		y := prob.Clamp01(b.sum / b.w)
		iso.X = append(iso.X, b.lo)
		iso.Y = append(iso.Y, y)
		if b.hi > b.lo {
			iso.X = append(iso.X, b.hi)
			iso.Y = append(iso.Y, y)
		}
	}
	if err := iso.Valid(); err != nil {
		return nil, err
	}
	return iso, nil
}

func checkSamples(ps, ys []float64, minN int) error {
	if len(ps) != len(ys) {
		return errs.Kindf(errs.MalformedInput, "sample size mismatch: p=%d y=%d", len(ps), len(ys))
	}
	if len(ps) < minN {
		return errs.Kindf(errs.MissingInput, "not enough samples: %d < %d", len(ps), minN)
	}
	for i := range ps {
		if !prob.Finite(ps[i]) {
			return errs.Kindf(errs.MalformedInput, "p[%d] not finite", i)
		}
		if ys[i] != 0 && ys[i] != 1 {
			return errs.Kindf(errs.MalformedInput, "y[%d]=%v must be 0 or 1", i, ys[i])
		}
	}
	return nil
}
