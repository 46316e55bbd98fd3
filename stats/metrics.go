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

// Package stats 提供機率輸出的評估工具：Brier、log loss、可靠度分箱，
// 以及各聯賽極端機率的稽核報表。
package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/zintix-labs/footprob/errs"
)

// LogLossEps log loss 計算時的機率下限
const LogLossEps = 1e-15

// 信賴區間
type CI struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Brier 平均平方誤差 mean((p-y)^2)
func Brier(ps, ys []float64) (float64, error) {
	if err := checkPairs(ps, ys); err != nil {
		return 0, err
	}
	d := make([]float64, len(ps))
	floats.SubTo(d, ps, ys)
	return floats.Dot(d, d) / float64(len(d)), nil
}

// LogLoss 平均負對數似然，p 先夾在 [LogLossEps, 1-LogLossEps]
func LogLoss(ps, ys []float64) (float64, error) {
	if err := checkPairs(ps, ys); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, p := range ps {
		p = math.Min(math.Max(p, LogLossEps), 1-LogLossEps)
		sum -= ys[i]*math.Log(p) + (1-ys[i])*math.Log(1-p)
	}
	return sum / float64(len(ps)), nil
}

// Bin 可靠度分箱：[Lo, Hi) 內的樣本數、平均預測與實際命中率
type Bin struct {
	Lo     float64 `json:"lo" yaml:"lo"`
	Hi     float64 `json:"hi" yaml:"hi"`
	Count  int     `json:"count" yaml:"count"`
	MeanP  float64 `json:"mean_p" yaml:"mean_p"`
	Rate   float64 `json:"rate" yaml:"rate"`
	RateCI CI      `json:"rate_ci" yaml:"rate_ci"`
}

// Reliability 以等寬分箱計算可靠度曲線；最後一箱包含 1。
func Reliability(ps, ys []float64, bins int) ([]Bin, error) {
	if err := checkPairs(ps, ys); err != nil {
		return nil, err
	}
	if bins < 1 {
		return nil, errs.Kindf(errs.MalformedInput, "bins must > 0")
	}
	groupP := make([][]float64, bins)
	hits := make([]int, bins)
	for i, p := range ps {
		k := int(p * float64(bins))
		k = min(max(k, 0), bins-1)
		groupP[k] = append(groupP[k], p)
		if ys[i] >= 0.5 {
			hits[k]++
		}
	}
	out := make([]Bin, bins)
	for k := range out {
		n := len(groupP[k])
		b := Bin{
			Lo:    float64(k) / float64(bins),
			Hi:    float64(k+1) / float64(bins),
			Count: n,
		}
		if n > 0 {
			b.MeanP = stat.Mean(groupP[k], nil)
			b.Rate, b.RateCI = proportionCICP(hits[k], n, 0.95)
		} else {
			b.RateCI = CI{0, 1}
		}
		out[k] = b
	}
	return out, nil
}

// ECE 期望校準誤差：各箱 |MeanP - Rate| 依樣本數加權
func ECE(bins []Bin) float64 {
	n, sum := 0, 0.0
	for _, b := range bins {
		n += b.Count
		sum += float64(b.Count) * math.Abs(b.MeanP-b.Rate)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func checkPairs(ps, ys []float64) error {
	if len(ps) == 0 {
		return errs.Kindf(errs.MissingInput, "no samples")
	}
	if len(ps) != len(ys) {
		return errs.Kindf(errs.MalformedInput, "length mismatch: %d probs, %d outcomes", len(ps), len(ys))
	}
	return nil
}

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}
