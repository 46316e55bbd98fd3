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

// Package optimizer 離線擬合：各聯賽的雙變量 Poisson 共享成分 λ3，以及校準模型。
//
// λ3 以最大概似估計；主客隊的邊際進球率（λh、λa）視為已知，只對 λ3 做一維最佳化；
// 參數經 sigmoid 映射到 (0, upper)，再交給 Nelder-Mead。
package optimizer

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/score"
)

const (
	// DefaultMinRows 每個聯賽最少場次，不足者略過
	DefaultMinRows = 30
	// 上界：min(λh,λa) 第 5 百分位的 0.9 倍
	upperQuantile = 0.05
	upperScale    = 0.9
	upperFallback = 0.8
	upperCap      = 2.0
	// λ3 越過單場 min(λh,λa) 時的懲罰係數
	penalty = 1e6
)

// Sample 一場已完賽比賽
type Sample struct {
	League    string      `json:"league_id" yaml:"league_id"`
	GoalsHome int         `json:"goals_home" yaml:"goals_home"`
	GoalsAway int         `json:"goals_away" yaml:"goals_away"`
	Rates     score.Rates `json:"rates" yaml:"rates"`
}

type Options struct {
	MinRows int // <= 0 時為 DefaultMinRows
}

// LeagueFit 單一聯賽的估計結果
type LeagueFit struct {
	League  string  `json:"league" yaml:"league"`
	Lambda3 float64 `json:"lambda3" yaml:"lambda3"`
	NLL     float64 `json:"nll" yaml:"nll"`
	Rows    int     `json:"rows" yaml:"rows"`
	Upper   float64 `json:"upper" yaml:"upper"`
}

// Report 可直接貼進設定檔的 lambda3 表，加上每個聯賽的細節。
type Report struct {
	Lambda3 map[string]float64 `json:"lambda3" yaml:"lambda3"`
	Fits    []LeagueFit        `json:"fits" yaml:"fits"`
	Skipped map[string]int     `json:"skipped" yaml:"skipped"` // 聯賽 -> 場次
	Failed  map[string]string  `json:"failed,omitempty" yaml:"failed,omitempty"`
	MinRows int                `json:"min_rows" yaml:"min_rows"`
}

// FitLambda3 依聯賽分組估計 λ3。
// λ 非正或非有限、進球為負的列會先被剔除；剔除後沒有任何資料時回傳錯誤。
// 單一聯賽最佳化失敗只記錄在 Failed，不影響其他聯賽。
func FitLambda3(samples []Sample, opt Options) (*Report, error) {
	if opt.MinRows <= 0 {
		opt.MinRows = DefaultMinRows
	}
	groups := map[string][]Sample{}
	for _, s := range samples {
		if !validSample(s) {
			continue
		}
		lg := strings.TrimSpace(s.League)
		groups[lg] = append(groups[lg], s)
	}
	if len(groups) == 0 {
		return nil, errs.Kindf(errs.MissingInput, "no valid samples")
	}

	leagues := make([]string, 0, len(groups))
	for lg := range groups {
		leagues = append(leagues, lg)
	}
	sort.Strings(leagues)

	rep := &Report{
		Lambda3: map[string]float64{},
		Skipped: map[string]int{},
		Failed:  map[string]string{},
		MinRows: opt.MinRows,
	}
	for _, lg := range leagues {
		rows := groups[lg]
		if len(rows) < opt.MinRows {
			rep.Skipped[lg] = len(rows)
			continue
		}
		fit, err := fitLeague(rows)
		if err != nil {
			rep.Failed[lg] = err.Error()
			continue
		}
		fit.League = lg
		rep.Fits = append(rep.Fits, fit)
		rep.Lambda3[lg] = fit.Lambda3
	}
	return rep, nil
}

func validSample(s Sample) bool {
	ok := func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }
	return ok(s.Rates.Home) && ok(s.Rates.Away) && s.GoalsHome >= 0 && s.GoalsAway >= 0
}

// Upper λ3 的搜尋上界
func Upper(rows []Sample) float64 {
	mins := make([]float64, len(rows))
	for i, r := range rows {
		mins[i] = math.Min(r.Rates.Home, r.Rates.Away)
	}
	up := 0.0
	if len(mins) > 0 {
		sort.Float64s(mins)
		up = stat.Quantile(upperQuantile, stat.LinInterp, mins, nil) * upperScale
	}
	if math.IsNaN(up) || math.IsInf(up, 0) || up <= score.Eps {
		up = upperFallback
	}
	return math.Max(score.Eps, math.Min(up, upperCap))
}

// NLL 給定 λ3 的負對數概似
func NLL(rows []Sample, lambda3 float64) float64 {
	l3 := math.Max(lambda3, 0)
	s := 0.0
	for _, r := range rows {
		safeMin := math.Min(r.Rates.Home, r.Rates.Away) - 1e-9
		if l3 >= safeMin {
			s += penalty * (l3 - safeMin + 1e-6)
			continue
		}
		s -= math.Max(score.LogPMF(r.Rates, l3, r.GoalsHome, r.GoalsAway), math.Log(1e-300))
	}
	return s
}

func fitLeague(rows []Sample) (LeagueFit, error) {
	upper := Upper(rows)
	toL3 := func(theta float64) float64 { return upper / (1 + math.Exp(-theta)) }

	x0 := math.Min(0.10, upper*0.5)
	theta0 := math.Log(x0 / (upper - x0))

	p := optimize.Problem{
		Func: func(x []float64) float64 { return NLL(rows, toL3(x[0])) },
	}
	settings := &optimize.Settings{
		MajorIterations: 500,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 50,
		},
	}
	res, err := optimize.Minimize(p, []float64{theta0}, settings, &optimize.NelderMead{})
	if err != nil {
		return LeagueFit{}, errs.WrapKind(err, errs.NumericalDegeneracy, "lambda3 optimization failed")
	}
	l3 := round4(toL3(res.X[0]))
	// 邊界 λ3 = 0 無法由 sigmoid 取得，另外比較
	if nll0 := NLL(rows, 0); nll0 <= res.F {
		l3 = 0
	}
	return LeagueFit{Lambda3: l3, NLL: NLL(rows, l3), Rows: len(rows), Upper: upper}, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
