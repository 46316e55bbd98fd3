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

package optimizer

import (
	"math"
	"sort"
	"strings"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/pipeline"
	"github.com/zintix-labs/footprob/sdk/calib"
)

// CalibOptions 校準擬合參數
type CalibOptions struct {
	Method      string // isotonic（預設）或 logistic
	MinSamples  int    // <= 0 時為 calib.DefaultMinSamples
	Interpolate bool
	Logistic    calib.LogisticOptions
}

// CalibFit 一組 (聯賽, 市場) 的擬合結果，檔名為 League_Market
type CalibFit struct {
	League   string         `json:"league" yaml:"league"`
	Market   string         `json:"market" yaml:"market"`
	Artifact calib.Artifact `json:"artifact" yaml:"artifact"`
}

// FileBase 校準目錄中的檔名（不含副檔名）
func (f CalibFit) FileBase() string { return f.League + "_" + f.Market }

// CalibReport 擬合摘要；Skipped 為 "聯賽_市場" -> 原因
type CalibReport struct {
	Method     string            `json:"method" yaml:"method"`
	MinSamples int               `json:"min_samples" yaml:"min_samples"`
	Fits       []CalibFit        `json:"fits" yaml:"fits"`
	Skipped    map[string]string `json:"skipped" yaml:"skipped"`
}

type binaryColumn struct {
	market string
	p      func(Row) float64
	y      func(Row) int
}

var binaryColumns = []binaryColumn{
	{pipeline.CalibOU25, func(r Row) float64 { return r.POver25 }, func(r Row) int { return r.Over25 }},
	{pipeline.CalibBTTS, func(r Row) float64 { return r.PBTTS }, func(r Row) int { return r.BTTS }},
}

// FitCalibrators 依聯賽擬合 ou25、btts 與 1x2 one-vs-rest 校準。
// 1x2 只在主、和、客三個模型都成功時輸出。
func FitCalibrators(rows []Row, opt CalibOptions) (*CalibReport, error) {
	opt.Method = strings.ToLower(strings.TrimSpace(opt.Method))
	switch opt.Method {
	case "":
		opt.Method = calib.MethodIsotonic
	case calib.MethodIsotonic, calib.MethodLogistic:
	default:
		return nil, errs.Kindf(errs.Config, "unknown calibration method %q", opt.Method)
	}
	if opt.MinSamples <= 0 {
		opt.MinSamples = calib.DefaultMinSamples
	}

	groups := map[string][]Row{}
	for _, r := range rows {
		groups[r.League] = append(groups[r.League], r)
	}
	if len(groups) == 0 {
		return nil, errs.Kindf(errs.MissingInput, "no rows")
	}
	leagues := make([]string, 0, len(groups))
	for lg := range groups {
		leagues = append(leagues, lg)
	}
	sort.Strings(leagues)

	rep := &CalibReport{Method: opt.Method, MinSamples: opt.MinSamples, Skipped: map[string]string{}}
	for _, lg := range leagues {
		grp := groups[lg]
		for _, bc := range binaryColumns {
			ps, ys := collect(grp, bc.p, bc.y)
			a, err := fitOne(ps, ys, opt)
			if err != nil {
				rep.Skipped[lg+"_"+bc.market] = err.Error()
				continue
			}
			rep.Fits = append(rep.Fits, CalibFit{League: lg, Market: bc.market, Artifact: a})
		}
		rep.fit1X2(lg, grp, opt)
	}
	return rep, nil
}

func (rep *CalibReport) fit1X2(lg string, grp []Row, opt CalibOptions) {
	sides := []struct {
		market string
		p      func(Row) float64
		class  int
	}{
		{pipeline.Calib1X2Home, func(r Row) float64 { return r.PHome }, ResultHome},
		{pipeline.Calib1X2Draw, func(r Row) float64 { return r.PDraw }, ResultDraw},
		{pipeline.Calib1X2Away, func(r Row) float64 { return r.PAway }, ResultAway},
	}
	fits := make([]CalibFit, 0, len(sides))
	for _, s := range sides {
		y := func(r Row) int {
			if r.Result == ResultUnknown {
				return -1
			}
			return b2i(r.Result == s.class)
		}
		ps, ys := collect(grp, s.p, y)
		a, err := fitOne(ps, ys, opt)
		if err != nil {
			rep.Skipped[lg+"_1x2"] = s.market + ": " + err.Error()
			return
		}
		fits = append(fits, CalibFit{League: lg, Market: s.market, Artifact: a})
	}
	rep.Fits = append(rep.Fits, fits...)
}

// collect 只保留 p 在 [0,1] 且有結果的列
func collect(rows []Row, p func(Row) float64, y func(Row) int) ([]float64, []float64) {
	ps := make([]float64, 0, len(rows))
	ys := make([]float64, 0, len(rows))
	for _, r := range rows {
		pv, yv := p(r), y(r)
		if math.IsNaN(pv) || pv < 0 || pv > 1 || yv < 0 {
			continue
		}
		ps = append(ps, pv)
		ys = append(ys, float64(yv))
	}
	return ps, ys
}

func fitOne(ps, ys []float64, opt CalibOptions) (calib.Artifact, error) {
	if len(ps) < opt.MinSamples {
		return calib.Artifact{}, errs.Kindf(errs.MissingInput, "not enough samples: %d < %d", len(ps), opt.MinSamples)
	}
	var m calib.Model
	var err error
	switch opt.Method {
	case calib.MethodLogistic:
		m, err = calib.FitLogistic(ps, ys, opt.Logistic)
	default:
		m, err = calib.FitIsotonic(ps, ys, calib.IsotonicOptions{MinSamples: opt.MinSamples, Interpolate: opt.Interpolate})
	}
	if err != nil {
		return calib.Artifact{}, err
	}
	return calib.ArtifactOf(m, len(ps)), nil
}
