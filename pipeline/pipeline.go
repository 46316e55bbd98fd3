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

// Package pipeline 後處理流程：對每場比賽的每個市場依序執行
// RAW → CALIBRATED → BLENDED → FINAL，結果寫入物件的 "v2" 欄位。
//
// 單一市場失敗不影響其他市場與其他比賽：輸入缺漏或格式錯誤時輸出預設值並附上 "error"，
// 非預期的 panic 只留下 "error" 標註。
package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/blend"
	"github.com/zintix-labs/footprob/sdk/calib"
	"github.com/zintix-labs/footprob/sdk/market"
	"github.com/zintix-labs/footprob/sdk/prob"
	"github.com/zintix-labs/footprob/setting"
)

// v2 內的市場鍵
const (
	OutP1X2 = "p1x2"
	OutOU25 = "ou25"
	OutBTTS = "btts"
)

// 校準目錄中的市場鍵
const (
	CalibOU25     = "ou25"
	CalibBTTS     = "btts"
	Calib1X2Home  = "1x2_home"
	Calib1X2Draw  = "1x2_draw"
	Calib1X2Away  = "1x2_away"
	annotationKey = "error"
)

// Calibrations 依 (聯賽, 市場) 查詢校準模型；找不到回傳 nil。
type Calibrations interface {
	Lookup(league, market string) calib.Model
}

// Snapshot 一個批次使用的唯讀設定。批次開始時建立，過程中不可修改。
type Snapshot struct {
	Config *setting.Config
	Calib  Calibrations
	Norm   market.Normalizer
}

// NewSnapshot 由設定與校準目錄建立快照；cfg 為 nil 時使用預設設定。
func NewSnapshot(cfg *setting.Config, cal Calibrations) *Snapshot {
	if cfg == nil {
		cfg = setting.Default()
	}
	return &Snapshot{Config: cfg, Calib: cal, Norm: cfg.Normalizer()}
}

func (s *Snapshot) lookup(league, key string) calib.Model {
	if s.Calib == nil {
		return nil
	}
	return s.Calib.Lookup(league, key)
}

// binaryMarket 二元市場在各階段使用的鍵
type binaryMarket struct {
	out      string // v2 內的鍵
	pred     string // predictions 內的鍵
	odds     string // odds 內的鍵
	yes, no  string // 賠率與輸出的兩側名稱
	calibKey string
	weight   string
}

var (
	ou25Market = binaryMarket{out: OutOU25, pred: "over_2_5", odds: "over_2_5", yes: "over", no: "under", calibKey: CalibOU25, weight: blend.MarketO25}
	bttsMarket = binaryMarket{out: OutBTTS, pred: "btts", odds: "btts", yes: "yes", no: "no", calibKey: CalibBTTS, weight: blend.MarketBTS}
)

// Report 單場處理摘要
type Report struct {
	Fixture  string   `json:"fixture,omitempty"`
	League   string   `json:"league"`
	Skipped  bool     `json:"skipped,omitempty"`
	Failed   []string `json:"failed,omitempty"`   // 帶 error 標註的市場
	Panicked []string `json:"panicked,omitempty"` // 其中因 panic 而失敗者
}

// OK 沒有任何市場失敗
func (r Report) OK() bool { return len(r.Failed) == 0 }

type Pipeline struct {
	snap *Snapshot
	log  *slog.Logger
}

// New 建立流程；log 為 nil 時不輸出。
func New(snap *Snapshot, log *slog.Logger) *Pipeline {
	if snap == nil {
		snap = NewSnapshot(nil, nil)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{snap: snap, log: log}
}

func (p *Pipeline) Snapshot() *Snapshot { return p.snap }

// Process 處理單場比賽，直接在 it 上寫入 v2 並回傳。
// 停用時（pipeline.enabled=false）物件原樣返回。
func (p *Pipeline) Process(it Item) (Item, Report) {
	if it == nil {
		it = Item{}
	}
	rep := Report{Fixture: it.Fixture(), League: it.League()}
	if !p.snap.Config.Pipeline.Enabled {
		rep.Skipped = true
		return it, rep
	}

	preds := it.section(KeyPredictions)
	odds := it.section(KeyOdds)
	v2 := it.V2()
	if v2 == nil {
		v2 = map[string]any{}
	}
	if preds == nil {
		if derived, bivar, ok := p.fromRates(it, rep.League); ok {
			preds = derived
			v2["bivar"] = bivar
		}
	}
	if preds == nil {
		preds = map[string]any{}
	}

	steps := []struct {
		key string
		fn  func() (map[string]any, error)
	}{
		{OutP1X2, func() (map[string]any, error) { return p.oneXTwo(rep.League, preds, odds) }},
		{OutOU25, func() (map[string]any, error) { return p.binary(ou25Market, rep.League, preds, odds) }},
		{OutBTTS, func() (map[string]any, error) { return p.binary(bttsMarket, rep.League, preds, odds) }},
	}
	for _, s := range steps {
		out, panicked, err := p.guard(s.fn)
		if err != nil {
			rep.Failed = append(rep.Failed, s.key)
			if panicked {
				rep.Panicked = append(rep.Panicked, s.key)
			}
			p.log.Warn("postprocess market degraded",
				slog.String("fixture", rep.Fixture),
				slog.String("league", rep.League),
				slog.String("market", s.key),
				slog.Any("err", err))
		}
		v2[s.key] = out
	}
	it[KeyV2] = v2
	return it, rep
}

// guard 執行單一市場並攔截 panic
func (p *Pipeline) guard(fn func() (map[string]any, error)) (out map[string]any, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.Kindf(errs.ItemFailure, "panic: %v", r)
			out = map[string]any{annotationKey: annotate(err)}
			panicked = true
		}
	}()
	out, err = fn()
	if err != nil {
		if out == nil {
			out = map[string]any{}
		}
		out[annotationKey] = annotate(err)
	}
	return out, false, err
}

func annotate(err error) string {
	if e, ok := errs.AsErr(err); ok && e.Kind != errs.KindUnknown {
		return e.Kind.String() + ": " + e.Message
	}
	return err.Error()
}

// ============================================================
// ** 1X2 **
// ============================================================

func (p *Pipeline) oneXTwo(league string, preds, odds map[string]any) (map[string]any, error) {
	w, perr := ParseWinner(preds)
	model := w.Triplet()

	out := map[string]any{"model": tripletMap(model)}

	cal := model
	if p.snap.Config.Pipeline.Calibrate1X2 {
		if c, ok := p.calibrate1X2(league, model); ok {
			cal = c
			out["calibrated"] = tripletMap(cal)
		}
	}

	mkt, q := p.snap.Norm.Triplet(ParseOdds1X2(odds))
	weight, src := p.snap.Config.Blend.Resolve(league, blend.Market1X2)
	final := blend.Triplet(cal, mkt, weight).Renorm()

	out["final"] = tripletMap(final)
	out["weight"] = weight
	out["weight_source"] = string(src)
	if q.Quoted {
		out["market"] = tripletMap(mkt)
		out["overround"] = q.Overround
	}
	return out, perr
}

// calibrate1X2 one-vs-rest：三個模型都存在才套用，之後重新正規化。
func (p *Pipeline) calibrate1X2(league string, model prob.Triplet) (prob.Triplet, bool) {
	mh := p.snap.lookup(league, Calib1X2Home)
	md := p.snap.lookup(league, Calib1X2Draw)
	ma := p.snap.lookup(league, Calib1X2Away)
	if mh == nil || md == nil || ma == nil {
		return model, false
	}
	rh, rd, ra := calib.Calibrate(mh, model.Home), calib.Calibrate(md, model.Draw), calib.Calibrate(ma, model.Away)
	for _, r := range []calib.Result{rh, rd, ra} {
		if r.Err != nil {
			p.log.Warn("1x2 calibration fallback", slog.String("league", league), slog.Any("err", r.Err))
			return model, false
		}
	}
	c := prob.Triplet{Home: rh.P, Draw: rd.P, Away: ra.P}
	if c.Sum() <= 0 {
		return model, false
	}
	return c.Renorm(), true
}

// ============================================================
// ** Binary markets **
// ============================================================

func (p *Pipeline) binary(m binaryMarket, league string, preds, odds map[string]any) (map[string]any, error) {
	model, perr := ParseBinary(preds, m.pred)

	r := calib.Calibrate(p.snap.lookup(league, m.calibKey), model)
	if r.Err != nil {
		p.log.Warn("calibration fallback",
			slog.String("league", league),
			slog.String("market", m.out),
			slog.Any("err", r.Err))
	}

	mkt, q := p.snap.Norm.Binary(ParseOddsBinary(odds, m.odds, m.yes, m.no))
	weight, src := p.snap.Config.Blend.Resolve(league, m.weight)
	final := prob.NewBinary(blend.Binary(r.P, mkt, weight))

	out := map[string]any{
		"model":         model,
		"calibrated":    r.P,
		"calibration":   string(r.Source),
		"final":         map[string]any{m.yes: final.Yes, m.no: final.No},
		"weight":        weight,
		"weight_source": string(src),
	}
	if q.Quoted {
		out["market"] = map[string]any{m.yes: mkt.Yes, m.no: mkt.No}
		out["overround"] = q.Overround
	}
	return out, perr
}

func tripletMap(t prob.Triplet) map[string]any {
	return map[string]any{"home": t.Home, "draw": t.Draw, "away": t.Away}
}

// FinalOver 從已處理的物件讀出 v2.ou25.final.over，供稽核使用。
func FinalOver(it Item) (float64, bool) {
	ou, _ := it.V2()[OutOU25].(map[string]any)
	fin, _ := ou["final"].(map[string]any)
	return num(fin["over"])
}

// String 方便 log 輸出
func (r Report) String() string {
	return fmt.Sprintf("league=%s failed=%v panicked=%v skipped=%v", r.League, r.Failed, r.Panicked, r.Skipped)
}
