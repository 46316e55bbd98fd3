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

package pipeline_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/footprob/pipeline"
	"github.com/zintix-labs/footprob/sdk/calib"
	"github.com/zintix-labs/footprob/setting"
)

type calibMap map[string]calib.Model

func (c calibMap) Lookup(league, market string) calib.Model {
	return c[league+"_"+market]
}

type panicOn string

func (p panicOn) Lookup(_, market string) calib.Model {
	if market == string(p) {
		panic("lookup exploded")
	}
	return nil
}

func decode(t *testing.T, raw string) pipeline.Item {
	t.Helper()
	var it pipeline.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	return it
}

func sub(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := m[key].(map[string]any)
	require.True(t, ok, "missing %s in %v", key, m)
	return v
}

func f(t *testing.T, m map[string]any, key string) float64 {
	t.Helper()
	v, ok := m[key].(float64)
	require.True(t, ok, "missing float %s in %v", key, m)
	return v
}

const fullItem = `{
  "fixture_id": 1001,
  "league_id": 39,
  "home_team": "A",
  "predictions": {
    "winner": {"home": 0.5, "draw": 0.3, "away": 0.2},
    "over_2_5": {"class": 1, "prob": 0.62},
    "btts": {"confidence": 0.55}
  },
  "odds": {
    "winner": {"home": 2.0, "draw": 3.4, "away": 4.0},
    "over_2_5": {"over": 1.8, "under": 2.0},
    "btts": {"yes": 1.9, "no": 1.9}
  },
  "v2": {"legacy": true}
}`

func TestProcessFullItem(t *testing.T) {
	p := pipeline.New(pipeline.NewSnapshot(nil, nil), nil)
	it, rep := p.Process(decode(t, fullItem))
	assert.True(t, rep.OK(), rep.String())
	assert.Equal(t, "39", rep.League)
	assert.Equal(t, "1001", rep.Fixture)
	assert.Equal(t, "A", it["home_team"])

	v2 := it.V2()
	assert.Equal(t, true, v2["legacy"], "foreign v2 keys kept")

	p1 := sub(t, v2, pipeline.OutP1X2)
	fin := sub(t, p1, "final")
	assert.InDelta(t, 1.0, f(t, fin, "home")+f(t, fin, "draw")+f(t, fin, "away"), 1e-9)
	assert.Equal(t, 0.15, f(t, p1, "weight"))
	assert.Contains(t, p1, "market")
	assert.NotContains(t, p1, "error")

	ou := sub(t, v2, pipeline.OutOU25)
	assert.Equal(t, 0.62, f(t, ou, "model"))
	assert.Equal(t, 0.62, f(t, ou, "calibrated"))
	assert.Equal(t, string(calib.SourceIdentity), ou["calibration"])
	ouf := sub(t, ou, "final")
	assert.InDelta(t, 1.0, f(t, ouf, "over")+f(t, ouf, "under"), 1e-12)
	mk := 1 / 1.8 / (1/1.8 + 1/2.0)
	assert.InDelta(t, 0.1*mk+0.9*0.62, f(t, ouf, "over"), 1e-12)

	bt := sub(t, v2, pipeline.OutBTTS)
	assert.Equal(t, 0.55, f(t, bt, "model"))
	btf := sub(t, bt, "final")
	assert.InDelta(t, 0.1*0.5+0.9*0.55, f(t, btf, "yes"), 1e-12)

	_, err := json.Marshal(it)
	assert.NoError(t, err)
}

func TestOneXTwoBlendValues(t *testing.T) {
	p := pipeline.New(pipeline.NewSnapshot(nil, nil), nil)
	it, rep := p.Process(decode(t, `{
  "fixture_id": 7, "league_id": 39,
  "predictions": {"winner": {"home": 0.5, "draw": 0.3, "away": 0.2}},
  "odds": {"winner": {"home": 2.0, "draw": 3.3, "away": 4.0}}
}`))
	require.Contains(t, it.V2(), pipeline.OutP1X2, rep.String())
	p1 := sub(t, it.V2(), pipeline.OutP1X2)
	assert.Equal(t, 0.15, f(t, p1, "weight"))

	raw := 1/2.0 + 1/3.3 + 1/4.0
	mk := sub(t, p1, "market")
	assert.InDelta(t, 0.4748, f(t, mk, "home"), 1e-4)
	assert.InDelta(t, 0.2878, f(t, mk, "draw"), 1e-4)
	assert.InDelta(t, 0.2374, f(t, mk, "away"), 1e-4)
	assert.InDelta(t, 0.5/raw, f(t, mk, "home"), 1e-12)

	fin := sub(t, p1, "final")
	assert.InDelta(t, 0.15*0.5/raw+0.85*0.5, f(t, fin, "home"), 1e-12)
	assert.InDelta(t, 0.15/3.3/raw+0.85*0.3, f(t, fin, "draw"), 1e-12)
	assert.InDelta(t, 0.15*0.25/raw+0.85*0.2, f(t, fin, "away"), 1e-12)
	assert.InDelta(t, 0.49622, f(t, fin, "home"), 1e-5)
}

func TestWinnerForms(t *testing.T) {
	w, err := pipeline.ParseWinner(map[string]any{"winner": map[string]any{"class": 0.0, "prob": 0.6}})
	require.NoError(t, err)
	got := w.Triplet()
	assert.InDelta(t, 0.6, got.Home, 1e-12)
	assert.InDelta(t, 0.2, got.Draw, 1e-12)
	assert.InDelta(t, 0.2, got.Away, 1e-12)

	// prob 為 0 時改用 confidence
	w, err = pipeline.ParseWinner(map[string]any{"winner": map[string]any{"class": "away", "prob": 0.0, "confidence": 0.7}})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, w.Triplet().Away, 1e-12)

	// 都沒有時為 0.5
	w, err = pipeline.ParseWinner(map[string]any{"winner": map[string]any{"class": 1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w.Triplet().Draw, 1e-12)

	// 直接形式缺少的一邊補預設值
	w, err = pipeline.ParseWinner(map[string]any{"winner": map[string]any{"home": 0.5, "draw": 0.2}})
	require.NoError(t, err)
	assert.Equal(t, pipeline.FormDirect, w.Form)
	d := w.Triplet()
	assert.InDelta(t, 0.5/1.04, d.Home, 1e-12)
	assert.InDelta(t, 0.34/1.04, d.Away, 1e-12)

	_, err = pipeline.ParseWinner(map[string]any{"winner": map[string]any{"class": 5}})
	assert.Error(t, err)
	_, err = pipeline.ParseWinner(map[string]any{"winner": "home"})
	assert.Error(t, err)
	_, err = pipeline.ParseWinner(map[string]any{})
	assert.Error(t, err)
}

func TestMissingPredictionsAnnotated(t *testing.T) {
	p := pipeline.New(pipeline.NewSnapshot(nil, nil), nil)
	it, rep := p.Process(pipeline.Item{"league_id": "61", "home_team": "B"})
	assert.ElementsMatch(t, []string{pipeline.OutP1X2, pipeline.OutOU25, pipeline.OutBTTS}, rep.Failed)
	assert.Empty(t, rep.Panicked)
	assert.Equal(t, "B", it["home_team"])

	v2 := it.V2()
	p1 := sub(t, v2, pipeline.OutP1X2)
	assert.Contains(t, p1["error"], "missing_input")
	fin := sub(t, p1, "final")
	assert.InDelta(t, 1.0/3, f(t, fin, "home"), 1e-12)

	ou := sub(t, v2, pipeline.OutOU25)
	assert.Equal(t, 0.5, f(t, ou, "model"))
	assert.Contains(t, ou["error"], "over_2_5")
}

func TestDisabledLeavesItemUntouched(t *testing.T) {
	cfg := setting.Default()
	cfg.Pipeline.Enabled = false
	p := pipeline.New(pipeline.NewSnapshot(cfg, nil), nil)
	in := decode(t, fullItem)
	it, rep := p.Process(in)
	assert.True(t, rep.Skipped)
	assert.Equal(t, map[string]any{"legacy": true}, it.V2())
}

func TestCalibrationApplied(t *testing.T) {
	cal := calibMap{
		"39_ou25": &calib.Isotonic{X: []float64{0.1, 0.6, 0.9}, Y: []float64{0.1, 0.5, 0.8}},
		"39_btts": &calib.Logistic{A: 1, B: 0},
	}
	p := pipeline.New(pipeline.NewSnapshot(nil, cal), nil)
	it, _ := p.Process(decode(t, fullItem))
	ou := sub(t, it.V2(), pipeline.OutOU25)
	assert.Equal(t, 0.5, f(t, ou, "calibrated"))
	assert.Equal(t, string(calib.SourceModel), ou["calibration"])

	// 另一個聯賽沒有模型
	other := decode(t, fullItem)
	other["league_id"] = "140"
	it, _ = p.Process(other)
	ou = sub(t, it.V2(), pipeline.OutOU25)
	assert.Equal(t, 0.62, f(t, ou, "calibrated"))
}

func TestBrokenCalibrationFallsBack(t *testing.T) {
	cal := calibMap{"39_ou25": &calib.Isotonic{X: []float64{0.5, 0.1}, Y: []float64{0.1, 0.2}}}
	p := pipeline.New(pipeline.NewSnapshot(nil, cal), nil)
	it, rep := p.Process(decode(t, fullItem))
	assert.True(t, rep.OK())
	ou := sub(t, it.V2(), pipeline.OutOU25)
	assert.Equal(t, 0.62, f(t, ou, "calibrated"))
	assert.Equal(t, string(calib.SourceFallback), ou["calibration"])
}

func TestPanicIsolatedToMarket(t *testing.T) {
	p := pipeline.New(pipeline.NewSnapshot(nil, panicOn(pipeline.CalibOU25)), nil)
	it, rep := p.Process(decode(t, fullItem))
	assert.Equal(t, []string{pipeline.OutOU25}, rep.Failed)
	assert.Equal(t, []string{pipeline.OutOU25}, rep.Panicked)

	ou := sub(t, it.V2(), pipeline.OutOU25)
	assert.Len(t, ou, 1)
	assert.Contains(t, ou["error"], "item_failure")

	bt := sub(t, it.V2(), pipeline.OutBTTS)
	assert.NotContains(t, bt, "error")
}

func TestCalibrate1X2(t *testing.T) {
	cfg := setting.Default()
	cfg.Pipeline.Calibrate1X2 = true
	half := &calib.Logistic{A: 1, B: 0}
	cal := calibMap{
		"39_1x2_home": half,
		"39_1x2_draw": half,
		"39_1x2_away": &calib.Isotonic{X: []float64{0, 1}, Y: []float64{0.5, 0.5}},
	}
	p := pipeline.New(pipeline.NewSnapshot(cfg, cal), nil)
	it, _ := p.Process(decode(t, fullItem))
	p1 := sub(t, it.V2(), pipeline.OutP1X2)
	c := sub(t, p1, "calibrated")
	s := 0.5 + 0.3 + 0.5
	assert.InDelta(t, 0.5/s, f(t, c, "home"), 1e-9)
	assert.InDelta(t, 0.5/s, f(t, c, "away"), 1e-9)

	// 少一個模型就不套用
	delete(cal, "39_1x2_draw")
	it, _ = p.Process(decode(t, fullItem))
	assert.NotContains(t, sub(t, it.V2(), pipeline.OutP1X2), "calibrated")
}

func TestPredictionsFromRates(t *testing.T) {
	cfg := setting.Default()
	cfg.Lambda3["39"] = 0.1
	p := pipeline.New(pipeline.NewSnapshot(cfg, nil), nil)
	it, rep := p.Process(pipeline.Item{"league_id": 39, "lambda_home": 1.9, "lambda_away": 0.8})
	assert.True(t, rep.OK(), rep.String())
	v2 := it.V2()
	bv := sub(t, v2, "bivar")
	assert.Equal(t, 0.1, f(t, bv, "lambda3"))
	p1 := sub(t, v2, pipeline.OutP1X2)
	model := sub(t, p1, "model")
	assert.Greater(t, f(t, model, "home"), f(t, model, "away"))
	_, hasPreds := it["predictions"]
	assert.False(t, hasPreds, "input fields are not rewritten")

	final, ok := pipeline.FinalOver(it)
	require.True(t, ok)
	ou := sub(t, v2, pipeline.OutOU25)
	assert.InDelta(t, f(t, ou, "model"), final, 1e-12, "no odds means final equals model")
}

func TestOddsAliasAndLeague(t *testing.T) {
	it := pipeline.Item{"league_id": 39.0, "odds": map[string]any{"1x2": map[string]any{"home": "2.5", "draw": 3.1, "away": 3}}}
	assert.Equal(t, "39", it.League())
	o := pipeline.ParseOdds1X2(it["odds"].(map[string]any))
	assert.Equal(t, 2.5, o.Home)
	assert.Equal(t, 3.0, o.Away)
	assert.Equal(t, "", pipeline.Item{}.League())
}
