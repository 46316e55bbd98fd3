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

package pipeline

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/market"
	"github.com/zintix-labs/footprob/sdk/prob"
)

// Item 一場比賽的預測物件（通常來自 JSON）。核心只會寫入 "v2"，其他欄位原樣保留。
type Item map[string]any

// 物件欄位
const (
	KeyPredictions = "predictions"
	KeyOdds        = "odds"
	KeyLeague      = "league_id"
	KeyV2          = "v2"
	KeyLambdaHome  = "lambda_home"
	KeyLambdaAway  = "lambda_away"
)

// League 聯賽 ID，可為字串或數字；缺少時為空字串。
func (it Item) League() string {
	switch v := it[KeyLeague].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		if f, ok := num(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}

// Fixture 比賽 ID，依序嘗試 fixture_id / match_id / id。
func (it Item) Fixture() string {
	for _, k := range []string{"fixture_id", "match_id", "id"} {
		switch v := it[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case nil:
		default:
			if f, ok := num(v); ok {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
	}
	return ""
}

// V2 取得既有的 v2 物件（唯讀檢視），不存在時回傳 nil。
func (it Item) V2() map[string]any {
	m, _ := it[KeyV2].(map[string]any)
	return m
}

func (it Item) section(key string) map[string]any {
	m, _ := it[key].(map[string]any)
	return m
}

// num 將 JSON 解出來的各種數值形式轉為 float64；bool 不視為數字。
func num(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isNumeric 只認真正的數值型別（不含字串），用來判斷 winner 是否為直接機率形式。
func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return true
	}
	return false
}

// ============================================================
// ** Winner：tagged union **
// ============================================================

// WinnerForm winner 預測的兩種形式
type WinnerForm uint8

const (
	FormNone   WinnerForm = iota
	FormDirect            // {home, draw, away}
	FormClass             // {class, prob|confidence}
)

// Winner 正規化前的 winner 預測
type Winner struct {
	Form   WinnerForm
	Direct prob.Triplet
	Class  int
	Prob   float64
}

// 直接形式缺少某邊時的預設值
var directDefault = prob.Triplet{Home: 0.33, Draw: 0.33, Away: 0.34}

// ParseWinner 解析 predictions.winner。
// 任一 home/draw/away 為數值即視為直接形式；否則讀 class (0/1/2 或 home/draw/away)
// 與 prob，prob 缺少或為 0 時改讀 confidence，再缺少則為 0.5。
func ParseWinner(preds map[string]any) (Winner, error) {
	raw, ok := preds["winner"]
	if !ok || raw == nil {
		return Winner{}, errs.Kindf(errs.MissingInput, "predictions.winner missing")
	}
	w, ok := raw.(map[string]any)
	if !ok {
		return Winner{}, errs.Kindf(errs.MalformedInput, "predictions.winner is not an object")
	}
	if isNumeric(w["home"]) || isNumeric(w["draw"]) || isNumeric(w["away"]) {
		d := directDefault
		if v, ok := num(w["home"]); ok {
			d.Home = v
		}
		if v, ok := num(w["draw"]); ok {
			d.Draw = v
		}
		if v, ok := num(w["away"]); ok {
			d.Away = v
		}
		return Winner{Form: FormDirect, Direct: d}, nil
	}
	class, err := parseClass(w["class"])
	if err != nil {
		return Winner{}, err
	}
	pr, ok := num(w["prob"])
	if !ok || pr == 0 {
		if pr, ok = num(w["confidence"]); !ok || pr == 0 {
			pr = 0.5
		}
	}
	return Winner{Form: FormClass, Class: class, Prob: pr}, nil
}

func parseClass(v any) (int, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "home", "h", "1":
			return 0, nil
		case "draw", "d", "x":
			return 1, nil
		case "away", "a", "2":
			return 2, nil
		}
		return 0, errs.Kindf(errs.MalformedInput, "predictions.winner.class %q not recognised", s)
	}
	f, ok := num(v)
	if !ok {
		return 0, errs.Kindf(errs.MalformedInput, "predictions.winner has neither probabilities nor class")
	}
	if f != 0 && f != 1 && f != 2 {
		return 0, errs.Kindf(errs.MalformedInput, "predictions.winner.class %v out of {0,1,2}", f)
	}
	return int(f), nil
}

// Triplet 將 winner 正規化為 1X2。
// 類別形式：該類給 prob，其餘兩類平分 1-prob，再做 renorm。
func (w Winner) Triplet() prob.Triplet {
	switch w.Form {
	case FormDirect:
		return w.Direct.Renorm()
	case FormClass:
		pr := w.Prob
		rest := (1 - pr) / 2
		t := prob.Triplet{Home: rest, Draw: rest, Away: rest}
		switch w.Class {
		case 0:
			t.Home = pr
		case 1:
			t.Draw = pr
		case 2:
			t.Away = pr
		}
		return t.Renorm()
	default:
		return prob.Uniform
	}
}

// ParseBinary 讀取二元市場預測：prob，缺少時 confidence，再缺少為 0.5；截斷至 [0,1]。
// 回傳的錯誤只做標註用，數值永遠可用。
func ParseBinary(preds map[string]any, key string) (float64, error) {
	raw, ok := preds[key]
	if !ok || raw == nil {
		return 0.5, errs.Kindf(errs.MissingInput, "predictions.%s missing", key)
	}
	node, ok := raw.(map[string]any)
	if !ok {
		return 0.5, errs.Kindf(errs.MalformedInput, "predictions.%s is not an object", key)
	}
	if p, ok := num(node["prob"]); ok {
		return prob.Clamp01(p), nil
	}
	if p, ok := num(node["confidence"]); ok {
		return prob.Clamp01(p), nil
	}
	if node["prob"] != nil || node["confidence"] != nil {
		return 0.5, errs.Kindf(errs.MalformedInput, "predictions.%s prob is not numeric", key)
	}
	return 0.5, errs.Kindf(errs.MissingInput, "predictions.%s has no prob", key)
}

// ============================================================
// ** Odds **
// ============================================================

// ParseOdds1X2 讀取 odds.winner（別名 odds.1x2）
func ParseOdds1X2(odds map[string]any) market.Odds1X2 {
	o, _ := odds["winner"].(map[string]any)
	if len(o) == 0 {
		o, _ = odds["1x2"].(map[string]any)
	}
	return market.Odds1X2{Home: numOr0(o["home"]), Draw: numOr0(o["draw"]), Away: numOr0(o["away"])}
}

// ParseOddsBinary 讀取 odds[key] 的 yes / no 兩側
func ParseOddsBinary(odds map[string]any, key, yes, no string) market.OddsBinary {
	o, _ := odds[key].(map[string]any)
	return market.OddsBinary{Yes: numOr0(o[yes]), No: numOr0(o[no])}
}

func numOr0(v any) float64 {
	f, _ := num(v)
	return f
}
