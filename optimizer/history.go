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
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/score"
)

// 1x2 結果編碼
const (
	ResultUnknown = -1
	ResultHome    = 0
	ResultDraw    = 1
	ResultAway    = 2
)

// Row 歷史資料的一列；缺少的機率或 λ 為 NaN，缺少的結果為 -1。
type Row struct {
	League     string
	PHome      float64
	PDraw      float64
	PAway      float64
	POver25    float64
	PBTTS      float64
	LambdaHome float64
	LambdaAway float64
	GoalsHome  int
	GoalsAway  int
	HasGoals   bool
	Result     int
	Over25     int
	BTTS       int
}

// 欄位別名，依序嘗試
var columns = map[string][]string{
	"league":      {"league_id", "league"},
	"p_home":      {"p_home"},
	"p_draw":      {"p_draw"},
	"p_away":      {"p_away"},
	"p_over25":    {"p_over25", "p_over_2_5"},
	"p_btts":      {"p_btts"},
	"lambda_home": {"lambda_home"},
	"lambda_away": {"lambda_away"},
	"goals_home":  {"goals_home", "home_goals"},
	"goals_away":  {"goals_away", "away_goals"},
	"result":      {"result"},
	"over25":      {"over25_result", "y_over25"},
	"btts":        {"btts_result", "y_btts"},
}

// ReadHistory 讀取含表頭的 CSV。
// 只要求 league_id；缺少的結果欄位在有比分時由比分推導。無法解析的數值視為缺值。
func ReadHistory(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errs.Kindf(errs.MissingInput, "empty csv")
	}
	if err != nil {
		return nil, errs.WrapKind(err, errs.MalformedInput, "read csv header")
	}
	pos := map[string]int{}
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	col := map[string]int{}
	for name, aliases := range columns {
		col[name] = -1
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				col[name] = i
				break
			}
		}
	}
	if col["league"] < 0 {
		return nil, errs.Kindf(errs.MissingInput, "csv needs a league_id column")
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.WrapKind(err, errs.MalformedInput, "read csv line "+strconv.Itoa(line))
		}
		get := func(name string) string {
			i := col[name]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		row := Row{
			League:     get("league"),
			PHome:      parseFloat(get("p_home")),
			PDraw:      parseFloat(get("p_draw")),
			PAway:      parseFloat(get("p_away")),
			POver25:    parseFloat(get("p_over25")),
			PBTTS:      parseFloat(get("p_btts")),
			LambdaHome: parseFloat(get("lambda_home")),
			LambdaAway: parseFloat(get("lambda_away")),
			Result:     parseInt(get("result")),
			Over25:     parseInt(get("over25")),
			BTTS:       parseInt(get("btts")),
		}
		gh, ga := parseInt(get("goals_home")), parseInt(get("goals_away"))
		if gh >= 0 && ga >= 0 {
			row.GoalsHome, row.GoalsAway, row.HasGoals = gh, ga, true
		}
		row.derive()
		if row.League == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// derive 由比分補上缺少的結果
func (r *Row) derive() {
	if !r.HasGoals {
		return
	}
	if r.Result == ResultUnknown {
		switch {
		case r.GoalsHome > r.GoalsAway:
			r.Result = ResultHome
		case r.GoalsHome < r.GoalsAway:
			r.Result = ResultAway
		default:
			r.Result = ResultDraw
		}
	}
	if r.Over25 < 0 {
		r.Over25 = b2i(r.GoalsHome+r.GoalsAway >= 3)
	}
	if r.BTTS < 0 {
		r.BTTS = b2i(r.GoalsHome > 0 && r.GoalsAway > 0)
	}
}

// Samples 取出可用於 λ3 估計的列（需要比分與 λ）
func Samples(rows []Row) []Sample {
	out := make([]Sample, 0, len(rows))
	for _, r := range rows {
		if !r.HasGoals || math.IsNaN(r.LambdaHome) || math.IsNaN(r.LambdaAway) {
			continue
		}
		out = append(out, Sample{
			League:    r.League,
			GoalsHome: r.GoalsHome,
			GoalsAway: r.GoalsAway,
			Rates:     score.Rates{Home: r.LambdaHome, Away: r.LambdaAway},
		})
	}
	return out
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// parseInt 接受 "1" 與 "1.0"；缺值或負數回傳 -1
func parseInt(s string) int {
	f := parseFloat(s)
	if math.IsNaN(f) || f < 0 || f != math.Trunc(f) {
		return -1
	}
	return int(f)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
