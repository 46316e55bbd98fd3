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

// Package blend 以聯賽權重融合模型機率與市場隱含機率。
package blend

import (
	"encoding/json"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/prob"
)

// 市場鍵
const (
	Market1X2 = "1x2"
	MarketO25 = "o25"
	MarketBTS = "btts"
	// ClassBinary 二元市場共用的預設鍵
	ClassBinary = "binary"
	// LeagueDefaultKey 聯賽層級的預設鍵
	LeagueDefaultKey = "default"
)

const (
	Fallback1X2    = 0.15
	FallbackBinary = 0.10
)

// Source 權重來源，依解析順序排列
type Source string

const (
	FromLeagueMarket  Source = "league_market"
	FromLeagueDefault Source = "league_default"
	FromGlobalMarket  Source = "global_market"
	FromGlobalClass   Source = "global_class"
	FromFallback      Source = "fallback"
)

// LeagueWeights 單一聯賽的權重，可寫成純量（視為該聯賽預設）或 market -> w 的映射。
type LeagueWeights struct {
	Default *float64
	Markets map[string]float64
}

// Scalar 建立只有預設值的 LeagueWeights
func Scalar(w float64) LeagueWeights {
	return LeagueWeights{Default: &w}
}

func (lw *LeagueWeights) fromMap(m map[string]float64) {
	lw.Markets = make(map[string]float64, len(m))
	for k, v := range m {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == LeagueDefaultKey {
			lw.Default = &v
			continue
		}
		lw.Markets[k] = v
	}
}

func (lw *LeagueWeights) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var w float64
		if err := n.Decode(&w); err != nil {
			return errs.WrapKind(err, errs.Config, "league weight must be number or mapping")
		}
		*lw = Scalar(w)
		return nil
	}
	var m map[string]float64
	if err := n.Decode(&m); err != nil {
		return errs.WrapKind(err, errs.Config, "league weight must be number or mapping")
	}
	lw.fromMap(m)
	return nil
}

func (lw *LeagueWeights) UnmarshalJSON(b []byte) error {
	var w float64
	if err := json.Unmarshal(b, &w); err == nil {
		*lw = Scalar(w)
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return errs.WrapKind(err, errs.Config, "league weight must be number or object")
	}
	lw.fromMap(m)
	return nil
}

func (lw LeagueWeights) MarshalJSON() ([]byte, error) {
	return json.Marshal(lw.asMap())
}

func (lw LeagueWeights) MarshalYAML() (any, error) {
	return lw.asMap(), nil
}

func (lw LeagueWeights) asMap() map[string]float64 {
	m := make(map[string]float64, len(lw.Markets)+1)
	for k, v := range lw.Markets {
		m[k] = v
	}
	if lw.Default != nil {
		m[LeagueDefaultKey] = *lw.Default
	}
	return m
}

// Weights 融合權重設定
type Weights struct {
	Defaults map[string]float64       `yaml:"defaults" json:"defaults"`
	Leagues  map[string]LeagueWeights `yaml:"leagues"  json:"leagues"`
}

// Valid 所有權重需落在 [0,1]
func (w *Weights) Valid() error {
	check := func(where string, v float64) error {
		if !prob.Finite(v) || v < 0 || v > 1 {
			return errs.Kindf(errs.Config, "blend weight out of [0,1]: %s=%v", where, v)
		}
		return nil
	}
	for k, v := range w.Defaults {
		if err := check("defaults."+k, v); err != nil {
			return err
		}
	}
	for l, lw := range w.Leagues {
		if lw.Default != nil {
			if err := check("leagues."+l+".default", *lw.Default); err != nil {
				return err
			}
		}
		for k, v := range lw.Markets {
			if err := check("leagues."+l+"."+k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsBinary 判斷市場是否屬於二元類
func IsBinary(market string) bool {
	return market != Market1X2
}

// Resolve 依固定順序解析權重：
//  1. 聯賽 + 市場
//  2. 聯賽預設
//  3. 全域市場預設，二元市場再退到 "binary"
//  4. 寫死的 0.15 (1X2) / 0.10 (二元)
func (w *Weights) Resolve(league, market string) (float64, Source) {
	market = strings.ToLower(market)
	if w != nil {
		if lw, ok := w.Leagues[league]; ok {
			if v, ok := lw.Markets[market]; ok {
				return clampW(v), FromLeagueMarket
			}
			if lw.Default != nil {
				return clampW(*lw.Default), FromLeagueDefault
			}
		}
		if v, ok := w.Defaults[market]; ok {
			return clampW(v), FromGlobalMarket
		}
		if IsBinary(market) {
			if v, ok := w.Defaults[ClassBinary]; ok {
				return clampW(v), FromGlobalClass
			}
		}
	}
	if IsBinary(market) {
		return FallbackBinary, FromFallback
	}
	return Fallback1X2, FromFallback
}

// Weight 等同 Resolve 但只回傳數值
func (w *Weights) Weight(league, market string) float64 {
	v, _ := w.Resolve(league, market)
	return v
}

func clampW(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return prob.Clamp01(v)
}

// Triplet 融合 1X2：市場全 0 時原樣回傳模型，否則 clip(w·mkt+(1-w)·model) 後正規化。
func Triplet(model, mkt prob.Triplet, w float64) prob.Triplet {
	if mkt.Sum() <= 0 {
		return model
	}
	w = clampW(w)
	out := prob.Triplet{
		Home: prob.Clamp01(w*mkt.Home + (1-w)*model.Home),
		Draw: prob.Clamp01(w*mkt.Draw + (1-w)*model.Draw),
		Away: prob.Clamp01(w*mkt.Away + (1-w)*model.Away),
	}
	s := out.Sum()
	if s <= 0 {
		return model
	}
	return prob.Triplet{Home: out.Home / s, Draw: out.Draw / s, Away: out.Away / s}
}

// Binary 融合二元市場，回傳 yes 側機率；市場全 0 時回傳 clip(model)。
func Binary(modelYes float64, mkt prob.Binary, w float64) float64 {
	if mkt.Yes+mkt.No <= 0 {
		return prob.Clamp01(modelYes)
	}
	w = clampW(w)
	return prob.Clamp01(w*mkt.Yes + (1-w)*modelYes)
}
