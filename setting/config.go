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

// Package setting 定義 footprob 的執行設定，並負責 YAML/JSON（可選 zstd 壓縮）的讀取與檢查。
package setting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/blend"
	"github.com/zintix-labs/footprob/sdk/market"
	"github.com/zintix-labs/footprob/sdk/score"
)

// Config 一次批次運行所需的完整設定
type Config struct {
	Pipeline PipelineConfig     `yaml:"pipeline" json:"pipeline"`
	Blend    blend.Weights      `yaml:"blend"    json:"blend"`
	Lambda3  map[string]float64 `yaml:"lambda3"  json:"lambda3"`
	Breaker  BreakerConfig      `yaml:"breaker"  json:"breaker"`
}

// PipelineConfig 後處理流程開關與參數
type PipelineConfig struct {
	Enabled      bool    `yaml:"enabled"       json:"enabled"`
	MaxGoals     int     `yaml:"max_goals"     json:"max_goals"`
	ImpliedMin   float64 `yaml:"implied_min"   json:"implied_min"`
	ImpliedMax   float64 `yaml:"implied_max"   json:"implied_max"`
	Calibrate1X2 bool    `yaml:"calibrate_1x2" json:"calibrate_1x2"`
	Workers      int     `yaml:"workers"       json:"workers"`
}

// BreakerConfig 斷路器：連續失敗 FailMax 次後停用 Cooldown
type BreakerConfig struct {
	FailMax  int      `yaml:"fail_max" json:"fail_max"`
	Cooldown Duration `yaml:"cooldown" json:"cooldown"`
}

// Default 回傳預設設定；讀檔時先填入預設再覆蓋，未寫出的欄位維持預設。
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Enabled:    true,
			MaxGoals:   score.DefaultMaxGoals,
			ImpliedMin: market.DefaultMin,
			ImpliedMax: market.DefaultMax,
			Workers:    1,
		},
		Blend: blend.Weights{
			Defaults: map[string]float64{
				blend.Market1X2:   blend.Fallback1X2,
				blend.ClassBinary: blend.FallbackBinary,
			},
			Leagues: map[string]blend.LeagueWeights{},
		},
		Lambda3: map[string]float64{},
		Breaker: BreakerConfig{FailMax: 5, Cooldown: Duration(15 * time.Minute)},
	}
}

// Valid 補齊零值並檢查；程式內組出的設定在使用前應先呼叫。
func (c *Config) Valid() error {
	return c.init()
}

// init 補齊零值並檢查
func (c *Config) init() error {
	if c.Pipeline.MaxGoals <= 0 {
		c.Pipeline.MaxGoals = score.DefaultMaxGoals
	}
	c.Pipeline.Workers = max(1, c.Pipeline.Workers)
	if c.Lambda3 == nil {
		c.Lambda3 = map[string]float64{}
	}
	if c.Blend.Leagues == nil {
		c.Blend.Leagues = map[string]blend.LeagueWeights{}
	}
	if c.Breaker.FailMax <= 0 {
		c.Breaker.FailMax = 5
	}
	if c.Breaker.Cooldown <= 0 {
		c.Breaker.Cooldown = Duration(15 * time.Minute)
	}
	return c.valid()
}

func (c *Config) valid() error {
	if _, err := market.New(c.Pipeline.ImpliedMin, c.Pipeline.ImpliedMax); err != nil {
		return err
	}
	if c.Pipeline.MaxGoals > 30 {
		return errs.Kindf(errs.Config, "max_goals too large: %d", c.Pipeline.MaxGoals)
	}
	if err := c.Blend.Valid(); err != nil {
		return err
	}
	for l, v := range c.Lambda3 {
		if !(v >= 0) || v > 2 {
			return errs.Kindf(errs.Config, "lambda3 for league %s out of [0,2]: %v", l, v)
		}
	}
	return nil
}

// Normalizer 依設定建立隱含機率正規化器
func (c *Config) Normalizer() market.Normalizer {
	n, err := market.New(c.Pipeline.ImpliedMin, c.Pipeline.ImpliedMax)
	if err != nil {
		return market.Default
	}
	return n
}

// Lambda3For 聯賽的 λ3，未設定時為 0（獨立 Poisson）
func (c *Config) Lambda3For(league string) float64 {
	return c.Lambda3[strings.TrimSpace(league)]
}

// Duration 可寫成 "15m" 或秒數的時間長度
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func parseDuration(s string) (Duration, error) {
	td, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, errs.WrapKind(err, errs.Config, fmt.Sprintf("invalid duration %q", s))
	}
	return Duration(td), nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var secs float64
	if t := n.ShortTag(); t == "!!int" || t == "!!float" {
		if err := n.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := parseDuration(n.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errs.WrapKind(err, errs.Config, "duration must be string or seconds")
	}
	v, err := parseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
