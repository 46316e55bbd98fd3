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

// Package flags 管理後處理的總開關（kill switch）與斷路器狀態。
//
// 斷路器由呼叫端持有：批次開始時詢問 Allow，批次結束後以失敗數呼叫 Record。
// 狀態可透過 Store 持久化（記憶體或 Redis），讓多個行程共用。
package flags

import (
	"time"

	"github.com/zintix-labs/footprob/setting"
)

// Breaker 連續失敗達 FailMax 次後開啟 Cooldown 時間；期間所有批次直接略過。
// 距離上次失敗超過 Cooldown 時，失敗計數歸零。
type Breaker struct {
	FailMax     int
	Cooldown    time.Duration
	Failures    int
	LastFailure time.Time
	OpenUntil   time.Time
}

// NewBreaker 依設定建立關閉狀態的斷路器
func NewBreaker(cfg setting.BreakerConfig) *Breaker {
	return &Breaker{FailMax: max(1, cfg.FailMax), Cooldown: cfg.Cooldown.D()}
}

// Open 斷路器在 now 時是否開啟
func (b *Breaker) Open(now time.Time) bool {
	return now.Before(b.OpenUntil)
}

// Allow 回報此批次可否執行；冷卻結束後自動關閉並清空計數。
func (b *Breaker) Allow(now time.Time) bool {
	if b.Open(now) {
		return false
	}
	if !b.OpenUntil.IsZero() {
		b.OpenUntil = time.Time{}
		b.Failures = 0
	}
	return true
}

// Record 記錄一個批次的失敗數，回傳斷路器是否因此開啟。
func (b *Breaker) Record(failures int, now time.Time) bool {
	if failures <= 0 {
		return false
	}
	if !b.LastFailure.IsZero() && now.Sub(b.LastFailure) > b.Cooldown {
		b.Failures = 0
	}
	b.Failures += failures
	b.LastFailure = now
	if b.Failures >= b.FailMax {
		b.OpenUntil = now.Add(b.Cooldown)
		return true
	}
	return false
}

// Reset 清空計數並關閉
func (b *Breaker) Reset() {
	b.Failures = 0
	b.LastFailure = time.Time{}
	b.OpenUntil = time.Time{}
}

// State 可持久化的旗標狀態
type State struct {
	Enabled     *bool     `json:"enabled,omitempty"` // 手動開關，nil 表示依設定檔
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitzero"`
	OpenUntil   time.Time `json:"open_until,omitzero"`
}

// Breaker 由狀態還原斷路器
func (s State) Breaker(cfg setting.BreakerConfig) *Breaker {
	b := NewBreaker(cfg)
	b.Failures = s.Failures
	b.LastFailure = s.LastFailure
	b.OpenUntil = s.OpenUntil
	return b
}

// WithBreaker 以斷路器目前的狀態覆蓋
func (s State) WithBreaker(b *Breaker) State {
	s.Failures = b.Failures
	s.LastFailure = b.LastFailure
	s.OpenUntil = b.OpenUntil
	return s
}

// EnabledOr 手動開關未設定時回傳 def
func (s State) EnabledOr(def bool) bool {
	if s.Enabled == nil {
		return def
	}
	return *s.Enabled
}
