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

package flags

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zintix-labs/footprob/errs"
)

// Redis 鍵
const (
	KeyEnabled   = "flag:v2_enabled"
	KeyFailCount = "flag:v2_fail_count"
)

// Store 旗標狀態的存取
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// ============================================================
// ** MemoryStore **
// ============================================================

// MemoryStore 行程內狀態，預設實作
type MemoryStore struct {
	mu sync.Mutex
	s  State
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

// ============================================================
// ** RedisStore **
// ============================================================

// RedisStore 以 Redis 共用狀態：
//   - flag:v2_enabled：手動開關 "true"/"false"；斷路器開啟時寫入 "false" 並帶 TTL。
//   - flag:v2_fail_count：失敗計數，TTL 為最近一次失敗後的冷卻時間。
type RedisStore struct {
	client   redis.Cmdable
	cooldown time.Duration
	now      func() time.Time
}

// NewRedisStore 連線並以 Ping 確認可用
func NewRedisStore(ctx context.Context, addr, password string, db int, cooldown time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrap(err, "failed to connect to redis")
	}
	return NewRedisStoreWith(client, cooldown), nil
}

// NewRedisStoreWith 使用既有的 client（叢集、哨兵或測試用）
func NewRedisStoreWith(client redis.Cmdable, cooldown time.Duration) *RedisStore {
	return &RedisStore{client: client, cooldown: cooldown, now: time.Now}
}

// Close 關閉 client；client 未實作 io.Closer 時不做事。
func (r *RedisStore) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context) (State, error) {
	var s State
	now := r.now()

	val, err := r.client.Get(ctx, KeyEnabled).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return s, errs.Wrap(err, "redis get "+KeyEnabled)
	default:
		ttl, err := r.client.PTTL(ctx, KeyEnabled).Result()
		if err != nil {
			return s, errs.Wrap(err, "redis pttl "+KeyEnabled)
		}
		if val == "false" && ttl > 0 {
			s.OpenUntil = now.Add(ttl)
		} else {
			on := val == "true"
			s.Enabled = &on
		}
	}

	cnt, err := r.client.Get(ctx, KeyFailCount).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return s, errs.Wrap(err, "redis get "+KeyFailCount)
	default:
		n, perr := strconv.Atoi(cnt)
		if perr == nil && n > 0 {
			ttl, err := r.client.PTTL(ctx, KeyFailCount).Result()
			if err != nil {
				return s, errs.Wrap(err, "redis pttl "+KeyFailCount)
			}
			s.Failures = n
			// 計數的 TTL 從最近一次失敗起算，剩餘時間可反推失敗時刻
			s.LastFailure = now
			if ttl > 0 && ttl <= r.cooldown {
				s.LastFailure = now.Add(ttl - r.cooldown)
			}
		}
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s State) error {
	now := r.now()
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		switch {
		case s.OpenUntil.After(now):
			p.Set(ctx, KeyEnabled, "false", s.OpenUntil.Sub(now))
		case s.Enabled != nil:
			p.Set(ctx, KeyEnabled, strconv.FormatBool(*s.Enabled), 0)
		default:
			p.Del(ctx, KeyEnabled)
		}
		// TTL 只隨失敗更新，沒有新失敗的批次不延長計數壽命
		if ttl := r.failTTL(s, now); ttl > 0 {
			p.Set(ctx, KeyFailCount, strconv.Itoa(s.Failures), ttl)
		} else {
			p.Del(ctx, KeyFailCount)
		}
		return nil
	})
	if err != nil {
		return errs.Wrap(err, "redis save flags")
	}
	return nil
}

// failTTL 失敗計數的剩餘壽命：最近一次失敗後 cooldown；<= 0 表示不需保留。
func (r *RedisStore) failTTL(s State, now time.Time) time.Duration {
	if s.Failures <= 0 {
		return 0
	}
	if s.LastFailure.IsZero() {
		return r.cooldown
	}
	return s.LastFailure.Add(r.cooldown).Sub(now)
}
