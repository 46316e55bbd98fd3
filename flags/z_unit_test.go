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
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/footprob/setting"
)

func testCfg() setting.BreakerConfig {
	return setting.BreakerConfig{FailMax: 3, Cooldown: setting.Duration(10 * time.Minute)}
}

func TestBreakerOpensAtFailMax(t *testing.T) {
	b := NewBreaker(testCfg())
	t0 := time.Unix(1_700_000_000, 0)

	assert.True(t, b.Allow(t0))
	assert.False(t, b.Record(2, t0))
	assert.True(t, b.Allow(t0.Add(time.Minute)))
	assert.True(t, b.Record(1, t0.Add(time.Minute)))

	assert.False(t, b.Allow(t0.Add(5*time.Minute)))
	// 冷卻結束後自動關閉並清空計數
	assert.True(t, b.Allow(t0.Add(12*time.Minute)))
	assert.Equal(t, 0, b.Failures)
}

func TestBreakerFailuresExpire(t *testing.T) {
	b := NewBreaker(testCfg())
	t0 := time.Unix(1_700_000_000, 0)

	b.Record(2, t0)
	// 超過冷卻時間後的失敗重新計數
	assert.False(t, b.Record(2, t0.Add(11*time.Minute)))
	assert.Equal(t, 2, b.Failures)
	assert.False(t, b.Record(0, t0.Add(12*time.Minute)))
	assert.Equal(t, 2, b.Failures)
}

func TestStateRoundTripThroughMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	t0 := time.Unix(1_700_000_000, 0)

	s, err := st.Load(ctx)
	require.NoError(t, err)
	assert.True(t, s.EnabledOr(true))

	b := s.Breaker(testCfg())
	b.Record(3, t0)
	off := false
	s.Enabled = &off
	require.NoError(t, st.Save(ctx, s.WithBreaker(b)))

	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got.EnabledOr(true))
	assert.Equal(t, 3, got.Failures)
	assert.True(t, got.Breaker(testCfg()).Open(t0.Add(time.Minute)))
}

// FOOTPROB_REDIS_ADDR 有設定時才跑
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("FOOTPROB_REDIS_ADDR")
	if addr == "" {
		t.Skip("FOOTPROB_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rs, err := NewRedisStore(ctx, addr, "", 0, time.Minute)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, rs.Save(ctx, State{Failures: 2, LastFailure: now, OpenUntil: now.Add(30 * time.Second)}))
	got, err := rs.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.Enabled)
	assert.Equal(t, 2, got.Failures)
	assert.True(t, got.OpenUntil.After(now))

	on := true
	require.NoError(t, rs.Save(ctx, State{Enabled: &on}))
	got, err = rs.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.Enabled)
	assert.True(t, *got.Enabled)
	assert.Equal(t, 0, got.Failures)
}

// newMiniRedis 行程內 Redis；回傳的 tick 同時推進 store 時鐘與鍵的 TTL。
func newMiniRedis(t *testing.T, cooldown time.Duration) (*RedisStore, *miniredis.Miniredis, func(time.Duration)) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Unix(1_700_000_000, 0)
	rs := NewRedisStoreWith(client, cooldown)
	rs.now = func() time.Time { return now }
	tick := func(d time.Duration) {
		now = now.Add(d)
		mr.FastForward(d)
	}
	return rs, mr, tick
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	rs, mr, _ := newMiniRedis(t, time.Minute)
	now := rs.now()

	require.NoError(t, rs.Save(ctx, State{Failures: 2, LastFailure: now.Add(-20 * time.Second), OpenUntil: now.Add(30 * time.Second)}))
	assert.Equal(t, 40*time.Second, mr.TTL(KeyFailCount))
	assert.Equal(t, 30*time.Second, mr.TTL(KeyEnabled))

	got, err := rs.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got.Enabled)
	assert.Equal(t, 2, got.Failures)
	assert.Equal(t, now.Add(-20*time.Second), got.LastFailure)
	assert.Equal(t, now.Add(30*time.Second), got.OpenUntil)

	on := true
	require.NoError(t, rs.Save(ctx, State{Enabled: &on}))
	got, err = rs.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.Enabled)
	assert.True(t, *got.Enabled)
	assert.Equal(t, 0, got.Failures)
	assert.False(t, mr.Exists(KeyFailCount))
}

func TestRedisStoreHealthyBatchesKeepFailureTTL(t *testing.T) {
	ctx := context.Background()
	cfg := setting.BreakerConfig{FailMax: 3, Cooldown: setting.Duration(time.Minute)}
	rs, mr, tick := newMiniRedis(t, cfg.Cooldown.D())

	batch := func(failures int) bool {
		st, err := rs.Load(ctx)
		require.NoError(t, err)
		br := st.Breaker(cfg)
		require.True(t, br.Allow(rs.now()))
		opened := false
		if failures > 0 {
			opened = br.Record(failures, rs.now())
		}
		require.NoError(t, rs.Save(ctx, st.WithBreaker(br)))
		return opened
	}

	// 每 10 分鐘一次失敗，中間每 50 秒一個正常批次：失敗從不落在同一個冷卻時間內
	for round := 0; round < 5; round++ {
		assert.False(t, batch(1), "round %d", round)
		for i := 0; i < 12; i++ {
			tick(50 * time.Second)
			assert.False(t, batch(0))
		}
		assert.False(t, mr.Exists(KeyFailCount), "round %d", round)
	}

	// 冷卻時間內連續失敗仍會開啟
	assert.False(t, batch(2))
	tick(10 * time.Second)
	assert.False(t, batch(0))
	tick(10 * time.Second)
	st, err := rs.Load(ctx)
	require.NoError(t, err)
	br := st.Breaker(cfg)
	assert.True(t, br.Record(1, rs.now()))
}
