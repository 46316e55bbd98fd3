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

package footprob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/pipeline"
)

// 批次被略過的原因
const (
	GateNone     = ""
	GateDisabled = "disabled"     // 手動關閉
	GateBreaker  = "breaker_open" // 斷路器冷卻中
)

// Runner 以固定數量的 worker 處理一批比賽。
// 輸出順序與輸入相同；單場 panic 只影響該場（寫入 v2.error）並計入失敗。
//
// 每個批次開始時詢問一次斷路器，結束時回寫失敗數。
// 斷路器開啟或手動關閉時，整批原樣返回。
// 同一個 Runner 不可並行呼叫 Run；需要並行時各自 NewRunner。
type Runner struct {
	lab     *Lab
	workers int
	showpb  bool
	now     func() time.Time

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64 // 至少一個市場失敗的場次
	markets   atomic.Int64 // 失敗的市場數
	panics    atomic.Int64 // 整場或單一市場 panic 的場次
}

// NewRunner 建立 Runner；workers <= 0 時使用設定檔的 pipeline.workers。
func (l *Lab) NewRunner(workers int, showpb bool) *Runner {
	if workers <= 0 {
		workers = l.cfg.Pipeline.Workers
	}
	return &Runner{lab: l, workers: max(1, workers), showpb: showpb, now: time.Now}
}

// RunMetrics 單一批次的觀測快照
type RunMetrics struct {
	RunID         string        `json:"run_id"`
	Items         int           `json:"items"`
	Processed     int           `json:"processed"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	FailedMarkets int           `json:"failed_markets"`
	Panics        int           `json:"panics"`
	Gate          string        `json:"gate,omitempty"`
	BreakerOpened bool          `json:"breaker_opened,omitempty"`
	Used          time.Duration `json:"used"`
}

// BatchResult 批次結果；Items 與輸入同序。
type BatchResult struct {
	Items   []pipeline.Item   `json:"items"`
	Reports []pipeline.Report `json:"reports"`
	Metrics RunMetrics        `json:"metrics"`
}

// Run 處理整批比賽。
// ctx 取消時停止派發新的場次；已派發的仍會完成，未派發的原樣留在結果中，並回傳 Warn 錯誤。
func (r *Runner) Run(ctx context.Context, items []pipeline.Item) (*BatchResult, error) {
	r.reset()
	res := &BatchResult{
		Items:   items,
		Reports: make([]pipeline.Report, len(items)),
		Metrics: RunMetrics{RunID: uuid.NewString(), Items: len(items)},
	}
	log := r.lab.log.With(slog.String("run_id", res.Metrics.RunID))
	start := r.now()

	st, err := r.lab.flags.Load(ctx)
	if err != nil {
		// 旗標讀取失敗時照常執行
		log.Warn("load flags failed", slog.Any("err", err))
	}
	br := st.Breaker(r.lab.cfg.Breaker)
	switch {
	case !st.EnabledOr(true):
		res.Metrics.Gate = GateDisabled
	case !br.Allow(start):
		res.Metrics.Gate = GateBreaker
	}
	if res.Metrics.Gate != GateNone {
		for i, it := range items {
			res.Reports[i] = pipeline.Report{Fixture: it.Fixture(), League: it.League(), Skipped: true}
		}
		res.Metrics.Skipped = len(items)
		log.Warn("batch passed through", slog.String("gate", res.Metrics.Gate), slog.Int("items", len(items)))
		return res, nil
	}

	jobs := make(chan int, 2*r.workers)
	wg := new(sync.WaitGroup)
	wg.Add(r.workers)

	bar := pb.StartNew(len(items))
	if !r.showpb {
		bar.SetWriter(io.Discard)
	}
	for w := 0; w < r.workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				res.Items[i], res.Reports[i] = r.processOne(items[i], log)
				bar.Increment()
			}
		}()
	}

	var runErr error
feed:
	for i := range items {
		select {
		case <-ctx.Done():
			runErr = errs.NewWarn("batch canceled/timeout: " + ctx.Err().Error())
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	bar.Finish()

	m := &res.Metrics
	m.Processed = int(r.processed.Load())
	m.Skipped = int(r.skipped.Load())
	m.Failed = int(r.failed.Load())
	m.FailedMarkets = int(r.markets.Load())
	m.Panics = int(r.panics.Load())
	m.Used = r.now().Sub(start)

	end := r.now()
	if m.Panics > 0 {
		m.BreakerOpened = br.Record(m.Panics, end)
	} else {
		br.Allow(end)
	}
	// 批次被取消時仍要寫回失敗數
	if err := r.lab.flags.Save(context.WithoutCancel(ctx), st.WithBreaker(br)); err != nil {
		log.Warn("save flags failed", slog.Any("err", err))
	}
	if m.BreakerOpened {
		log.Error("breaker opened", slog.Int("failures", br.Failures), slog.Time("open_until", br.OpenUntil))
	}
	log.Info("batch done",
		slog.Int("items", m.Items),
		slog.Int("processed", m.Processed),
		slog.Int("failed", m.Failed),
		slog.Int("panics", m.Panics),
		slog.Duration("used", m.Used))
	return res, runErr
}

// processOne 處理單場；整場 panic 時回傳帶 v2.error 的原物件。
func (r *Runner) processOne(it pipeline.Item, log *slog.Logger) (out pipeline.Item, rep pipeline.Report) {
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			r.failed.Add(1)
			if it == nil {
				it = pipeline.Item{}
			}
			e := errs.Kindf(errs.ItemFailure, "panic: %v", rec)
			v2 := it.V2()
			if v2 == nil {
				v2 = map[string]any{}
				it[pipeline.KeyV2] = v2
			}
			v2["error"] = fmt.Sprintf("%s: %s", e.Kind, e.Message)
			out = it
			rep = pipeline.Report{Failed: []string{pipeline.KeyV2}, Panicked: []string{pipeline.KeyV2}}
			log.Error("postprocess item panic", slog.Any("err", e))
		}
	}()
	out, rep = r.lab.pipe.Process(it)
	switch {
	case rep.Skipped:
		r.skipped.Add(1)
	default:
		r.processed.Add(1)
	}
	if !rep.OK() {
		r.failed.Add(1)
		r.markets.Add(int64(len(rep.Failed)))
	}
	if len(rep.Panicked) > 0 {
		r.panics.Add(1)
	}
	return out, rep
}

func (r *Runner) reset() {
	r.processed.Store(0)
	r.skipped.Store(0)
	r.failed.Store(0)
	r.markets.Store(0)
	r.panics.Store(0)
}
