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

// Package footprob 提供足球機率後處理的「組裝入口」與「批次執行入口」。
//
// Lab 把三個地基組裝在一起：
//  1. Config：流程設定、混合權重、各聯賽 λ3 與斷路器參數。
//  2. Catalog：各 (聯賽, 市場) 的校準模型，來源一律以 fs.FS 注入。
//  3. Snapshot：由前兩者凍結而成的唯讀快照，整個批次共用。
//
// Lab 本身不綁定任何檔案路徑；設定與校準檔可以來自 go:embed、os.DirFS 或其他 fs.FS。
// Runner 在 Lab 之上以多個 goroutine 處理一批比賽，並受斷路器保護。
//
//	lab, _ := footprob.New(cfg, os.DirFS("calib"))
//	res, _ := lab.NewRunner(4, false).Run(ctx, items)
package footprob

import (
	"io"
	"io/fs"
	"log/slog"

	"github.com/zintix-labs/footprob/catalog"
	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/flags"
	"github.com/zintix-labs/footprob/pipeline"
	"github.com/zintix-labs/footprob/sdk/blend"
	"github.com/zintix-labs/footprob/sdk/score"
	"github.com/zintix-labs/footprob/setting"
)

// Calibrations 用來把一或多個校準檔來源打包成 New() 的參數。
func Calibrations(src ...fs.FS) []fs.FS {
	return src
}

// Lab 持有一份凍結後的設定與校準目錄；建立後即為唯讀，可被多個 Runner 與 HTTP handler 共用。
type Lab struct {
	cfg   *setting.Config
	cat   *catalog.Catalog
	snap  *pipeline.Snapshot
	pipe  *pipeline.Pipeline
	log   *slog.Logger
	flags flags.Store
}

// New 建立 Lab。
//   - cfg 為 nil 時使用 setting.Default()。
//   - calib 可為空：沒有校準檔時二元市場一律走 identity。
//
// 校準目錄在此完成載入與凍結；任何檔名或內容錯誤都直接回傳 error。
func New(cfg *setting.Config, calib ...fs.FS) (*Lab, error) {
	return NewWith(cfg, nil, nil, calib...)
}

// NewWith 與 New 相同，另外指定 logger 與旗標儲存（nil 分別為不輸出與記憶體儲存）。
func NewWith(cfg *setting.Config, log *slog.Logger, store flags.Store, calib ...fs.FS) (*Lab, error) {
	if cfg == nil {
		cfg = setting.Default()
	}
	if err := cfg.Valid(); err != nil {
		return nil, err
	}
	cat, err := catalog.New(calib...)
	if err != nil {
		return nil, err
	}
	cat.Freeze()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if store == nil {
		store = flags.NewMemoryStore()
	}
	snap := pipeline.NewSnapshot(cfg, cat)
	return &Lab{
		cfg:   cfg,
		cat:   cat,
		snap:  snap,
		pipe:  pipeline.New(snap, log),
		log:   log,
		flags: store,
	}, nil
}

func (l *Lab) Config() *setting.Config { return l.cfg }

func (l *Lab) Catalog() *catalog.Catalog { return l.cat }

func (l *Lab) Snapshot() *pipeline.Snapshot { return l.snap }

func (l *Lab) Flags() flags.Store { return l.flags }

func (l *Lab) Logger() *slog.Logger { return l.log }

// Process 處理單場比賽（不經過斷路器）
func (l *Lab) Process(it pipeline.Item) (pipeline.Item, pipeline.Report) {
	return l.pipe.Process(it)
}

// Weight 解析某聯賽某市場的混合權重與來源
func (l *Lab) Weight(league, market string) (float64, blend.Source) {
	return l.cfg.Blend.Resolve(league, market)
}

// ScoreMatrix 以聯賽設定的 λ3 建立比分矩陣；maxGoals <= 0 時使用設定值。
// lambda3 非 nil 時覆蓋聯賽設定。
func (l *Lab) ScoreMatrix(r score.Rates, league string, lambda3 *float64, maxGoals int) (*score.Matrix, error) {
	if maxGoals <= 0 {
		maxGoals = l.cfg.Pipeline.MaxGoals
	}
	if maxGoals > 30 {
		return nil, errs.Kindf(errs.MalformedInput, "max_goals too large: %d", maxGoals)
	}
	l3 := l.cfg.Lambda3For(league)
	if lambda3 != nil {
		l3 = *lambda3
	}
	return score.New(r, l3, maxGoals), nil
}
