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

package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/server/api"
	"github.com/zintix-labs/footprob/server/app"
	"github.com/zintix-labs/footprob/server/netsvr"
	"github.com/zintix-labs/footprob/server/svrcfg"
)

// Run 組裝預設 HTTP server（ChiAdapter, :5808）、註冊路由並執行到收到終止信號。
// 依賴全部由 SvrCfg 注入，不讀取檔案路徑或環境變數。
func Run(sCfg *svrcfg.SvrCfg) error {
	return RunWithSvr(context.Background(), sCfg, netsvr.NewChiServerDefault())
}

// RunWithSvr 與 Run 相同，但使用呼叫端提供的 NetSvr；extra 為需要一起管理生命週期的元件
// （例如 Redis 連線、非同步 logger）。ctx 結束時同樣進入優雅關閉。
//
// SvrCfg 驗證失敗時錯誤會另外印到 stderr，避免 logger 不可用時看不到原因。
func RunWithSvr(ctx context.Context, sCfg *svrcfg.SvrCfg, svr netsvr.NetSvr, extra ...app.Component) error {
	if err := sCfg.Valid(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	if svr == nil {
		return errs.NewFatal("svr is required")
	}
	if s, ok := svr.(*netsvr.ChiAdapter); ok && !s.Ready() {
		return errs.NewFatal("default server is not ready")
	}
	if err := api.RegisterRoutes(svr, sCfg); err != nil {
		return err
	}

	a := app.New(sCfg.Log)
	// 關閉順序與註冊相反：先停 server，再關外部資源
	for _, c := range extra {
		a.Register(c)
	}
	a.Register(svr)
	sCfg.Log.Info("[footprob] listening", slog.String("addr", svr.Address()),
		slog.Int("calibrations", sCfg.Lab.Catalog().Len()))

	if err := a.Run(ctx); err != nil {
		sCfg.Log.Error("app stopped", slog.Any("err", err))
		return err
	}
	return nil
}
