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

package api

import (
	"log/slog"

	v1 "github.com/zintix-labs/footprob/server/api/v1"
	"github.com/zintix-labs/footprob/server/netsvr"
	"github.com/zintix-labs/footprob/server/netsvr/middleware"
	"github.com/zintix-labs/footprob/server/svrcfg"
)

// RegisterRoutes 註冊 middleware 與 v1 api
func RegisterRoutes(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	registerMiddleware(svr, sCfg.Log)
	return registerV1API(svr, sCfg)
}

// 註冊 middleware；順序：request id → access log → recover → 解壓 → 壓縮
func registerMiddleware(svr netsvr.NetRouter, log *slog.Logger) {
	svr.Use(middleware.RequestID)
	svr.Use(middleware.AccessLog(log))
	svr.Use(middleware.Recover(log))
	svr.Use(middleware.Decompress)
	svr.Use(middleware.Compression)
}

// 註冊 v1 api
func registerV1API(svr netsvr.NetRouter, sCfg *svrcfg.SvrCfg) error {
	h, err := v1.NewHandler(sCfg)
	if err != nil {
		return err
	}
	svr.Group("/v1", func(vOne netsvr.NetRouter) {
		vOne.Get("/health", h.Health)
		vOne.Get("/weights", h.Weights)
		vOne.Get("/flags", h.Flags)
		vOne.Post("/flags/v2", h.ToggleV2)

		vOne.Post("/postprocess", h.Postprocess)
		vOne.Post("/scorematrix", h.ScoreMatrix)
	})
	return nil
}
