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

package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/zintix-labs/footprob"
	"github.com/zintix-labs/footprob/configs"
	"github.com/zintix-labs/footprob/flags"
	"github.com/zintix-labs/footprob/server"
	"github.com/zintix-labs/footprob/server/app"
	"github.com/zintix-labs/footprob/server/logger"
	"github.com/zintix-labs/footprob/server/netsvr"
	"github.com/zintix-labs/footprob/server/svrcfg"
)

// HTTP 服務入口：go run ./cmd/svr -addr :5808 -calib ./calibration
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	config    string
	calib     string
	addr      string
	logMode   string
	redisAddr string
	redisPass string
	redisDB   int
	timeout   time.Duration
	maxBody   int64
	workers   int
	token     string
}

func bindVar() *config {
	cfg := new(config)
	flag.StringVar(&cfg.config, "config", "", "config file (.yaml/.json, optional .zst); empty uses the embedded default")
	flag.StringVar(&cfg.calib, "calib", "", "calibration directory (<league>_<market>.yaml)")
	flag.StringVar(&cfg.addr, "addr", ":5808", "listen address")
	flag.StringVar(&cfg.logMode, "log-mode", "dev", "log mode: dev, prod, silence")
	flag.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for shared flags; empty keeps flags in memory")
	flag.StringVar(&cfg.redisPass, "redis-password", "", "redis password")
	flag.IntVar(&cfg.redisDB, "redis-db", 0, "redis db")
	flag.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "per request timeout")
	flag.Int64Var(&cfg.maxBody, "max-body", 16<<20, "max request body in bytes")
	flag.IntVar(&cfg.workers, "workers", 0, "workers per batch (0 uses pipeline.workers)")
	flag.StringVar(&cfg.token, "token", os.Getenv("FOOTPROB_API_TOKEN"), "bearer token for POST /v1/flags/v2; empty disables toggling")
	flag.Parse()
	return cfg
}

func run() error {
	cfg := bindVar()
	mode, err := logger.ParseMode(cfg.logMode)
	if err != nil {
		return err
	}
	log, ah := logger.NewAsync(4096, mode)
	defer ah.Close()
	// logger 最先註冊、最後關閉
	extra := []app.Component{app.Closer(ah)}

	c, err := configs.Load(cfg.config)
	if err != nil {
		return err
	}
	var store flags.Store
	if cfg.redisAddr != "" {
		rs, err := flags.NewRedisStore(context.Background(), cfg.redisAddr, cfg.redisPass, cfg.redisDB, c.Breaker.Cooldown.D())
		if err != nil {
			return err
		}
		store = rs
		extra = append(extra, app.Closer(rs))
	}
	var calibs []fs.FS
	if cfg.calib != "" {
		calibs = append(calibs, os.DirFS(cfg.calib))
	}
	lab, err := footprob.NewWith(c, log, store, footprob.Calibrations(calibs...)...)
	if err != nil {
		return err
	}

	sCfg := &svrcfg.SvrCfg{
		Log:     log,
		Lab:     lab,
		Timeout: cfg.timeout,
		MaxBody: cfg.maxBody,
		Workers: cfg.workers,
		Token:   cfg.token,
	}
	return server.RunWithSvr(context.Background(), sCfg, netsvr.NewChiServer(cfg.addr), extra...)
}
