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
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zintix-labs/footprob"
	"github.com/zintix-labs/footprob/configs"
	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/pipeline"
	"github.com/zintix-labs/footprob/server/logger"
	"github.com/zintix-labs/footprob/stats"
	"github.com/zintix-labs/footprob/store"
)

var cfg *config = new(config)

type config struct {
	config    string
	calib     string
	in        string
	db        string
	league    string
	save      bool
	out       string
	workers   int
	audit     string
	logMode   string
	nopb      bool
	pprofmode string
}

func bindVar() {
	flag.StringVar(&cfg.config, "config", "", "config file (.yaml/.json, optional .zst); empty uses the embedded default")
	flag.StringVar(&cfg.calib, "calib", "", "calibration directory (<league>_<market>.yaml)")
	flag.StringVar(&cfg.in, "in", "", "input JSON array of items")
	flag.StringVar(&cfg.db, "db", "", "SQLite item store (instead of -in)")
	flag.StringVar(&cfg.league, "league", "", "only load this league from -db")
	flag.BoolVar(&cfg.save, "save", false, "write processed items back to -db")
	flag.StringVar(&cfg.out, "out", "", "output JSON file, '-' for stdout")
	flag.IntVar(&cfg.workers, "workers", 0, "number of workers (0 uses pipeline.workers)")
	flag.StringVar(&cfg.audit, "audit", "table", "audit output: table, yaml, json, csv, none")
	flag.StringVar(&cfg.logMode, "log-mode", "silence", "log mode: dev, prod, silence")
	flag.BoolVar(&cfg.nopb, "nopb", false, "hide progress bar")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()
}

func (cfg *config) valid() error {
	if (cfg.in == "") == (cfg.db == "") {
		return errs.Kindf(errs.Config, "exactly one of -in or -db is required")
	}
	if cfg.save && cfg.db == "" {
		return errs.Kindf(errs.Config, "-save needs -db")
	}
	if cfg.workers < 0 {
		return errs.Kindf(errs.Config, "workers must >= 0")
	}
	if cfg.audit != "none" {
		if _, ok := stats.RenderByName(cfg.audit); !ok {
			return errs.Kindf(errs.Config, "unknown audit render: %q", cfg.audit)
		}
	}
	return nil
}

func execute() error {
	if err := cfg.valid(); err != nil {
		return err
	}
	mode, err := logger.ParseMode(cfg.logMode)
	if err != nil {
		return err
	}
	c, err := configs.Load(cfg.config)
	if err != nil {
		return err
	}
	var calibs []fs.FS
	if cfg.calib != "" {
		calibs = append(calibs, os.DirFS(cfg.calib))
	}
	lab, err := footprob.NewWith(c, logger.New(mode), nil, footprob.Calibrations(calibs...)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *store.Store
	var items []pipeline.Item
	if cfg.db != "" {
		if db, err = store.Open(ctx, cfg.db); err != nil {
			return err
		}
		defer db.Close()
		if items, err = db.Load(ctx, cfg.league); err != nil {
			return err
		}
	} else if items, err = readItems(cfg.in); err != nil {
		return err
	}

	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	r := lab.NewRunner(cfg.workers, !cfg.nopb)
	p.Printf("%s[ITEMS:%d] [CALIBRATIONS:%d] [ENABLED:%t]%s\n", green, len(items), lab.Catalog().Len(), c.Pipeline.Enabled, reset)

	res, runErr := r.Run(ctx, items)
	if runErr != nil && res == nil {
		return runErr
	}
	m := res.Metrics
	p.Printf("%s[RUN:%s] [PROCESSED:%d] [SKIPPED:%d] [FAILED:%d] [PANICS:%d] [USED:%s]%s\n",
		green, m.RunID, m.Processed, m.Skipped, m.Failed, m.Panics, m.Used, reset)
	if m.Gate != "" {
		p.Printf("batch passed through: %s\n", m.Gate)
	}

	if err := writeItems(cfg.out, res.Items); err != nil {
		return err
	}
	if cfg.save {
		n, err := db.Save(ctx, res.Items)
		if err != nil {
			return err
		}
		p.Printf("saved %d items to %s\n", n, cfg.db)
	}
	if cfg.audit != "none" {
		rep, _ := stats.RenderByName(cfg.audit)
		if err := stats.NewAudit().AddAll(res.Items).WriteWith(os.Stdout, rep); err != nil {
			return err
		}
	}
	if runErr != nil {
		log.Print(runErr)
	}
	return nil
}

// readItems 讀取 JSON 陣列；單一物件也接受。
func readItems(path string) ([]pipeline.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapKind(err, errs.MissingInput, "read "+path)
	}
	raw = bytes.TrimSpace(raw)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if len(raw) > 0 && raw[0] == '{' {
		var it pipeline.Item
		if err := dec.Decode(&it); err != nil {
			return nil, errs.WrapKind(err, errs.MalformedInput, "decode "+path)
		}
		return []pipeline.Item{it}, nil
	}
	var items []pipeline.Item
	if err := dec.Decode(&items); err != nil {
		return nil, errs.WrapKind(err, errs.MalformedInput, "decode "+path)
	}
	return items, nil
}

func writeItems(path string, items []pipeline.Item) error {
	if path == "" {
		return nil
	}
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return errs.Wrap(err, "create "+path)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return errs.Wrap(err, "write items")
	}
	return nil
}
