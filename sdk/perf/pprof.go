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

// Package perf 包裝 runtime/pprof，讓 CLI 以 -p 旗標輸出 profile。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/footprob/errs"
)

// Dir pprof 檔案寫入路徑
var Dir = "build/profiling"

// Modes 可用的 profile 模式；空字串代表不開啟
var Modes = []string{"", "cpu", "heap", "allocs"}

// RunPProf 依 mode 包住 exe 執行；未知的 mode 回傳 Config 錯誤且不執行 exe。
//
// Usage like:
//
//	go run ./cmd/run -in items.json -p cpu
//	go tool pprof build/profiling/cpu.pprof
func RunPProf(exe func() error, mode string) error {
	switch mode {
	case "":
		return exe()
	case "cpu":
		return PProfCPU(exe)
	case "heap":
		return snapshot(exe, "heap", "heap.pprof")
	case "allocs":
		return snapshot(exe, "allocs", "allocs.pprof")
	}
	return errs.Kindf(errs.Config, "unknown pprof mode: %q", mode)
}

// PProfCPU 整段 exe 期間的 CPU profile，也可作為 PGO 的 default.pgo 來源。
func PProfCPU(exe func() error) error {
	f, err := create("cpu.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// snapshot 先執行 exe，GC 後寫出一次 heap / allocs 快照。
func snapshot(exe func() error, profile, file string) error {
	runErr := exe()
	f, err := create(file)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.Lookup(profile).WriteTo(f, 0); err != nil {
		return errs.Wrap(err, "write "+profile+" profile")
	}
	return runErr
}

func create(name string) (*os.File, error) {
	if err := os.MkdirAll(Dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create profiling dir")
	}
	f, err := os.Create(filepath.Join(Dir, name))
	if err != nil {
		return nil, errs.Wrap(err, "create "+name)
	}
	return f, nil
}
