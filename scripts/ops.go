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
	"fmt"
	"os"
	"strings"
)

// go run ./scripts [task] [args...]
func main() {
	if len(os.Args) < 2 {
		PrintYellow("Usage: go run ./scripts [test|test-all|test-detail|test-redis|audit|pgo] [args...]")
		os.Exit(1)
	}
	if err := selectTask(os.Args[1], os.Args[2:]); err != nil {
		PrintRed(err.Error())
		os.Exit(1)
	}
}

func selectTask(task string, args []string) error {
	switch task {
	case "test":
		// 只留 ok / FAIL 與編譯錯誤
		return runGo(nil, summaryLine, "test", "./...", "-cover", "-count=1")
	case "test-all":
		return runGo(nil, nil, "test", "./...", "-cover")
	case "test-detail":
		return runGo(nil, func(l string) bool { return !strings.Contains(l, "[no test files]") }, "test", "./...", "-v", "-count=1")
	case "test-redis":
		// 需要本機或參數指定的 Redis，會寫入 flag:v2_* 兩個鍵
		addr := "127.0.0.1:6379"
		if len(args) > 0 {
			addr = args[0]
		}
		return runGo([]string{"FOOTPROB_REDIS_ADDR=" + addr}, nil, "test", "./flags", "-run", "Redis", "-count=1", "-v")
	case "audit":
		if len(args) == 0 {
			return fmt.Errorf("audit needs an items file")
		}
		return runGo(nil, nil, "run", "./cmd/run", "-in", args[0], "-audit", "table", "-nopb")
	case "pgo":
		return pgo(args)
	}
	return fmt.Errorf("unknown task: %s", task)
}

func summaryLine(l string) bool {
	return strings.HasPrefix(l, "ok") || strings.HasPrefix(l, "FAIL") ||
		strings.Contains(l, "build failed") || strings.Contains(l, "setup failed")
}
