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
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// runGo 執行 go 子指令；keep 不為 nil 時只印出 keep 回傳 true 的行，並依 ok / FAIL 上色。
// 每次測試前先清 test cache。
func runGo(env []string, keep func(string) bool, args ...string) error {
	if args[0] == "test" {
		if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
			PrintYellow("go clean -testcache failed: " + err.Error())
		}
	}
	PrintGreen("go " + strings.Join(args, " "))

	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), env...)
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start go %s: %w", args[0], err)
	}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
		pw.Close()
	}()

	sc := bufio.NewScanner(pr)
	for sc.Scan() {
		line := sc.Text()
		if keep != nil && !keep(line) {
			continue
		}
		switch {
		case strings.HasPrefix(line, "ok"):
			PrintGreen(line)
		case strings.HasPrefix(line, "FAIL"), strings.HasPrefix(line, "--- FAIL"):
			PrintRed(line)
		default:
			fmt.Println(line)
		}
	}
	if err := <-done; err != nil {
		return fmt.Errorf("go %s finished with errors: %w", args[0], err)
	}
	return nil
}

// pgo 以 cmd/run 跑一次 CPU profile，複製到 cmd/svr/default.pgo 供建置時使用。
func pgo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("pgo needs an items file")
	}
	if err := runGo(nil, nil, "run", "./cmd/run", "-in", args[0], "-audit", "none", "-nopb", "-p", "cpu"); err != nil {
		return err
	}
	raw, err := os.ReadFile("build/profiling/cpu.pprof")
	if err != nil {
		return err
	}
	if err := os.WriteFile("cmd/svr/default.pgo", raw, 0o644); err != nil {
		return err
	}
	PrintGreen("wrote cmd/svr/default.pgo")
	return nil
}
