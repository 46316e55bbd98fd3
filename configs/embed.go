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

// Package configs 內嵌預設設定檔。
package configs

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/zintix-labs/footprob/setting"
)

// DefaultName 內嵌預設設定檔名
const DefaultName = "config.yaml"

//go:embed *.yaml
var FS embed.FS

// Default 讀取內嵌的預設設定
func Default() (*setting.Config, error) {
	return setting.Load(FS, DefaultName)
}

// Load path 為空時使用內嵌預設，否則讀取本機檔案（.yaml / .yml / .json，可加 .zst）。
func Load(path string) (*setting.Config, error) {
	if path == "" {
		return Default()
	}
	return setting.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}
