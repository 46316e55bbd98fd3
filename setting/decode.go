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

package setting

import (
	"bytes"
	"encoding/json"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/footprob/errs"
)

// ZstdExt 壓縮設定檔的副檔名
const ZstdExt = ".zst"

// GetConfigByYAML
// 會以嚴格模式讀取 YAML 設定（未知欄位直接報錯）、補齊預設值並檢查後回傳
func GetConfigByYAML(data []byte) (*Config, error) {
	c := Default()
	if err := DecodeStrictYAML(data, c); err != nil {
		return nil, errs.WrapKind(err, errs.Config, "failed to unmarshall yaml")
	}
	if err := c.init(); err != nil {
		return nil, errs.WrapKind(err, errs.Config, "config initialized err")
	}
	return c, nil
}

// GetConfigByJSON
// 同 GetConfigByYAML，來源為 JSON
func GetConfigByJSON(data []byte) (*Config, error) {
	c := Default()
	if err := DecodeStrictJSON(data, c); err != nil {
		return nil, errs.WrapKind(err, errs.Config, "can not unmarshall json byte")
	}
	if err := c.init(); err != nil {
		return nil, errs.WrapKind(err, errs.Config, "config initialized err")
	}
	return c, nil
}

// DecodeStrictYAML 嚴格檢查：多寫/拼錯欄位就報錯；空文件視為不覆蓋。
func DecodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// DecodeStrictJSON JSON 版本的嚴格解碼
func DecodeStrictJSON(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// ReadFile 讀取 fs 中的檔案；副檔名為 .zst 時先解壓。
// 回傳內容與去掉 .zst 之後的檔名（用於判斷格式）。
func ReadFile(fsys fs.FS, name string) ([]byte, string, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, name, errs.WrapKind(err, errs.Config, "read config file failed")
	}
	if !strings.EqualFold(filepath.Ext(name), ZstdExt) {
		return raw, name, nil
	}
	zr, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, name, errs.WrapKind(err, errs.Config, "create zstd reader failed")
	}
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, name, errs.WrapKind(err, errs.Config, "read decompressed data failed")
	}
	return plain, name[:len(name)-len(ZstdExt)], nil
}

// Load 依副檔名讀取設定檔：.yaml / .yml / .json，皆可加上 .zst
func Load(fsys fs.FS, name string) (*Config, error) {
	raw, plain, err := ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(plain)) {
	case ".yaml", ".yml":
		return GetConfigByYAML(raw)
	case ".json":
		return GetConfigByJSON(raw)
	default:
		return nil, errs.Kindf(errs.Config, "unsupported config format: %q", name)
	}
}

// Compress 以 zstd 壓縮，供工具輸出 .zst 設定
func Compress(plain []byte) ([]byte, error) {
	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, errs.Wrap(err, "create zstd writer failed")
	}
	defer zw.Close()
	return zw.EncodeAll(plain, nil), nil
}
