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

// Package catalog 管理每個 (聯賽, 市場) 的校準模型。
//
// 模型來源一律是「扁平」的 fs.FS，檔名即索引：{league}_{market}.{yaml,yml,json}[.zst]。
// 例如 39_o25.yaml、61_btts.json.zst、39_1x2_home.yaml。
// 多個來源出現相同 key 時直接失敗；Freeze 之後不可再註冊，整批運行期間唯讀。
package catalog

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/calib"
	"github.com/zintix-labs/footprob/setting"
)

var ErrDupKey = errs.NewFatal("duplicate calibration key")

// Key (聯賽, 市場)
type Key struct {
	League string `json:"league"`
	Market string `json:"market"`
}

func (k Key) String() string { return k.League + "_" + k.Market }

// Entry 目錄中一筆校準模型的摘要
type Entry struct {
	Key     Key    `json:"key"`
	File    string `json:"file"`
	Method  string `json:"method"`
	Samples int    `json:"samples"`
}

type Catalog struct {
	models  map[Key]calib.Model
	entries map[Key]Entry
	keys    []Key // 用來穩定排序
	src     *multiFS
	frozen  bool
}

// New 建立目錄並立即載入所有來源中的校準檔。未提供來源時為空目錄（全部走 identity）。
func New(src ...fs.FS) (*Catalog, error) {
	c := &Catalog{
		models:  map[Key]calib.Model{},
		entries: map[Key]Entry{},
		keys:    make([]Key, 0, 64),
	}
	if len(src) == 0 {
		return c, nil
	}
	m, err := newMultiFS(src...)
	if err != nil {
		return nil, errs.Wrap(err, "can not create catalog")
	}
	c.src = m
	for _, name := range m.Names() {
		if err := c.loadFile(name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) loadFile(name string) error {
	key, err := ParseKey(name)
	if err != nil {
		return err
	}
	fsys, _ := c.src.GetFS(name)
	raw, plain, err := setting.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	var a calib.Artifact
	switch strings.ToLower(filepath.Ext(plain)) {
	case ".json":
		err = setting.DecodeStrictJSON(raw, &a)
	default:
		err = setting.DecodeStrictYAML(raw, &a)
	}
	if err != nil {
		return errs.WrapWithExtra(err, "catalog parse file error", name)
	}
	model, err := a.Model()
	if err != nil {
		return errs.WrapWithExtra(err, "catalog build model error", name)
	}
	return c.register(key, model, Entry{Key: key, File: name, Method: model.Method(), Samples: a.Samples})
}

// Register 以程式方式加入模型（例如剛擬合完成的結果）
func (c *Catalog) Register(key Key, m calib.Model) error {
	if m == nil {
		return errs.NewFatal("nil calibration model")
	}
	if err := m.Valid(); err != nil {
		return errs.Wrap(err, "invalid calibration model")
	}
	return c.register(normKey(key), m, Entry{Key: normKey(key), Method: m.Method()})
}

func (c *Catalog) register(key Key, m calib.Model, e Entry) error {
	if c.frozen {
		return errs.NewWarn("can not register when catalog already frozen")
	}
	if key.League == "" || key.Market == "" {
		return errs.NewFatal(fmt.Sprintf("invalid calibration key: %+v", key))
	}
	if _, ok := c.models[key]; ok {
		return errs.WrapWithExtra(ErrDupKey, "register calibration", key.String())
	}
	c.models[key] = m
	c.entries[key] = e
	c.keys = append(c.keys, key)
	sort.Slice(c.keys, func(i, j int) bool {
		if c.keys[i].League != c.keys[j].League {
			return c.keys[i].League < c.keys[j].League
		}
		return c.keys[i].Market < c.keys[j].Market
	})
	return nil
}

// Lookup 取得模型；不存在時回傳 nil（呼叫端視為 identity）
func (c *Catalog) Lookup(league, market string) calib.Model {
	if c == nil {
		return nil
	}
	return c.models[normKey(Key{League: league, Market: market})]
}

func (c *Catalog) Keys() []Key {
	if len(c.keys) == 0 {
		return nil
	}
	return append([]Key(nil), c.keys...)
}

func (c *Catalog) All() []Entry {
	out := make([]Entry, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.entries[k])
	}
	return out
}

func (c *Catalog) Len() int { return len(c.models) }

func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) IsFrozen() bool {
	return c.frozen
}

func normKey(k Key) Key {
	return Key{League: strings.TrimSpace(k.League), Market: strings.ToLower(strings.TrimSpace(k.Market))}
}

// ParseKey 由檔名解析 (league, market)，以第一個底線切分。
func ParseKey(file string) (Key, error) {
	if err := validFileName(file); err != nil {
		return Key{}, err
	}
	base := file
	if strings.EqualFold(filepath.Ext(base), setting.ZstdExt) {
		base = base[:len(base)-len(setting.ZstdExt)]
	}
	base = base[:len(base)-len(filepath.Ext(base))]
	league, market, ok := strings.Cut(base, "_")
	if !ok || league == "" || market == "" {
		return Key{}, errs.NewFatal(fmt.Sprintf("invalid calibration filename: %q (want {league}_{market})", file))
	}
	return normKey(Key{League: league, Market: market}), nil
}

func isCalibFile(name string) bool {
	lower := strings.ToLower(name)
	lower = strings.TrimSuffix(lower, setting.ZstdExt)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".json")
}

func validFileName(file string) error {
	if file == "" {
		return errs.NewFatal("empty calibration filename")
	}
	// 1) 不能包含路徑或類似字元
	if strings.ContainsAny(file, `/\:`) {
		return errs.NewFatal(fmt.Sprintf("invalid calibration filename: %q (must be a basename; no / \\ :)", file))
	}
	// 2) 必須以 .yaml/.yml/.json 結尾，可再加 .zst
	if !isCalibFile(file) {
		return errs.NewFatal(fmt.Sprintf("invalid calibration filename: %q (must end with .yaml, .yml or .json, optionally .zst)", file))
	}
	// 3) 不能以 . 開頭
	if strings.HasPrefix(file, ".") {
		return errs.NewFatal(fmt.Sprintf("invalid calibration filename: %q (cannot start with '.')", file))
	}
	return nil
}

type multiFS struct {
	src   []fs.FS
	index map[string]int // name -> src index
}

func newMultiFS(src ...fs.FS) (*multiFS, error) {
	for i, s := range src {
		if s == nil {
			return nil, errs.NewFatal(fmt.Sprintf("fs[%d] is nil", i))
		}
	}
	m := &multiFS{
		src:   src,
		index: make(map[string]int, 256),
	}
	// eager validate: build index and detect duplicates
	for i := 0; i < len(src); i++ {
		err := fs.WalkDir(src[i], ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				// 只允許根目錄
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("calibration FS must be flat (no subdirectories): %q", path))
			}
			// 其他資產（README 等）直接略過
			if !isCalibFile(path) {
				return nil
			}
			if prev, ok := m.index[path]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate calibration %q in fs[%d] and fs[%d]", path, prev, i))
			}
			m.index[path] = i
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *multiFS) GetFS(name string) (fs.FS, bool) {
	if id, ok := m.index[name]; ok {
		return m.src[id], ok
	}
	return nil, false
}

// Names 依字母序回傳所有已索引的檔名
func (m *multiFS) Names() []string {
	out := make([]string, 0, len(m.index))
	for n := range m.index {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
