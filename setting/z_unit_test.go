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

package setting_test

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/setting"
)

const cfgYAML = `
pipeline:
  enabled: true
  max_goals: 8
  implied_min: 0.03
  implied_max: 0.97
  calibrate_1x2: true
  workers: 4
blend:
  defaults:
    btts: 0.2
  leagues:
    "39": {1x2: 0.3}
    "61": 0.12
lambda3:
  "39": 0.11
breaker:
  fail_max: 3
  cooldown: 10m
`

func TestGetConfigByYAML(t *testing.T) {
	c, err := setting.GetConfigByYAML([]byte(cfgYAML))
	if err != nil {
		t.Fatal(err)
	}
	if c.Pipeline.MaxGoals != 8 || c.Pipeline.Workers != 4 || !c.Pipeline.Calibrate1X2 {
		t.Fatalf("pipeline not decoded: %+v", c.Pipeline)
	}
	if c.Breaker.Cooldown.D() != 10*time.Minute || c.Breaker.FailMax != 3 {
		t.Fatalf("breaker not decoded: %+v", c.Breaker)
	}
	if got := c.Lambda3For("39"); got != 0.11 {
		t.Fatalf("lambda3 = %v", got)
	}
	if got := c.Lambda3For("140"); got != 0 {
		t.Fatalf("missing league lambda3 = %v", got)
	}
	// defaults 與檔案合併
	if w := c.Blend.Weight("140", "1x2"); w != 0.15 {
		t.Fatalf("merged default 1x2 weight = %v", w)
	}
	if w := c.Blend.Weight("140", "btts"); w != 0.2 {
		t.Fatalf("btts weight = %v", w)
	}
	if w := c.Blend.Weight("61", "o25"); w != 0.12 {
		t.Fatalf("scalar league weight = %v", w)
	}
	n := c.Normalizer()
	if n.Min != 0.03 || n.Max != 0.97 {
		t.Fatalf("normalizer = %+v", n)
	}
}

func TestDefaultsWhenEmpty(t *testing.T) {
	c, err := setting.GetConfigByYAML(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Pipeline.Enabled || c.Pipeline.MaxGoals != 10 || c.Breaker.FailMax != 5 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.Breaker.Cooldown.D() != 15*time.Minute {
		t.Fatalf("cooldown = %v", c.Breaker.Cooldown)
	}
}

func TestStrictRejectsUnknown(t *testing.T) {
	_, err := setting.GetConfigByYAML([]byte("pipeline:\n  enabeld: false\n"))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
	if errs.KindOf(err) != errs.Config {
		t.Fatalf("kind = %s", errs.KindOf(err))
	}
	if _, err := setting.GetConfigByJSON([]byte(`{"pipline":{}}`)); err == nil {
		t.Fatal("expected unknown field error for json")
	}
}

func TestInvalidValues(t *testing.T) {
	bad := []string{
		"pipeline: {implied_min: 0.9, implied_max: 0.1}",
		"lambda3: {\"39\": -0.2}",
		"blend: {defaults: {1x2: 2}}",
		"breaker: {cooldown: soon}",
	}
	for _, b := range bad {
		if _, err := setting.GetConfigByYAML([]byte(b)); err == nil {
			t.Fatalf("expected error for %q", b)
		}
	}
}

func TestLoadJSONAndZstd(t *testing.T) {
	js := []byte(`{"pipeline":{"enabled":false,"workers":2},"breaker":{"cooldown":30}}`)
	zs, err := setting.Compress([]byte(cfgYAML))
	if err != nil {
		t.Fatal(err)
	}
	fsys := fstest.MapFS{
		"a.json":     {Data: js},
		"b.yaml.zst": {Data: zs},
		"c.toml":     {Data: []byte("x=1")},
	}
	c, err := setting.Load(fsys, "a.json")
	if err != nil {
		t.Fatal(err)
	}
	if c.Pipeline.Enabled || c.Pipeline.Workers != 2 || c.Breaker.Cooldown.D() != 30*time.Second {
		t.Fatalf("json config = %+v", c)
	}
	c, err = setting.Load(fsys, "b.yaml.zst")
	if err != nil {
		t.Fatal(err)
	}
	if c.Pipeline.MaxGoals != 8 {
		t.Fatalf("zstd config = %+v", c.Pipeline)
	}
	if _, err := setting.Load(fsys, "c.toml"); err == nil {
		t.Fatal("expected unsupported format")
	}
	if _, err := setting.Load(fsys, "missing.yaml"); err == nil {
		t.Fatal("expected missing file error")
	}
}
