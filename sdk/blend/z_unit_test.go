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

package blend_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/footprob/sdk/blend"
	"github.com/zintix-labs/footprob/sdk/prob"
)

const weightsYAML = `
defaults:
  1x2: 0.2
  binary: 0.12
  btts: 0.3
leagues:
  "39":
    1x2: 0.4
    default: 0.25
  "61": 0.05
  "78":
    o25: 0.6
`

func TestResolvePrecedence(t *testing.T) {
	var w blend.Weights
	require.NoError(t, yaml.Unmarshal([]byte(weightsYAML), &w))
	require.NoError(t, w.Valid())

	cases := []struct {
		league, market string
		want           float64
		src            blend.Source
	}{
		{"39", "1x2", 0.4, blend.FromLeagueMarket},
		{"39", "o25", 0.25, blend.FromLeagueDefault},
		{"61", "1x2", 0.05, blend.FromLeagueDefault},
		{"61", "btts", 0.05, blend.FromLeagueDefault},
		{"78", "o25", 0.6, blend.FromLeagueMarket},
		{"78", "1x2", 0.2, blend.FromGlobalMarket},
		{"78", "btts", 0.3, blend.FromGlobalMarket},
		{"99", "o25", 0.12, blend.FromGlobalClass},
	}
	for _, c := range cases {
		got, src := w.Resolve(c.league, c.market)
		assert.InDelta(t, c.want, got, 1e-12, "%s/%s", c.league, c.market)
		assert.Equal(t, c.src, src, "%s/%s", c.league, c.market)
	}

	var empty blend.Weights
	v, src := empty.Resolve("1", "1x2")
	assert.Equal(t, blend.Fallback1X2, v)
	assert.Equal(t, blend.FromFallback, src)
	assert.Equal(t, blend.FallbackBinary, empty.Weight("1", "btts"))

	var nilW *blend.Weights
	assert.Equal(t, blend.FallbackBinary, nilW.Weight("1", "o25"))
}

func TestWeightsJSON(t *testing.T) {
	raw := `{"defaults":{"1x2":0.1},"leagues":{"140":0.3,"135":{"btts":0.2}}}`
	var w blend.Weights
	require.NoError(t, json.Unmarshal([]byte(raw), &w))
	assert.Equal(t, 0.3, w.Weight("140", "1x2"))
	assert.Equal(t, 0.2, w.Weight("135", "btts"))

	out, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"default":0.3`)

	bad := blend.Weights{Defaults: map[string]float64{"1x2": 1.5}}
	assert.Error(t, bad.Valid())
	assert.Error(t, json.Unmarshal([]byte(`{"leagues":{"1":"x"}}`), &w))
}

func TestTriplet(t *testing.T) {
	model := prob.Triplet{Home: 0.5, Draw: 0.3, Away: 0.2}
	mkt := prob.Triplet{Home: 0.4, Draw: 0.3, Away: 0.3}

	assert.Equal(t, model, blend.Triplet(model, prob.Triplet{}, 0.5))

	got := blend.Triplet(model, mkt, 0.5)
	assert.InDelta(t, 0.45, got.Home, 1e-12)
	assert.InDelta(t, 0.25, got.Away, 1e-12)
	assert.InDelta(t, 1.0, got.Sum(), 1e-12)

	same := blend.Triplet(model, mkt, 0)
	assert.InDelta(t, model.Home, same.Home, 1e-12)
	assert.InDelta(t, model.Away, same.Away, 1e-12)
	full := blend.Triplet(model, mkt, 1)
	assert.InDelta(t, mkt.Home, full.Home, 1e-12)
}

func TestBinary(t *testing.T) {
	assert.Equal(t, 0.6, blend.Binary(0.6, prob.Binary{}, 0.3))
	assert.Equal(t, 1.0, blend.Binary(1.3, prob.Binary{}, 0.3))
	assert.InDelta(t, 0.9*0.6+0.1*0.5, blend.Binary(0.6, prob.Binary{Yes: 0.5, No: 0.5}, 0.1), 1e-12)
}
