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

package stats_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/footprob/pipeline"
	"github.com/zintix-labs/footprob/stats"
)

func TestBrierAndLogLoss(t *testing.T) {
	ps := []float64{0.9, 0.2, 0.5}
	ys := []float64{1, 0, 1}

	b, err := stats.Brier(ps, ys)
	require.NoError(t, err)
	assert.InDelta(t, (0.01+0.04+0.25)/3, b, 1e-12)

	ll, err := stats.LogLoss([]float64{1, 0}, []float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, ll, 1e-12)

	ll, err = stats.LogLoss([]float64{0}, []float64{1})
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(stats.LogLossEps), ll, 1e-9, "probabilities are clipped")

	_, err = stats.Brier(ps, ys[:2])
	require.Error(t, err)
	_, err = stats.LogLoss(nil, nil)
	require.Error(t, err)
}

func TestReliability(t *testing.T) {
	ps := []float64{0.05, 0.1, 0.15, 0.85, 0.95, 1.0}
	ys := []float64{0, 0, 1, 1, 1, 0}
	bins, err := stats.Reliability(ps, ys, 2)
	require.NoError(t, err)
	require.Len(t, bins, 2)

	assert.Equal(t, 3, bins[0].Count)
	assert.InDelta(t, 0.1, bins[0].MeanP, 1e-12)
	assert.InDelta(t, 1.0/3, bins[0].Rate, 1e-12)
	assert.Less(t, bins[0].RateCI.Lo, bins[0].Rate)
	assert.Greater(t, bins[0].RateCI.Hi, bins[0].Rate)

	// p = 1 落在最後一箱
	assert.Equal(t, 3, bins[1].Count)
	assert.InDelta(t, 2.0/3, bins[1].Rate, 1e-12)

	ece := stats.ECE(bins)
	assert.InDelta(t, (3*math.Abs(0.1-1.0/3)+3*math.Abs((0.85+0.95+1.0)/3-2.0/3))/6, ece, 1e-9)

	_, err = stats.Reliability(ps, ys, 0)
	require.Error(t, err)

	table := stats.ReliabilityTable("OU25", bins)
	assert.Contains(t, table, "OU25")
	assert.Contains(t, table, "[0.00, 0.50)")
}

func auditItem(league string, raw, final float64) pipeline.Item {
	return pipeline.Item{
		"league_id":   league,
		"predictions": map[string]any{"over_2_5": map[string]any{"prob": raw}},
		"v2": map[string]any{
			pipeline.OutOU25: map[string]any{"final": map[string]any{"over": final, "under": 1 - final}},
		},
	}
}

func buildAudit() *stats.AuditReport {
	items := []pipeline.Item{
		auditItem("39", 0.995, 0.9),
		auditItem("39", 0.005, 0.009),
		auditItem("39", 0.5, 0.5),
		auditItem("61", 0.999, 0.991),
		{"league_id": "61", "v2": map[string]any{"error": "item_failure: panic: boom"}},
	}
	a := stats.NewAudit().AddAll(items)
	a.Done()
	return a
}

func TestAuditCounts(t *testing.T) {
	a := buildAudit()
	assert.Equal(t, 5, a.Items)
	assert.Equal(t, 1, a.Errors)
	require.Len(t, a.Leagues, 2)

	l39 := a.Leagues[0]
	assert.Equal(t, "39", l39.League)
	assert.Equal(t, 3, l39.Count)
	assert.Equal(t, 0, l39.FinalGE)
	assert.Equal(t, 1, l39.FinalLE)
	assert.Equal(t, 1, l39.RawGE)
	assert.Equal(t, 1, l39.RawLE)
	assert.InDelta(t, 1.0/3, l39.FinalExt.Hat, 1e-12)
	assert.InDelta(t, 2.0/3, l39.RawExt.Hat, 1e-12)

	l61 := a.Leagues[1]
	assert.Equal(t, 1, l61.Count)
	assert.Equal(t, 1, l61.FinalGE)
	assert.Equal(t, 1.0, l61.FinalExt.CI.Hi)
}

func TestAuditRenders(t *testing.T) {
	a := buildAudit()

	var js bytes.Buffer
	require.NoError(t, a.WriteWith(&js, &stats.JsonAuditRender{}))
	var back map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &back))
	assert.EqualValues(t, 5, back["items"])

	var csvBuf bytes.Buffer
	require.NoError(t, a.WriteWith(&csvBuf, &stats.CSVAuditRender{}))
	lines := strings.Split(strings.TrimSpace(csvBuf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "39,3,0,1,1,1", lines[1])

	var yml bytes.Buffer
	require.NoError(t, a.WriteWith(&yml, &stats.YAMLAuditRender{}))
	assert.Contains(t, yml.String(), "league: \"39\"")

	r, ok := stats.RenderByName("table")
	require.True(t, ok)
	var tbl bytes.Buffer
	require.NoError(t, a.WriteWith(&tbl, r))
	assert.Contains(t, tbl.String(), "League 61")

	_, ok = stats.RenderByName("xml")
	assert.False(t, ok)
}
