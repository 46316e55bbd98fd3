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

package score_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/footprob/sdk/prob"
	"github.com/zintix-labs/footprob/sdk/score"
)

func TestMatrixSumsToOne(t *testing.T) {
	cases := []struct {
		r  score.Rates
		l3 float64
		mg int
	}{
		{score.Rates{Home: 1.5, Away: 1.1}, 0, 10},
		{score.Rates{Home: 1.5, Away: 1.1}, 0.15, 10},
		{score.Rates{Home: 6, Away: 5}, 0.3, 4},
		{score.Rates{Home: 0, Away: -2}, 0, 0},
		{score.Rates{Home: math.NaN(), Away: 1}, 0.5, 8},
	}
	for _, c := range cases {
		m := score.New(c.r, c.l3, c.mg)
		assert.InDelta(t, 1.0, m.Total(), 1e-9)
		p := m.OneXTwo()
		assert.InDelta(t, 1.0, p.Sum(), 1e-12)
	}
}

func TestIndependentCells(t *testing.T) {
	m := score.NewIndependent(score.Rates{Home: 1.5, Away: 1.1}, 10)
	require.Equal(t, 10, m.MaxGoals())
	assert.InDelta(t, math.Exp(-2.6), m.Cell(0, 0), 1e-6)
	assert.InDelta(t, 1.5*math.Exp(-2.6), m.Cell(1, 0), 1e-6)
	assert.Equal(t, 0.0, m.Cell(11, 0))
	assert.Equal(t, 0.0, m.Cell(-1, 0))
}

func TestBivariateZeroEqualsIndependent(t *testing.T) {
	r := score.Rates{Home: 1.7, Away: 0.9}
	a := score.NewIndependent(r, 10)
	b := score.NewBivariate(r, 0, 10)
	for i := 0; i <= 10; i++ {
		for j := 0; j <= 10; j++ {
			assert.InDelta(t, a.Cell(i, j), b.Cell(i, j), 1e-12)
		}
	}
}

func TestLogPMF(t *testing.T) {
	r := score.Rates{Home: 1.3, Away: 0.8}
	// λ3 = 0：兩個獨立 Poisson 的乘積
	want := -2.1 + 2*math.Log(1.3) - math.Log(2) + math.Log(0.8)
	assert.InDelta(t, want, score.LogPMF(r, 0, 2, 1), 1e-12)

	total := 0.0
	for i := 0; i <= 30; i++ {
		for j := 0; j <= 30; j++ {
			total += math.Exp(score.LogPMF(r, 0.2, i, j))
		}
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	m := score.NewBivariate(r, 0.2, 30)
	assert.InDelta(t, math.Exp(score.LogPMF(r, 0.2, 1, 1)), m.Cell(1, 1), 1e-9)
	assert.True(t, math.IsInf(score.LogPMF(r, 0.2, -1, 0), -1))
}

func TestLambda3RaisesDraws(t *testing.T) {
	r := score.Rates{Home: 1.4, Away: 1.2}
	d0 := score.NewBivariate(r, 0, 10).OneXTwo().Draw
	d1 := score.NewBivariate(r, 0.3, 10).OneXTwo().Draw
	assert.Greater(t, d1, d0)
}

func TestClampLambda3(t *testing.T) {
	r := score.Rates{Home: 1.2, Away: 0.8}
	assert.Equal(t, 0.0, score.ClampLambda3(r, -0.4))
	assert.Equal(t, 0.0, score.ClampLambda3(r, math.NaN()))
	assert.InDelta(t, 0.8-score.Eps, score.ClampLambda3(r, 5), 1e-15)
	assert.Equal(t, 0.3, score.ClampLambda3(r, 0.3))

	m := score.NewBivariate(r, 5, 10)
	assert.InDelta(t, 0.8-score.Eps, m.Lambda3(), 1e-15)
	assert.InDelta(t, 1.0, m.Total(), 1e-9)
}

func TestMonotoneInRates(t *testing.T) {
	lo := score.NewIndependent(score.Rates{Home: 1.0, Away: 1.2}, 10)
	hi := score.NewIndependent(score.Rates{Home: 2.0, Away: 1.2}, 10)
	assert.Greater(t, hi.OneXTwo().Home, lo.OneXTwo().Home)
	assert.Greater(t, hi.Over(2.5), lo.Over(2.5))
	assert.Greater(t, hi.BTTS(), lo.BTTS())
	assert.Greater(t, lo.Over(1.5), lo.Over(2.5))
}

func TestTopScoresOrdering(t *testing.T) {
	m := score.NewIndependent(score.Rates{Home: 1, Away: 1}, 10)
	top := m.TopScores(4)
	require.Len(t, top, 4)
	want := []string{"0-0", "0-1", "1-0", "1-1"}
	for i, s := range top {
		assert.Equal(t, want[i], s.String())
	}
	assert.Len(t, m.TopScores(1000), 121)
	assert.Nil(t, m.TopScores(0))
}

func TestPredictAndWinner(t *testing.T) {
	p := score.Predict(score.Rates{Home: 2.1, Away: 0.7}, 0.1, 10)
	assert.Equal(t, score.ClassHome, p.WinnerClass)
	assert.InDelta(t, p.P1X2.Home, p.WinnerProb, 1e-15)
	assert.Len(t, p.Top3, 3)
	assert.Greater(t, p.Over15, p.Over25)
	assert.InDelta(t, 2.0, p.DoubleChance.HomeOrDraw+p.DoubleChance.DrawOrAway+p.DoubleChance.HomeOrAway, 1e-12)

	c, _ := score.WinnerOf(prob.Triplet{Home: 0.3, Draw: 0.4, Away: 0.3})
	assert.Equal(t, score.ClassDraw, c)
	c, _ = score.WinnerOf(prob.Triplet{Home: 0.4, Draw: 0.2, Away: 0.4})
	assert.Equal(t, score.ClassHome, c)
}

func TestSummary(t *testing.T) {
	s := score.NewIndependent(score.Rates{Home: 1.3, Away: 1.3}, 10).Summary(3)
	assert.Len(t, s.Over, len(score.SummaryLines))
	assert.InDelta(t, s.P1X2.Home, s.P1X2.Away, 1e-12)
	assert.InDelta(t, 1.3, s.XGHome, 1e-4)
}
