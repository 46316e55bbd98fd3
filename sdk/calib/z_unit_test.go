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

package calib_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/sdk/calib"
)

func TestLogisticIdentity(t *testing.T) {
	l := &calib.Logistic{A: 1, B: 0}
	for _, p := range []float64{0.01, 0.3, 0.5, 0.92} {
		q, err := l.Apply(p)
		require.NoError(t, err)
		assert.InDelta(t, p, q, 1e-12)
	}
	// 端點被截斷，不會產生 Inf
	q, err := l.Apply(0)
	require.NoError(t, err)
	assert.InDelta(t, calib.PEps, q, 1e-12)
}

func TestLogisticShrink(t *testing.T) {
	l := &calib.Logistic{A: 0.5, B: 0}
	q, _ := l.Apply(0.9)
	assert.Less(t, q, 0.9)
	assert.Greater(t, q, 0.5)
}

func TestIsotonicStep(t *testing.T) {
	iso := &calib.Isotonic{X: []float64{0.2, 0.5, 0.8}, Y: []float64{0.1, 0.4, 0.9}}
	cases := map[float64]float64{
		-1:   0.1,
		0.1:  0.1,
		0.2:  0.1,
		0.49: 0.1,
		0.5:  0.4,
		0.79: 0.4,
		0.8:  0.9,
		3:    0.9,
	}
	for in, want := range cases {
		got, err := iso.Apply(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "p=%v", in)
	}
	iso.Interpolate = true
	got, _ := iso.Apply(0.35)
	assert.InDelta(t, 0.25, got, 1e-12)
	got, _ = iso.Apply(0.8)
	assert.Equal(t, 0.9, got)

	// 插值模式在整個區間單調不減且落在 [Y0, Yn]
	prev := -1.0
	for i := -10; i <= 110; i++ {
		got, err := iso.Apply(float64(i) / 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev, "p=%v", float64(i)/100)
		assert.GreaterOrEqual(t, got, 0.1)
		assert.LessOrEqual(t, got, 0.9)
		prev = got
	}
}

func TestIsotonicInvalid(t *testing.T) {
	bad := []*calib.Isotonic{
		{},
		{X: []float64{0.1, 0.1}, Y: []float64{0.2, 0.3}},
		{X: []float64{0.1, 0.2}, Y: []float64{0.5, 0.3}},
		{X: []float64{0.1}, Y: []float64{1.3}},
		{X: []float64{0.1, 0.2}, Y: []float64{0.3}},
	}
	for _, iso := range bad {
		assert.Error(t, iso.Valid())
	}
}

type panicModel struct{}

func (panicModel) Method() string { return "panic" }

func (panicModel) Valid() error { return nil }

func (panicModel) Apply(float64) (float64, error) { panic("boom") }

func TestCalibrateFallbacks(t *testing.T) {
	r := calib.Calibrate(nil, 1.2)
	assert.Equal(t, calib.SourceIdentity, r.Source)
	assert.Equal(t, 1.0, r.P)
	assert.NoError(t, r.Err)

	r = calib.Calibrate(&calib.Logistic{A: math.NaN()}, 0.4)
	assert.Equal(t, calib.SourceFallback, r.Source)
	assert.Equal(t, 0.4, r.P)
	assert.Equal(t, errs.NumericalDegeneracy, errs.KindOf(r.Err))

	r = calib.Calibrate(panicModel{}, 0.7)
	assert.Equal(t, calib.SourceFallback, r.Source)
	assert.Equal(t, 0.7, r.P)
	assert.Error(t, r.Err)

	r = calib.Calibrate(&calib.Isotonic{X: []float64{0, 1}, Y: []float64{0.2, 0.6}}, 0.5)
	assert.Equal(t, calib.SourceModel, r.Source)
	assert.Equal(t, 0.2, r.P)
}

func TestArtifactRoundTrip(t *testing.T) {
	src := `
method: isotonic
x: [0.1, 0.5, 0.9]
y: [0.05, 0.5, 0.95]
interpolate: true
`
	var a calib.Artifact
	require.NoError(t, yaml.Unmarshal([]byte(src), &a))
	m, err := a.Model()
	require.NoError(t, err)
	assert.Equal(t, calib.MethodIsotonic, m.Method())
	q, _ := m.Apply(0.3)
	assert.InDelta(t, 0.275, q, 1e-12)

	back := calib.ArtifactOf(m, 10)
	assert.Equal(t, 10, back.Samples)
	assert.Equal(t, a.X, back.X)

	_, err = (&calib.Artifact{Method: "spline"}).Model()
	assert.Error(t, err)
	_, err = (&calib.Artifact{Method: "isotonic", X: []float64{0.5, 0.1}, Y: []float64{0, 1}}).Model()
	assert.Error(t, err)
}

func TestFitLogisticMovesTowardCalibration(t *testing.T) {
	// 模型過度自信：p=0.9 時實際只有 70% 發生
	var ps, ys []float64
	for i := 0; i < 100; i++ {
		ps = append(ps, 0.9, 0.1)
		y1, y2 := 0.0, 1.0
		if i < 70 {
			y1, y2 = 1, 0
		}
		ys = append(ys, y1, y2)
	}
	l, err := calib.FitLogistic(ps, ys, calib.LogisticOptions{Epochs: 2000, LR: 0.5})
	require.NoError(t, err)
	assert.Less(t, l.A, 1.0)
	q, _ := l.Apply(0.9)
	assert.InDelta(t, 0.7, q, 0.02)

	_, err = calib.FitLogistic([]float64{0.5}, []float64{1, 0}, calib.LogisticOptions{})
	assert.Error(t, err)
	_, err = calib.FitLogistic([]float64{0.5, 0.2}, []float64{2, 0}, calib.LogisticOptions{})
	assert.Error(t, err)
}

func TestFitIsotonicPAV(t *testing.T) {
	ps := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	ys := []float64{0, 1, 0, 0, 1, 1}
	iso, err := calib.FitIsotonic(ps, ys, calib.IsotonicOptions{MinSamples: 6})
	require.NoError(t, err)
	require.NoError(t, iso.Valid())
	// 0.2..0.4 合併為 1/3
	want := map[float64]float64{0.1: 0, 0.2: 1.0 / 3, 0.35: 1.0 / 3, 0.4: 1.0 / 3, 0.5: 1, 0.6: 1}
	for p, w := range want {
		got, _ := iso.Apply(p)
		assert.InDelta(t, w, got, 1e-12, "p=%v", p)
	}
	for i := 1; i < len(iso.Y); i++ {
		assert.GreaterOrEqual(t, iso.Y[i], iso.Y[i-1])
	}
}

func TestFitIsotonicGuards(t *testing.T) {
	ps := make([]float64, 200)
	ys := make([]float64, 200)
	for i := range ps {
		ps[i] = float64(i) / 200
	}
	_, err := calib.FitIsotonic(ps, ys, calib.IsotonicOptions{})
	assert.Equal(t, errs.MissingInput, errs.KindOf(err), "single class")

	_, err = calib.FitIsotonic(ps[:100], ys[:100], calib.IsotonicOptions{})
	assert.Error(t, err, "below default min samples")

	flat := make([]float64, 200)
	for i := range flat {
		flat[i] = 0.4
		ys[i] = float64(i % 2)
	}
	_, err = calib.FitIsotonic(flat, ys, calib.IsotonicOptions{})
	assert.Error(t, err, "no variation")
}
