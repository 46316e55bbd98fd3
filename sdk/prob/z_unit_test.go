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

package prob_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zintix-labs/footprob/sdk/prob"
)

func TestRenorm(t *testing.T) {
	got := prob.Triplet{Home: 0.5, Draw: 0.5, Away: 1.0}.Renorm()
	assert.InDelta(t, 0.25, got.Home, 1e-12)
	assert.InDelta(t, 0.25, got.Draw, 1e-12)
	assert.InDelta(t, 0.5, got.Away, 1e-12)

	clipped := prob.Triplet{Home: -1, Draw: 2, Away: 0}.Renorm()
	assert.Equal(t, prob.Triplet{Home: 0, Draw: 1, Away: 0}, clipped)

	assert.Equal(t, prob.Uniform, prob.Triplet{}.Renorm())
	assert.Equal(t, prob.Uniform, prob.Triplet{Home: math.NaN()}.Renorm())
}

func TestClampAndBinary(t *testing.T) {
	assert.Equal(t, 0.0, prob.Clamp01(math.NaN()))
	assert.Equal(t, 1.0, prob.Clamp01(3))
	assert.Equal(t, 0.02, prob.Clamp(0.001, 0.02, 0.98))

	b := prob.NewBinary(1.4)
	assert.Equal(t, prob.Binary{Yes: 1, No: 0}, b)
	b = prob.NewBinary(0.3)
	assert.InDelta(t, 1.0, b.Yes+b.No, 1e-15)

	assert.False(t, prob.Finite(math.Inf(-1)))
	assert.True(t, prob.Finite(0.4))
}
