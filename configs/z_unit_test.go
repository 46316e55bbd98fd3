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

package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zintix-labs/footprob/setting"
)

func TestDefaultMatchesBuiltin(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	def := setting.Default()
	assert.Equal(t, def.Pipeline.Enabled, c.Pipeline.Enabled)
	assert.Equal(t, def.Pipeline.ImpliedMin, c.Pipeline.ImpliedMin)
	assert.Equal(t, def.Pipeline.ImpliedMax, c.Pipeline.ImpliedMax)
	assert.Equal(t, def.Breaker, c.Breaker)
	assert.Equal(t, def.Blend.Defaults, c.Blend.Defaults)
	assert.Equal(t, 4, c.Pipeline.Workers)
}

func TestLoadFromPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.True(t, c.Pipeline.Enabled)

	path := filepath.Join(t.TempDir(), "prod.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  enabled: false\nlambda3:\n  \"39\": 0.12\n"), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.False(t, c.Pipeline.Enabled)
	assert.InDelta(t, 0.12, c.Lambda3For("39"), 1e-12)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
