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

package calib

import (
	"strings"

	"github.com/zintix-labs/footprob/errs"
)

// Artifact 校準模型的序列化格式，一個檔案對應一組 (league, market)。
//
//	method: logistic
//	a: 0.92
//	b: -0.05
//
//	method: isotonic
//	x: [0.1, 0.4, 0.7]
//	y: [0.08, 0.41, 0.75]
//	interpolate: false
type Artifact struct {
	Method      string    `yaml:"method"                json:"method"`
	A           float64   `yaml:"a,omitempty"           json:"a,omitempty"`
	B           float64   `yaml:"b,omitempty"           json:"b,omitempty"`
	X           []float64 `yaml:"x,omitempty"           json:"x,omitempty"`
	Y           []float64 `yaml:"y,omitempty"           json:"y,omitempty"`
	Interpolate bool      `yaml:"interpolate,omitempty" json:"interpolate,omitempty"`
	Samples     int       `yaml:"samples,omitempty"     json:"samples,omitempty"`
}

// Model 將 Artifact 轉為可套用的模型並檢查合法性
func (a *Artifact) Model() (Model, error) {
	var m Model
	switch strings.ToLower(strings.TrimSpace(a.Method)) {
	case MethodLogistic:
		m = &Logistic{A: a.A, B: a.B}
	case MethodIsotonic:
		m = &Isotonic{
			X:           append([]float64(nil), a.X...),
			Y:           append([]float64(nil), a.Y...),
			Interpolate: a.Interpolate,
		}
	default:
		return nil, errs.Kindf(errs.Config, "unknown calibration method %q", a.Method)
	}
	if err := m.Valid(); err != nil {
		return nil, errs.WrapKind(err, errs.Config, "invalid calibration artifact")
	}
	return m, nil
}

// ArtifactOf 模型轉回序列化格式
func ArtifactOf(m Model, samples int) Artifact {
	switch v := m.(type) {
	case *Logistic:
		return Artifact{Method: MethodLogistic, A: v.A, B: v.B, Samples: samples}
	case *Isotonic:
		return Artifact{Method: MethodIsotonic, X: v.X, Y: v.Y, Interpolate: v.Interpolate, Samples: samples}
	}
	return Artifact{}
}
