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

package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// AuditRender 定義輸出行為
type AuditRender interface {
	Write(w io.Writer, r *AuditReport) error
}

// RenderByName 依名稱取得渲染器：json / yaml / csv / table
func RenderByName(name string) (AuditRender, bool) {
	switch name {
	case "json":
		return &JsonAuditRender{}, true
	case "yaml", "yml":
		return &YAMLAuditRender{}, true
	case "csv":
		return &CSVAuditRender{}, true
	case "table", "":
		return &TableAuditRender{}, true
	}
	return nil, false
}

// WriteWith 完成統計後以指定渲染器輸出
func (a *AuditReport) WriteWith(w io.Writer, rep AuditRender) error {
	a.Done()
	return rep.Write(w, a)
}

// Json渲染
type JsonAuditRender struct{}

func (jr *JsonAuditRender) Write(w io.Writer, r *AuditReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// YAML渲染
type YAMLAuditRender struct{}

func (yr *YAMLAuditRender) Write(w io.Writer, r *AuditReport) error {
	return forceReadableList(w, r)
}

// CSV渲染，欄位與舊版稽核檔相同
type CSVAuditRender struct{}

func (cr *CSVAuditRender) Write(w io.Writer, r *AuditReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"league_id", "count", "final_over>=0.99", "final_over<=0.01", "raw_over>=0.99", "raw_over<=0.01"}); err != nil {
		return err
	}
	for _, la := range r.Leagues {
		row := []string{
			la.League,
			strconv.Itoa(la.Count),
			strconv.Itoa(la.FinalGE),
			strconv.Itoa(la.FinalLE),
			strconv.Itoa(la.RawGE),
			strconv.Itoa(la.RawLE),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Table渲染：每個聯賽一張表
type TableAuditRender struct{}

func (tr *TableAuditRender) Write(w io.Writer, r *AuditReport) error {
	p := printer()
	keys := []string{"Items", "Item Errors", "Leagues"}
	msg := map[string]string{
		"Items":       p.Sprintf("%d", r.Items),
		"Item Errors": p.Sprintf("%d", r.Errors),
		"Leagues":     p.Sprintf("%d", len(r.Leagues)),
	}
	if _, err := io.WriteString(w, fmtTable("Postprocess Audit", keys, msg)); err != nil {
		return err
	}
	for _, la := range r.Leagues {
		keys, msg := fmtLeague(la)
		if _, err := io.WriteString(w, fmtTable("League "+la.League, keys, msg)); err != nil {
			return err
		}
	}
	return nil
}

func fmtLeague(la *LeagueAudit) ([]string, map[string]string) {
	p := printer()
	msg := map[string]string{
		"Count":             p.Sprintf("%d", la.Count),
		"Final Over ≥ 0.99": p.Sprintf("%d", la.FinalGE),
		"Final Over ≤ 0.01": p.Sprintf("%d", la.FinalLE),
		"Raw Over ≥ 0.99":   p.Sprintf("%d", la.RawGE),
		"Raw Over ≤ 0.01":   p.Sprintf("%d", la.RawLE),
		"Final Extreme":     fmtHatCIpct01(la.FinalExt),
		"Raw Extreme":       fmtHatCIpct01(la.RawExt),
	}
	keys := []string{"Count", "Final Over ≥ 0.99", "Final Over ≤ 0.01", "Raw Over ≥ 0.99", "Raw Over ≤ 0.01", "Final Extreme", "Raw Extreme"}
	return keys, msg
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(r Rate) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(r.Hat), fmtPct01(r.CI.Lo), fmtPct01(r.CI.Hi))
}

// YAML 內層方法
func forceReadableList[T any](w io.Writer, t *T) error {
	var node yaml.Node
	if err := node.Encode(t); err != nil {
		return err
	}

	// 最內層的一維 sequence 改為 flow style: [...]；外層維度保持展開
	styleReadableSequences(&node)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(&node)
}

func styleReadableSequences(n *yaml.Node) {
	if n == nil {
		return
	}

	switch n.Kind {
	case yaml.DocumentNode, yaml.MappingNode:
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		return

	case yaml.SequenceNode:
		// 含有子 sequence 或 mapping 的是外層維度
		nested := false
		for _, c := range n.Content {
			if c != nil && (c.Kind == yaml.SequenceNode || c.Kind == yaml.MappingNode) {
				nested = true
				break
			}
		}
		for _, c := range n.Content {
			styleReadableSequences(c)
		}
		if !nested {
			n.Style = yaml.FlowStyle
		}
		return

	default:
		return
	}
}
