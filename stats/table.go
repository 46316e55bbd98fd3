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
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

func printer() *message.Printer {
	return message.NewPrinter(lang)
}

// ReliabilityTable 可靠度分箱的文字表格
func ReliabilityTable(title string, bins []Bin) string {
	p := printer()
	keys := make([]string, 0, len(bins))
	msg := make(map[string]string, len(bins))
	for _, b := range bins {
		k := p.Sprintf("[%.2f, %.2f)", b.Lo, b.Hi)
		keys = append(keys, k)
		if b.Count == 0 {
			msg[k] = "-"
			continue
		}
		msg[k] = p.Sprintf("n=%d  p̄=%.3f  rate=%s", b.Count, b.MeanP, fmtHatCIpct01(Rate{Hat: b.Rate, CI: b.RateCI}))
	}
	return fmtTable(title, keys, msg)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := printer()
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)
	if titleW > totalInner {
		// 標題過長時撐開值欄
		maxValLen += titleW - totalInner
		totalInner = titleW
		divider = "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
		top = "+" + strings.Repeat("-", totalInner) + "+\n"
	}

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	var sb strings.Builder
	sb.WriteString(top)
	sb.WriteString(p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right)))
	sb.WriteString(divider)
	for _, k := range keys {
		sb.WriteString(p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k]))))
	}
	sb.WriteString(divider)
	return sb.String()
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
