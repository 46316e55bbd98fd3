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

package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/pipeline"
)

// Postprocess POST /v1/postprocess
//
// 請求為單場物件或物件陣列，回應維持相同形狀；每場寫入 v2。
// 斷路器開啟或手動關閉時原樣返回，並以 X-Footprob-Gate 標示原因。
func (h *Handler) Postprocess(w http.ResponseWriter, q *http.Request) {
	raw, err := h.readBody(w, q)
	if err != nil {
		h.fail(w, q, "postprocess read body", err)
		return
	}
	items, single, err := decodeItems(raw)
	if err != nil {
		h.fail(w, q, "postprocess decode", err)
		return
	}

	ctx, cancel := h.withTimeout(q)
	defer cancel()
	res, err := h.lab.NewRunner(h.cfg.Workers, false).Run(ctx, items)
	if err != nil {
		h.fail(w, q, "postprocess run", err)
		return
	}

	w.Header().Set(HeaderRunID, res.Metrics.RunID)
	w.Header().Set("X-Footprob-Failed", strconv.Itoa(res.Metrics.Failed))
	if res.Metrics.Gate != "" {
		w.Header().Set("X-Footprob-Gate", res.Metrics.Gate)
	}
	if single {
		writeJSON(w, res.Items[0])
		return
	}
	writeJSON(w, res.Items)
}

// decodeItems 依第一個非空白字元判斷是單場或陣列；數字保留為 json.Number。
func decodeItems(raw []byte) (items []pipeline.Item, single bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	switch raw[0] {
	case '{':
		var it pipeline.Item
		if err := dec.Decode(&it); err != nil {
			return nil, true, errs.Kindf(errs.MalformedInput, "invalid item: %v", err)
		}
		return []pipeline.Item{it}, true, nil
	case '[':
		if err := dec.Decode(&items); err != nil {
			return nil, false, errs.Kindf(errs.MalformedInput, "invalid items: %v", err)
		}
		for i, it := range items {
			if it == nil {
				return nil, false, errs.Kindf(errs.MalformedInput, "item %d is null", i)
			}
		}
		return items, false, nil
	}
	return nil, false, errs.Kindf(errs.MalformedInput, "body must be an object or an array")
}
