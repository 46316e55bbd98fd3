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

// Package v1 提供後處理、比分矩陣、權重查詢與健康檢查的 HTTP handler。
package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/footprob"
	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/server/httperr"
	"github.com/zintix-labs/footprob/server/netsvr/middleware"
	"github.com/zintix-labs/footprob/server/svrcfg"
)

// HeaderRunID 批次處理的 run id
const HeaderRunID = "X-Run-Id"

type Handler struct {
	lab *footprob.Lab
	log *slog.Logger
	cfg *svrcfg.SvrCfg
}

func NewHandler(sCfg *svrcfg.SvrCfg) (*Handler, error) {
	if err := sCfg.Valid(); err != nil {
		return nil, errs.Wrap(err, "build v1 handler error")
	}
	return &Handler{lab: sCfg.Lab, log: sCfg.Log, cfg: sCfg}, nil
}

// readBody 讀取請求內容並套用大小上限
func (h *Handler) readBody(w http.ResponseWriter, q *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, q.Body, h.cfg.MaxBody))
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errs.Kindf(errs.MissingInput, "empty body")
	}
	return raw, nil
}

func (h *Handler) withTimeout(q *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(q.Context(), h.cfg.Timeout)
}

func (h *Handler) fail(w http.ResponseWriter, q *http.Request, msg string, err error) {
	httperr.Log(h.log.With(slog.String("request_id", middleware.GetReqId(q))), msg, err)
	httperr.Errs(w, err)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeStrict(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errs.Kindf(errs.MalformedInput, "invalid json: %v", err)
	}
	return nil
}
