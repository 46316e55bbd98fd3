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

// Package httperr 是 HTTP 邊界層的錯誤映射；核心的 errs 不依賴 net/http。
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zintix-labs/footprob/errs"
)

// ErrUnauthorized 缺少或錯誤的 bearer token
var ErrUnauthorized = errors.New("unauthorized")

// Body 錯誤回應的 JSON 內容
type Body struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status"`
}

// StatusCode 將錯誤映射成 HTTP status code：
//   - ctx timeout/cancel    → 504/408
//   - 請求內容超過上限      → 413
//   - ErrUnauthorized       → 401
//   - errs.Config 類別      → 500
//   - errs.Warn             → 400
//   - errs.Fatal 或其他錯誤 → 500
func StatusCode(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}

	e, ok := errs.AsErr(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if errs.KindOf(err) == errs.Config {
		return http.StatusInternalServerError
	}
	switch e.ErrLv {
	case errs.Warn:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Errs 寫回 JSON 錯誤；err 為 nil 時不做事。
func Errs(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	status := StatusCode(err)
	body := Body{Error: err.Error(), Status: status}
	if k := errs.KindOf(err); k != errs.KindUnknown {
		body.Kind = k.String()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Log 依狀態碼決定層級：逾時類為 Warn，5xx 為 Error，其餘不記錄。
func Log(log *slog.Logger, msg string, err error) {
	if err == nil || log == nil {
		return
	}
	status := StatusCode(err)
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout || status == http.StatusRequestEntityTooLarge:
		log.Warn(msg, slog.Int("status", status), slog.Any("err", err))
	case status >= 500:
		log.Error(msg, slog.Int("status", status), slog.Any("err", err))
	}
}
