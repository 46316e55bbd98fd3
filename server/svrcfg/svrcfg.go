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

package svrcfg

import (
	"log/slog"
	"time"

	"github.com/zintix-labs/footprob"
	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/server/logger"
)

// SvrCfg server 的依賴注入
type SvrCfg struct {
	Log     *slog.Logger
	Lab     *footprob.Lab
	Timeout time.Duration // 單一請求處理時限，預設 30s
	MaxBody int64         // 請求內容上限（bytes），預設 16 MiB
	Workers int           // 批次處理的 worker 數，<= 0 時使用設定檔
	Token   string        // 旗標切換的 bearer token；空字串時拒絕所有切換
}

// Valid 補齊預設值並檢查必要依賴
func (sc *SvrCfg) Valid() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		sc.Log = logger.Discard()
	}
	if sc.Timeout <= 0 {
		sc.Timeout = 30 * time.Second
	}
	if sc.MaxBody <= 0 {
		sc.MaxBody = 16 << 20
	}
	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	return nil
}
