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

package app

import (
	"context"
	"io"
	"sync"
)

type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Closer 把只需要在結束時關閉的資源（例如 Redis 連線）包成 Component：
// Run 阻塞到 Shutdown，Shutdown 時呼叫 Close。
func Closer(c io.Closer) Component {
	return &closer{c: c, done: make(chan struct{})}
}

type closer struct {
	c    io.Closer
	once sync.Once
	done chan struct{}
	err  error
}

func (cl *closer) Run() error {
	<-cl.done
	return nil
}

func (cl *closer) Shutdown(context.Context) error {
	cl.once.Do(func() {
		cl.err = cl.c.Close()
		close(cl.done)
	})
	return cl.err
}
