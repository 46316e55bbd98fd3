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

// Package store 以 SQLite 保存比賽預測物件（modernc.org/sqlite，不需 cgo）。
//
// 每場比賽一列，以 fixture id 為鍵；重複寫入會覆蓋內容並更新時間，保留原本的排序位置。
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zintix-labs/footprob/errs"
	"github.com/zintix-labs/footprob/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	fixture_id TEXT PRIMARY KEY,
	league_id  TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_league ON items (league_id);
`

const upsert = `
INSERT INTO items (fixture_id, league_id, body, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (fixture_id) DO UPDATE SET
	league_id = excluded.league_id,
	body = excluded.body,
	updated_at = excluded.updated_at`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open 開啟（或建立）path 指向的資料庫；":memory:" 為記憶體資料庫。
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.WrapKind(err, errs.Config, "open sqlite "+path)
	}
	// 單一連線：記憶體資料庫每條連線各自獨立，寫入也不需要併發
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.WrapKind(err, errs.Config, "ping sqlite "+path)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errs.WrapKind(err, errs.Config, "create items table")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save 於單一交易內寫入；缺少 fixture id 的物件整批拒絕。
func (s *Store) Save(ctx context.Context, items []pipeline.Item) (int, error) {
	for i, it := range items {
		if it == nil || it.Fixture() == "" {
			return 0, errs.Kindf(errs.MissingInput, "item %d has no fixture id", i)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return 0, errs.Wrap(err, "prepare upsert")
	}
	defer stmt.Close()

	ts := s.now().UTC().Format(time.RFC3339Nano)
	for _, it := range items {
		body, err := json.Marshal(it)
		if err != nil {
			return 0, errs.WrapKind(err, errs.MalformedInput, "encode item "+it.Fixture())
		}
		if _, err := stmt.ExecContext(ctx, it.Fixture(), it.League(), string(body), ts); err != nil {
			return 0, errs.Wrap(err, "save item "+it.Fixture())
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.Wrap(err, "commit")
	}
	return len(items), nil
}

// Load 依寫入順序讀回；league 為空時讀全部。
func (s *Store) Load(ctx context.Context, league string) ([]pipeline.Item, error) {
	q := `SELECT body FROM items ORDER BY rowid`
	args := []any{}
	if league != "" {
		q = `SELECT body FROM items WHERE league_id = ? ORDER BY rowid`
		args = append(args, league)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errs.Wrap(err, "query items")
	}
	defer rows.Close()

	var out []pipeline.Item
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errs.Wrap(err, "scan item")
		}
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		var it pipeline.Item
		if err := dec.Decode(&it); err != nil {
			return nil, errs.WrapKind(err, errs.MalformedInput, "decode stored item")
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, "read items")
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, league string) (int, error) {
	var n int
	var err error
	if league == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE league_id = ?`, league).Scan(&n)
	}
	if err != nil {
		return 0, errs.Wrap(err, "count items")
	}
	return n, nil
}

// UpdatedAt 最後一次寫入該場比賽的時間
func (s *Store) UpdatedAt(ctx context.Context, fixture string) (time.Time, error) {
	var ts string
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM items WHERE fixture_id = ?`, fixture).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, errs.Kindf(errs.MissingInput, "fixture %s not found", fixture)
	}
	if err != nil {
		return time.Time{}, errs.Wrap(err, "query updated_at")
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, errs.WrapKind(err, errs.MalformedInput, "parse updated_at")
	}
	return t, nil
}
