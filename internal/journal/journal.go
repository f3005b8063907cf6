// Package journal 把每次编排动作的终态落到本地 sqlite
// 确认超时后操作员可以据此核对已广播交易的实际去向
package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Entry 一条已结束动作的审计记录
type Entry struct {
	ID        string    // 动作 ID（uuid）
	Kind      string    // swap / create_token
	Side      string    // buy / sell / sell-all（铸币动作为空）
	Mint      string    // 涉及的 mint 地址
	Quantity  string    // 十进制字符串，避免精度损失
	Signature string    // 链上签名（未广播时为空）
	State     string    // settled / failed
	Error     string    // 失败原因（成功时为空）
	CreatedAt time.Time // 记录时间
}

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	side       TEXT NOT NULL DEFAULT '',
	mint       TEXT NOT NULL DEFAULT '',
	quantity   TEXT NOT NULL DEFAULT '',
	signature  TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_created_at ON actions(created_at);
`

// Store sqlite 持久化的动作日志
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）日志数据库
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "打开日志数据库失败")
	}
	// 面板是单进程写入方，串行访问即可
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "初始化日志表失败")
	}
	return &Store{db: db}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Record 写入一条终态记录
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (id, kind, side, mint, quantity, signature, state, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.Side, e.Mint, e.Quantity, e.Signature, e.State, e.Error, e.CreatedAt,
	)
	return errors.Wrap(err, "写入动作记录失败")
}

// Recent 返回最近的 limit 条记录，新的在前
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, side, mint, quantity, signature, state, error, created_at
		 FROM actions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "查询动作记录失败")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Side, &e.Mint, &e.Quantity,
			&e.Signature, &e.State, &e.Error, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "扫描动作记录失败")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
