package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ Store = (*PGStore)(nil)

// PGStore 基于 PostgreSQL 的存储，保存操作整体替换集合
type PGStore struct {
	db     *DB
	q      querier
	inTx   bool
	logger *zap.Logger
}

// NewPGStore 创建 PostgreSQL 存储
func NewPGStore(db *DB, logger *zap.Logger) *PGStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGStore{db: db, q: db.Pool, logger: logger}
}

// Atomic 在数据库事务中执行 fn，嵌套调用复用同一事务
func (s *PGStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		return fn(&PGStore{db: s.db, q: tx, inTx: true, logger: s.logger})
	})
}

// withTx 单个集合的整体替换也需要事务
func (s *PGStore) withTx(ctx context.Context, fn func(q querier) error) error {
	if s.inTx {
		return fn(s.q)
	}
	return pgx.BeginFunc(ctx, s.db.Pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// SaveDocument 保存文档
func (s *PGStore) SaveDocument(ctx context.Context, doc Document) error {
	query := `
		INSERT INTO documents (id, kind, owner_id, created_at, content)
		VALUES ($1::uuid, $2, $3, $4, $5)
	`
	if _, err := s.q.Exec(ctx, query, doc.ID, string(doc.Kind), doc.OwnerID, doc.CreatedAt, doc.Content); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// nullableTime 零值写为 NULL
func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// localWall TIMESTAMP 列不带时区，按本地时间解释
func localWall(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}
