package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/corvex/siteapi/internal/model"
)

// uniqueViolationCode はPostgreSQLのunique制約違反のSQLSTATEコード。
const uniqueViolationCode = "23505"

// PostgresWaitlistRepo はPostgreSQLを使用したウェイトリストリポジトリ。
type PostgresWaitlistRepo struct {
	db *sql.DB
}

// NewPostgresWaitlistRepo はPostgresWaitlistRepoを生成する。
func NewPostgresWaitlistRepo(db *sql.DB) *PostgresWaitlistRepo {
	return &PostgresWaitlistRepo{db: db}
}

// Insert はウェイトリスト登録を1件作成する。
// emailのunique制約違反はmodel.ErrDuplicateEmailに変換して返す。
// 重複は想定内の結果であり、呼び出し元が409への分類に使用する。
func (r *PostgresWaitlistRepo) Insert(ctx context.Context, entry *model.WaitlistEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO waitlist (id, email, created_at) VALUES ($1, $2, $3)`,
		entry.ID, entry.Email, entry.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return model.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert waitlist entry: %w", err)
	}

	return nil
}

// Count は登録総数を返す。
func (r *PostgresWaitlistRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist entries: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ WaitlistRepository = (*PostgresWaitlistRepo)(nil)
