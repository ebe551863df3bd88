// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/corvex/siteapi/internal/model"
)

// WaitlistRepository はウェイトリスト登録の永続化インターフェース。
type WaitlistRepository interface {
	// Insert はウェイトリスト登録を1件作成する。
	// emailのunique制約に違反した場合はmodel.ErrDuplicateEmailを返す。
	// それ以外の失敗はラップしたエラーをそのまま返す。
	Insert(ctx context.Context, entry *model.WaitlistEntry) error

	// Count は登録総数を返す。メトリクスおよび運用確認用。
	Count(ctx context.Context) (int, error)
}
