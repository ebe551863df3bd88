// Package model はドメインモデルを定義する。
package model

import "time"

// WaitlistEntry はウェイトリストへの登録1件を表す。
// emailは正規化済み（trim + 小文字化）の値のみを保持する。
// 登録後の更新・削除はこのサブシステムでは行わない。
type WaitlistEntry struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
