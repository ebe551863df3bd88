// Package waitlist はウェイトリスト登録のドメインロジックを提供する。
//
// 登録パイプラインはレート制限、ハニーポット判定、バリデーション、
// 正規化、永続化の順に実行される。ハニーポットに反応したボットには
// 成功と区別のつかない応答を返すため、Submitは登録を行わずに成功を装う。
package waitlist

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/corvex/siteapi/internal/model"
	"github.com/corvex/siteapi/internal/repository"
)

// emailPattern はメールアドレスの形式検証パターン。
// 空白と@の位置のみを検証する寛容なパターンで、RFC準拠の完全検証はしない。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SubmitInput はウェイトリスト登録リクエストの入力。
type SubmitInput struct {
	Email    string
	Website  string // ハニーポットフィールド。人間のフォームでは常に空
	ClientID string // レート制限のキー（クライアントIP）
}

// Service はウェイトリスト登録のサービス層。
type Service struct {
	repo    repository.WaitlistRepository
	limiter *RateLimiter

	now func() time.Time // テストで時刻を注入するためのフック
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.WaitlistRepository, limiter *RateLimiter) *Service {
	return &Service{
		repo:    repo,
		limiter: limiter,
		now:     time.Now,
	}
}

// Submit はウェイトリスト登録パイプラインを実行する。
//
// 戻り値が(nil, nil)の場合はハニーポットによるマスクされた成功で、
// 登録は行われていないが呼び出し側は通常の成功として応答する。
// レート制限の判定はハニーポットとバリデーションより先に行われ、
// 拒否された試行はウィンドウのカウントを消費しない。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*model.WaitlistEntry, error) {
	if !s.limiter.Allow(input.ClientID) {
		slog.Warn("waitlist rate limit exceeded",
			slog.String("client_id", input.ClientID),
		)
		return nil, model.NewRateLimitedError()
	}

	// ハニーポットが埋まっている場合はボットとみなし、
	// 何も永続化せずに成功を装う
	if input.Website != "" {
		slog.Info("waitlist honeypot triggered",
			slog.String("client_id", input.ClientID),
		)
		return nil, nil
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, model.NewEmailRequiredError()
	}
	if !emailPattern.MatchString(email) {
		return nil, model.NewEmailFormatError()
	}

	// 大文字小文字の違いによる重複を防ぐため小文字に正規化する
	email = strings.ToLower(email)

	entry := &model.WaitlistEntry{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return nil, model.NewAlreadySubscribedError()
		}
		slog.Error("waitlist insert failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageFailureError()
	}

	slog.Info("waitlist entry created",
		slog.String("entry_id", entry.ID),
	)

	return entry, nil
}
