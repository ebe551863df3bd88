package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corvex/siteapi/internal/model"
)

// fakeWaitlistRepo はrepository.WaitlistRepositoryのインメモリ実装。
type fakeWaitlistRepo struct {
	entries   []*model.WaitlistEntry
	insertErr error
}

func (r *fakeWaitlistRepo) Insert(_ context.Context, entry *model.WaitlistEntry) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, e := range r.entries {
		if e.Email == entry.Email {
			return model.ErrDuplicateEmail
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeWaitlistRepo) Count(_ context.Context) (int, error) {
	return len(r.entries), nil
}

func newTestService(repo *fakeWaitlistRepo) *Service {
	limiter, _ := newTestRateLimiter(DefaultRateLimiterConfig())
	svc := NewService(repo, limiter)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %q, want %q", apiErr.Code, wantCode)
	}
}

func TestSubmit_Success(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	svc := newTestService(repo)

	entry, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "user@example.com",
		ClientID: "203.0.113.1",
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if entry == nil {
		t.Fatal("entry is nil")
	}
	if entry.ID == "" {
		t.Error("entry.ID is empty")
	}
	if entry.Email != "user@example.com" {
		t.Errorf("entry.Email = %q", entry.Email)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry.CreatedAt is zero")
	}
	if len(repo.entries) != 1 {
		t.Errorf("persisted %d entries, want 1", len(repo.entries))
	}
}

// メールアドレスはtrimと小文字化で正規化される
func TestSubmit_NormalizesEmail(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	svc := newTestService(repo)

	entry, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "  User@Example.COM  ",
		ClientID: "203.0.113.1",
	})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if entry.Email != "user@example.com" {
		t.Errorf("entry.Email = %q, want normalized", entry.Email)
	}
}

func TestSubmit_DuplicateEmail(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	svc := newTestService(repo)

	if _, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "user@example.com",
		ClientID: "203.0.113.1",
	}); err != nil {
		t.Fatalf("first Submit() error: %v", err)
	}

	// 大文字小文字の違いも正規化により重複になる
	_, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "USER@example.com",
		ClientID: "203.0.113.1",
	})
	assertAPIErrorCode(t, err, model.ErrCodeAlreadySubscribed)
	if len(repo.entries) != 1 {
		t.Errorf("persisted %d entries, want 1", len(repo.entries))
	}
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		wantCode string
	}{
		{"空文字列", "", model.ErrCodeEmailRequired},
		{"空白のみ", "   ", model.ErrCodeEmailRequired},
		{"@なし", "userexample.com", model.ErrCodeEmailFormat},
		{"ドメインにドットなし", "user@example", model.ErrCodeEmailFormat},
		{"空白を含む", "us er@example.com", model.ErrCodeEmailFormat},
		{"ローカル部なし", "@example.com", model.ErrCodeEmailFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeWaitlistRepo{}
			svc := newTestService(repo)

			_, err := svc.Submit(context.Background(), SubmitInput{
				Email:    tt.email,
				ClientID: "203.0.113.1",
			})
			assertAPIErrorCode(t, err, tt.wantCode)

			// バリデーション失敗時は何も永続化されない
			if len(repo.entries) != 0 {
				t.Errorf("persisted %d entries, want 0", len(repo.entries))
			}
		})
	}
}

// ハニーポットが埋まっている場合は永続化せず成功を装う
func TestSubmit_HoneypotMaskedSuccess(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	svc := newTestService(repo)

	entry, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "bot@example.com",
		Website:  "https://spam.example.com",
		ClientID: "203.0.113.1",
	})
	if err != nil {
		t.Fatalf("Submit() error: %v, want masked success", err)
	}
	if entry != nil {
		t.Errorf("entry = %+v, want nil", entry)
	}
	if len(repo.entries) != 0 {
		t.Errorf("persisted %d entries, want 0", len(repo.entries))
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	repo := &fakeWaitlistRepo{}
	svc := newTestService(repo)

	emails := []string{
		"a@example.com", "b@example.com", "c@example.com",
		"d@example.com", "e@example.com",
	}
	for _, email := range emails {
		if _, err := svc.Submit(context.Background(), SubmitInput{
			Email:    email,
			ClientID: "203.0.113.1",
		}); err != nil {
			t.Fatalf("Submit(%q) error: %v", email, err)
		}
	}

	_, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "f@example.com",
		ClientID: "203.0.113.1",
	})
	assertAPIErrorCode(t, err, model.ErrCodeRateLimited)
	if len(repo.entries) != 5 {
		t.Errorf("persisted %d entries, want 5", len(repo.entries))
	}

	// 別クライアントは制限の影響を受けない
	if _, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "g@example.com",
		ClientID: "203.0.113.2",
	}); err != nil {
		t.Errorf("Submit() from other client error: %v", err)
	}
}

func TestSubmit_StorageFailure(t *testing.T) {
	repo := &fakeWaitlistRepo{insertErr: errors.New("connection refused")}
	svc := newTestService(repo)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Email:    "user@example.com",
		ClientID: "203.0.113.1",
	})
	assertAPIErrorCode(t, err, model.ErrCodeStorageFailure)
}
