package waitlist

import (
	"sync"
	"time"
)

// RateLimiterConfig はウェイトリスト登録のレート制限設定を保持する。
type RateLimiterConfig struct {
	Limit           int           // ウィンドウあたりの最大試行回数
	Window          time.Duration // 固定ウィンドウの長さ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: クライアントごとに60秒あたり5回まで
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Limit:           5,
		Window:          60 * time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientWindow はクライアントごとの現在ウィンドウの開始時刻と受理回数を保持する。
type clientWindow struct {
	windowStart time.Time
	count       int
}

// RateLimiter はクライアントごとの固定ウィンドウレート制限を管理する。
//
// トークンバケットではなく固定ウィンドウを使うのは、拒否された試行が
// ウィンドウを延長しないという要件のため。カウントは受理された試行
// のみで増加し、ウィンドウ経過後は全クライアントが即座に再試行できる。
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.Mutex
	windows map[string]*clientWindow

	now func() time.Time // テストで時刻を注入するためのフック

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		windows: make(map[string]*clientWindow),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow はクライアントの試行を受理するかを判定する。
// 受理された場合のみカウントを増加させる。拒否はウィンドウの状態を変更しない。
func (rl *RateLimiter) Allow(clientID string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, exists := rl.windows[clientID]
	if !exists || now.Sub(w.windowStart) >= rl.config.Window {
		rl.windows[clientID] = &clientWindow{windowStart: now, count: 1}
		return true
	}

	if w.count >= rl.config.Limit {
		return false
	}

	w.count++
	return true
}

// EntryCount は現在管理されているウィンドウのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) EntryCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup はウィンドウが経過済みのエントリを削除する。
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for clientID, w := range rl.windows {
		if now.Sub(w.windowStart) >= rl.config.Window {
			delete(rl.windows, clientID)
		}
	}
}
