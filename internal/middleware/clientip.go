// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"
	"strings"
)

// unknownClient はクライアントIPを特定できない場合のフォールバックキー。
// 未特定のクライアントは単一のバケットを共有する。
const unknownClient = "unknown"

// ClientIP はリクエストからクライアントIPを導出する。
//
// リバースプロキシ背後での運用を前提に、X-Forwarded-Forの先頭エントリを
// 最優先し、次にX-Real-IPを参照する。どちらもない場合は"unknown"を返す。
// エッジでヘッダーが上書きされる構成でのみ信頼できる値になる。
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx >= 0 {
			first = xff[:idx]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	return unknownClient
}
