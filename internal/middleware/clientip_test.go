package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "X-Forwarded-Forの先頭エントリを使う",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1, 10.0.0.2"},
			want:    "203.0.113.1",
		},
		{
			name:    "X-Forwarded-Forが単一エントリ",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.1"},
			want:    "203.0.113.1",
		},
		{
			name:    "エントリ周辺の空白を除去する",
			headers: map[string]string{"X-Forwarded-For": "  203.0.113.1 , 10.0.0.1"},
			want:    "203.0.113.1",
		},
		{
			name: "X-Forwarded-ForがX-Real-IPより優先される",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"X-Real-IP":       "198.51.100.7",
			},
			want: "203.0.113.1",
		},
		{
			name:    "X-Forwarded-ForがなければX-Real-IP",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			want:    "198.51.100.7",
		},
		{
			name:    "どちらもなければunknown",
			headers: map[string]string{},
			want:    "unknown",
		},
		{
			name:    "空のX-Forwarded-Forはunknown",
			headers: map[string]string{"X-Forwarded-For": ""},
			want:    "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
