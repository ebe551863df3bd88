// Package handler はHTTPリクエストの処理を提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corvex/siteapi/internal/metrics"
	"github.com/corvex/siteapi/internal/middleware"
	"github.com/corvex/siteapi/internal/model"
	"github.com/corvex/siteapi/internal/waitlist"
)

// WaitlistServiceInterface はウェイトリストハンドラーが必要とするサービスインターフェース。
type WaitlistServiceInterface interface {
	// Submit はウェイトリスト登録パイプラインを実行する。
	// (nil, nil)はハニーポットによるマスクされた成功を表す。
	Submit(ctx context.Context, input waitlist.SubmitInput) (*model.WaitlistEntry, error)
}

// WaitlistHandler はウェイトリスト登録のHTTPハンドラー。
type WaitlistHandler struct {
	service WaitlistServiceInterface
	metrics metrics.MetricsCollector
}

// NewWaitlistHandler はWaitlistHandlerを生成する。
func NewWaitlistHandler(service WaitlistServiceInterface, collector metrics.MetricsCollector) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		metrics: collector,
	}
}

// submitRequest はウェイトリスト登録リクエストのボディ。
// honeypotはフォーム側が隠しwebsite入力の値を詰めて送るフィールドで、
// 人間のフォーム送信では常に空。
type submitRequest struct {
	Email   string `json:"email"`
	Website string `json:"honeypot"`
}

// submitResponse はウェイトリスト登録成功のレスポンス。
// ハニーポット時のマスクされた成功と通常の成功で同一の形状を返すため、
// 登録エントリの詳細は含めない。
type submitResponse struct {
	Message string `json:"message"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Submit はウェイトリスト登録を処理する。
// POST /api/waitlist
func (h *WaitlistHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordWaitlistSubmission(metrics.OutcomeInvalid)
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "Failed to parse request body",
			Category: "validation",
			Action:   "Send a valid JSON body.",
		})
		return
	}

	entry, err := h.service.Submit(r.Context(), waitlist.SubmitInput{
		Email:    req.Email,
		Website:  req.Website,
		ClientID: middleware.ClientIP(r),
	})
	if err != nil {
		h.metrics.RecordWaitlistSubmission(submissionOutcome(err))
		handleServiceError(w, err)
		return
	}

	if entry == nil {
		h.metrics.RecordWaitlistSubmission(metrics.OutcomeHoneypot)
	} else {
		h.metrics.RecordWaitlistSubmission(metrics.OutcomeAccepted)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(submitResponse{
		Message: "Successfully joined the waitlist",
	})
}

// submissionOutcome はサービスエラーをメトリクスの結果ラベルに変換する。
func submissionOutcome(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return metrics.OutcomeError
	}
	switch apiErr.Code {
	case model.ErrCodeEmailRequired, model.ErrCodeEmailFormat:
		return metrics.OutcomeInvalid
	case model.ErrCodeRateLimited:
		return metrics.OutcomeRateLimited
	case model.ErrCodeAlreadySubscribed:
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeError
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "An internal error occurred",
		Category: "system",
		Action:   "Please try again later.",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeEmailRequired, model.ErrCodeEmailFormat:
		return http.StatusBadRequest
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case model.ErrCodeAlreadySubscribed:
		return http.StatusConflict
	case model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstreamFetch:
		return http.StatusBadGateway
	case model.ErrCodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
