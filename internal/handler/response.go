// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/chatman/internal/middleware"
	"github.com/hitoshi/chatman/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。機密情報は含まない。
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// messageResponse はメッセージのAPIレスポンス。
type messageResponse struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func toMessageResponses(messages []*model.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層のエラーを統一エラーフォーマットで応答する。
// APIError以外は詳細をログのみに記録し、500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, statusForAPIError(apiErr), apiErr)
		return
	}

	slog.Error("request failed", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// statusForAPIError はエラーコードをHTTPステータスコードへ対応付ける。
func statusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidMessage, model.ErrCodeUnknownUser, model.ErrCodeInvalidCredentials:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeUserExists:
		return http.StatusConflict
	case model.ErrCodePersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
