package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/chatman/internal/middleware"
	"github.com/hitoshi/chatman/internal/model"
)

// MessageRouterInterface はメッセージ投稿ハンドラーが必要とするインターフェース。
type MessageRouterInterface interface {
	Route(ctx context.Context, senderID, recipientID, content string) (*model.Message, error)
}

// HistoryServiceInterface は履歴ハンドラーが必要とするインターフェース。
type HistoryServiceInterface interface {
	Conversation(ctx context.Context, userID, recipientID string) ([]*model.Message, error)
}

// ChatHandler はメッセージ投稿と履歴取得のHTTPハンドラー。
type ChatHandler struct {
	router  MessageRouterInterface
	history HistoryServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(router MessageRouterInterface, history HistoryServiceInterface) *ChatHandler {
	return &ChatHandler{
		router:  router,
		history: history,
	}
}

type postMessageRequest struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

// PostMessage はメッセージを受理する。WebSocketを使わないクライアント向け。
// 受信者がオンラインであればライブ配信も行われる。
// POST /api/chat/message
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidMessageError("不正なリクエスト形式です"))
		return
	}

	if req.SenderID == "" || req.RecipientID == "" || req.Content == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidMessageError("送信者、受信者、本文は必須です"))
		return
	}

	// 送信者はセッションユーザーに固定する。なりすましは拒否
	if req.SenderID != userID {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewUnauthorizedError())
		return
	}

	msg, err := h.router.Route(r.Context(), req.SenderID, req.RecipientID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// GetHistory は2ユーザー間の会話履歴を時系列の昇順で返す。
// GET /api/chat/history/{userId}/{recipientId}
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	recipientID := chi.URLParam(r, "recipientId")

	messages, err := h.history.Conversation(r.Context(), userID, recipientID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(messages))
}
