package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/chatman/internal/chat"
	"github.com/hitoshi/chatman/internal/middleware"
	"github.com/hitoshi/chatman/internal/model"
)

// MessageRouter はメッセージの受理に必要なインターフェース。
type MessageRouter interface {
	Route(ctx context.Context, senderID, recipientID, content string) (*model.Message, error)
}

// HistoryReader は会話履歴の読み出しに必要なインターフェース。
type HistoryReader interface {
	Conversation(ctx context.Context, userID, recipientID string) ([]*model.Message, error)
}

// UserFinder は接続ユーザーのプロフィール解決に必要なインターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SendLimiter はWebSocket経由のメッセージ送信レート制限に必要なインターフェース。
type SendLimiter interface {
	AllowMessageSend(userID string) bool
}

// ConnectionMetrics は接続数メトリクスの記録に必要なインターフェース。
type ConnectionMetrics interface {
	RecordConnectionOpened()
	RecordConnectionClosed()
}

// Handler はWebSocket接続のアップグレードとイベントディスパッチを行う。
// セッションミドルウェアの後段に配置し、認証済みユーザーのみ接続できる。
type Handler struct {
	upgrader websocket.Upgrader
	presence *chat.Presence
	router   MessageRouter
	history  HistoryReader
	users    UserFinder
	limiter  SendLimiter
	metrics  ConnectionMetrics
	logger   *slog.Logger
	opts     Options
}

// NewHandler はHandlerを生成する。
// allowedOriginが空でない場合、Originヘッダーの一致を検証する。
func NewHandler(
	presence *chat.Presence,
	router MessageRouter,
	history HistoryReader,
	users UserFinder,
	limiter SendLimiter,
	metrics ConnectionMetrics,
	logger *slog.Logger,
	opts Options,
	allowedOrigin string,
) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || origin == allowedOrigin
			},
		},
		presence: presence,
		router:   router,
		history:  history,
		users:    users,
		limiter:  limiter,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

// ServeHTTP は接続をWebSocketへアップグレードし、ポンプを起動する。
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to resolve websocket user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeは失敗時に自身でレスポンスを書き込む
		h.logger.Warn("websocket upgrade failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	client := newClient(model.OnlineUser{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}, conn, h.opts, h.logger)

	h.metrics.RecordConnectionOpened()
	h.logger.Info("websocket connected", slog.String("user_id", user.ID))

	// 接続と同時にオンライン一覧が全員へ配信される
	h.presence.Attach(client.user, client)

	go client.writePump()
	go h.readPump(client)
}

// readPump は受信フレームを読み取り、イベントをディスパッチする。
// 読み取り終了時に接続を解除し、プレゼンス更新を配信する。
func (h *Handler) readPump(c *Client) {
	defer func() {
		c.close()
		h.presence.Detach(c.user.ID, c)
		h.metrics.RecordConnectionClosed()
		h.logger.Info("websocket disconnected", slog.String("user_id", c.user.ID))
	}()

	c.conn.SetReadLimit(h.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.opts.PongTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed",
					slog.String("user_id", c.user.ID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(c, model.NewInvalidMessageError("不正なイベント形式です"))
			continue
		}

		h.dispatch(c, env)
	}
}

// dispatch はイベント名に応じて処理を振り分ける。
func (h *Handler) dispatch(c *Client, env Envelope) {
	ctx := context.Background()

	switch env.Event {
	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.sendError(c, model.NewInvalidMessageError("不正なペイロードです"))
			return
		}

		// 送信者はセッションユーザーに固定する。なりすましは拒否
		if p.SenderID != "" && p.SenderID != c.user.ID {
			h.sendError(c, model.NewUnauthorizedError())
			return
		}

		if h.limiter != nil && !h.limiter.AllowMessageSend(c.user.ID) {
			h.sendError(c, &model.APIError{
				Code:     "RATE_LIMIT_EXCEEDED",
				Message:  "メッセージの送信回数が上限を超えました。",
				Category: "system",
				Action:   "しばらく待ってから再度お試しください。",
			})
			return
		}

		if _, err := h.router.Route(ctx, c.user.ID, p.RecipientID, p.Content); err != nil {
			h.sendServiceError(c, err)
		}

	case EventGetChatHistory:
		var p HistoryRequestPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			h.sendError(c, model.NewInvalidMessageError("不正なペイロードです"))
			return
		}

		messages, err := h.history.Conversation(ctx, c.user.ID, p.RecipientID)
		if err != nil {
			h.sendServiceError(c, err)
			return
		}

		if err := c.Send(chat.EventReceiveMessageHistory, toMessagePayloads(messages)); err != nil {
			h.logger.Warn("history send failed",
				slog.String("user_id", c.user.ID),
				slog.String("error", err.Error()),
			)
		}

	default:
		h.sendError(c, model.NewInvalidMessageError("未知のイベントです: "+env.Event))
	}
}

// sendServiceError はサービス層のエラーをクライアントへ通知する。
// APIError以外は詳細を隠して一般的なエラーとして返す。
func (h *Handler) sendServiceError(c *Client, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		h.sendError(c, apiErr)
		return
	}

	h.logger.Error("websocket event failed",
		slog.String("user_id", c.user.ID),
		slog.String("error", err.Error()),
	)
	h.sendError(c, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

func (h *Handler) sendError(c *Client, apiErr *model.APIError) {
	if err := c.Send(chat.EventError, middleware.ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	}); err != nil {
		h.logger.Warn("error event send failed",
			slog.String("user_id", c.user.ID),
			slog.String("error", err.Error()),
		)
	}
}

func toMessagePayloads(messages []*model.Message) []chat.MessagePayload {
	out := make([]chat.MessagePayload, 0, len(messages))
	for _, m := range messages {
		out = append(out, chat.MessagePayload{
			ID:          m.ID,
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			Content:     m.Content,
			CreatedAt:   m.CreatedAt,
		})
	}
	return out
}
