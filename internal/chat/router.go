package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chatman/internal/model"
	"github.com/hitoshi/chatman/internal/repository"
)

// UserFinder は送信者の表示名解決に使う読み取り専用の依存。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Sanitizer はメッセージ本文からマークアップを除去する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MessageRouter は1対1メッセージの検証・永続化・ベストエフォート配信を行う。
//
// 永続化が成功した時点でメッセージの受理は確定する。ライブ配信の失敗は
// 呼び出し元へ伝播せず、メッセージは履歴から取得可能なままとなる。
type MessageRouter struct {
	messages  repository.MessageRepository
	users     UserFinder
	registry  *Registry
	sanitizer Sanitizer
	logger    *slog.Logger
	metrics   Metrics

	// createdAtの単調性を保証するためのクロックガード。
	// 壁時計の逆行時は直前の値から前進させる。
	clockMu       sync.Mutex
	lastCreatedAt time.Time
	now           func() time.Time
}

// NewMessageRouter はMessageRouterを生成する。
func NewMessageRouter(
	messages repository.MessageRepository,
	users UserFinder,
	registry *Registry,
	sanitizer Sanitizer,
	logger *slog.Logger,
	metrics Metrics,
) *MessageRouter {
	return &MessageRouter{
		messages:  messages,
		users:     users,
		registry:  registry,
		sanitizer: sanitizer,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Route はメッセージを検証し、永続化し、受信者がオンラインならライブ配信する。
// 戻り値のメッセージはID・createdAt採番済み。
//
// 検証エラーはINVALID_MESSAGE、永続化失敗はPERSISTENCE_FAILUREとして返す。
// 受信者オフラインおよび配信失敗はエラーではない。
func (rt *MessageRouter) Route(ctx context.Context, senderID, recipientID, content string) (*model.Message, error) {
	if senderID == "" || recipientID == "" {
		return nil, model.NewInvalidMessageError("送信者と受信者は必須です")
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, model.NewInvalidMessageError("メッセージ本文が空です")
	}

	// サニタイズでマークアップのみの本文が空になるケースも空扱い
	clean := strings.TrimSpace(rt.sanitizer.Sanitize(trimmed))
	if clean == "" {
		return nil, model.NewInvalidMessageError("メッセージ本文が空です")
	}

	msg := &model.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     clean,
		CreatedAt:   rt.nextCreatedAt(),
	}

	if err := rt.messages.Create(ctx, msg); err != nil {
		rt.metrics.RecordPersistFailure()
		rt.logger.Error("message persistence failed",
			slog.String("sender_id", senderID),
			slog.String("recipient_id", recipientID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceFailureError()
	}

	rt.metrics.RecordMessageRouted()
	rt.forward(ctx, msg)

	return msg, nil
}

// forward は受信者のライブ接続へベストエフォートで配信する。
// 送信者自身の接続へは決して配信しない。
func (rt *MessageRouter) forward(ctx context.Context, msg *model.Message) {
	if msg.RecipientID == msg.SenderID {
		return
	}

	conn, ok := rt.registry.Lookup(msg.RecipientID)
	if !ok {
		// 受信者オフライン。履歴には残っている
		return
	}

	payload := MessagePayload{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		SenderName:  rt.senderName(ctx, msg.SenderID),
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	}

	if err := conn.Send(EventReceiveMessage, payload); err != nil {
		rt.metrics.RecordForwardFailure()
		rt.logger.Warn("message forward failed",
			slog.String("message_id", msg.ID),
			slog.String("recipient_id", msg.RecipientID),
			slog.String("error", err.Error()),
		)
		return
	}

	rt.metrics.RecordMessageDelivered()
}

// senderName は送信者の表示名をベストエフォートで解決する。
func (rt *MessageRouter) senderName(ctx context.Context, senderID string) string {
	user, err := rt.users.FindByID(ctx, senderID)
	if err != nil || user == nil {
		return ""
	}
	return user.Name
}

// nextCreatedAt は単調増加するタイムスタンプを採番する。
// TIMESTAMPTZはマイクロ秒精度のため、同一クロック値はマイクロ秒単位で前進させる。
func (rt *MessageRouter) nextCreatedAt() time.Time {
	rt.clockMu.Lock()
	defer rt.clockMu.Unlock()

	t := rt.now()
	if !t.After(rt.lastCreatedAt) {
		t = rt.lastCreatedAt.Add(time.Microsecond)
	}
	rt.lastCreatedAt = t
	return t
}
