package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/chatman/internal/model"
)

func newTestRouter(repo *mockMessageRepo, registry *Registry) *MessageRouter {
	return NewMessageRouter(repo, &mockUserFinder{}, registry, passthroughSanitizer{}, testLogger(), testMetrics())
}

// TestRoute_EmptyContent は空本文のメッセージが拒否されることを検証する。
func TestRoute_EmptyContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"空文字列", ""},
		{"空白のみ", "   \t\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persisted := false
			repo := &mockMessageRepo{
				createFunc: func(ctx context.Context, m *model.Message) error {
					persisted = true
					return nil
				},
			}
			rt := newTestRouter(repo, NewRegistry())

			_, err := rt.Route(context.Background(), "alice", "bob", tt.content)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidMessage {
				t.Fatalf("expected INVALID_MESSAGE, got %v", err)
			}
			if persisted {
				t.Error("rejected message must not be persisted")
			}
		})
	}
}

// TestRoute_MissingParticipants は送信者または受信者の欠落が拒否されることを検証する。
func TestRoute_MissingParticipants(t *testing.T) {
	rt := newTestRouter(&mockMessageRepo{}, NewRegistry())

	for _, tt := range []struct {
		name, sender, recipient string
	}{
		{"送信者なし", "", "bob"},
		{"受信者なし", "alice", ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Route(context.Background(), tt.sender, tt.recipient, "hello")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidMessage {
				t.Errorf("expected INVALID_MESSAGE, got %v", err)
			}
		})
	}
}

// markupStripper はタグを空に置き換えるテスト用サニタイザー。
type markupStripper struct{}

func (markupStripper) Sanitize(raw string) string {
	if strings.HasPrefix(raw, "<") {
		return ""
	}
	return raw
}

// TestRoute_SanitizedToEmpty はサニタイズ後に空となる本文が拒否されることを検証する。
func TestRoute_SanitizedToEmpty(t *testing.T) {
	rt := NewMessageRouter(&mockMessageRepo{}, &mockUserFinder{}, NewRegistry(), markupStripper{}, testLogger(), testMetrics())

	_, err := rt.Route(context.Background(), "alice", "bob", "<script>alert(1)</script>")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidMessage {
		t.Errorf("expected INVALID_MESSAGE for markup-only content, got %v", err)
	}
}

// TestRoute_PersistFailure は永続化失敗時にPERSISTENCE_FAILUREが返り、
// 配信が行われないことを検証する。
func TestRoute_PersistFailure(t *testing.T) {
	repo := &mockMessageRepo{
		createFunc: func(ctx context.Context, m *model.Message) error {
			return errors.New("connection refused")
		},
	}
	registry := NewRegistry()
	bobConn := &mockConn{}
	registry.Register(model.OnlineUser{ID: "bob", Name: "Bob"}, bobConn)

	rt := newTestRouter(repo, registry)
	_, err := rt.Route(context.Background(), "alice", "bob", "hello")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePersistenceFailure {
		t.Fatalf("expected PERSISTENCE_FAILURE, got %v", err)
	}
	if len(bobConn.sentByEvent(EventReceiveMessage)) != 0 {
		t.Error("unpersisted message must not be forwarded")
	}
}

// TestRoute_OfflineRecipient は受信者オフライン時も永続化が成功し、
// エラーにならないことを検証する。
func TestRoute_OfflineRecipient(t *testing.T) {
	var stored *model.Message
	repo := &mockMessageRepo{
		createFunc: func(ctx context.Context, m *model.Message) error {
			stored = m
			return nil
		},
	}
	rt := newTestRouter(repo, NewRegistry())

	msg, err := rt.Route(context.Background(), "alice", "bob", "hello")
	if err != nil {
		t.Fatalf("offline recipient must not be an error: %v", err)
	}
	if stored == nil {
		t.Fatal("message should be persisted")
	}
	if msg.ID == "" || msg.CreatedAt.IsZero() {
		t.Error("routed message should carry assigned ID and timestamp")
	}
}

// TestRoute_OnlineRecipientReceivesMessage は受信者がオンラインの場合に
// 受信者の接続へ正しいペイロードが配信されることを検証する。
func TestRoute_OnlineRecipientReceivesMessage(t *testing.T) {
	registry := NewRegistry()
	bobConn := &mockConn{}
	registry.Register(model.OnlineUser{ID: "bob", Name: "Bob"}, bobConn)

	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Alice"}, nil
		},
	}
	rt := NewMessageRouter(&mockMessageRepo{}, users, registry, passthroughSanitizer{}, testLogger(), testMetrics())

	msg, err := rt.Route(context.Background(), "alice", "bob", "hello")
	if err != nil {
		t.Fatalf("route failed: %v", err)
	}

	events := bobConn.sentByEvent(EventReceiveMessage)
	if len(events) != 1 {
		t.Fatalf("recipient received %d messages, want 1", len(events))
	}
	payload := events[0].data.(MessagePayload)
	if payload.ID != msg.ID {
		t.Errorf("payload.ID = %s, want %s", payload.ID, msg.ID)
	}
	if payload.SenderID != "alice" || payload.SenderName != "Alice" {
		t.Errorf("unexpected sender in payload: %+v", payload)
	}
	if payload.Content != "hello" {
		t.Errorf("payload.Content = %q, want %q", payload.Content, "hello")
	}
}

// TestRoute_ForwardFailureSwallowed はライブ配信の失敗が送信者へ
// 伝播しないことを検証する。メッセージは永続化済みで履歴から取得できる。
func TestRoute_ForwardFailureSwallowed(t *testing.T) {
	registry := NewRegistry()
	registry.Register(model.OnlineUser{ID: "bob", Name: "Bob"}, &mockConn{sendErr: errSendFailed})

	persisted := false
	repo := &mockMessageRepo{
		createFunc: func(ctx context.Context, m *model.Message) error {
			persisted = true
			return nil
		},
	}
	rt := newTestRouter(repo, registry)

	if _, err := rt.Route(context.Background(), "alice", "bob", "hello"); err != nil {
		t.Fatalf("forward failure must not surface to sender: %v", err)
	}
	if !persisted {
		t.Error("message should be persisted despite forward failure")
	}
}

// TestRoute_SelfMessageNotForwarded は自分宛のメッセージが自身の接続へ
// 配信されないことを検証する。永続化は行われる。
func TestRoute_SelfMessageNotForwarded(t *testing.T) {
	registry := NewRegistry()
	aliceConn := &mockConn{}
	registry.Register(model.OnlineUser{ID: "alice", Name: "Alice"}, aliceConn)

	rt := newTestRouter(&mockMessageRepo{}, registry)

	if _, err := rt.Route(context.Background(), "alice", "alice", "note to self"); err != nil {
		t.Fatalf("route failed: %v", err)
	}
	if len(aliceConn.sentByEvent(EventReceiveMessage)) != 0 {
		t.Error("sender's own connection must not receive the message back")
	}
}

// TestRoute_CreatedAtMonotonic は壁時計が逆行してもcreatedAtが
// 単調増加することを検証する。
func TestRoute_CreatedAtMonotonic(t *testing.T) {
	var stored []*model.Message
	repo := &mockMessageRepo{
		createFunc: func(ctx context.Context, m *model.Message) error {
			stored = append(stored, m)
			return nil
		},
	}
	rt := newTestRouter(repo, NewRegistry())

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Second), base.Add(time.Second)}
	i := 0
	rt.now = func() time.Time {
		t := clock[i]
		i++
		return t
	}

	for range clock {
		if _, err := rt.Route(context.Background(), "alice", "bob", "tick"); err != nil {
			t.Fatalf("route failed: %v", err)
		}
	}

	for j := 1; j < len(stored); j++ {
		if stored[j].CreatedAt.Before(stored[j-1].CreatedAt) {
			t.Errorf("createdAt went backwards: %v then %v", stored[j-1].CreatedAt, stored[j].CreatedAt)
		}
	}
}
