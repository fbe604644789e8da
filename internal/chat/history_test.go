package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chatman/internal/model"
)

// TestConversation_InvalidIDFormat はUUID形式でないIDがUNKNOWN_USERとして
// 拒否されることを検証する。クエリは発行されない。
func TestConversation_InvalidIDFormat(t *testing.T) {
	valid := uuid.New().String()

	tests := []struct {
		name                string
		userID, recipientID string
	}{
		{"userIDが不正", "not-a-uuid", valid},
		{"recipientIDが不正", valid, "12345"},
		{"両方不正", "x", "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queried := false
			repo := &mockMessageRepo{
				listByConversationFunc: func(ctx context.Context, a, b string) ([]*model.Message, error) {
					queried = true
					return nil, nil
				},
			}
			s := NewHistoryService(repo, testMetrics())

			_, err := s.Conversation(context.Background(), tt.userID, tt.recipientID)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnknownUser {
				t.Fatalf("expected UNKNOWN_USER, got %v", err)
			}
			if queried {
				t.Error("repository must not be queried for malformed IDs")
			}
		})
	}
}

// TestConversation_EmptyHistory はメッセージが存在しない場合に
// nilではなく空スライスが返ることを検証する。
func TestConversation_EmptyHistory(t *testing.T) {
	s := NewHistoryService(&mockMessageRepo{}, testMetrics())

	messages, err := s.Conversation(context.Background(), uuid.New().String(), uuid.New().String())
	if err != nil {
		t.Fatalf("empty history must not be an error: %v", err)
	}
	if messages == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(messages) != 0 {
		t.Errorf("expected 0 messages, got %d", len(messages))
	}
}

// TestConversation_ReturnsRepositoryOrder はリポジトリの返す時系列順が
// そのまま返却されることを検証する。
func TestConversation_ReturnsRepositoryOrder(t *testing.T) {
	alice := uuid.New().String()
	bob := uuid.New().String()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	want := []*model.Message{
		{ID: uuid.New().String(), SenderID: alice, RecipientID: bob, Content: "a", CreatedAt: base},
		{ID: uuid.New().String(), SenderID: bob, RecipientID: alice, Content: "b", CreatedAt: base.Add(time.Second)},
	}
	repo := &mockMessageRepo{
		listByConversationFunc: func(ctx context.Context, a, b string) ([]*model.Message, error) {
			return want, nil
		},
	}
	s := NewHistoryService(repo, testMetrics())

	got, err := s.Conversation(context.Background(), alice, bob)
	if err != nil {
		t.Fatalf("conversation failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("message %d out of order: got %s, want %s", i, got[i].ID, want[i].ID)
		}
	}
}

// TestConversation_RepositoryError はクエリ失敗がラップされて返ることを検証する。
func TestConversation_RepositoryError(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &mockMessageRepo{
		listByConversationFunc: func(ctx context.Context, a, b string) ([]*model.Message, error) {
			return nil, repoErr
		},
	}
	s := NewHistoryService(repo, testMetrics())

	_, err := s.Conversation(context.Background(), uuid.New().String(), uuid.New().String())
	if !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}
