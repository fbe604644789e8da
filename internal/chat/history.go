package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/chatman/internal/model"
	"github.com/hitoshi/chatman/internal/repository"
)

// HistoryService は2ユーザー間の会話履歴を読み出す。
type HistoryService struct {
	messages repository.MessageRepository
	metrics  Metrics
}

// NewHistoryService はHistoryServiceを生成する。
func NewHistoryService(messages repository.MessageRepository, metrics Metrics) *HistoryService {
	return &HistoryService{
		messages: messages,
		metrics:  metrics,
	}
}

// Conversation は2ユーザー間の全メッセージを(created_at, id)昇順で返す。
// 方向は区別せず、引数の順序を入れ替えても同じ結果になる。
// メッセージが存在しない場合は空スライスを返す。
//
// IDがUUID形式でない場合はUNKNOWN_USERエラーを返す。
func (s *HistoryService) Conversation(ctx context.Context, userID, recipientID string) ([]*model.Message, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewUnknownUserError(userID)
	}
	if _, err := uuid.Parse(recipientID); err != nil {
		return nil, model.NewUnknownUserError(recipientID)
	}

	start := time.Now()
	messages, err := s.messages.ListByConversation(ctx, userID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation history: %w", err)
	}
	s.metrics.RecordHistoryQueryDuration(time.Since(start))

	if messages == nil {
		messages = []*model.Message{}
	}
	return messages, nil
}
