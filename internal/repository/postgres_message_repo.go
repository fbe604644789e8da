package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/chatman/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
// messagesテーブルは追記専用で、UPDATE/DELETEは発行しない。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを永続化する。
func (r *PostgresMessageRepo) Create(ctx context.Context, message *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, recipient_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.ID, message.SenderID, message.RecipientID, message.Content, message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByConversation は{userA, userB}の無順序ペアに一致する全メッセージを
// (created_at, id)の昇順で返す。
// 並び順はストレージ上の挿入順に依存せず、常にソートキーで定義される。
func (r *PostgresMessageRepo) ListByConversation(ctx context.Context, userA, userB string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender_id, recipient_id, content, created_at
		 FROM messages
		 WHERE (sender_id = $1 AND recipient_id = $2)
		    OR (sender_id = $2 AND recipient_id = $1)
		 ORDER BY created_at ASC, id ASC`,
		userA, userB,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}

	return messages, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
