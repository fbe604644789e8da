// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/chatman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// MessageRepository はメッセージの追記専用永続化インターフェース。
// メッセージは作成後に更新・削除されることはない。
type MessageRepository interface {
	// Create はメッセージを永続化する。IDとCreatedAtは呼び出し側が割り当て済みであること。
	Create(ctx context.Context, message *model.Message) error

	// ListByConversation は{userA, userB}の無順序ペアに一致する全メッセージを
	// (created_at, id)の昇順で返す。引数の順序は結果に影響しない。
	// 読み込みは呼び出し時点のコミット済みデータを反映する。
	ListByConversation(ctx context.Context, userA, userB string) ([]*model.Message, error)
}
