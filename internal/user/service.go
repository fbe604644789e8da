// Package user はユーザーディレクトリのサービスを提供する。
package user

import (
	"context"
	"fmt"

	"github.com/hitoshi/chatman/internal/model"
	"github.com/hitoshi/chatman/internal/repository"
)

// Service はユーザー一覧の読み出しを行う。
type Service struct {
	users repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// List は全ユーザーを公開プロフィール形式で返す。
// パスワードハッシュなどの機密情報は含まない。
func (s *Service) List(ctx context.Context) ([]model.OnlineUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]model.OnlineUser, 0, len(users))
	for _, u := range users {
		out = append(out, model.OnlineUser{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
		})
	}
	return out, nil
}
