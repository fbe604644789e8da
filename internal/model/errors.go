// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chat, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrCodePersistenceFailure = "PERSISTENCE_FAILURE"
	ErrCodeUnknownUser        = "UNKNOWN_USER"
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
)

// NewInvalidMessageError は不正なメッセージエラーを生成する。
// 本文が空、または必須フィールドが欠落している場合に使用する。
func NewInvalidMessageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMessage,
		Message:  fmt.Sprintf("無効なメッセージです: %s", reason),
		Category: "validation",
		Action:   "送信先と本文を指定してください。",
	}
}

// NewPersistenceFailureError はメッセージ永続化失敗エラーを生成する。
// 永続化に失敗した場合、メッセージは配信されない。
func NewPersistenceFailureError() *APIError {
	return &APIError{
		Code:     ErrCodePersistenceFailure,
		Message:  "メッセージの保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnknownUserError はユーザーID形式不正エラーを生成する。
// 履歴クエリのIDがUUID形式でない場合に使用する。
func NewUnknownUserError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownUser,
		Message:  fmt.Sprintf("ユーザーIDの形式が不正です: %s", id),
		Category: "validation",
		Action:   "正しいユーザーIDを指定してください。",
	}
}

// NewUserExistsError は登録済みメールアドレスでのサインアップエラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスを使用してください。",
	}
}

// NewInvalidCredentialsError はパスワード不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。先にサインアップしてください。",
		Category: "auth",
		Action:   "サインアップしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}
