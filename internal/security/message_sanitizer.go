// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizerService はメッセージ本文をサニタイズし、
// XSS攻撃などのセキュリティリスクから受信クライアントを保護する。
// メッセージはプレーンテキストとして扱うため、bluemondayのStrictPolicyで
// すべてのHTMLタグを除去する。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizerService はメッセージ本文のサニタイズ機能のインターフェースを定義する。
// メッセージ永続化前に使用される。
type MessageSanitizerService interface {
	// Sanitize はメッセージ本文からすべてのHTMLタグを除去したテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// チャットメッセージはリッチテキストを許可しないため、StrictPolicy
// （全タグ除去）を使用する。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージ本文からすべてのHTMLタグを除去したテキストを返す。
func (s *messageSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
