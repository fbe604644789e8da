// Package model はドメインモデルを定義する。
package model

import "time"

// Message は2ユーザー間のダイレクトメッセージを表す。
// 永続化された時点で不変となり、以後内容が変更されることはない。
// 履歴の並び順は(CreatedAt, ID)の昇順で定義される。
type Message struct {
	ID          string
	SenderID    string
	RecipientID string
	Content     string
	CreatedAt   time.Time
}
