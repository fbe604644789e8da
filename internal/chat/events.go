package chat

import "time"

// コアからクライアントへ送出するイベント名。
// ワイヤエンコーディングはトランスポート層（internal/ws）が担う。
const (
	EventReceiveMessage        = "receive_message"
	EventActiveUsers           = "active_users"
	EventReceiveMessageHistory = "receive_message_history"
	EventError                 = "error"
)

// MessagePayload はreceive_messageおよび履歴応答のメッセージ表現。
type MessagePayload struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
