package ws

import "encoding/json"

// クライアントから受信するイベント名。
const (
	EventSendMessage    = "send_message"
	EventGetChatHistory = "get_chat_history"
)

// Envelope はWebSocketメッセージの外枠。イベント名とペイロードを持つ。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SendMessagePayload はsend_messageイベントのペイロード。
// sender_idは省略可能で、指定された場合はセッションユーザーと一致しなければならない。
type SendMessagePayload struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

// HistoryRequestPayload はget_chat_historyイベントのペイロード。
// セッションユーザーと指定された相手との会話履歴を要求する。
type HistoryRequestPayload struct {
	RecipientID string `json:"recipient_id"`
}

// outboundEvent はクライアントへ送出するWebSocketメッセージ。
type outboundEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
