// Package ws はWebSocketトランスポートを提供する。
//
// 各接続はクライアントごとの読み書きポンプで駆動する。書き込みは
// バッファ付きチャネル経由の単一ゴルーチンに集約し、chat.Connの
// ノンブロッキング契約を満たす。
package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/chatman/internal/model"
)

var (
	errClientClosed   = errors.New("websocket client closed")
	errSendBufferFull = errors.New("websocket send buffer full")
)

// Options は接続ごとのタイムアウトとバッファの設定。
type Options struct {
	WriteTimeout   time.Duration // 1フレームの書き込みタイムアウト
	PongTimeout    time.Duration // Pong未受信で切断するまでの時間
	SendBuffer     int           // 送信バッファのイベント数
	MaxMessageSize int64         // 受信フレームの最大バイト数
}

// Client は1つのWebSocket接続を表す。chat.Connを実装する。
type Client struct {
	user model.OnlineUser
	conn *websocket.Conn
	opts Options

	send chan outboundEvent
	done chan struct{}

	closeOnce sync.Once
	logger    *slog.Logger
}

func newClient(user model.OnlineUser, conn *websocket.Conn, opts Options, logger *slog.Logger) *Client {
	return &Client{
		user:   user,
		conn:   conn,
		opts:   opts,
		send:   make(chan outboundEvent, opts.SendBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send はイベントを送信バッファへ積む。ブロックしない。
// 接続が閉じている場合、またはバッファが満杯の場合はエラーを返す。
// バッファ満杯は受信側の詰まりを意味するため、呼び出し元は失敗として扱ってよい。
func (c *Client) Send(event string, data any) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- outboundEvent{Event: event, Data: data}:
		return nil
	default:
		return errSendBufferFull
	}
}

// close は接続を一度だけ閉じる。読み書きポンプの双方から呼ばれる。
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump は送信バッファのイベントと定期Pingを単一ゴルーチンで書き込む。
// 書き込み失敗またはclose時に終了する。
func (c *Client) writePump() {
	pingPeriod := c.opts.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Warn("websocket write failed",
					slog.String("user_id", c.user.ID),
					slog.String("error", err.Error()),
				)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
