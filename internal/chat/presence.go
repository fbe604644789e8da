package chat

import (
	"log/slog"
	"sync"

	"github.com/hitoshi/chatman/internal/model"
)

// Presence は接続の登録・解除とプレゼンス全体配信を束ねる。
//
// 変異→スナップショット→配信をミューテックスで直列化するため、
// 全接続は同一レジストリに対するプレゼンス更新を同じ順序で観測する。
// 配信はConn.Sendのノンブロッキング契約に依存しており、
// ロック保持中のファンアウトが他の変異を長時間妨げることはない。
type Presence struct {
	registry *Registry
	logger   *slog.Logger
	metrics  Metrics

	mu sync.Mutex
}

// NewPresence はPresenceを生成する。
func NewPresence(registry *Registry, logger *slog.Logger, metrics Metrics) *Presence {
	return &Presence{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// Attach は接続を登録し、更新後のオンライン一覧を全接続へ配信する。
// 同一ユーザーの既存接続はレジストリ上で置き換えられる（last-writer-wins）。
func (p *Presence) Attach(user model.OnlineUser, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry.Register(user, conn)
	p.broadcastLocked()
}

// Detach は接続を解除し、更新後のオンライン一覧を全接続へ配信する。
// connがすでに置き換え済みのstaleハンドルである場合、レジストリは変化しないが
// 配信は行う（冪等な全量更新のため受信側の状態は乱れない）。
func (p *Presence) Detach(userID string, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry.Unregister(userID, conn)
	p.broadcastLocked()
}

// Broadcast は現在のオンライン一覧を全接続へ配信する。
// 接続直後の初期同期などレジストリを変異させない再送に使う。
func (p *Presence) Broadcast() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.broadcastLocked()
}

func (p *Presence) broadcastLocked() {
	users := p.registry.Snapshot()
	if users == nil {
		users = []model.OnlineUser{}
	}

	for _, conn := range p.registry.Conns() {
		if err := conn.Send(EventActiveUsers, users); err != nil {
			// 送出不能な接続はトランスポート層が切断・解除する
			p.logger.Warn("presence broadcast send failed",
				slog.String("error", err.Error()),
			)
		}
	}

	p.metrics.RecordPresenceBroadcast(len(users))
}
