// Package chat はプレゼンス対応のメッセージルーティングコアを提供する。
//
// 接続レジストリ（ユーザーIDから単一のライブ接続へのマッピング）、
// メッセージルーター（検証→永続化→ベストエフォート配信）、
// プレゼンス配信、会話履歴の読み出しを含む。
package chat

import (
	"hash/fnv"
	"sync"

	"github.com/hitoshi/chatman/internal/model"
)

// Conn は1つのライブクライアント接続へイベントをプッシュするための不透明ハンドル。
// Sendはブロックせずに完了しなければならない。送出できない場合はエラーを返す。
type Conn interface {
	Send(event string, data any) error
}

// shardCount はレジストリのシャード数。
// 無関係なユーザー同士のロック競合を避けるため、単一ロックではなく
// ユーザーIDのハッシュでシャードを分割する。
const shardCount = 32

// registryEntry は1ユーザーのライブ接続とプレゼンス情報を保持する。
type registryEntry struct {
	user model.OnlineUser
	conn Conn
}

type registryShard struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

// Registry はユーザーIDからライブ接続へのインメモリマッピング。
// 各ユーザーIDに対してライブ接続は常に高々1つ（last-writer-wins）。
// ユーザーIDごとの状態遷移は線形化可能。
type Registry struct {
	shards [shardCount]*registryShard
}

// NewRegistry はRegistryを生成する。
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{entries: make(map[string]*registryEntry)}
	}
	return r
}

func (r *Registry) shardFor(userID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%shardCount]
}

// Register は接続を登録する。同一ユーザーIDの既存エントリは
// アトミックに置き換えられる。置き換えられたハンドルはレジストリからは
// 論理的に解除されるだけで、物理的なクローズはトランスポート層に委ねる。
func (r *Registry) Register(user model.OnlineUser, conn Conn) {
	s := r.shardFor(user.ID)
	s.mu.Lock()
	s.entries[user.ID] = &registryEntry{user: user, conn: conn}
	s.mu.Unlock()
}

// Unregister は指定ハンドルが現在のエントリである場合のみ削除する。
// すでに置き換え済みのstaleハンドルに対してはno-op。
func (r *Registry) Unregister(userID string, conn Conn) {
	s := r.shardFor(userID)
	s.mu.Lock()
	if e, ok := s.entries[userID]; ok && e.conn == conn {
		delete(s.entries, userID)
	}
	s.mu.Unlock()
}

// Lookup はユーザーの現在のライブ接続を返す。
// 完了済みの直近のRegister/Unregisterを必ず観測する。
// 並行するUnregisterと競合した場合はどちらの結果も正常とみなす。
func (r *Registry) Lookup(userID string) (Conn, bool) {
	s := r.shardFor(userID)
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// Snapshot は現在のオンラインユーザー一覧を返す。
// 順序は不定。各ユーザーについてはある時点で実在した状態を反映する。
func (r *Registry) Snapshot() []model.OnlineUser {
	var users []model.OnlineUser
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			users = append(users, e.user)
		}
		s.mu.RUnlock()
	}
	return users
}

// Conns は現在の全ライブ接続を返す。プレゼンス配信用。
func (r *Registry) Conns() []Conn {
	var conns []Conn
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			conns = append(conns, e.conn)
		}
		s.mu.RUnlock()
	}
	return conns
}

// Len は現在のオンラインユーザー数を返す。
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
