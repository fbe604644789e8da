package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/chatman/internal/metrics"
	"github.com/hitoshi/chatman/internal/model"
)

var errSendFailed = errors.New("send failed")

// sentEvent はmockConnが記録した送出イベント。
type sentEvent struct {
	event string
	data  any
}

// mockConn はConnのテスト用実装。送出イベントを記録する。
type mockConn struct {
	mu      sync.Mutex
	events  []sentEvent
	sendErr error
}

func (c *mockConn) Send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, sentEvent{event: event, data: data})
	return nil
}

func (c *mockConn) sent() []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *mockConn) sentByEvent(event string) []sentEvent {
	var out []sentEvent
	for _, e := range c.sent() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// mockMessageRepo はMessageRepositoryのテスト用実装。
type mockMessageRepo struct {
	createFunc             func(ctx context.Context, message *model.Message) error
	listByConversationFunc func(ctx context.Context, userA, userB string) ([]*model.Message, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, message *model.Message) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, message)
	}
	return nil
}

func (m *mockMessageRepo) ListByConversation(ctx context.Context, userA, userB string) ([]*model.Message, error) {
	if m.listByConversationFunc != nil {
		return m.listByConversationFunc(ctx, userA, userB)
	}
	return nil, nil
}

// mockUserFinder はUserFinderのテスト用実装。
type mockUserFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

// passthroughSanitizer は入力をそのまま返すテスト用サニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollector(prometheus.NewRegistry())
}
