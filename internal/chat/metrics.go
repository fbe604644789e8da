package chat

import "time"

// Metrics はコアが記録するメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。
type Metrics interface {
	RecordMessageRouted()
	RecordMessageDelivered()
	RecordPersistFailure()
	RecordForwardFailure()
	RecordPresenceBroadcast(online int)
	RecordHistoryQueryDuration(duration time.Duration)
}
