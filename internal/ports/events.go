package ports

import "context"

// EventPublisher is the outbound domain-event publish port.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}

// MetricsRecorder receives business counters from the application layer.
type MetricsRecorder interface {
	OrderPlaced(restaurantID string)
	DuplicateOrderSuppressed(restaurantID string)
	OrderTransitioned(to string)
}

type NoopMetrics struct{}

func (NoopMetrics) OrderPlaced(string)              {}
func (NoopMetrics) DuplicateOrderSuppressed(string) {}
func (NoopMetrics) OrderTransitioned(string)        {}
