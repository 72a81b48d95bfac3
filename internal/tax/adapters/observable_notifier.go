package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/salestax/internal/notify"
	"github.com/dejobratic/salestax/internal/tax/domain"
	"github.com/dejobratic/salestax/internal/tax/ports"
	"github.com/dejobratic/salestax/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableNotificationSink struct {
	sink    ports.NotificationSink
	name    string
	metrics *notify.Metrics
}

// NewObservableNotificationSink traces sink; name labels the delivery metrics.
func NewObservableNotificationSink(sink ports.NotificationSink, name string, metrics *notify.Metrics) *ObservableNotificationSink {
	return &ObservableNotificationSink{
		sink:    sink,
		name:    name,
		metrics: metrics,
	}
}

func (s *ObservableNotificationSink) Notify(ctx context.Context, notification domain.Notification) error {
	ctx, span := telemetry.StartSpan(ctx, "NotificationSink.Notify")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", notification.OrderID),
		attribute.String("notification.sink", s.name),
	)

	start := time.Now()
	err := s.sink.Notify(ctx, notification)
	duration := time.Since(start).Seconds()

	s.metrics.RecordSend(ctx, s.name, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
