package notify

import (
	"context"
	"log/slog"

	"github.com/dejobratic/salestax/internal/tax/domain"
)

// LogSink writes alerts to the log instead of mailing them. Used when no mail
// provider is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs through logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, notification domain.Notification) error {
	s.logger.WarnContext(ctx, "notification::tax_calculation_failed",
		"order_id", notification.OrderID,
		"subject", notification.Subject,
	)
	return nil
}
