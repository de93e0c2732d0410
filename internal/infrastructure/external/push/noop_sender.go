package push

import (
	"context"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// NoopSender drops push messages; used when push delivery is disabled
type NoopSender struct {
	logger *zap.Logger
}

// NewNoopSender creates a sender that only logs
func NewNoopSender(logger *zap.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

// Send logs and discards msg
func (s *NoopSender) Send(ctx context.Context, msg *entity.PushMessage) error {
	s.logger.Debug("Push disabled, message dropped", zap.Int("recipients", len(msg.UserIDs)))
	return nil
}

var _ port.PushSender = (*NoopSender)(nil)
