package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// HTTPConfig holds the push endpoint settings
type HTTPConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
}

// HTTPSender posts push messages as JSON to a delivery endpoint.
// It makes exactly one attempt per message.
type HTTPSender struct {
	endpoint  string
	authToken string
	client    *http.Client
	logger    *zap.Logger
}

// NewHTTPSender creates a new HTTP push sender
func NewHTTPSender(cfg HTTPConfig, logger *zap.Logger) *HTTPSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSender{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// Send posts msg to the endpoint. Any non-2xx status is an error.
func (s *HTTPSender) Send(ctx context.Context, msg *entity.PushMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Push request failed",
			zap.String("endpoint", s.endpoint),
			zap.Error(err))
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error("Push endpoint returned failure",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(snippet)))
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.Info("Push delivered",
		zap.Int("recipients", len(msg.UserIDs)),
		zap.Int("status", resp.StatusCode))
	return nil
}

// Verify interface compliance
var _ port.PushSender = (*HTTPSender)(nil)
