package lark

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// ErrNoOpenID is reported for a recipient with no Lark open id
var ErrNoOpenID = errors.New("recipient has no lark open id")

// textSender sends one text message to an open id
type textSender interface {
	SendText(ctx context.Context, openID, text string) (string, error)
}

// Messenger delivers push messages as Lark IM text messages.
// Implements port.PushSender.
type Messenger struct {
	sender textSender
	users  port.UserRepository
	logger *zap.Logger
}

// NewMessenger creates a new Lark push sender
func NewMessenger(client *SDKClient, users port.UserRepository, logger *zap.Logger) *Messenger {
	return newMessenger(NewMessageAPI(client, logger), users, logger)
}

func newMessenger(sender textSender, users port.UserRepository, logger *zap.Logger) *Messenger {
	return &Messenger{
		sender: sender,
		users:  users,
		logger: logger,
	}
}

// Send messages every recipient once. When any recipient is missed, including one
// without a Lark open id, it returns a *port.UndeliveredError naming them.
func (m *Messenger) Send(ctx context.Context, msg *entity.PushMessage) error {
	if msg == nil || len(msg.UserIDs) == 0 {
		return nil
	}

	text := formatText(msg)

	var (
		errs        []error
		undelivered []string
	)
	sent := 0
	for _, userID := range msg.UserIDs {
		user, err := m.users.GetByID(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Errorf("lookup %s: %w", userID, err))
			undelivered = append(undelivered, userID)
			continue
		}
		if user.LarkOpenID == "" {
			m.logger.Debug("Skipping recipient without Lark open id", zap.String("user_id", userID))
			errs = append(errs, fmt.Errorf("%s: %w", userID, ErrNoOpenID))
			undelivered = append(undelivered, userID)
			continue
		}

		if _, err := m.sender.SendText(ctx, user.LarkOpenID, text); err != nil {
			m.logger.Error("Failed to push to recipient",
				zap.String("user_id", userID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("send to %s: %w", userID, err))
			undelivered = append(undelivered, userID)
			continue
		}
		sent++
	}

	m.logger.Info("Lark push finished",
		zap.Int("recipients", len(msg.UserIDs)),
		zap.Int("sent", sent),
		zap.Int("failed", len(undelivered)))

	if len(undelivered) == 0 {
		return nil
	}
	return &port.UndeliveredError{UserIDs: undelivered, Err: errors.Join(errs...)}
}

func formatText(msg *entity.PushMessage) string {
	var b strings.Builder
	b.WriteString(msg.Title)
	if msg.Body != "" {
		b.WriteString("\n")
		b.WriteString(msg.Body)
	}
	if msg.Link != "" {
		b.WriteString("\n")
		b.WriteString(msg.Link)
	}
	return b.String()
}

// Verify interface compliance
var _ port.PushSender = (*Messenger)(nil)
