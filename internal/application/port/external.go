package port

import (
	"context"
	"fmt"

	"github.com/garyjia/report-approval/internal/domain/entity"
)

// PushSender delivers a push message to a set of users.
// Implementations make a single attempt; callers treat any error as non-fatal.
type PushSender interface {
	Send(ctx context.Context, msg *entity.PushMessage) error
}

// UndeliveredError is returned by a PushSender that reached some recipients but not others.
// UserIDs lists the recipients that did not receive the message.
type UndeliveredError struct {
	UserIDs []string
	Err     error
}

func (e *UndeliveredError) Error() string {
	return fmt.Sprintf("push not delivered to %d recipients: %v", len(e.UserIDs), e.Err)
}

func (e *UndeliveredError) Unwrap() error {
	return e.Err
}
