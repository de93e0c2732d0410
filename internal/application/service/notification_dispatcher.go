package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/report-approval/internal/application/dispatcher"
	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
)

// Transition is what the dispatcher needs to know about an applied status change
type Transition struct {
	ReportID       string
	FromStatus     workflow.Status
	ToStatus       workflow.Status
	DepartmentName string
	ReportType     entity.ReportType
	AuthorID       string
}

// DispatchOutcome describes what a dispatch did
type DispatchOutcome struct {
	// Skipped is true when the destination status has no template
	Skipped bool

	Recipients      []string
	NotificationIDs []int64

	// Push is the handle of the detached push-delivery task; nil when no push was issued
	Push *dispatcher.Task
}

type messageTemplate struct {
	title string
	body  string
}

// templateFor returns the message template for a destination status
func templateFor(status workflow.Status) (messageTemplate, bool) {
	switch status {
	case workflow.StatusSubmitted:
		return messageTemplate{"New report submitted", "{dept} {type} report has been submitted."}, true
	case workflow.StatusCoordinatorReviewed:
		return messageTemplate{"Tier-1 review complete", "{dept} report is awaiting tier-2 approval."}, true
	case workflow.StatusManagerApproved:
		return messageTemplate{"Tier-2 approval complete", "{dept} report is awaiting final confirmation."}, true
	case workflow.StatusFinalApproved:
		return messageTemplate{"Report approved", "The report has been finally approved."}, true
	case workflow.StatusRejected:
		return messageTemplate{"Report rejected", "The report was rejected. Please review."}, true
	case workflow.StatusDraft:
		return messageTemplate{}, false
	}
	return messageTemplate{}, false
}

// NotificationDispatcher fans a transition out to in-app notifications and one push request
type NotificationDispatcher struct {
	users         port.UserRepository
	notifications port.NotificationRepository
	sender        port.PushSender
	runner        dispatcher.Runner
	logger        Logger

	typeLabels  map[string]string
	pushTimeout time.Duration
}

// DispatcherOption configures the notification dispatcher
type DispatcherOption func(*NotificationDispatcher)

// WithTypeLabels overrides report-type display labels
func WithTypeLabels(labels map[string]string) DispatcherOption {
	return func(d *NotificationDispatcher) {
		for k, v := range labels {
			d.typeLabels[k] = v
		}
	}
}

// WithPushTimeout bounds the single push-delivery attempt
func WithPushTimeout(timeout time.Duration) DispatcherOption {
	return func(d *NotificationDispatcher) {
		d.pushTimeout = timeout
	}
}

// NewNotificationDispatcher creates a new NotificationDispatcher
func NewNotificationDispatcher(
	users port.UserRepository,
	notifications port.NotificationRepository,
	sender port.PushSender,
	runner dispatcher.Runner,
	logger Logger,
	opts ...DispatcherOption,
) *NotificationDispatcher {
	d := &NotificationDispatcher{
		users:         users,
		notifications: notifications,
		sender:        sender,
		runner:        runner,
		logger:        logger,
		typeLabels:    make(map[string]string),
		pushTimeout:   5 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch notifies everyone a transition concerns.
// An error means recipient resolution or the bulk write failed; push is still issued after a failed write.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, t Transition) (*DispatchOutcome, error) {
	tmpl, ok := templateFor(t.ToStatus)
	if !ok {
		return &DispatchOutcome{Skipped: true}, nil
	}

	recipients, err := d.resolveRecipients(ctx, t)
	if err != nil {
		d.logger.Error("Failed to resolve notification recipients",
			"report_id", t.ReportID,
			"to_status", t.ToStatus,
			"error", err,
		)
		return &DispatchOutcome{}, fmt.Errorf("resolve recipients: %w", err)
	}

	outcome := &DispatchOutcome{Recipients: recipients}
	if len(recipients) == 0 {
		d.logger.Info("No recipients for transition",
			"report_id", t.ReportID,
			"to_status", t.ToStatus,
		)
		return outcome, nil
	}

	msg := &entity.PushMessage{
		UserIDs: recipients,
		Title:   tmpl.title,
		Body:    d.render(tmpl.body, t),
		Link:    entity.ReportLink(t.ReportID),
	}

	rows := make([]*entity.Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, &entity.Notification{
			UserID:   userID,
			ReportID: t.ReportID,
			Title:    msg.Title,
			Body:     msg.Body,
			Link:     msg.Link,
		})
	}

	ids, writeErr := d.notifications.BulkCreate(ctx, rows)
	if writeErr != nil {
		d.logger.Error("Failed to write notifications",
			"report_id", t.ReportID,
			"recipients", len(recipients),
			"error", writeErr,
		)
	}
	outcome.NotificationIDs = ids

	outcome.Push = d.push(t.ReportID, msg, recipientIDs(recipients, ids))

	d.logger.Info("Notifications dispatched",
		"report_id", t.ReportID,
		"to_status", t.ToStatus,
		"recipients", len(recipients),
	)

	if writeErr != nil {
		return outcome, fmt.Errorf("write notifications: %w", writeErr)
	}
	return outcome, nil
}

// recipientIDs pairs each recipient with its notification id.
// BulkCreate returns ids in row order; a short or failed write pairs nothing.
func recipientIDs(recipients []string, ids []int64) map[string]int64 {
	if len(ids) != len(recipients) {
		return nil
	}
	byUser := make(map[string]int64, len(ids))
	for i, userID := range recipients {
		byUser[userID] = ids[i]
	}
	return byUser
}

// push hands delivery to the runner; the caller never waits on it.
// Only the rows of recipients the sender reached are marked sent.
func (d *NotificationDispatcher) push(reportID string, msg *entity.PushMessage, byUser map[string]int64) *dispatcher.Task {
	return d.runner.Go("push:"+reportID, d.pushTimeout, func(ctx context.Context) error {
		sendErr := d.sender.Send(ctx, msg)

		var undelivered *port.UndeliveredError
		if sendErr != nil {
			d.logger.Error("Push delivery failed",
				"report_id", reportID,
				"recipients", len(msg.UserIDs),
				"error", sendErr,
			)
			if !errors.As(sendErr, &undelivered) {
				return sendErr
			}
		}

		missed := make(map[string]bool)
		if undelivered != nil {
			for _, userID := range undelivered.UserIDs {
				missed[userID] = true
			}
		}
		ids := make([]int64, 0, len(byUser))
		for _, userID := range msg.UserIDs {
			if id, ok := byUser[userID]; ok && !missed[userID] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return sendErr
		}

		if err := d.notifications.MarkSent(ctx, ids); err != nil {
			d.logger.Error("Failed to mark notifications sent",
				"report_id", reportID,
				"error", err,
			)
			return err
		}
		return sendErr
	})
}

// resolveRecipients returns the user ids a transition notifies, without duplicates
func (d *NotificationDispatcher) resolveRecipients(ctx context.Context, t Transition) ([]string, error) {
	switch t.ToStatus {
	case workflow.StatusSubmitted, workflow.StatusCoordinatorReviewed, workflow.StatusManagerApproved:
		role, _ := workflow.ReviewerFor(t.ToStatus)
		users, err := d.users.ListActiveByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(users))
		seen := make(map[string]bool, len(users))
		for _, u := range users {
			if u.ID == "" || seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			ids = append(ids, u.ID)
		}
		return ids, nil
	case workflow.StatusFinalApproved, workflow.StatusRejected:
		if t.AuthorID == "" {
			return nil, nil
		}
		return []string{t.AuthorID}, nil
	case workflow.StatusDraft:
		return nil, nil
	}
	return nil, nil
}

func (d *NotificationDispatcher) render(body string, t Transition) string {
	return strings.NewReplacer(
		"{dept}", t.DepartmentName,
		"{type}", d.typeLabel(t.ReportType),
	).Replace(body)
}

func (d *NotificationDispatcher) typeLabel(rt entity.ReportType) string {
	if label, ok := d.typeLabels[string(rt)]; ok {
		return label
	}
	return rt.Label()
}
