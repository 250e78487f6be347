// Package notify delivers registration emails outside the request path.
// Requests enqueue a Task through a Dispatcher and return; a worker renders
// and mails it. Delivery is at least once, so recipients may see duplicates.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindTicketConfirmation Kind = "ticket_confirmation"
	KindEventReminder      Kind = "event_reminder"
)

// Task is the broker payload of one email.
type Task struct {
	Kind           Kind      `json:"kind"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	RegistrationId string    `json:"registration_id"`
	Event          string    `json:"event,omitempty"`
	StartTime      time.Time `json:"start_time,omitempty"`
}

func (t Task) Validate() error {
	switch t.Kind {
	case KindTicketConfirmation, KindEventReminder:
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	if t.Email == "" {
		return fmt.Errorf("task %s for registration %s has no recipient", t.Kind, t.RegistrationId)
	}
	return nil
}

// RecipientEmail returns email, or a placeholder address built from the
// username when the account has none.
func RecipientEmail(email, username, placeholderDomain string) string {
	if strings.TrimSpace(email) != "" {
		return email
	}
	return username + "@" + placeholderDomain
}

func NewConfirmationTask(email, username, registrationId, placeholderDomain string) Task {
	return Task{
		Kind:           KindTicketConfirmation,
		Email:          RecipientEmail(email, username, placeholderDomain),
		Name:           username,
		RegistrationId: registrationId,
	}
}

func NewReminderTask(email, username, registrationId, event string, start time.Time, placeholderDomain string) Task {
	return Task{
		Kind:           KindEventReminder,
		Email:          RecipientEmail(email, username, placeholderDomain),
		Name:           username,
		RegistrationId: registrationId,
		Event:          event,
		StartTime:      start,
	}
}

// Dispatcher hands tasks to whatever delivers them. Enqueue must not wait
// for delivery.
type Dispatcher interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

// Handler renders a task and sends it.
type Handler struct {
	renderer *Renderer
	mailer   Mailer
	timeout  time.Duration
}

func NewHandler(renderer *Renderer, mailer Mailer, timeout time.Duration) *Handler {
	return &Handler{renderer: renderer, mailer: mailer, timeout: timeout}
}

func (h *Handler) Handle(ctx context.Context, task Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	msg, err := h.renderer.Render(task)
	if err != nil {
		return fmt.Errorf("render %s: %w", task.Kind, err)
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return h.mailer.Send(ctx, msg)
}
