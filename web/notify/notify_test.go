package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []*Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestRecipientEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"present", "siti@example.com", "siti@example.com"},
		{"empty", "", "siti@dicoding.com"},
		{"blank", "   ", "siti@dicoding.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RecipientEmail(tt.email, "siti", "dicoding.com"))
		})
	}
}

func TestRenderConfirmation(t *testing.T) {
	r := NewRenderer("id-ID", "no-reply@devcoach-dicoding.com", "DevCoach Organizer Team", time.UTC)
	task := NewConfirmationTask("", "budi", "7f1c", "dicoding.com")

	msg, err := r.Render(task)
	require.NoError(t, err)
	assert.Equal(t, "budi@dicoding.com", msg.To)
	assert.Equal(t, "Konfirmasi Tiket Event DevCoach", msg.Subject)
	assert.Contains(t, msg.Text, "Halo budi,")
	assert.Contains(t, msg.Text, "ID Pemesanan: 7f1c")
	assert.Contains(t, msg.HTML, "ID Pemesanan: 7f1c")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "image/png", msg.Attachments[0].ContentType)
	assert.NotEmpty(t, msg.Attachments[0].Data)
}

func TestRenderReminderEscapesHTML(t *testing.T) {
	r := NewRenderer("en-US", "a@b.c", "x", time.UTC)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	msg, err := r.Render(NewReminderTask("a@example.com", "ana", "r1", "<Go> Meetup", start, "dicoding.com"))
	require.NoError(t, err)
	assert.Equal(t, "Reminder: <Go> Meetup starts soon", msg.Subject)
	assert.Contains(t, msg.HTML, "&lt;Go&gt; Meetup")
	assert.Contains(t, msg.Text, "01 Mar 2026 09:00 UTC")
	assert.Empty(t, msg.Attachments)
}

func TestTaskValidate(t *testing.T) {
	assert.NoError(t, NewConfirmationTask("a@b.c", "a", "1", "d").Validate())
	assert.Error(t, Task{Kind: "sms", Email: "a@b.c"}.Validate())
	assert.Error(t, Task{Kind: KindTicketConfirmation}.Validate())
}

func TestLocalDispatcherDelivers(t *testing.T) {
	mailer := &recordingMailer{}
	d := NewLocalDispatcher(NewHandler(NewRenderer("id-ID", "a@b.c", "x", time.UTC), mailer, time.Second), 2, 10)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(context.Background(), NewConfirmationTask("u@example.com", "u", "r", "d")))
	}
	require.NoError(t, d.Close())

	enqueued, delivered, failed := d.Stats()
	assert.Equal(t, int64(5), enqueued)
	assert.Equal(t, int64(5), delivered)
	assert.Equal(t, int64(0), failed)
	assert.Equal(t, 5, mailer.count())

	assert.ErrorIs(t, d.Enqueue(context.Background(), NewConfirmationTask("u@example.com", "u", "r", "d")), ErrClosed)
}

func TestLocalDispatcherCountsFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d := NewLocalDispatcher(NewHandler(NewRenderer("id-ID", "a@b.c", "x", time.UTC), mailer, time.Second), 1, 10)
	require.NoError(t, d.Enqueue(context.Background(), NewConfirmationTask("u@example.com", "u", "r", "d")))
	require.NoError(t, d.Close())

	_, delivered, failed := d.Stats()
	assert.Equal(t, int64(0), delivered)
	assert.Equal(t, int64(1), failed)
}
