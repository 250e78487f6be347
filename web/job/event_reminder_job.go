// Package job holds the tasks run on the cron schedule.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/dicoevent/dicoevent/logger"
)

// Reminder sends reminders for events starting in (from, to].
type Reminder interface {
	SendRemindersBetween(ctx context.Context, from, to time.Time) (int, error)
}

// EventReminderJob enqueues reminder emails for upcoming events. Each run
// picks up where the previous successful run stopped, so an event enters
// exactly one window while the process lives.
type EventReminderJob struct {
	reminder  Reminder
	lookahead time.Duration
	timeout   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	covered time.Time
}

// NewEventReminderJob creates a reminder job scanning lookahead ahead of each run.
func NewEventReminderJob(reminder Reminder, lookahead time.Duration) *EventReminderJob {
	return &EventReminderJob{
		reminder:  reminder,
		lookahead: lookahead,
		timeout:   time.Minute,
		now:       time.Now,
	}
}

// Run scans for upcoming events once. Failures are logged; the next run
// retries the same window.
func (j *EventReminderJob) Run() {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	now := j.now()
	from, to := now, now.Add(j.lookahead)
	if !j.covered.IsZero() && j.covered.After(from) {
		from = j.covered
	}

	sent, err := j.reminder.SendRemindersBetween(ctx, from, to)
	if err != nil {
		logger.Warning("event reminder job failed:", err)
		return
	}
	if to.After(j.covered) {
		j.covered = to
	}
	if sent > 0 {
		logger.Infof("Enqueued %d event reminders", sent)
	}
}
