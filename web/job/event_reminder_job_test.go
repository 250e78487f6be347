package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct {
	from, to time.Time
}

type fakeReminder struct {
	windows []window
	errs    []error
}

func (f *fakeReminder) SendRemindersBetween(_ context.Context, from, to time.Time) (int, error) {
	f.windows = append(f.windows, window{from, to})
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return 3, err
}

func TestEventReminderJobRun(t *testing.T) {
	fixed := time.Date(2026, 11, 20, 7, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure is swallowed", errors.New("db down")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReminder{errs: []error{tt.err}}
			job := NewEventReminderJob(r, 2*time.Hour)
			job.now = func() time.Time { return fixed }

			assert.NotPanics(t, job.Run)
			require.Len(t, r.windows, 1)
			assert.Equal(t, window{fixed, fixed.Add(2 * time.Hour)}, r.windows[0])
		})
	}
}

func TestEventReminderJobWindowsDoNotOverlap(t *testing.T) {
	start := time.Date(2026, 11, 20, 7, 0, 0, 0, time.UTC)
	clock := start
	r := &fakeReminder{errs: []error{nil, errors.New("db down"), nil}}
	job := NewEventReminderJob(r, 2*time.Hour)
	job.now = func() time.Time { return clock }

	job.Run()
	clock = start.Add(time.Hour)
	job.Run() // fails, window kept
	clock = start.Add(2 * time.Hour)
	job.Run()

	require.Len(t, r.windows, 3)
	assert.Equal(t, window{start, start.Add(2 * time.Hour)}, r.windows[0])
	assert.Equal(t, window{start.Add(2 * time.Hour), start.Add(3 * time.Hour)}, r.windows[1])
	assert.Equal(t, window{start.Add(2 * time.Hour), start.Add(4 * time.Hour)}, r.windows[2])
}
