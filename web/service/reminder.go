package service

import (
	"context"
	"time"

	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/notify"

	"github.com/google/uuid"
)

type ReminderService struct {
	*Deps
}

func NewReminderService(deps *Deps) *ReminderService {
	return &ReminderService{Deps: deps}
}

// SendReminders enqueues a reminder for every registration on tickets of
// events starting within lookahead of now.
func (s *ReminderService) SendReminders(ctx context.Context, now time.Time, lookahead time.Duration) (int, error) {
	return s.SendRemindersBetween(ctx, now, now.Add(lookahead))
}

// SendRemindersBetween covers events starting in (from, to]. Callers that
// advance from to the previous to never remind the same event twice.
func (s *ReminderService) SendRemindersBetween(ctx context.Context, from, to time.Time) (int, error) {
	if !to.After(from) {
		return 0, nil
	}
	db, cancel := s.withDB(ctx)
	defer cancel()

	// event times are stored in UTC
	var events []model.Event
	if err := db.Where("start_time > ? AND start_time <= ?", from.UTC(), to.UTC()).Find(&events).Error; err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	byId := make(map[string]model.Event, len(events))
	ids := make([]any, 0, len(events))
	for _, e := range events {
		byId[e.Id.String()] = e
		ids = append(ids, e.Id)
	}

	var ticketIds []uuid.UUID
	if err := db.Model(&model.Ticket{}).Where("event_id IN ?", ids).Pluck("id", &ticketIds).Error; err != nil {
		return 0, err
	}
	if len(ticketIds) == 0 {
		return 0, nil
	}
	var regs []model.Registration
	if err := db.Preload("User").Preload("Ticket").Where("ticket_id IN ?", ticketIds).Find(&regs).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range regs {
		e, ok := byId[r.Ticket.EventId.String()]
		if !ok {
			continue
		}
		task := notify.NewReminderTask(r.User.Email, r.User.Username, r.Id.String(), e.Name, e.StartTime, s.PlaceholderDomain)
		if err := s.Dispatcher.Enqueue(ctx, task); err != nil {
			logger.Errorf("Failed to enqueue reminder for registration %s: %v", r.Id, err)
			continue
		}
		sent++
	}
	return sent, nil
}
