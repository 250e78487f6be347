package service

import (
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/web/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// affected gathers, inside a transaction, every row a write reaches and the
// cache keys to drop once it commits. Deletes walk the ownership tree
// User -> Event -> Ticket -> Registration -> Payment and Event -> EventPoster.
type affected struct {
	seen map[string]struct{}
	keys []string

	users         []int
	events        []uuid.UUID
	posters       []uuid.UUID
	tickets       []uuid.UUID
	registrations []uuid.UUID
	payments      []uuid.UUID

	// object storage keys of deleted posters
	blobs []string
}

func newAffected() *affected {
	return &affected{seen: make(map[string]struct{})}
}

func (a *affected) add(key string) {
	if _, ok := a.seen[key]; ok {
		return
	}
	a.seen[key] = struct{}{}
	a.keys = append(a.keys, key)
}

// touch records the list key of kind and the detail key of every id.
func touch[T any](a *affected, kind string, ids ...T) {
	a.add(cache.ListKey(kind))
	for _, id := range ids {
		a.add(cache.DetailKey(kind, id))
	}
}

func (a *affected) Keys() []string {
	return a.keys
}

func (a *affected) collectUsers(tx *gorm.DB, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	a.users = append(a.users, ids...)
	touch(a, cache.KindUser, ids...)

	var eventIds []uuid.UUID
	if err := tx.Model(&model.Event{}).Where("organizer_id IN ?", ids).Pluck("id", &eventIds).Error; err != nil {
		return err
	}
	if err := a.collectEvents(tx, eventIds); err != nil {
		return err
	}
	var regIds []uuid.UUID
	if err := tx.Model(&model.Registration{}).Where("user_id IN ?", ids).Pluck("id", &regIds).Error; err != nil {
		return err
	}
	return a.collectRegistrations(tx, regIds)
}

func (a *affected) collectEvents(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	a.events = append(a.events, ids...)
	touch(a, cache.KindEvent, ids...)

	var posters []model.EventPoster
	if err := tx.Where("event_id IN ?", ids).Find(&posters).Error; err != nil {
		return err
	}
	for _, p := range posters {
		a.posters = append(a.posters, p.Id)
		a.blobs = append(a.blobs, p.ImageKey)
	}

	var ticketIds []uuid.UUID
	if err := tx.Model(&model.Ticket{}).Where("event_id IN ?", ids).Pluck("id", &ticketIds).Error; err != nil {
		return err
	}
	return a.collectTickets(tx, ticketIds)
}

func (a *affected) collectTickets(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	a.tickets = append(a.tickets, ids...)
	touch(a, cache.KindTicket, ids...)

	var regIds []uuid.UUID
	if err := tx.Model(&model.Registration{}).Where("ticket_id IN ?", ids).Pluck("id", &regIds).Error; err != nil {
		return err
	}
	return a.collectRegistrations(tx, regIds)
}

func (a *affected) collectRegistrations(tx *gorm.DB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	a.registrations = append(a.registrations, ids...)
	touch(a, cache.KindRegistration, ids...)

	var paymentIds []uuid.UUID
	if err := tx.Model(&model.Payment{}).Where("registration_id IN ?", ids).Pluck("id", &paymentIds).Error; err != nil {
		return err
	}
	a.collectPayments(paymentIds)
	return nil
}

func (a *affected) collectPayments(ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	a.payments = append(a.payments, ids...)
	touch(a, cache.KindPayment, ids...)
}

// deleteAll removes the collected rows leaf first, so the result does not
// depend on the database enforcing ON DELETE CASCADE.
func (a *affected) deleteAll(tx *gorm.DB) error {
	steps := []struct {
		model any
		ids   []uuid.UUID
	}{
		{&model.Payment{}, a.payments},
		{&model.Registration{}, a.registrations},
		{&model.Ticket{}, a.tickets},
		{&model.EventPoster{}, a.posters},
		{&model.Event{}, a.events},
	}
	for _, step := range steps {
		if len(step.ids) == 0 {
			continue
		}
		if err := tx.Where("id IN ?", step.ids).Delete(step.model).Error; err != nil {
			return err
		}
	}
	if len(a.users) > 0 {
		if err := tx.Where("user_id IN ?", a.users).Delete(&model.UserGroup{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", a.users).Delete(&model.User{}).Error; err != nil {
			return err
		}
	}
	return nil
}
