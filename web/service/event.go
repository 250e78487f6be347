package service

import (
	"context"

	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EventService struct {
	*Deps
}

func NewEventService(deps *Deps) *EventService {
	return &EventService{Deps: deps}
}

func (s *EventService) List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "list events"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.ListKey(cache.KindEvent), func(ctx context.Context) (any, error) {
		db, cancel := s.withDB(ctx)
		defer cancel()
		var events []*model.Event
		if err := db.Order("name").Order("id").Limit(ListLimit).Find(&events).Error; err != nil {
			return nil, err
		}
		views := make([]*entity.EventView, 0, len(events))
		for _, e := range events {
			views = append(views, entity.NewEventView(e))
		}
		return entity.EventList{Events: views}, nil
	})
}

func (s *EventService) Get(ctx context.Context, actor *permission.Actor, id uuid.UUID) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "retrieve event"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.DetailKey(cache.KindEvent, id), func(ctx context.Context) (any, error) {
		e, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.NewEventView(e), nil
	})
}

func (s *EventService) find(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	e := &model.Event{}
	if err := db.First(e, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Event", id)
		}
		return nil, err
	}
	return e, nil
}

func (s *EventService) Create(ctx context.Context, actor *permission.Actor, in *entity.EventInput) (*entity.EventView, error) {
	e := &model.Event{}
	applyEventInput(e, in)
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "create event", e); err != nil {
		return nil, err
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := requireUser(tx, "organizer_id", in.OrganizerId); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(e).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.ListKey(cache.KindEvent))
	logger.Infof("Event %s created by %s", e.Id, actorName(actor))
	return entity.NewEventView(e), nil
}

// Update replaces every writable field. The actor must be allowed to manage
// both the stored event and the replacement.
func (s *EventService) Update(ctx context.Context, actor *permission.Actor, id uuid.UUID, in *entity.EventInput) (*entity.EventView, error) {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "update event"); err != nil {
		return nil, err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "update event", e); err != nil {
		return nil, err
	}
	renamed := e.Name != in.Name
	applyEventInput(e, in)
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "update event", e); err != nil {
		return nil, err
	}

	a := newAffected()
	touch(a, cache.KindEvent, e.Id)
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := requireUser(tx, "organizer_id", in.OrganizerId); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(e).Error; err != nil {
			return err
		}
		if !renamed {
			return nil
		}
		// ticket payloads embed the event name
		var ticketIds []uuid.UUID
		if err := tx.Model(&model.Ticket{}).Where("event_id = ?", e.Id).Pluck("id", &ticketIds).Error; err != nil {
			return err
		}
		touch(a, cache.KindTicket, ticketIds...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, a.Keys()...)
	return entity.NewEventView(e), nil
}

func (s *EventService) Delete(ctx context.Context, actor *permission.Actor, id uuid.UUID) error {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "delete event"); err != nil {
		return err
	}
	e, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "delete event", e); err != nil {
		return err
	}

	a := newAffected()
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := a.collectEvents(tx, []uuid.UUID{e.Id}); err != nil {
			return err
		}
		return a.deleteAll(tx)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, a.Keys()...)
	removeBlobs(ctx, s.Deps, a.blobs)
	logger.Infof("Event %s deleted by %s (%d tickets, %d registrations)", e.Id, actorName(actor), len(a.tickets), len(a.registrations))
	return nil
}

func applyEventInput(e *model.Event, in *entity.EventInput) {
	e.Name = in.Name
	e.Description = in.Description
	e.Location = in.Location
	e.StartTime = in.StartTime.UTC()
	e.EndTime = in.EndTime.UTC()
	e.Status = in.Status
	e.Quota = in.Quota
	e.Category = in.Category
	e.OrganizerId = in.OrganizerId
}

// requireUser fails validation when the referenced user does not exist.
func requireUser(tx *gorm.DB, field string, id int) error {
	return requireRow(tx, &model.User{}, field, id)
}

func requireRow(tx *gorm.DB, m any, field string, id any) error {
	var count int64
	if err := tx.Model(m).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return NewValidationError(field, doesNotExist(id))
	}
	return nil
}
