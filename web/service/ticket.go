package service

import (
	"context"

	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketService struct {
	*Deps
}

func NewTicketService(deps *Deps) *TicketService {
	return &TicketService{Deps: deps}
}

func (s *TicketService) List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "list tickets"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.ListKey(cache.KindTicket), func(ctx context.Context) (any, error) {
		db, cancel := s.withDB(ctx)
		defer cancel()
		var tickets []*model.Ticket
		if err := db.Preload("Event").Order("name").Order("id").Limit(ListLimit).Find(&tickets).Error; err != nil {
			return nil, err
		}
		views := make([]*entity.TicketView, 0, len(tickets))
		for _, t := range tickets {
			views = append(views, entity.NewTicketView(t))
		}
		return entity.TicketList{Tickets: views}, nil
	})
}

func (s *TicketService) Get(ctx context.Context, actor *permission.Actor, id uuid.UUID) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "retrieve ticket"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.DetailKey(cache.KindTicket, id), func(ctx context.Context) (any, error) {
		t, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.NewTicketView(t), nil
	})
}

func (s *TicketService) find(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	t := &model.Ticket{}
	if err := db.Preload("Event").First(t, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Ticket", id)
		}
		return nil, err
	}
	return t, nil
}

func (s *TicketService) Create(ctx context.Context, actor *permission.Actor, in *entity.TicketInput) (*entity.TicketView, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "create ticket"); err != nil {
		return nil, err
	}
	t := &model.Ticket{}
	applyTicketInput(t, in)
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&t.Event, "id = ?", in.EventId).Error; err != nil {
			if database.IsNotFound(err) {
				return NewValidationError("event_id", doesNotExist(in.EventId))
			}
			return err
		}
		return tx.Omit(clause.Associations).Create(t).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.ListKey(cache.KindTicket))
	return entity.NewTicketView(t), nil
}

func (s *TicketService) Update(ctx context.Context, actor *permission.Actor, id uuid.UUID, in *entity.TicketInput) (*entity.TicketView, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "update ticket"); err != nil {
		return nil, err
	}
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	renamed := t.Name != in.Name
	applyTicketInput(t, in)

	a := newAffected()
	touch(a, cache.KindTicket, t.Id)
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		t.Event = model.Event{}
		if err := tx.First(&t.Event, "id = ?", in.EventId).Error; err != nil {
			if database.IsNotFound(err) {
				return NewValidationError("event_id", doesNotExist(in.EventId))
			}
			return err
		}
		if err := tx.Omit(clause.Associations).Save(t).Error; err != nil {
			return err
		}
		if !renamed {
			return nil
		}
		// registration payloads embed the ticket name
		var regIds []uuid.UUID
		if err := tx.Model(&model.Registration{}).Where("ticket_id = ?", t.Id).Pluck("id", &regIds).Error; err != nil {
			return err
		}
		touch(a, cache.KindRegistration, regIds...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, a.Keys()...)
	return entity.NewTicketView(t), nil
}

func (s *TicketService) Delete(ctx context.Context, actor *permission.Actor, id uuid.UUID) error {
	if err := enter(permission.AdminOrSuperUser, actor, "delete ticket"); err != nil {
		return err
	}
	t, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	a := newAffected()
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := a.collectTickets(tx, []uuid.UUID{t.Id}); err != nil {
			return err
		}
		return a.deleteAll(tx)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, a.Keys()...)
	return nil
}

func applyTicketInput(t *model.Ticket, in *entity.TicketInput) {
	t.Name = in.Name
	t.Price = in.Price
	t.SalesStart = in.SalesStart.UTC()
	t.SalesEnd = in.SalesEnd.UTC()
	t.Quota = in.Quota
	t.EventId = in.EventId
}
