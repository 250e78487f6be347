package service

import (
	"context"

	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/notify"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationService struct {
	*Deps
}

func NewRegistrationService(deps *Deps) *RegistrationService {
	return &RegistrationService{Deps: deps}
}

func (s *RegistrationService) List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "list registrations"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.ListKey(cache.KindRegistration), func(ctx context.Context) (any, error) {
		db, cancel := s.withDB(ctx)
		defer cancel()
		var regs []*model.Registration
		if err := db.Preload("Ticket").Preload("User").Order("id").Limit(ListLimit).Find(&regs).Error; err != nil {
			return nil, err
		}
		views := make([]*entity.RegistrationView, 0, len(regs))
		for _, r := range regs {
			views = append(views, entity.NewRegistrationView(r))
		}
		return entity.RegistrationList{Registrations: views}, nil
	})
}

// Get serves the cached representation only to its owner, admins and superusers.
func (s *RegistrationService) Get(ctx context.Context, actor *permission.Actor, id uuid.UUID) ([]byte, cache.Source, error) {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "retrieve registration"); err != nil {
		return nil, "", err
	}
	body, src, err := s.Cache.Read(ctx, cache.DetailKey(cache.KindRegistration, id), func(ctx context.Context) (any, error) {
		r, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.NewRegistrationView(r), nil
	})
	if err != nil {
		return nil, src, err
	}
	view := &entity.RegistrationView{}
	if err := json.Unmarshal(body, view); err != nil {
		return nil, src, err
	}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "retrieve registration", view); err != nil {
		return nil, src, err
	}
	return body, src, nil
}

func (s *RegistrationService) find(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	r := &model.Registration{}
	if err := db.Preload("Ticket").Preload("User").First(r, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Registration", id)
		}
		return nil, err
	}
	return r, nil
}

// Create persists the registration, then enqueues the confirmation email.
// A failed enqueue is logged and does not fail the request.
func (s *RegistrationService) Create(ctx context.Context, actor *permission.Actor, in *entity.RegistrationInput) (*entity.RegistrationView, error) {
	r := &model.Registration{TicketId: in.TicketId, UserId: in.UserId}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "create registration", r); err != nil {
		return nil, err
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := s.resolve(tx, r); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(r).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.ListKey(cache.KindRegistration))
	s.enqueueConfirmation(ctx, r)
	return entity.NewRegistrationView(r), nil
}

func (s *RegistrationService) enqueueConfirmation(ctx context.Context, r *model.Registration) {
	if s.Dispatcher == nil {
		return
	}
	task := notify.NewConfirmationTask(r.User.Email, r.User.Username, r.Id.String(), s.PlaceholderDomain)
	if err := s.Dispatcher.Enqueue(ctx, task); err != nil {
		logger.Errorf("Failed to enqueue confirmation for registration %s: %v", r.Id, err)
	}
}

// resolve loads the referenced ticket and user, failing validation when
// either is missing.
func (s *RegistrationService) resolve(tx *gorm.DB, r *model.Registration) error {
	verr := &ValidationError{}
	r.Ticket = model.Ticket{}
	if err := tx.First(&r.Ticket, "id = ?", r.TicketId).Error; err != nil {
		if !database.IsNotFound(err) {
			return err
		}
		verr.Add("ticket_id", doesNotExist(r.TicketId))
	}
	r.User = model.User{}
	if err := tx.First(&r.User, "id = ?", r.UserId).Error; err != nil {
		if !database.IsNotFound(err) {
			return err
		}
		verr.Add("user_id", doesNotExist(r.UserId))
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (s *RegistrationService) Update(ctx context.Context, actor *permission.Actor, id uuid.UUID, in *entity.RegistrationInput) (*entity.RegistrationView, error) {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "update registration"); err != nil {
		return nil, err
	}
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "update registration", r); err != nil {
		return nil, err
	}
	r.TicketId = in.TicketId
	r.UserId = in.UserId
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "update registration", r); err != nil {
		return nil, err
	}

	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := s.resolve(tx, r); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(r).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.DetailKey(cache.KindRegistration, r.Id), cache.ListKey(cache.KindRegistration))
	return entity.NewRegistrationView(r), nil
}

func (s *RegistrationService) Delete(ctx context.Context, actor *permission.Actor, id uuid.UUID) error {
	return s.BulkDelete(ctx, actor, []uuid.UUID{id})
}

// BulkDelete authorizes every registration before deleting any of them.
func (s *RegistrationService) BulkDelete(ctx context.Context, actor *permission.Actor, ids []uuid.UUID) error {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "delete registration"); err != nil {
		return err
	}
	if len(ids) == 0 {
		return NewValidationError("ids", "This list may not be empty.")
	}

	regs, err := s.findAll(ctx, ids)
	if err != nil {
		return err
	}
	if err := permission.AuthorizeEach(permission.OwnerOrAdminOrSuperUser, actor, regs...); err != nil {
		return deny(actor, "delete registration", err)
	}

	a := newAffected()
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := a.collectRegistrations(tx, ids); err != nil {
			return err
		}
		return a.deleteAll(tx)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, a.Keys()...)
	logger.Infof("%d registrations deleted by %s", len(a.registrations), actorName(actor))
	return nil
}

func (s *RegistrationService) findAll(ctx context.Context, ids []uuid.UUID) ([]*model.Registration, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	var regs []*model.Registration
	if err := db.Where("id IN ?", ids).Find(&regs).Error; err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]bool, len(regs))
	for _, r := range regs {
		found[r.Id] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, notFound("Registration", id)
		}
	}
	return regs, nil
}
