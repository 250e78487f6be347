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

type PaymentService struct {
	*Deps
}

func NewPaymentService(deps *Deps) *PaymentService {
	return &PaymentService{Deps: deps}
}

func (s *PaymentService) List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "list payments"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.ListKey(cache.KindPayment), func(ctx context.Context) (any, error) {
		db, cancel := s.withDB(ctx)
		defer cancel()
		var payments []*model.Payment
		if err := db.Order("id").Limit(ListLimit).Find(&payments).Error; err != nil {
			return nil, err
		}
		views := make([]*entity.PaymentView, 0, len(payments))
		for _, p := range payments {
			views = append(views, entity.NewPaymentView(p))
		}
		return entity.PaymentList{Payments: views}, nil
	})
}

func (s *PaymentService) Get(ctx context.Context, actor *permission.Actor, id uuid.UUID) ([]byte, cache.Source, error) {
	if err := enter(permission.Authenticated, actor, "retrieve payment"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.DetailKey(cache.KindPayment, id), func(ctx context.Context) (any, error) {
		p, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.NewPaymentView(p), nil
	})
}

func (s *PaymentService) find(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	p := &model.Payment{}
	if err := db.First(p, "id = ?", id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Payment", id)
		}
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) Create(ctx context.Context, actor *permission.Actor, in *entity.PaymentInput) (*entity.PaymentView, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "create payment"); err != nil {
		return nil, err
	}
	p := &model.Payment{}
	applyPaymentInput(p, in)
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, &model.Registration{}, "registration_id", in.RegistrationId); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.ListKey(cache.KindPayment))
	return entity.NewPaymentView(p), nil
}

func (s *PaymentService) Update(ctx context.Context, actor *permission.Actor, id uuid.UUID, in *entity.PaymentInput) (*entity.PaymentView, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "update payment"); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPaymentInput(p, in)
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := requireRow(tx, &model.Registration{}, "registration_id", in.RegistrationId); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(p).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.DetailKey(cache.KindPayment, p.Id), cache.ListKey(cache.KindPayment))
	return entity.NewPaymentView(p), nil
}

func (s *PaymentService) Delete(ctx context.Context, actor *permission.Actor, id uuid.UUID) error {
	if err := enter(permission.AdminOrSuperUser, actor, "delete payment"); err != nil {
		return err
	}
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Delete(&model.Payment{}, "id = ?", p.Id).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.DetailKey(cache.KindPayment, p.Id), cache.ListKey(cache.KindPayment))
	return nil
}

func applyPaymentInput(p *model.Payment, in *entity.PaymentInput) {
	p.PaymentMethod = in.PaymentMethod
	p.PaymentStatus = in.PaymentStatus
	p.AmountPaid = in.AmountPaid
	p.RegistrationId = in.RegistrationId
}
