package service

import (
	"context"

	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupService manages roles. Every operation is limited to admins and superusers.
type GroupService struct {
	*Deps
}

func NewGroupService(deps *Deps) *GroupService {
	return &GroupService{Deps: deps}
}

func (s *GroupService) List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "list groups"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.ListKey(cache.KindGroup), func(ctx context.Context) (any, error) {
		db, cancel := s.withDB(ctx)
		defer cancel()
		var groups []*model.Group
		if err := db.Order("name").Limit(ListLimit).Find(&groups).Error; err != nil {
			return nil, err
		}
		views := make([]*entity.GroupView, 0, len(groups))
		for _, g := range groups {
			views = append(views, entity.NewGroupView(g))
		}
		return entity.GroupList{Groups: views}, nil
	})
}

func (s *GroupService) Get(ctx context.Context, actor *permission.Actor, id int) ([]byte, cache.Source, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "retrieve group"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.DetailKey(cache.KindGroup, id), func(ctx context.Context) (any, error) {
		g, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.NewGroupView(g), nil
	})
}

func (s *GroupService) find(ctx context.Context, id int) (*model.Group, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	g := &model.Group{}
	if err := db.First(g, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("Group", id)
		}
		return nil, err
	}
	return g, nil
}

func (s *GroupService) Create(ctx context.Context, actor *permission.Actor, in *entity.GroupInput) (*entity.GroupView, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "create group"); err != nil {
		return nil, err
	}
	g := &model.Group{Name: in.Name}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := uniqueGroupName(tx, g.Name, 0); err != nil {
			return err
		}
		return tx.Create(g).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.ListKey(cache.KindGroup))
	return entity.NewGroupView(g), nil
}

func (s *GroupService) Update(ctx context.Context, actor *permission.Actor, id int, in *entity.GroupInput) (*entity.GroupView, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "update group"); err != nil {
		return nil, err
	}
	g, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Name = in.Name
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := uniqueGroupName(tx, g.Name, g.Id); err != nil {
			return err
		}
		return tx.Save(g).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.DetailKey(cache.KindGroup, g.Id), cache.ListKey(cache.KindGroup))
	return entity.NewGroupView(g), nil
}

func (s *GroupService) Delete(ctx context.Context, actor *permission.Actor, id int) error {
	if err := enter(permission.AdminOrSuperUser, actor, "delete group"); err != nil {
		return err
	}
	g, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", g.Id).Delete(&model.UserGroup{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Group{}, g.Id).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.DetailKey(cache.KindGroup, g.Id), cache.ListKey(cache.KindGroup))
	return nil
}

// AssignRole adds a group membership. Only superusers may grant roles.
func (s *GroupService) AssignRole(ctx context.Context, actor *permission.Actor, in *entity.AssignRoleInput) error {
	if err := enter(permission.SuperUserOnly, actor, "assign role"); err != nil {
		return err
	}
	verr := &ValidationError{}
	if in.UserId == nil {
		verr.Add("user_id", "This field is required.")
	}
	if in.GroupId == nil {
		verr.Add("group_id", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		u := &model.User{}
		if err := tx.First(u, *in.UserId).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound("User", *in.UserId)
			}
			return err
		}
		g := &model.Group{}
		if err := tx.First(g, *in.GroupId).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound("Group", *in.GroupId)
			}
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.UserGroup{UserId: u.Id, GroupId: g.Id}).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.DetailKey(cache.KindUser, *in.UserId))
	logger.Infof("Group %d assigned to user %d by %s", *in.GroupId, *in.UserId, actorName(actor))
	return nil
}

func uniqueGroupName(tx *gorm.DB, name string, exceptId int) error {
	var count int64
	q := tx.Model(&model.Group{}).Where("name = ?", name)
	if exceptId != 0 {
		q = q.Where("id <> ?", exceptId)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("name", "group with this name already exists.")
	}
	return nil
}
