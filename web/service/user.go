package service

import (
	"context"
	"strings"

	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/util/crypto"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultEmailDomain completes emails submitted without a domain.
const DefaultEmailDomain = "dicoding.com"

var validate = validator.New()

type UserService struct {
	*Deps
}

func NewUserService(deps *Deps) *UserService {
	return &UserService{Deps: deps}
}

// NormalizeEmail appends the default domain to an email that has none.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email != "" && !strings.Contains(email, "@") {
		return email + "@" + DefaultEmailDomain
	}
	return email
}

func (s *UserService) List(ctx context.Context, actor *permission.Actor) ([]byte, cache.Source, error) {
	if err := enter(permission.AdminOrSuperUser, actor, "list users"); err != nil {
		return nil, "", err
	}
	return s.Cache.Read(ctx, cache.ListKey(cache.KindUser), func(ctx context.Context) (any, error) {
		db, cancel := s.withDB(ctx)
		defer cancel()
		var users []*model.User
		if err := db.Order("username").Limit(ListLimit).Find(&users).Error; err != nil {
			return nil, err
		}
		views := make([]*entity.UserView, 0, len(users))
		for _, u := range users {
			views = append(views, entity.NewUserView(u))
		}
		return entity.UserList{Users: views}, nil
	})
}

func (s *UserService) Get(ctx context.Context, actor *permission.Actor, id int) ([]byte, cache.Source, error) {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "retrieve user"); err != nil {
		return nil, "", err
	}
	body, src, err := s.Cache.Read(ctx, cache.DetailKey(cache.KindUser, id), func(ctx context.Context) (any, error) {
		u, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		return entity.NewUserView(u), nil
	})
	if err != nil {
		return nil, src, err
	}
	view := &entity.UserView{}
	if err := json.Unmarshal(body, view); err != nil {
		return nil, src, err
	}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "retrieve user", view); err != nil {
		return nil, src, err
	}
	return body, src, nil
}

func (s *UserService) find(ctx context.Context, id int) (*model.User, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	u := &model.User{}
	if err := db.First(u, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("User", id)
		}
		return nil, err
	}
	return u, nil
}

// Create registers a new account. No authentication is required.
func (s *UserService) Create(ctx context.Context, actor *permission.Actor, in *entity.UserInput) (*entity.UserView, error) {
	if err := enter(permission.Anonymous, actor, "create user"); err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := applyUserInput(u, in); err != nil {
		return nil, err
	}
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if err := uniqueUsername(tx, u.Username, 0); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.ListKey(cache.KindUser))
	logger.Infof("User %s created", u.Username)
	return entity.NewUserView(u), nil
}

func (s *UserService) Update(ctx context.Context, actor *permission.Actor, id int, in *entity.UserInput) (*entity.UserView, error) {
	if err := enter(permission.OwnerOrAdminOrSuperUser, actor, "update user"); err != nil {
		return nil, err
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(permission.OwnerOrAdminOrSuperUser, actor, "update user", u); err != nil {
		return nil, err
	}
	renamed := u.Username != in.Username
	if err := applyUserInput(u, in); err != nil {
		return nil, err
	}

	a := newAffected()
	touch(a, cache.KindUser, u.Id)
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := uniqueUsername(tx, u.Username, u.Id); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(u).Error; err != nil {
			return err
		}
		if !renamed {
			return nil
		}
		// registration payloads embed the username
		var regIds []uuid.UUID
		if err := tx.Model(&model.Registration{}).Where("user_id = ?", u.Id).Pluck("id", &regIds).Error; err != nil {
			return err
		}
		touch(a, cache.KindRegistration, regIds...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, a.Keys()...)
	return entity.NewUserView(u), nil
}

// Delete removes the account with everything it organized or registered for.
func (s *UserService) Delete(ctx context.Context, actor *permission.Actor, id int) error {
	if err := enter(permission.AdminOrSuperUser, actor, "delete user"); err != nil {
		return err
	}
	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	a := newAffected()
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		if err := a.collectUsers(tx, []int{u.Id}); err != nil {
			return err
		}
		return a.deleteAll(tx)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, a.Keys()...)
	removeBlobs(ctx, s.Deps, a.blobs)
	logger.Infof("User %s deleted by %s", u.Username, actorName(actor))
	return nil
}

// Authenticate checks a username and password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	u := &model.User{}
	err := db.Where("username = ?", username).First(u).Error
	if database.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if !crypto.CheckPasswordHash(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// LoadActor builds the request principal from the stored account.
func (s *UserService) LoadActor(ctx context.Context, id int) (*permission.Actor, error) {
	db, cancel := s.withDB(ctx)
	defer cancel()
	u := &model.User{}
	if err := db.Preload("Groups").First(u, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return permission.NewActor(u.Id, u.Username, u.IsSuperuser, u.GroupNames()), nil
}

func applyUserInput(u *model.User, in *entity.UserInput) error {
	email := NormalizeEmail(in.Email)
	if email != "" {
		if err := validate.Var(email, "email,max=254"); err != nil {
			return NewValidationError("email", "Enter a valid email address.")
		}
	}
	hash, err := crypto.HashPasswordAsBcrypt(in.Password)
	if err != nil {
		return err
	}
	u.Username = in.Username
	u.Email = email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.PasswordHash = hash
	return nil
}

func uniqueUsername(tx *gorm.DB, username string, exceptId int) error {
	var count int64
	q := tx.Model(&model.User{}).Where("username = ?", username)
	if exceptId != 0 {
		q = q.Where("id <> ?", exceptId)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("username", "A user with that username already exists.")
	}
	return nil
}
