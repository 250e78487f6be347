// Package service implements the resource operations behind the REST API.
// Every operation authorizes the actor before touching the datastore, reads
// through the cache layer and invalidates cache keys only after commit.
package service

import (
	"context"
	"time"

	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/notify"
	"github.com/dicoevent/dicoevent/web/permission"
	"github.com/dicoevent/dicoevent/web/storage"

	"gorm.io/gorm"
)

// ListLimit caps every collection response.
const ListLimit = 10

// Deps are the collaborators shared by all services.
type Deps struct {
	DB         *gorm.DB
	Cache      *cache.Layer
	Dispatcher notify.Dispatcher
	Storage    storage.ObjectStore

	DBTimeout         time.Duration
	StorageTimeout    time.Duration
	PresignExpiry     time.Duration
	PlaceholderDomain string
}

func (d *Deps) withDB(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	timeout := d.DBTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return d.DB.WithContext(ctx), cancel
}

func (d *Deps) storageTimeout() time.Duration {
	if d.StorageTimeout <= 0 {
		return 15 * time.Second
	}
	return d.StorageTimeout
}

// transaction runs fn in a bounded transaction.
func (d *Deps) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db, cancel := d.withDB(ctx)
	defer cancel()
	return db.Transaction(fn)
}

func (d *Deps) invalidate(ctx context.Context, keys ...string) {
	d.Cache.Invalidate(ctx, keys...)
}

// deny logs a rejected operation. Anonymous actors get ErrUnauthenticated.
func deny(actor *permission.Actor, op string, err error) error {
	logger.Warningf("%s denied for %s: %v", op, actorName(actor), err)
	if actor == nil {
		return ErrUnauthenticated
	}
	return err
}

func actorName(a *permission.Actor) string {
	if a == nil {
		return "anonymous"
	}
	return a.Username
}

// authorize runs both phases of policy and logs denials.
func authorize(p permission.Policy, actor *permission.Actor, op string, obj any) error {
	if err := p.Authorize(actor, obj); err != nil {
		return deny(actor, op, err)
	}
	return nil
}

// enter runs the entry phase only.
func enter(p permission.Policy, actor *permission.Actor, op string) error {
	if !p.HasPermission(actor) {
		return deny(actor, op, permission.ErrDenied)
	}
	return nil
}

// AuthOptions configures token issuing.
type AuthOptions struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Services bundles every service built over one set of Deps.
type Services struct {
	Events        *EventService
	Tickets       *TicketService
	Registrations *RegistrationService
	Payments      *PaymentService
	Users         *UserService
	Groups        *GroupService
	Posters       *PosterService
	Auth          *AuthService
	Status        *StatusService
	Reminders     *ReminderService
}

func NewServices(deps *Deps, auth AuthOptions) *Services {
	users := NewUserService(deps)
	return &Services{
		Events:        NewEventService(deps),
		Tickets:       NewTicketService(deps),
		Registrations: NewRegistrationService(deps),
		Payments:      NewPaymentService(deps),
		Users:         users,
		Groups:        NewGroupService(deps),
		Posters:       NewPosterService(deps),
		Auth:          NewAuthService(users, auth.Secret, auth.AccessTTL, auth.RefreshTTL),
		Status:        NewStatusService(deps),
		Reminders:     NewReminderService(deps),
	}
}
