// Package permission decides whether an actor may enter an operation and
// whether it may act on a specific object. Evaluation is pure: it never
// touches the datastore.
package permission

import "errors"

// ErrDenied is returned when a policy rejects an actor.
var ErrDenied = errors.New("permission denied")

// Role is a capability-bearing group. Group names outside this set grant nothing.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
)

// ParseRole matches a group name exactly.
func ParseRole(name string) (Role, bool) {
	switch Role(name) {
	case RoleAdmin, RoleOrganizer:
		return Role(name), true
	}
	return "", false
}

// Actor is the authenticated principal of a request. A nil *Actor is anonymous.
type Actor struct {
	ID        int
	Username  string
	Superuser bool
	Roles     []Role
}

// NewActor builds an actor from raw group names, dropping unknown ones.
func NewActor(id int, username string, superuser bool, groups []string) *Actor {
	a := &Actor{ID: id, Username: username, Superuser: superuser}
	for _, g := range groups {
		if r, ok := ParseRole(g); ok {
			a.Roles = append(a.Roles, r)
		}
	}
	return a
}

func (a *Actor) HasRole(role Role) bool {
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Owned is implemented by resources that have a single owning user.
type Owned interface {
	OwnerID() int
}

func IsAuthenticated(a *Actor) bool {
	return a != nil
}

func IsSuperUser(a *Actor) bool {
	return a != nil && a.Superuser
}

func IsAdmin(a *Actor) bool {
	return a.HasRole(RoleAdmin)
}

func IsOrganizer(a *Actor) bool {
	return a.HasRole(RoleOrganizer)
}

func IsAdminOrSuperUser(a *Actor) bool {
	return IsSuperUser(a) || IsAdmin(a)
}

func IsAdminOrOrganizerOrSuperUser(a *Actor) bool {
	return IsSuperUser(a) || IsAdmin(a) || IsOrganizer(a)
}

// IsOwner reports whether the actor owns obj. Objects without an owner are never owned.
func IsOwner(a *Actor, obj any) bool {
	if a == nil {
		return false
	}
	owned, ok := obj.(Owned)
	return ok && owned.OwnerID() == a.ID
}

// Policy pairs the entry check made before the handler runs with the check
// made against each object it touches. A nil Object allows every object.
type Policy struct {
	Name   string
	Entry  func(*Actor) bool
	Object func(*Actor, any) bool
}

func (p Policy) HasPermission(a *Actor) bool {
	if IsSuperUser(a) {
		return true
	}
	if p.Entry == nil {
		return false
	}
	return p.Entry(a)
}

func (p Policy) HasObjectPermission(a *Actor, obj any) bool {
	if IsSuperUser(a) {
		return true
	}
	if p.Object == nil {
		return p.HasPermission(a)
	}
	return p.Object(a, obj)
}

// Authorize runs both phases for a single object.
func (p Policy) Authorize(a *Actor, obj any) error {
	if !p.HasPermission(a) || !p.HasObjectPermission(a, obj) {
		return ErrDenied
	}
	return nil
}

// AuthorizeEach checks every object and stops at the first denial, so that
// callers can reject a bulk operation before mutating anything.
func AuthorizeEach[T any](p Policy, a *Actor, objs ...T) error {
	if !p.HasPermission(a) {
		return ErrDenied
	}
	for _, obj := range objs {
		if !p.HasObjectPermission(a, obj) {
			return ErrDenied
		}
	}
	return nil
}

var (
	Authenticated = Policy{
		Name:  "IsAuthenticated",
		Entry: IsAuthenticated,
	}

	SuperUserOnly = Policy{
		Name:  "IsSuperUser",
		Entry: IsSuperUser,
	}

	AdminOrSuperUser = Policy{
		Name:  "IsAdminOrSuperUser",
		Entry: IsAdminOrSuperUser,
	}

	AdminOrOrganizerOrSuperUser = Policy{
		Name:  "IsAdminOrOrganizerOrSuperUser",
		Entry: IsAdminOrOrganizerOrSuperUser,
	}

	OwnerOrAdminOrSuperUser = Policy{
		Name:  "IsOwnerOrAdminOrSuperUser",
		Entry: IsAuthenticated,
		Object: func(a *Actor, obj any) bool {
			return IsAdminOrSuperUser(a) || IsOwner(a, obj)
		},
	}

	// PosterUpload admits admins and organizers, then only on events they may manage.
	PosterUpload = Policy{
		Name:  "IsAdminOrOrganizerOrSuperUser",
		Entry: IsAdminOrOrganizerOrSuperUser,
		Object: func(a *Actor, obj any) bool {
			return IsAdminOrSuperUser(a) || IsOwner(a, obj)
		},
	}

	// Anyone may create an account.
	Anonymous = Policy{
		Name:  "AllowAny",
		Entry: func(*Actor) bool { return true },
	}
)
