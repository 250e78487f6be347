package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type ownedThing struct{ owner int }

func (o ownedThing) OwnerID() int { return o.owner }

func TestParseRole(t *testing.T) {
	tests := []struct {
		name  string
		group string
		ok    bool
	}{
		{"admin", "admin", true},
		{"organizer", "organizer", true},
		{"case sensitive", "Admin", false},
		{"unknown", "staff", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseRole(tt.group)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNewActorDropsUnknownGroups(t *testing.T) {
	a := NewActor(3, "budi", false, []string{"organizer", "Admin", "volunteers"})
	assert.Equal(t, []Role{RoleOrganizer}, a.Roles)
	assert.True(t, IsOrganizer(a))
	assert.False(t, IsAdmin(a))
}

func TestPredicates(t *testing.T) {
	var anon *Actor
	plain := NewActor(1, "plain", false, nil)
	admin := NewActor(2, "admin", false, []string{"admin"})
	org := NewActor(3, "org", false, []string{"organizer"})
	su := NewActor(4, "root", true, nil)

	assert.False(t, IsAuthenticated(anon))
	assert.True(t, IsAuthenticated(plain))

	assert.False(t, IsAdminOrSuperUser(plain))
	assert.True(t, IsAdminOrSuperUser(admin))
	assert.True(t, IsAdminOrSuperUser(su))
	assert.False(t, IsAdminOrSuperUser(org))

	assert.True(t, IsAdminOrOrganizerOrSuperUser(org))
	assert.False(t, IsAdminOrOrganizerOrSuperUser(plain))
	assert.False(t, IsAdminOrOrganizerOrSuperUser(anon))
}

func TestOwnerOrAdminOrSuperUser(t *testing.T) {
	obj := ownedThing{owner: 1}
	tests := []struct {
		name     string
		actor    *Actor
		expected bool
	}{
		{"anonymous", nil, false},
		{"owner", NewActor(1, "owner", false, nil), true},
		{"stranger", NewActor(9, "stranger", false, nil), false},
		{"organizer stranger", NewActor(9, "org", false, []string{"organizer"}), false},
		{"admin", NewActor(9, "admin", false, []string{"admin"}), true},
		{"superuser", NewActor(9, "root", true, nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := OwnerOrAdminOrSuperUser.Authorize(tt.actor, obj)
			if tt.expected {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrDenied)
			}
		})
	}
}

func TestUnownedObjectIsNeverOwned(t *testing.T) {
	a := NewActor(1, "u", false, nil)
	assert.False(t, IsOwner(a, struct{}{}))
	assert.False(t, OwnerOrAdminOrSuperUser.HasObjectPermission(a, struct{}{}))
}

func TestSuperUserBypassesEveryPolicy(t *testing.T) {
	su := NewActor(99, "root", true, nil)
	for _, p := range []Policy{Authenticated, SuperUserOnly, AdminOrSuperUser,
		AdminOrOrganizerOrSuperUser, OwnerOrAdminOrSuperUser, PosterUpload, {}} {
		assert.True(t, p.HasPermission(su), p.Name)
		assert.True(t, p.HasObjectPermission(su, ownedThing{owner: 1}), p.Name)
	}
}

func TestPosterUpload(t *testing.T) {
	event := ownedThing{owner: 3}
	assert.NoError(t, PosterUpload.Authorize(NewActor(3, "org", false, []string{"organizer"}), event))
	assert.ErrorIs(t, PosterUpload.Authorize(NewActor(4, "org2", false, []string{"organizer"}), event), ErrDenied)
	// owning the event is not enough without an uploading role
	assert.ErrorIs(t, PosterUpload.Authorize(NewActor(3, "owner", false, nil), event), ErrDenied)
	assert.NoError(t, PosterUpload.Authorize(NewActor(8, "admin", false, []string{"admin"}), event))
}

func TestAuthorizeEachStopsAtFirstDenial(t *testing.T) {
	a := NewActor(1, "u", false, nil)
	objs := []ownedThing{{owner: 1}, {owner: 2}, {owner: 1}}

	assert.ErrorIs(t, AuthorizeEach(OwnerOrAdminOrSuperUser, a, objs...), ErrDenied)
	assert.NoError(t, AuthorizeEach(OwnerOrAdminOrSuperUser, a, objs[0], objs[2]))
	assert.NoError(t, AuthorizeEach(OwnerOrAdminOrSuperUser, NewActor(5, "a", false, []string{"admin"}), objs...))
	assert.ErrorIs(t, AuthorizeEach[ownedThing](OwnerOrAdminOrSuperUser, nil), ErrDenied)
}
