package service

import (
	"context"
	"testing"
	"time"

	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"budi", "budi@dicoding.com"},
		{" budi@example.com ", "budi@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeEmail(tt.in))
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.users.Create(ctx, nil, &entity.UserInput{Username: "budi", Email: "budi", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "budi@dicoding.com", created.Email)

	stored := &model.User{}
	require.NoError(t, env.deps.DB.First(stored, created.Id).Error)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)

	_, err = env.users.Create(ctx, nil, &entity.UserInput{Username: "budi", Password: "other"})
	verr, ok := IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "username")

	_, err = env.users.Create(ctx, nil, &entity.UserInput{Username: "broken", Email: "a@@b", Password: "x"})
	verr, ok = IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "email")
}

func TestUserAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, self := env.user(t, "self", "", false)
	_, other := env.user(t, "other", "", false)
	_, admin := env.user(t, "admin", "", false, "admin")

	_, _, err := env.users.List(ctx, self)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, _, err = env.users.List(ctx, admin)
	assert.NoError(t, err)

	_, _, err = env.users.Get(ctx, self, u.Id)
	assert.NoError(t, err)
	_, _, err = env.users.Get(ctx, other, u.Id)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = env.users.Delete(ctx, self, u.Id)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, su := env.user(t, "root", "", true)
	o, organizer := env.user(t, "organizer", "", false, "organizer")
	ev, err := env.events.Create(ctx, organizer, eventInput("Owned", o.Id))
	require.NoError(t, err)
	_, _, err = env.events.Get(ctx, su, ev.Id)
	require.NoError(t, err)

	require.NoError(t, env.users.Delete(ctx, su, o.Id))

	_, _, err = env.events.Get(ctx, su, ev.Id)
	assert.ErrorIs(t, err, ErrNotFound)
	var count int64
	env.deps.DB.Model(&model.UserGroup{}).Where("user_id = ?", o.Id).Count(&count)
	assert.Zero(t, count)
}

func TestAssignRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, su := env.user(t, "root", "", true)
	_, admin := env.user(t, "admin", "", false, "admin")
	u, _ := env.user(t, "budi", "", false)
	g := &model.Group{}
	require.NoError(t, env.deps.DB.Where("name = ?", "organizer").First(g).Error)

	tests := []struct {
		name   string
		actor  *permission.Actor
		in     *entity.AssignRoleInput
		err    error
		fields []string
	}{
		{"admin is not enough", admin, &entity.AssignRoleInput{UserId: intPtr(u.Id), GroupId: intPtr(g.Id)}, ErrPermissionDenied, nil},
		{"missing keys", su, &entity.AssignRoleInput{}, nil, []string{"user_id", "group_id"}},
		{"unknown user", su, &entity.AssignRoleInput{UserId: intPtr(9999), GroupId: intPtr(g.Id)}, ErrNotFound, nil},
		{"unknown group", su, &entity.AssignRoleInput{UserId: intPtr(u.Id), GroupId: intPtr(9999)}, ErrNotFound, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.groups.AssignRole(ctx, tt.actor, tt.in)
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
			if tt.fields != nil {
				verr, ok := IsValidation(err)
				require.True(t, ok)
				for _, f := range tt.fields {
					assert.Equal(t, []string{"This field is required."}, verr.Fields[f])
				}
			}
		})
	}

	in := &entity.AssignRoleInput{UserId: intPtr(u.Id), GroupId: intPtr(g.Id)}
	require.NoError(t, env.groups.AssignRole(ctx, su, in))
	// assigning twice is harmless
	require.NoError(t, env.groups.AssignRole(ctx, su, in))

	actor, err := env.users.LoadActor(ctx, u.Id)
	require.NoError(t, err)
	assert.True(t, actor.HasRole(permission.RoleOrganizer))
}

func TestGroupCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, admin := env.user(t, "admin", "", false, "admin")
	_, organizer := env.user(t, "organizer", "", false, "organizer")

	_, err := env.groups.Create(ctx, organizer, &entity.GroupInput{Name: "staff"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	g, err := env.groups.Create(ctx, admin, &entity.GroupInput{Name: "staff"})
	require.NoError(t, err)
	_, err = env.groups.Create(ctx, admin, &entity.GroupInput{Name: "staff"})
	_, ok := IsValidation(err)
	assert.True(t, ok)

	body, _, err := env.groups.Get(ctx, admin, g.Id)
	require.NoError(t, err)
	assert.Equal(t, "staff", decode[entity.GroupView](t, body).Name)

	_, err = env.groups.Update(ctx, admin, g.Id, &entity.GroupInput{Name: "crew"})
	require.NoError(t, err)
	body, src, err := env.groups.Get(ctx, admin, g.Id)
	require.NoError(t, err)
	assert.Equal(t, cache.SourceDatabase, src)
	assert.Equal(t, "crew", decode[entity.GroupView](t, body).Name)

	require.NoError(t, env.groups.Delete(ctx, admin, g.Id))
	_, _, err = env.groups.Get(ctx, admin, g.Id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.Create(ctx, nil, &entity.UserInput{Username: "budi", Password: "s3cret"})
	require.NoError(t, err)
	auth := NewAuthService(env.users, "test-secret", time.Minute, time.Hour)

	_, err = auth.Login(ctx, &entity.TokenInput{Username: "budi", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, &entity.TokenInput{Username: "nobody", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := auth.Login(ctx, &entity.TokenInput{Username: "budi", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	actor, err := auth.Actor(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "budi", actor.Username)

	// a refresh token is not an access token and vice versa
	_, err = auth.Actor(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = auth.Refresh(ctx, &entity.RefreshInput{Refresh: pair.Access})
	assert.ErrorIs(t, err, ErrInvalidToken)

	refreshed, err := auth.Refresh(ctx, &entity.RefreshInput{Refresh: pair.Refresh})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Access)
	assert.Empty(t, refreshed.Refresh)

	other := NewAuthService(env.users, "another-secret", time.Minute, time.Hour)
	_, err = other.Actor(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewAuthService(env.users, "test-secret", -time.Minute, time.Hour)
	stale, err := expired.Login(ctx, &entity.TokenInput{Username: "budi", Password: "s3cret"})
	require.NoError(t, err)
	_, err = auth.Actor(ctx, stale.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStatusRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, user := env.user(t, "budi", "", false)
	_, su := env.user(t, "root", "", true)
	status := NewStatusService(env.deps)

	_, err := status.GetStatus(ctx, user)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	report, err := status.GetStatus(ctx, su)
	require.NoError(t, err)
	assert.Equal(t, "ok", report.Database)
	assert.Equal(t, "ok", report.Cache)
}
