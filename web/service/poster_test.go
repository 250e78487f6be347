package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dicoevent/dicoevent/database/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpeg(size int) *PosterUpload {
	return &PosterUpload{
		Filename:    "Poster.JPG",
		ContentType: "image/jpeg",
		Size:        int64(size),
		Body:        bytes.NewReader(make([]byte, size)),
	}
}

func TestPosterUpload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	o, organizer := env.user(t, "owner", "", false, "organizer")
	_, stranger := env.user(t, "stranger", "", false, "organizer")
	_, plain := env.user(t, "plain", "", false)
	ev, err := env.events.Create(ctx, organizer, eventInput("With poster", o.Id))
	require.NoError(t, err)

	_, err = env.posters.Upload(ctx, plain, ev.Id, jpeg(10))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = env.posters.Upload(ctx, stranger, ev.Id, jpeg(10))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = env.posters.Upload(ctx, organizer, uuid.New(), jpeg(10))
	assert.ErrorIs(t, err, ErrNotFound)

	view, err := env.posters.Upload(ctx, organizer, ev.Id, jpeg(1024))
	require.NoError(t, err)
	assert.Equal(t, ev.Id, view.Event)
	assert.True(t, strings.HasPrefix(view.Image, "posters/"))
	assert.True(t, strings.HasSuffix(view.Image, ".jpg"))
	assert.Len(t, env.storage.objects[view.Image], 1024)

	urls, err := env.posters.List(ctx, plain, ev.Id)
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, view.Id, urls[0].Id)
	assert.Contains(t, urls[0].Url, view.Image)
}

func TestPosterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, su := env.user(t, "root", "", true)
	o, _ := env.user(t, "owner", "", false, "organizer")
	ev, err := env.events.Create(ctx, su, eventInput("With poster", o.Id))
	require.NoError(t, err)

	tests := []struct {
		name string
		up   *PosterUpload
	}{
		{"missing file", nil},
		{"too large", jpeg(int(MaxPosterSize) + 1)},
		{"not an image", &PosterUpload{Filename: "a.txt", ContentType: "text/plain", Size: 3, Body: strings.NewReader("abc")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posters.Upload(ctx, su, ev.Id, tt.up)
			verr, ok := IsValidation(err)
			require.True(t, ok)
			assert.Contains(t, verr.Fields, "image")
		})
	}
	assert.Empty(t, env.storage.objects)
}

func TestPosterUploadFailureLeavesNoRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, su := env.user(t, "root", "", true)
	o, _ := env.user(t, "owner", "", false, "organizer")
	ev, err := env.events.Create(ctx, su, eventInput("With poster", o.Id))
	require.NoError(t, err)
	env.storage.putErr = errBoom

	_, err = env.posters.Upload(ctx, su, ev.Id, jpeg(10))
	var extErr *ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.ErrorIs(t, err, errBoom)

	var count int64
	env.deps.DB.Model(&model.EventPoster{}).Count(&count)
	assert.Zero(t, count)
}

func TestPosterListSkipsUnsignable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, su := env.user(t, "root", "", true)
	o, _ := env.user(t, "owner", "", false, "organizer")
	ev, err := env.events.Create(ctx, su, eventInput("With poster", o.Id))
	require.NoError(t, err)

	first, err := env.posters.Upload(ctx, su, ev.Id, jpeg(10))
	require.NoError(t, err)
	second, err := env.posters.Upload(ctx, su, ev.Id, jpeg(10))
	require.NoError(t, err)
	env.storage.presignErr[first.Image] = errBoom

	urls, err := env.posters.List(ctx, su, ev.Id)
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.Equal(t, second.Id, urls[0].Id)
}

func TestDeletingEventRemovesPosterObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, su := env.user(t, "root", "", true)
	o, _ := env.user(t, "owner", "", false, "organizer")
	ev, err := env.events.Create(ctx, su, eventInput("With poster", o.Id))
	require.NoError(t, err)
	_, err = env.posters.Upload(ctx, su, ev.Id, jpeg(10))
	require.NoError(t, err)
	require.Len(t, env.storage.objects, 1)

	require.NoError(t, env.events.Delete(ctx, su, ev.Id))
	assert.Empty(t, env.storage.objects)
}
