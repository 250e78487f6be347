package controller

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dicoevent/dicoevent/config"
	"github.com/dicoevent/dicoevent/database"
	"github.com/dicoevent/dicoevent/database/model"
	"github.com/dicoevent/dicoevent/logger"
	"github.com/dicoevent/dicoevent/util/crypto"
	"github.com/dicoevent/dicoevent/web/cache"
	"github.com/dicoevent/dicoevent/web/entity"
	"github.com/dicoevent/dicoevent/web/middleware"
	"github.com/dicoevent/dicoevent/web/notify"
	"github.com/dicoevent/dicoevent/web/service"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type nopDispatcher struct{}

func (nopDispatcher) Enqueue(context.Context, notify.Task) error { return nil }
func (nopDispatcher) Close() error                               { return nil }

type memStorage struct {
	objects map[string]int
}

func (s *memStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	n, err := io.Copy(io.Discard, r)
	s.objects[key] = int(n)
	return err
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memStorage) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key, nil
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	services *service.Services
	storage  *memStorage
}

func newTestServer(t *testing.T, limit middleware.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(&config.DatabaseConfig{
		Type:   config.DatabaseTypeSQLite,
		SQLite: config.SQLiteConfig{Path: "file:" + uuid.NewString() + "?mode=memory&cache=shared"},
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	storage := &memStorage{objects: map[string]int{}}
	deps := &service.Deps{
		DB:                db,
		Cache:             cache.NewLayer(cache.NewMemoryStore(time.Hour), time.Hour, time.Second),
		Dispatcher:        nopDispatcher{},
		Storage:           storage,
		PresignExpiry:     time.Hour,
		PlaceholderDomain: "dicoding.com",
	}
	services := service.NewServices(deps, service.AuthOptions{Secret: "test", AccessTTL: time.Minute, RefreshTTL: time.Hour})

	router := gin.New()
	NewAPIController(&router.RouterGroup, services, limit)
	return &testServer{router: router, db: db, services: services, storage: storage}
}

func defaultServer(t *testing.T) *testServer {
	return newTestServer(t, middleware.RateLimitConfig{RequestsPerMinute: 1000, BurstSize: 1000})
}

// account creates a user with the given roles and returns its id and an access token.
func (s *testServer) account(t *testing.T, username string, superuser bool, roles ...string) (int, string) {
	t.Helper()
	hash, err := crypto.HashPasswordAsBcrypt("pass-" + username)
	require.NoError(t, err)
	u := &model.User{Username: username, PasswordHash: hash, IsSuperuser: superuser}
	require.NoError(t, s.db.Create(u).Error)
	for _, r := range roles {
		g := &model.Group{}
		require.NoError(t, s.db.Where("name = ?", r).First(g).Error)
		require.NoError(t, s.db.Create(&model.UserGroup{UserId: u.Id, GroupId: g.Id}).Error)
	}
	pair, err := s.services.Auth.Login(context.Background(), &entity.TokenInput{Username: username, Password: "pass-" + username})
	require.NoError(t, err)
	return u.Id, pair.Access
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func eventBody(name string, organizer int) gin.H {
	return gin.H{
		"name":         name,
		"description":  "Belajar bersama",
		"location":     "Jakarta",
		"start_time":   "2026-12-01T09:00:00Z",
		"end_time":     "2026-12-01T12:00:00Z",
		"status":       "published",
		"quota":        50,
		"category":     "tech",
		"organizer_id": organizer,
	}
}

func TestAuthenticationRequired(t *testing.T) {
	s := defaultServer(t)

	w := s.do(http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail":"Authentication credentials were not provided."}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/events", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// creating an account needs no token
	w = s.do(http.MethodPost, "/api/users", "", gin.H{"username": "budi", "password": "s3cret", "email": "budi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created entity.UserView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "budi@dicoding.com", created.Email)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenFlow(t *testing.T) {
	s := defaultServer(t)
	s.do(http.MethodPost, "/api/users", "", gin.H{"username": "budi", "password": "s3cret"})

	w := s.do(http.MethodPost, "/api/auth/token", "", gin.H{"username": "budi", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/token", "", gin.H{"username": "budi", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	var pair entity.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))

	w = s.do(http.MethodPost, "/api/auth/token/refresh", "", gin.H{"refresh": pair.Refresh})
	require.Equal(t, http.StatusOK, w.Code)
	var refreshed entity.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))

	w = s.do(http.MethodGet, "/api/events", refreshed.Access, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, middleware.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 2})
	body := gin.H{"username": "nobody", "password": "x"}

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/token", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/token", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(http.MethodPost, "/api/auth/token", "", body).Code)
}

func TestEventLifecycle(t *testing.T) {
	s := defaultServer(t)
	organizerId, organizer := s.account(t, "organizer", false, "organizer")
	_, stranger := s.account(t, "stranger", false, "organizer")

	w := s.do(http.MethodPost, "/api/events", organizer, eventBody("DevCoach", organizerId))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created entity.EventView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/api/events/" + created.Id.String()

	first := s.do(http.MethodGet, path, organizer, nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "database", first.Header().Get("X-Data-Source"))
	second := s.do(http.MethodGet, path, organizer, nil)
	assert.Equal(t, "cache", second.Header().Get("X-Data-Source"))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	w = s.do(http.MethodPut, path, stranger, eventBody("Hijacked", organizerId))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"detail":"You do not have permission to perform this action."}`, w.Body.String())

	w = s.do(http.MethodPut, path, organizer, eventBody("Renamed", organizerId))
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, path, organizer, nil)
	assert.Equal(t, "database", w.Header().Get("X-Data-Source"))
	assert.Contains(t, w.Body.String(), `"Renamed"`)

	w = s.do(http.MethodDelete, path, organizer, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, path, organizer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"No Event matches the given query."}`, w.Body.String())
}

func TestNotFoundIsLoggedWithActorAndId(t *testing.T) {
	s := defaultServer(t)
	_, token := s.account(t, "viewer", false)
	mem := logging.NewMemoryBackend(64)
	restore := logger.UseBackend(mem)
	defer restore()

	missing := uuid.New()
	w := s.do(http.MethodGet, "/api/events/"+missing.String(), token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var found bool
	for n := mem.Head(); n != nil; n = n.Next() {
		msg := n.Record.Message()
		if strings.Contains(msg, "viewer") && strings.Contains(msg, "Event "+missing.String()+" not found") {
			found = true
			assert.Equal(t, logging.WARNING, n.Record.Level)
		}
	}
	assert.True(t, found, "no not-found record naming the actor and id")
}

func TestRequestValidation(t *testing.T) {
	s := defaultServer(t)
	organizerId, organizer := s.account(t, "organizer", false, "organizer")

	tests := []struct {
		name  string
		body  any
		field string
		msg   string
	}{
		{"missing name", gin.H{"location": "x", "start_time": "2026-12-01T09:00:00Z", "end_time": "2026-12-01T10:00:00Z", "status": "draft", "category": "c", "organizer_id": organizerId}, "name", "This field is required."},
		{"ends before start", func() gin.H {
			b := eventBody("Backwards", organizerId)
			b["end_time"] = "2026-11-30T09:00:00Z"
			return b
		}(), "end_time", "Must not be earlier than start_time."},
		{"wrong type", func() gin.H {
			b := eventBody("Typed", organizerId)
			b["quota"] = "many"
			return b
		}(), "quota", "Incorrect type."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/events", organizer, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			var fields map[string][]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fields))
			assert.Equal(t, []string{tt.msg}, fields[tt.field])
		})
	}

	w := s.do(http.MethodGet, "/api/events/not-a-uuid", organizer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssignRoleEndpoint(t *testing.T) {
	s := defaultServer(t)
	userId, user := s.account(t, "budi", false)
	_, su := s.account(t, "root", true)

	w := s.do(http.MethodPost, "/api/assign-role", user, gin.H{"user_id": userId, "group_id": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/assign-role", su, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"user_id":["This field is required."],"group_id":["This field is required."]}`, w.Body.String())

	w = s.do(http.MethodPost, "/api/assign-role", su, gin.H{"user_id": 9999, "group_id": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	g := &model.Group{}
	require.NoError(t, s.db.Where("name = ?", "organizer").First(g).Error)
	w = s.do(http.MethodPost, "/api/assign-role", su, gin.H{"user_id": userId, "group_id": g.Id})
	assert.Equal(t, http.StatusCreated, w.Code)

	// the new role applies to the next request
	w = s.do(http.MethodPost, "/api/events", user, eventBody("Now allowed", userId))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPosterEndpoints(t *testing.T) {
	s := defaultServer(t)
	organizerId, organizer := s.account(t, "organizer", false, "organizer")
	w := s.do(http.MethodPost, "/api/events", organizer, eventBody("With poster", organizerId))
	require.Equal(t, http.StatusCreated, w.Code)
	var ev entity.EventView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	path := "/api/events/" + ev.Id.String() + "/posters"

	upload := func(filename string, data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, _ = part.Write(data)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+organizer)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	w = upload("poster.png", png)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, s.storage.objects, 1)
	for _, n := range s.storage.objects {
		assert.Equal(t, len(png), n)
	}

	w = upload("notes.png", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("huge.png", append(png, make([]byte, service.MaxPosterSize)...))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, path, organizer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var urls []entity.PosterURL
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &urls))
	require.Len(t, urls, 1)
}

func TestBulkDeleteEndpoint(t *testing.T) {
	s := defaultServer(t)
	organizerId, organizer := s.account(t, "organizer", false, "organizer")
	_, su := s.account(t, "root", true)
	buyerId, buyer := s.account(t, "buyer", false)

	w := s.do(http.MethodPost, "/api/events", organizer, eventBody("Event", organizerId))
	require.Equal(t, http.StatusCreated, w.Code)
	var ev entity.EventView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ev))
	w = s.do(http.MethodPost, "/api/tickets", su, gin.H{
		"name": "Regular", "price": 0, "sales_start": "2026-10-01T00:00:00Z", "sales_end": "2026-11-01T00:00:00Z",
		"quota": 10, "event_id": ev.Id,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tk entity.TicketView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tk))

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		w = s.do(http.MethodPost, "/api/registrations", buyer, gin.H{"ticket_id": tk.Id, "user_id": buyerId})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var reg entity.RegistrationView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
		assert.Equal(t, "Regular", reg.Ticket)
		assert.Equal(t, "buyer", reg.User)
		ids = append(ids, reg.Id)
	}

	w = s.do(http.MethodPost, "/api/registrations/bulk-delete", organizer, gin.H{"ids": ids})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/registrations/bulk-delete", buyer, gin.H{"ids": ids})
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	s.db.Model(&model.Registration{}).Count(&count)
	assert.Zero(t, count)
}

func TestStatusEndpoint(t *testing.T) {
	s := defaultServer(t)
	_, user := s.account(t, "budi", false)
	_, admin := s.account(t, "admin", false, "admin")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/status", user, nil).Code)

	w := s.do(http.MethodGet, "/api/status", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status entity.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Database)
	assert.Equal(t, "ok", status.Cache)
}
