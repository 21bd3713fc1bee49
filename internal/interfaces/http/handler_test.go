package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"buzzchat/internal/infrastructure"
	"buzzchat/internal/interfaces"
	"buzzchat/internal/repository"
	"buzzchat/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret      = "test-secret-please-ignore"
	testExtensionID = "abcdefghijklmnopabcdefghijklmnop"
)

type testServer struct {
	router *gin.Engine
	auth   *usecases.AuthUsecase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStore(t, infrastructure.NewMemoryStore())
}

func newTestServerWithStore(t *testing.T, kv interfaces.KeyValueStore) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := infrastructure.NewContentHub(nil, time.Second)
	alerts := usecases.NewAlertService(nil, "", nil)
	registry := usecases.NewStoreRegistry(kv, hub, alerts, nil, 0)
	t.Cleanup(func() { _ = registry.CloseAll(context.Background()) })
	auth := usecases.NewAuthUsecase(repository.NewUserRepository(kv), repository.NewTenantManager(kv), testSecret)

	r := gin.New()
	SetupRoutes(r, registry, auth, hub, alerts, NewMiddleware(testSecret, registry), Options{ExtensionID: testExtensionID})
	return &testServer{router: r, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signup registers and logs in, returning the user id and a bearer header
func (s *testServer) signup(t *testing.T, username string) (string, map[string]string) {
	t.Helper()
	creds := gin.H{"username": username, "password": "hunter2hunter2"}
	w := s.do(t, http.MethodPost, "/api/auth/register", creds, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = s.do(t, http.MethodPost, "/api/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode(t, w)["token"].(string)
	return id, map[string]string{"Authorization": "Bearer " + token}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	_, auth := s.signup(t, "streamer_1")

	w := s.do(t, http.MethodPost, "/api/auth/register", gin.H{"username": "streamer_1", "password": "hunter2hunter2"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", gin.H{"username": "bad name", "password": "hunter2hunter2"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "streamer_1", "password": "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/settings", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "account", body["backend"])
	settings := body["settings"].(map[string]interface{})
	assert.Equal(t, "free", settings["tier"])

	w = s.do(t, http.MethodGet, "/api/settings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/api/settings", nil, map[string]string{"Authorization": "Bearer nonsense"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFAQRoutes(t *testing.T) {
	s := newTestServer(t)
	_, auth := s.signup(t, "faq_user")

	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodPost, "/api/faq", nil, auth)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := s.do(t, http.MethodPost, "/api/faq", nil, auth)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	notices := decode(t, w)["notices"].([]interface{})
	assert.NotEmpty(t, notices)

	w = s.do(t, http.MethodPatch, "/api/faq/0", gin.H{"triggers": "shipping, Delivery", "reply": "2-3 days"}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodDelete, "/api/faq/0", nil, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodDelete, "/api/faq/7?confirm=true", nil, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodDelete, "/api/faq/x?confirm=true", nil, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodDelete, "/api/faq/0?confirm=true", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["faq"].(map[string]interface{})["items"], 2)
}

func TestFAQPreview(t *testing.T) {
	s := newTestServer(t)
	_, auth := s.signup(t, "preview_user")

	w := s.do(t, http.MethodPost, "/api/faq", nil, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPatch, "/api/faq/0", gin.H{"triggers": "ship", "reply": "2-3 days"}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/faq/preview", gin.H{"message": "When do you SHIP?"}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "2-3 days", body["reply"])
	assert.Equal(t, true, body["matched"])

	w = s.do(t, http.MethodPost, "/api/faq/preview", gin.H{"message": "hello"}, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["matched"])

	w = s.do(t, http.MethodPost, "/api/faq/preview", gin.H{}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutSettingsValidates(t *testing.T) {
	s := newTestServer(t)
	_, auth := s.signup(t, "importer")

	w := s.do(t, http.MethodPut, "/api/settings", gin.H{"__proto__": gin.H{"tier": "business"}}, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/settings", gin.H{"tier": "business", "welcome": gin.H{"message": "hi {username}"}}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decode(t, w)["settings"].(map[string]interface{})
	assert.Equal(t, "free", settings["tier"])
	assert.Equal(t, "hi {username}", settings["welcome"].(map[string]interface{})["message"])
}

func TestApiKeyAuthentication(t *testing.T) {
	s := newTestServer(t)
	userID, auth := s.signup(t, "biz_user")
	require.NoError(t, s.auth.EnsureAdmin(context.Background(), "root", "rootpassword"))
	w := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "root", "password": "rootpassword"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	admin := map[string]string{"Authorization": "Bearer " + decode(t, w)["token"].(string)}

	w = s.do(t, http.MethodPost, "/api/api-keys", gin.H{"name": "Zapier"}, auth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/tier", gin.H{"tier": "business"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPut, "/api/admin/users/"+userID+"/tier", gin.H{"tier": "platinum"}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/api-keys", gin.H{"name": "Zapier"}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key := decode(t, w)["key"].(string)
	assert.True(t, strings.HasPrefix(key, usecases.ApiKeyPrefix))

	w = s.do(t, http.MethodGet, "/api/settings", nil, map[string]string{headerApiKey: key})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "business", decode(t, w)["settings"].(map[string]interface{})["tier"])

	w = s.do(t, http.MethodGet, "/api/settings", nil, map[string]string{headerApiKey: usecases.ApiKeyPrefix + "0000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// listing never shows the full key again
	w = s.do(t, http.MethodGet, "/api/api-keys", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), key)
}

func TestAdminRoutesNeedAdmin(t *testing.T) {
	s := newTestServer(t)
	_, auth := s.signup(t, "plain_user")

	w := s.do(t, http.MethodGet, "/api/admin/stats", nil, auth)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestContentScriptSocketChecksSender(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/ws?senderId=someone-else&token=x", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/ws?senderId="+testExtensionID+"&token=x", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// brokenStore refuses writes once broken is set
type brokenStore struct {
	*infrastructure.MemoryStore
	broken atomic.Bool
}

func (b *brokenStore) Set(ctx context.Context, ns, key string, value []byte) error {
	if b.broken.Load() {
		return errors.New("pq: could not extend file: No space left on device")
	}
	return b.MemoryStore.Set(ctx, ns, key, value)
}

func TestStorageFailureIsGeneric500(t *testing.T) {
	kv := &brokenStore{MemoryStore: infrastructure.NewMemoryStore()}
	s := newTestServerWithStore(t, kv)
	_, auth := s.signup(t, "unlucky")

	w := s.do(t, http.MethodGet, "/api/settings", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)

	kv.broken.Store(true)
	w = s.do(t, http.MethodPost, "/api/faq", nil, auth)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Could not save your changes. Please try again.", decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "No space left")

	// the edit is kept in memory and lands with the next write
	kv.broken.Store(false)
	w = s.do(t, http.MethodPost, "/api/faq", nil, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["faq"].(map[string]interface{})["items"], 2)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusPaymentRequired, statusFor(usecases.ErrAccountLimit))
	assert.Equal(t, http.StatusConflict, statusFor(usecases.ErrDefaultAccount))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(usecases.ErrNoContentScript))
	assert.Equal(t, http.StatusNotFound, statusFor(repository.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
