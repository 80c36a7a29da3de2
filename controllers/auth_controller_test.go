package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/middleware"
	"github.com/gavelhub/gavel/models"
)

func doBearer(t *testing.T, r *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

// fakeUserStore implements UserStore with the unique-username contract.
type fakeUserStore struct {
	mu     sync.Mutex
	byName map[string]*models.User
	byID   map[uint]*models.User
	nextID uint

	createErr error // injected failure for Create
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byName: map[string]*models.User{},
		byID:   map[uint]*models.User{},
	}
}

func (f *fakeUserStore) FindByUsername(username string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[username]
	if !ok {
		return models.User{}, auctionerrors.ErrUserNotFound
	}
	return *u, nil
}

func (f *fakeUserStore) FindByID(id uint) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, auctionerrors.ErrUserNotFound
	}
	return *u, nil
}

func (f *fakeUserStore) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byName[user.Username]; ok {
		return auctionerrors.ErrDuplicateUsername
	}
	f.nextID++
	user.ID = f.nextID
	stored := *user
	f.byName[user.Username] = &stored
	f.byID[user.ID] = &stored
	return nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func newAuthRouter(store *fakeUserStore) *gin.Engine {
	ctrl := NewAuthController(store)
	r := gin.New()
	auth := r.Group("/api/v1/auth")
	auth.POST("/register", ctrl.Register)
	auth.POST("/login", ctrl.Login)
	auth.POST("/logout", middleware.AuthRequired(), ctrl.Logout)
	auth.GET("/me", middleware.AuthRequired(), ctrl.Me)
	return r
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedCode   float64
	}{
		{
			name:           "registered",
			body:           gin.H{"username": "alice", "password": "pw1secret"},
			expectedStatus: http.StatusOK,
			expectedCode:   0,
		},
		{
			name:           "short_password",
			body:           gin.H{"username": "bob", "password": "pw1"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   40001,
		},
		{
			name:           "invalid_username_characters",
			body:           gin.H{"username": "al ice!", "password": "pw1secret"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   40002,
		},
		{
			name:           "mismatched_confirmation",
			body:           gin.H{"username": "carol", "password": "pw1secret", "confirm": "pw2secret"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   40003,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newAuthRouter(newFakeUserStore())
			w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", tc.body)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Equal(t, tc.expectedCode, parsed["code"])
		})
	}
}

func TestRegisterHandler_DuplicateUsername(t *testing.T) {
	store := newFakeUserStore()
	router := newAuthRouter(store)

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		gin.H{"username": "alice", "password": "pw1secret"})
	require.Equal(t, http.StatusOK, w.Code)
	data := parsed["data"].(map[string]any)
	require.NotEmpty(t, data["token"])

	// Second registration under the same name is rejected.
	w, parsed = doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		gin.H{"username": "alice", "password": "otherpw"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 40901.0, parsed["code"])
	require.Equal(t, 1, store.count())

	// The first account still logs in with its original password.
	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "alice", "password": "pw1secret"})
	require.Equal(t, http.StatusOK, w.Code)

	// And never with the rejected registration's password.
	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "alice", "password": "otherpw"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterHandler_RacingDuplicate(t *testing.T) {
	// A collision that slips past any pre-check still surfaces from the
	// store as a duplicate, not a 500.
	store := newFakeUserStore()
	store.createErr = auctionerrors.ErrDuplicateUsername
	router := newAuthRouter(store)

	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		gin.H{"username": "alice", "password": "pw1secret"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, 40901.0, parsed["code"])
}

func TestLoginHandler_UnknownUser(t *testing.T) {
	router := newAuthRouter(newFakeUserStore())
	w, parsed := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		gin.H{"username": "nobody", "password": "whatever"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 40110.0, parsed["code"])
}

func TestSessionRoundtrip(t *testing.T) {
	store := newFakeUserStore()
	router := newAuthRouter(store)

	_, parsed := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		gin.H{"username": "dave", "password": "pw1secret"})
	token := parsed["data"].(map[string]any)["token"].(string)

	// The issued token resolves the profile.
	w, parsed := doBearer(t, router, http.MethodGet, "/api/v1/auth/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	user := parsed["data"].(map[string]any)["user"].(map[string]any)
	require.Equal(t, "dave", user["username"])

	// Logout revokes it; the same token no longer authenticates.
	w, _ = doBearer(t, router, http.MethodPost, "/api/v1/auth/logout", token)
	require.Equal(t, http.StatusOK, w.Code)

	w, parsed = doBearer(t, router, http.MethodGet, "/api/v1/auth/me", token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 40104.0, parsed["code"])
}
