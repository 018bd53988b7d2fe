package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"calculator_app/internal/config"
	"calculator_app/internal/db"
	"calculator_app/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const strongPassword = "SecurePass123"

type testApp struct {
	t  *testing.T
	r  *gin.Engine
	db *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithRedis(t, nil)
}

// newRedisTestApp backs the cache and token denylist with an in-process Redis
func newRedisTestApp(t *testing.T) (*testApp, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return newTestAppWithRedis(t, rdb), mr
}

func newTestAppWithRedis(t *testing.T, rdb *redis.Client) *testApp {
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	cfg := &config.Config{
		JWTSecret:        "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   30 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
		CacheTTL:         time.Minute,
		CORSOrigins:      []string{"*"},
	}
	r, err := New(cfg, gdb, rdb)
	require.NoError(t, err)
	return &testApp{t: t, r: r, db: gdb}
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func registration(username string) gin.H {
	return gin.H{
		"first_name":       "Jane",
		"last_name":        "Doe",
		"email":            username + "@example.com",
		"username":         username,
		"password":         strongPassword,
		"confirm_password": strongPassword,
	}
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// signup registers username and returns its token pair
func (a *testApp) signup(username string) tokenPair {
	w := a.do(http.MethodPost, "/auth/register", "", registration(username))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": strongPassword})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[tokenPair](a.t, w)
}

type calcRecord struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Type   string    `json:"type"`
	Inputs []float64 `json:"inputs"`
	Result float64   `json:"result"`
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/auth/register", "", registration("janedoe"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[map[string]any](t, w)
	assert.Equal(t, "janedoe", user["username"])
	assert.Equal(t, true, user["is_active"])
	assert.NotContains(t, user, "password")

	var stored domain.User
	require.NoError(t, app.db.First(&stored, "username = ?", "janedoe").Error)
	assert.NotEqual(t, strongPassword, stored.Password)

	t.Run("duplicate", func(t *testing.T) {
		w := app.do(http.MethodPost, "/auth/register", "", registration("janedoe"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "already exists")
	})

	t.Run("login by email", func(t *testing.T) {
		w := app.do(http.MethodPost, "/auth/login", "", gin.H{"username": "JaneDoe@Example.com", "password": strongPassword})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		pair := decode[tokenPair](t, w)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, "bearer", pair.TokenType)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := app.do(http.MethodPost, "/auth/login", "", gin.H{"username": "janedoe", "password": "WrongPass123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	})

	t.Run("unknown user", func(t *testing.T) {
		w := app.do(http.MethodPost, "/auth/login", "", gin.H{"username": "nobody", "password": strongPassword})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("form token", func(t *testing.T) {
		form := url.Values{"username": {"janedoe"}, "password": {strongPassword}}
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		app.r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, decode[tokenPair](t, w).AccessToken)
	})
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		name  string
		patch gin.H
		field string
	}{
		{"weak password", gin.H{"password": "password", "confirm_password": "password"}, "password"},
		{"mismatch", gin.H{"confirm_password": "OtherPass123"}, "confirm_password"},
		{"bad email", gin.H{"email": "not-an-email"}, "email"},
		{"missing name", gin.H{"first_name": ""}, "first_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := registration("validation")
			for k, v := range tt.patch {
				body[k] = v
			}
			w := app.do(http.MethodPost, "/auth/register", "", body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), `"field":"`+tt.field+`"`)
		})
	}
}

func TestCalculationLifecycle(t *testing.T) {
	app := newTestApp(t)
	tok := app.signup("calcuser").AccessToken

	w := app.do(http.MethodPost, "/calculations", tok, gin.H{"type": "addition", "inputs": []float64{2, 3, 4}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[calcRecord](t, w)
	assert.Equal(t, "addition", created.Type)
	assert.Equal(t, 9.0, created.Result)
	assert.Equal(t, []float64{2, 3, 4}, created.Inputs)

	w = app.do(http.MethodGet, "/calculations/"+created.ID.String(), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[calcRecord](t, w).ID)

	// editing the operands recomputes the result
	w = app.do(http.MethodPut, "/calculations/"+created.ID.String(), tok, gin.H{"type": "div", "inputs": "100, 2, 5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[calcRecord](t, w)
	assert.Equal(t, "division", updated.Type)
	assert.Equal(t, 10.0, updated.Result)

	w = app.do(http.MethodPost, "/calculations", tok, gin.H{"type": "mul", "inputs": "2, 3"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/calculations", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))
	assert.Len(t, decode[[]calcRecord](t, w), 2)

	w = app.do(http.MethodGet, "/calculations?type=division", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]calcRecord](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	w = app.do(http.MethodGet, "/calculations?page=1&page_size=1", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]calcRecord](t, w), 1)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))

	w = app.do(http.MethodDelete, "/calculations/"+created.ID.String(), tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(http.MethodGet, "/calculations/"+created.ID.String(), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/calculations", tok, nil)
	for _, c := range decode[[]calcRecord](t, w) {
		assert.NotEqual(t, created.ID, c.ID)
	}

	w = app.do(http.MethodDelete, "/calculations/"+created.ID.String(), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCalculationErrors(t *testing.T) {
	app := newTestApp(t)
	tok := app.signup("errors").AccessToken

	tests := []struct {
		name string
		body gin.H
	}{
		{"division by zero", gin.H{"type": "division", "inputs": []float64{10, 0}}},
		{"modulus by zero", gin.H{"type": "modulus", "inputs": []float64{10, 0}}},
		{"one operand", gin.H{"type": "addition", "inputs": []float64{1}}},
		{"unknown type", gin.H{"type": "power", "inputs": []float64{2, 3}}},
		{"missing inputs", gin.H{"type": "addition"}},
		{"bad operand", gin.H{"type": "addition", "inputs": "1, two"}},
		{"infinite divisor", gin.H{"type": "division", "inputs": "1, Inf"}},
		{"nan operand", gin.H{"type": "addition", "inputs": []any{"NaN", 1}}},
		{"negative infinity", gin.H{"type": "subtraction", "inputs": "-inf, 2"}},
		{"infinite modulus", gin.H{"type": "modulus", "inputs": []string{"5", "+Inf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, "/calculations", tok, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
		})
	}

	var count int64
	require.NoError(t, app.db.Model(&domain.Calculation{}).Count(&count).Error)
	assert.Zero(t, count)

	w := app.do(http.MethodGet, "/calculations/not-a-uuid", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/calculations/"+uuid.NewString(), tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPost, "/calculations", tok, gin.H{"type": "addition", "inputs": []float64{4, 4}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[calcRecord](t, w).ID.String()

	// a rejected edit leaves the record untouched
	w = app.do(http.MethodPut, "/calculations/"+id, tok, gin.H{"type": "division", "inputs": []float64{4, 0}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	for _, inputs := range []string{"", ",", "1, Inf"} {
		w = app.do(http.MethodPut, "/calculations/"+id, tok, gin.H{"inputs": inputs})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, inputs)
	}
	w = app.do(http.MethodGet, "/calculations/"+id, tok, nil)
	assert.Equal(t, 8.0, decode[calcRecord](t, w).Result)

	w = app.do(http.MethodGet, "/calculations", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]calcRecord](t, w), 1)
}

func TestCalculationsAreScopedToOwner(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice").AccessToken
	bob := app.signup("bob").AccessToken

	w := app.do(http.MethodPost, "/calculations", alice, gin.H{"type": "subtraction", "inputs": []float64{10, 4}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[calcRecord](t, w).ID.String()

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/calculations/"+id, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPut, "/calculations/"+id, bob, gin.H{"inputs": []float64{1, 1}}).Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/calculations/"+id, bob, nil).Code)

	w = app.do(http.MethodGet, "/calculations", bob, nil)
	assert.Empty(t, decode[[]calcRecord](t, w))

	w = app.do(http.MethodGet, "/calculations/"+id, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 6.0, decode[calcRecord](t, w).Result)
}

func TestTokens(t *testing.T) {
	app := newTestApp(t)
	pair := app.signup("tokens")

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/calculations", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/calculations", pair.RefreshToken, nil).Code)

	w := app.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fresh := decode[tokenPair](t, w)
	assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/users/me", fresh.AccessToken, nil).Code)

	w = app.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// without Redis logout succeeds but cannot revoke anything
	assert.Equal(t, http.StatusNoContent, app.do(http.MethodPost, "/auth/logout", fresh.AccessToken, nil).Code)
}

func TestUserProfile(t *testing.T) {
	app := newTestApp(t)
	tok := app.signup("profile").AccessToken
	app.signup("taken")

	w := app.do(http.MethodGet, "/users/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "profile", decode[map[string]any](t, w)["username"])

	update := gin.H{"first_name": "Janet", "last_name": "Doe", "email": "janet@example.com", "username": "janet"}
	w = app.do(http.MethodPut, "/users/me", tok, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "janet", decode[map[string]any](t, w)["username"])

	update["username"] = "taken"
	w = app.do(http.MethodPut, "/users/me", tok, update)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPut, "/users/me/password", tok, gin.H{
		"current_password": "WrongPass123", "password": "NewSecure456", "confirm_password": "NewSecure456",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPut, "/users/me/password", tok, gin.H{
		"current_password": strongPassword, "password": "NewSecure456", "confirm_password": "NewSecure456",
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = app.do(http.MethodPost, "/auth/login", "", gin.H{"username": "janet", "password": "NewSecure456"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodPost, "/auth/login", "", gin.H{"username": "janet", "password": strongPassword})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPagesAndDocs(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/", "/login", "/register", "/dashboard", "/dashboard/view/abc", "/dashboard/edit/abc", "/docs"} {
		w := app.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
	}
	w := app.do(http.MethodGet, "/static/js/app.js", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "calculator_http_requests_total")

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/nope", "", nil).Code)
}

func TestCORSConfig(t *testing.T) {
	cc := corsConfig([]string{"*"})
	assert.True(t, cc.AllowAllOrigins)
	assert.False(t, cc.AllowCredentials)

	cc = corsConfig([]string{"https://calc.example.com"})
	assert.False(t, cc.AllowAllOrigins)
	assert.True(t, cc.AllowCredentials)
	assert.Equal(t, []string{"https://calc.example.com"}, cc.AllowOrigins)
}

func TestLoginWithLongEmail(t *testing.T) {
	app := newTestApp(t)
	body := registration("longmail")
	email := "jane.doe@" + strings.Repeat("a", 40) + "." + strings.Repeat("b", 40) + ".com"
	body["email"] = email
	w := app.do(http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(http.MethodPost, "/auth/login", "", gin.H{"username": email, "password": strongPassword})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	app, mr := newRedisTestApp(t)
	pair := app.signup("revoked")

	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/users/me", pair.AccessToken, nil).Code)
	require.Equal(t, http.StatusNoContent, app.do(http.MethodPost, "/auth/logout", pair.AccessToken, nil).Code)

	w := app.do(http.MethodGet, "/users/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "token:revoked:"))
	assert.True(t, mr.TTL(keys[0]) > 0)
}

func TestRefreshTokenIsSingleUse(t *testing.T) {
	app, _ := newRedisTestApp(t)
	pair := app.signup("rotation")

	w := app.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rotated := decode[tokenPair](t, w)

	w = app.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": rotated.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCalculationListingCache(t *testing.T) {
	app, mr := newRedisTestApp(t)
	tok := app.signup("cached").AccessToken

	w := app.do(http.MethodPost, "/calculations", tok, gin.H{"type": "addition", "inputs": []float64{1, 2}})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[calcRecord](t, w).ID.String()

	w = app.do(http.MethodGet, "/calculations", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
	assert.NotEmpty(t, mr.Keys())

	w = app.do(http.MethodGet, "/calculations", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
	assert.Len(t, decode[[]calcRecord](t, w), 1)

	// create drops the cached pages
	w = app.do(http.MethodPost, "/calculations", tok, gin.H{"type": "multiplication", "inputs": []float64{3, 4}})
	require.Equal(t, http.StatusCreated, w.Code)
	w = app.do(http.MethodGet, "/calculations", tok, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))

	// so does an edit
	app.do(http.MethodGet, "/calculations", tok, nil)
	w = app.do(http.MethodPut, "/calculations/"+id, tok, gin.H{"inputs": []float64{5, 5}})
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodGet, "/calculations", tok, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	var results []float64
	for _, c := range decode[[]calcRecord](t, w) {
		results = append(results, c.Result)
	}
	assert.Contains(t, results, 10.0)

	// and a delete
	app.do(http.MethodGet, "/calculations", tok, nil)
	require.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, "/calculations/"+id, tok, nil).Code)
	w = app.do(http.MethodGet, "/calculations", tok, nil)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "1", w.Header().Get("X-Total-Count"))
}
