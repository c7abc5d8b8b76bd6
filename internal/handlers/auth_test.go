package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"telehealth-server/internal/config"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
)

type authResponse struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

func newAuthRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := models.OpenDatabase(models.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
		Environment:               "test",
	}
	h := NewAuthHandler(db, cfg)

	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.POST("/auth/refresh-token", h.RefreshToken)
	private := router.Group("/auth", middleware.AuthMiddleware(cfg))
	private.POST("/logout", h.Logout)
	private.GET("/profile", h.GetProfile)
	private.PUT("/profile", h.UpdateProfile)
	return router, db
}

func call(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, authResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestRegister(t *testing.T) {
	router, _ := newAuthRouter(t)
	body := map[string]string{"fullName": "Ada Lovelace", "email": "Ada@Example.test", "password": "password123", "role": "patient"}

	rec, out := call(t, router, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, out.Error)
	var user models.UserSanitized
	require.NoError(t, json.Unmarshal(out.Data, &user))
	assert.Equal(t, "ada@example.test", user.Email)
	assert.Equal(t, models.RolePatient, user.Role)
	assert.True(t, user.IsActive)
	assert.NotContains(t, string(out.Data), "password")

	rec, out = call(t, router, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User with this email already exists", out.Error)

	body["email"] = "admin@example.test"
	body["role"] = "admin"
	rec, out = call(t, router, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out.Error, "role must be one of: patient, doctor")
}

func TestLoginRefreshLogout(t *testing.T) {
	router, db := newAuthRouter(t)
	_, out := call(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"fullName": "Grace Hopper", "email": "grace@clinic.test", "password": "password123", "role": "doctor",
	})
	require.Empty(t, out.Error)

	rec, out := call(t, router, http.MethodPost, "/auth/login", "", map[string]string{"email": "grace@clinic.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = call(t, router, http.MethodPost, "/auth/login", "", map[string]string{"email": "grace@clinic.test", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, out.Error)
	var login LoginResponse
	require.NoError(t, json.Unmarshal(out.Data, &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.NotNil(t, login.User.LastLogin)

	rec, out = call(t, router, http.MethodGet, "/auth/profile", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(out.Data), "Grace Hopper")

	rec, out = call(t, router, http.MethodPut, "/auth/profile", login.AccessToken, map[string]string{"fullName": "Rear Admiral Hopper"})
	require.Equal(t, http.StatusOK, rec.Code, out.Error)
	assert.Contains(t, string(out.Data), "Rear Admiral Hopper")

	rec, out = call(t, router, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, out.Error)
	var refreshed RefreshTokenResponse
	require.NoError(t, json.Unmarshal(out.Data, &refreshed))
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the rotated-out token is revoked
	rec, _ = call(t, router, http.MethodPost, "/auth/refresh-token", "", map[string]string{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = call(t, router, http.MethodPost, "/auth/logout", refreshed.AccessToken, map[string]string{"refreshToken": refreshed.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, out.Error)

	var active int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("is_revoked = ?", false).Count(&active).Error)
	assert.Zero(t, active)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	router, db := newAuthRouter(t)
	_, out := call(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"fullName": "Retired Doctor", "email": "retired@clinic.test", "password": "password123", "role": "doctor",
	})
	require.Empty(t, out.Error)
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "retired@clinic.test").Update("is_active", false).Error)

	rec, out := call(t, router, http.MethodPost, "/auth/login", "", map[string]string{"email": "retired@clinic.test", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Account is deactivated", out.Error)
}

func TestProfile_RequiresToken(t *testing.T) {
	router, _ := newAuthRouter(t)
	rec, out := call(t, router, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization header required", out.Error)
}
