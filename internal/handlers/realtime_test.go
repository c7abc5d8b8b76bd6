package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-server/internal/config"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/notify"
	"telehealth-server/internal/utils"
)

func TestRealtimeConnect_WithoutLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		JWTSecret:                 "test-secret",
		JWTRefreshSecret:          "test-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
	}
	hub := notify.NewHub(nil)
	h := NewRealtimeHandler(hub, "*", nil)
	require.NotNil(t, h.Logger)

	router := gin.New()
	router.GET("/ws", middleware.SocketAuthMiddleware(cfg), h.Connect)
	srv := httptest.NewServer(router)
	defer srv.Close()

	doctor := &models.User{BaseModel: models.BaseModel{ID: "doc-1"}, Role: models.RoleDoctor}
	token, _, err := utils.GenerateTokens(doctor, cfg)
	require.NoError(t, err)

	conn, _, err := gorillawebsocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.RoomCount(notify.DoctorRoom("doc-1")) == 1 }, time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.RoomCount(notify.PatientRoom("doc-1")))
}
