package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillawebsocket "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/notify"
)

// RealtimeHandler upgrades authenticated requests to WebSockets and joins
// each socket to its user's room.
type RealtimeHandler struct {
	Hub      *notify.Hub
	Logger   *zap.Logger
	upgrader gorillawebsocket.Upgrader
}

// NewRealtimeHandler accepts upgrades from allowedOrigin, or from any origin
// when it is "*".
func NewRealtimeHandler(hub *notify.Hub, allowedOrigin string, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// Connect blocks for the lifetime of the socket.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	room := notify.PatientRoom(userID)
	if role == models.RoleDoctor {
		room = notify.DoctorRoom(userID)
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	h.Logger.Debug("websocket connected", zap.String("user_id", userID), zap.String("room", room))
	h.Hub.Serve(notify.NewClient(notify.WrapConn(ws), room))
}
