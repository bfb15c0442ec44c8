package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/bizmarket-backend/internal/app/service"
	"github.com/ikkim/bizmarket-backend/internal/middleware"
	ws "github.com/ikkim/bizmarket-backend/internal/websocket"
)

// NotificationController 알림 목록 조회 및 실시간 푸시 연결
type NotificationController struct {
	service  service.NotificationService
	hub      *ws.Hub
	upgrader gorillaws.Upgrader
}

// NewNotificationController allowedOrigins 는 CORS 설정과 같은 목록을 사용
func NewNotificationController(service service.NotificationService, hub *ws.Hub, allowedOrigins []string) *NotificationController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &NotificationController{
		service: service,
		hub:     hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

// List GET /api/v1/notifications?limit=20
func (ctrl *NotificationController) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	notifications, err := ctrl.service.ListRecent(c.Request.Context(), userID, queryInt(c, "limit", 20))
	if err != nil {
		respondServiceError(c, err, "notification list")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  notifications,
		"count": len(notifications),
	})
}

// WebSocketHandler GET /api/v1/notifications/ws?token=...
// 토큰은 쿼리로 받지만 로깅하지 않음
func (ctrl *NotificationController) WebSocketHandler(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	client := ws.NewClient(ctrl.hub, &ws.Conn{Conn: conn}, userID)
	ctrl.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}
