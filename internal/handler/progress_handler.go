package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"imsheet-go/internal/service"
	"imsheet-go/pkg/log"
	"imsheet-go/pkg/token"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 本地服务，允许所有来源
	},
}

// ProgressHandler 通过 WebSocket 向 UI 推送上传进度事件。
type ProgressHandler struct {
	hub        *service.ProgressHub
	jwtManager *token.JWTManager
}

// NewProgressHandler 创建一个新的 ProgressHandler 实例。
func NewProgressHandler(hub *service.ProgressHub, jwtManager *token.JWTManager) *ProgressHandler {
	return &ProgressHandler{hub: hub, jwtManager: jwtManager}
}

// Handle 处理一个传入的进度订阅连接。令牌通过查询参数携带，
// 浏览器的 WebSocket API 无法自定义请求头。
func (h *ProgressHandler) Handle(c *gin.Context) {
	tokenString := c.Query("token")
	if _, err := h.jwtManager.VerifyToken(tokenString); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效或已过期的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Progress: WebSocket 升级失败，error: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.hub.Subscribe()
	defer cancel()

	// 读协程只用于感知对端关闭
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Infof("Progress: WebSocket 连接已建立")
	for {
		select {
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Warnf("Progress: 推送进度失败: %v", err)
				return
			}
		}
	}
}
