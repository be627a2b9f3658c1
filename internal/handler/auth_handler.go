package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imsheet-go/pkg/log"
	"imsheet-go/pkg/token"
)

// AuthHandler 负责本地会话令牌的签发。
type AuthHandler struct {
	jwtManager *token.JWTManager
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(jwtManager *token.JWTManager) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager}
}

// Token 为本机 UI 签发会话令牌，后续请求凭此通过认证中间件。
func (h *AuthHandler) Token(c *gin.Context) {
	client := c.DefaultQuery("client", "imsheet-ui")
	tokenString, err := h.jwtManager.GenerateToken(client)
	if err != nil {
		log.Errorf("Token: 签发令牌失败，error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "签发令牌失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "签发成功", "data": gin.H{"token": tokenString}})
}
