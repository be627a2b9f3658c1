package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imsheet-go/internal/config"
	"imsheet-go/internal/service"
	"imsheet-go/pkg/log"
)

// ConfigHandler 负责处理存储配置相关的 API 请求。
type ConfigHandler struct {
	configService service.ConfigService
}

// NewConfigHandler 创建一个新的 ConfigHandler 实例。
func NewConfigHandler(configService service.ConfigService) *ConfigHandler {
	return &ConfigHandler{configService: configService}
}

// Get 返回脱敏后的当前配置。
func (h *ConfigHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "查询成功", "data": h.configService.Get()})
}

// Set 校验并保存配置。先用临时客户端探测凭证可达，再落盘生效，
// 响应中携带云端是否已有目录，供前端决定后续走检查还是初始化。
func (h *ConfigHandler) Set(c *gin.Context) {
	var cfg config.CosConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	exists, err := h.configService.Validate(c.Request.Context(), cfg)
	if err != nil {
		log.Errorf("Set: 配置校验失败，error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "配置校验失败: " + err.Error(), "data": nil})
		return
	}
	if err := h.configService.Set(c.Request.Context(), cfg); err != nil {
		log.Errorf("Set: 保存配置失败，error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "保存配置失败: " + err.Error(), "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "配置已保存", "data": gin.H{"catalogExists": exists}})
}
