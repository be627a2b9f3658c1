package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imsheet-go/internal/config"
	"imsheet-go/internal/service"
	"imsheet-go/pkg/log"
)

// CatalogHandler 负责处理目录生命周期相关的 API 请求。
type CatalogHandler struct {
	imageService  service.ImageService
	configService service.ConfigService
}

// NewCatalogHandler 创建一个新的 CatalogHandler 实例。
func NewCatalogHandler(imageService service.ImageService, configService service.ConfigService) *CatalogHandler {
	return &CatalogHandler{imageService: imageService, configService: configService}
}

// Check 检查云端目录:请求体可携带新配置，先应用配置再检查；
// 云端有目录则拉取，没有则初始化，返回当前统计行。
func (h *CatalogHandler) Check(c *gin.Context) {
	if c.Request.ContentLength > 0 {
		var cfg config.CosConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
			return
		}
		if err := h.configService.Set(c.Request.Context(), cfg); err != nil {
			log.Errorf("Check: 应用配置失败，error: %v", err)
			c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "应用配置失败: " + err.Error(), "data": nil})
			return
		}
	}

	stats, err := h.imageService.CheckCatalog(c.Request.Context())
	if err != nil {
		log.Errorf("Check: 检查目录失败，error: %v", err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "检查目录失败: " + err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "目录就绪", "data": stats})
}

// Create 重建目录并推送到云端，云端旧目录会被覆盖。
func (h *CatalogHandler) Create(c *gin.Context) {
	stats, err := h.imageService.CreateCatalog(c.Request.Context())
	if err != nil {
		log.Errorf("Create: 初始化目录失败，error: %v", err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "初始化目录失败: " + err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "目录已初始化", "data": stats})
}

// Pull 无条件拉取云端目录覆盖本地。
func (h *CatalogHandler) Pull(c *gin.Context) {
	stats, err := h.imageService.PullCatalog(c.Request.Context())
	if err != nil {
		log.Errorf("Pull: 拉取目录失败，error: %v", err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "拉取目录失败: " + err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "拉取成功", "data": stats})
}
