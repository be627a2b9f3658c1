// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imsheet-go/internal/model"
	"imsheet-go/internal/repository"
	"imsheet-go/internal/service"
	"imsheet-go/pkg/log"
	"imsheet-go/pkg/storage"
)

// ImageHandler 负责处理所有与图片相关的 API 请求。
type ImageHandler struct {
	imageService service.ImageService
}

// NewImageHandler 创建一个新的 ImageHandler 实例。
func NewImageHandler(imageService service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// Upload 处理图片上传请求，表单字段 file 为图片内容。
func (h *ImageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "未能获取上传的文件", "data": nil})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "读取上传内容失败", "data": nil})
		return
	}

	result, err := h.imageService.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		log.Errorf("Upload: 图片上传失败，file: %s, error: %v", header.Filename, err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "图片上传失败: " + err.Error(), "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "上传成功", "data": result})
}

// List 分页查询图片，支持按状态与时间区间过滤。
func (h *ImageHandler) List(c *gin.Context) {
	page, pageSize, state, between, ok := listQuery(c)
	if !ok {
		return
	}

	images, err := h.imageService.List(c.Request.Context(), page, pageSize, state, between)
	if err != nil {
		log.Errorf("List: 查询图片失败，error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "查询图片失败", "data": nil})
		return
	}
	total, err := h.imageService.Count(c.Request.Context(), state, between)
	if err != nil {
		log.Errorf("List: 统计图片失败，error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "统计图片失败", "data": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "查询成功",
		"data": gin.H{
			"list":  images,
			"total": total,
			"page":  page,
		},
	})
}

// Count 返回指定状态下的图片总数。
func (h *ImageHandler) Count(c *gin.Context) {
	_, _, state, between, ok := listQuery(c)
	if !ok {
		return
	}
	total, err := h.imageService.Count(c.Request.Context(), state, between)
	if err != nil {
		log.Errorf("Count: 统计图片失败，error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "统计图片失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "查询成功", "data": gin.H{"total": total}})
}

// ChangeStateRequest 定义了修改图片状态 API 的请求体结构。
type ChangeStateRequest struct {
	State *int `json:"state" binding:"required"`
}

// ChangeState 在正常与回收站之间切换图片状态。
func (h *ImageHandler) ChangeState(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的图片 ID", "data": nil})
		return
	}
	var req ChangeStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	if err := h.imageService.ChangeState(c.Request.Context(), id, *req.State); err != nil {
		log.Errorf("ChangeState: 修改状态失败，id: %d, error: %v", id, err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "修改状态失败: " + err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "修改成功", "data": nil})
}

// Delete 永久删除回收站中的一张图片。
func (h *ImageHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的图片 ID", "data": nil})
		return
	}

	if err := h.imageService.DeleteImage(c.Request.Context(), id); err != nil {
		log.Errorf("Delete: 删除图片失败，id: %d, error: %v", id, err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "删除图片失败: " + err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功", "data": nil})
}

// PurgeTrash 清空回收站并回收云端对象与本地空间。
func (h *ImageHandler) PurgeTrash(c *gin.Context) {
	purged, err := h.imageService.PurgeTrash(c.Request.Context())
	if err != nil {
		log.Errorf("PurgeTrash: 清空回收站失败，error: %v", err)
		c.JSON(statusOf(err), gin.H{"code": statusOf(err), "message": "清空回收站失败: " + err.Error(), "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "清空成功", "data": gin.H{"purged": purged}})
}

// listQuery 解析列表/计数共用的查询参数，解析失败时已写回响应。
func listQuery(c *gin.Context) (page, pageSize, state int, between *model.TimeRange, ok bool) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}

	state, err := strconv.Atoi(c.DefaultQuery("state", "1"))
	if err != nil || (state != model.StateActive && state != model.StateTrashed) {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的图片状态", "data": nil})
		return 0, 0, 0, nil, false
	}

	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr != "" && toStr != "" {
		from, err1 := strconv.ParseInt(fromStr, 10, 64)
		to, err2 := strconv.ParseInt(toStr, 10, 64)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的时间区间", "data": nil})
			return 0, 0, 0, nil, false
		}
		between = &model.TimeRange{From: from, To: to}
	}
	return page, pageSize, state, between, true
}

// statusOf 把已知的业务错误映射为对应的 HTTP 状态码。
func statusOf(err error) int {
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrNotTrashed):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotInitialized):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
