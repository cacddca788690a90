package download

import (
	"net/http"
	"strconv"

	"designhub-points/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	g := engine.Group("/api/v1", middleware.Identity())
	g.GET("/resources/:id/permission", h.CheckPermission)
	g.POST("/resources/:id/download", h.ExecuteDownload)
	g.GET("/downloads", h.GetHistory)
}

func (h *Handler) CheckPermission(c *gin.Context) {
	perm, err := h.svc.CheckPermission(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, perm)
}

func (h *Handler) ExecuteDownload(c *gin.Context) {
	result, err := h.svc.ExecuteDownload(
		c.Request.Context(),
		middleware.UserID(c),
		c.Param("id"),
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	rows, total, err := h.svc.GetHistory(c.Request.Context(), middleware.UserID(c), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"page":      page,
		"pageSize":  pageSize,
		"downloads": rows,
	})
}
