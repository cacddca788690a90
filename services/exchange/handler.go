package exchange

import (
	"encoding/json"
	"net/http"
	"strconv"

	"designhub-points/pkg/errutil"
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
	user := engine.Group("/api/v1/exchange", middleware.Identity())
	user.POST("", h.Exchange)
	user.GET("/records", h.ListRecords)
	user.GET("/records/:id", h.GetRecord)

	admin := engine.Group("/api/v1/admin/exchange", middleware.AdminOnly())
	admin.POST("/records/:id/rollback", h.Rollback)
	admin.POST("/records/:id/ship", h.Ship)
	admin.GET("/records/:id/audit-logs", h.ListAuditLogs)
}

type exchangeRequest struct {
	ProductID string          `json:"productId" binding:"required"`
	Address   json.RawMessage `json:"address"`
}

func (h *Handler) Exchange(c *gin.Context) {
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid exchange payload"))
		return
	}

	result, err := h.svc.Exchange(c.Request.Context(), middleware.UserID(c), req.ProductID, AuditInfo{
		IPAddress:  c.ClientIP(),
		DeviceInfo: c.Request.UserAgent(),
	}, req.Address)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rollbackRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Rollback(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid rollback payload"))
		return
	}

	record, err := h.svc.Rollback(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type shipRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	DeliveryStatus int    `json:"deliveryStatus" binding:"required"`
}

func (h *Handler) Ship(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid ship payload"))
		return
	}

	record, err := h.svc.Ship(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req.TrackingNumber, req.DeliveryStatus)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) GetRecord(c *gin.Context) {
	record, err := h.svc.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	if record.UserID != middleware.UserID(c) {
		c.Error(errutil.Forbidden("", "exchange record belongs to another user"))
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) ListRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	rows, total, err := h.svc.ListRecords(c.Request.Context(), middleware.UserID(c), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
		"records":  rows,
	})
}

func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	rows, total, err := h.svc.ListAuditLogs(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
		"logs":     rows,
	})
}
