package adjustment

import (
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
	g := engine.Group("/api/v1/admin/points", middleware.AdminOnly())
	g.POST("/adjust", h.Adjust)
	g.POST("/batch-gift", h.BatchGift)
	g.GET("/adjustments", h.ListAdjustments)
	g.GET("/adjustments/:id", h.GetAdjustment)
	g.POST("/adjustments/:id/revoke", h.Revoke)
	g.GET("/approval-check", h.ApprovalCheck)
}

type adjustRequest struct {
	TargetUserID string         `json:"targetUserId" binding:"required"`
	Type         AdjustmentType `json:"type" binding:"required"`
	Amount       int64          `json:"amount" binding:"required"`
	Reason       string         `json:"reason" binding:"required"`
}

func (h *Handler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid adjustment payload"))
		return
	}

	logRow, err := h.svc.AdjustUserPoints(c.Request.Context(), middleware.AdminID(c), req.TargetUserID, req.Type, req.Amount, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, logRow)
}

type batchGiftRequest struct {
	UserIDs []string `json:"userIds" binding:"required"`
	Amount  int64    `json:"amount" binding:"required"`
	Reason  string   `json:"reason" binding:"required"`
}

func (h *Handler) BatchGift(c *gin.Context) {
	var req batchGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid batch gift payload"))
		return
	}

	result, err := h.svc.BatchGiftPoints(c.Request.Context(), middleware.AdminID(c), req.UserIDs, req.Amount, req.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type revokeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Revoke(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errutil.BadRequest("INVALID_REQUEST", "invalid revoke payload"))
		return
	}

	logRow, err := h.svc.RevokeAdjustment(c.Request.Context(), c.Param("id"), middleware.AdminID(c), req.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, logRow)
}

func (h *Handler) GetAdjustment(c *gin.Context) {
	logRow, err := h.svc.GetAdjustment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, logRow)
}

func (h *Handler) ListAdjustments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	rows, total, err := h.svc.ListAdjustments(c.Request.Context(), c.Query("userId"), c.Query("adminId"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"page":        page,
		"pageSize":    pageSize,
		"adjustments": rows,
	})
}

func (h *Handler) ApprovalCheck(c *gin.Context) {
	amount, _ := strconv.ParseInt(c.Query("amount"), 10, 64)
	userCount, _ := strconv.Atoi(c.DefaultQuery("userCount", "1"))

	c.JSON(http.StatusOK, gin.H{
		"approvalRequired": h.svc.Approval().RequiresApproval(amount, userCount),
	})
}
