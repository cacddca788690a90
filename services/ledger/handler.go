package ledger

import (
	"net/http"
	"strconv"

	"designhub-points/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func RegisterRoutes(engine *gin.Engine, h *Handler) {
	g := engine.Group("/api/v1/points", middleware.Identity())
	g.GET("/balance", h.GetBalance)
	g.GET("/summary", h.GetSummary)
	g.GET("/records", h.ListRecords)
}

func (h *Handler) GetBalance(c *gin.Context) {
	acct, err := h.store.GetAccount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":     acct.Balance,
		"totalEarned": acct.TotalEarned,
	})
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.store.GetSummary(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	changeType := ChangeType(c.Query("changeType"))

	rows, total, err := h.store.ListChanges(c.Request.Context(), middleware.UserID(c), changeType, page, pageSize)
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
