package api

import (
	"net/http"
	"strconv"

	"TenderGuard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BidHandler 投标接口
type BidHandler struct {
	bidService *service.BidService
	logger     *logrus.Logger
}

// NewBidHandler 创建投标接口处理器
func NewBidHandler(bidService *service.BidService, logger *logrus.Logger) *BidHandler {
	return &BidHandler{bidService: bidService, logger: logger}
}

// PlaceBid 提交投标 POST /api/bids
func (h *BidHandler) PlaceBid(c *gin.Context) {
	var req service.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	bid, err := h.bidService.Place(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// ListBids 全量投标列表 GET /api/bids?limit=
func (h *BidHandler) ListBids(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	bids, err := h.bidService.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids, "count": len(bids)})
}

// ListBidsByTender 某招标的投标（金额升序） GET /api/bids/tender/:tender_id
func (h *BidHandler) ListBidsByTender(c *gin.Context) {
	bids, err := h.bidService.ListByTender(c.Request.Context(), c.Param("tender_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids, "count": len(bids)})
}

// ListBidsByCompany 某公司的投标（附招标摘要） GET /api/bids/company/:company_id
func (h *BidHandler) ListBidsByCompany(c *gin.Context) {
	views, err := h.bidService.ListByCompany(c.Request.Context(), c.Param("company_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": views, "count": len(views)})
}

// bidStatusRequest 投标状态更新请求体
type bidStatusRequest struct {
	Status string `json:"status"`
}

// UpdateBidStatus 更新投标状态（中标评定） PATCH /api/bids/:bid_id/status
func (h *BidHandler) UpdateBidStatus(c *gin.Context) {
	var req bidStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := h.bidService.UpdateStatus(c.Request.Context(), c.Param("bid_id"), req.Status); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "投标状态已更新"})
}
