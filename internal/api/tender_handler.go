package api

import (
	"net/http"
	"strconv"

	"TenderGuard/internal/repository"
	"TenderGuard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TenderHandler 招标生命周期与风险评估接口
type TenderHandler struct {
	tenderService     *service.TenderService
	assessmentService *service.AssessmentService
	logger            *logrus.Logger
}

// NewTenderHandler 创建招标接口处理器
func NewTenderHandler(tenderService *service.TenderService, assessmentService *service.AssessmentService, logger *logrus.Logger) *TenderHandler {
	return &TenderHandler{
		tenderService:     tenderService,
		assessmentService: assessmentService,
		logger:            logger,
	}
}

// CreateTender 创建招标 POST /api/tenders
func (h *TenderHandler) CreateTender(c *gin.Context) {
	var req service.CreateTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	tender, err := h.tenderService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tender)
}

// ListTenders 招标列表 GET /api/tenders?status=&deptName=&limit=
func (h *TenderHandler) ListTenders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter := repository.TenderFilter{
		Status:   c.Query("status"),
		DeptName: c.Query("deptName"),
	}
	tenders, err := h.tenderService.List(c.Request.Context(), filter, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenders": tenders, "count": len(tenders)})
}

// TenderStats 按状态统计 GET /api/tenders/stats?deptName=
func (h *TenderHandler) TenderStats(c *gin.Context) {
	stats, err := h.tenderService.Stats(c.Request.Context(), c.Query("deptName"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// GetTender 招标详情（含条款） GET /api/tenders/:tender_id
func (h *TenderHandler) GetTender(c *gin.Context) {
	tenderID := c.Param("tender_id")
	tender, clauses, err := h.tenderService.Get(c.Request.Context(), tenderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tender": tender, "clauses": clauses})
}

// approveRequest 审批请求体
type approveRequest struct {
	Reviewer string `json:"reviewer"`
}

// ApproveTender 审批通过 POST /api/tenders/:tender_id/approve
func (h *TenderHandler) ApproveTender(c *gin.Context) {
	var req approveRequest
	_ = c.ShouldBindJSON(&req) // reviewer 可为空
	tender, err := h.tenderService.Approve(c.Request.Context(), c.Param("tender_id"), req.Reviewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// rejectRequest 驳回请求体
type rejectRequest struct {
	Reason   string `json:"reason"`
	Reviewer string `json:"reviewer"`
}

// RejectTender 驳回 POST /api/tenders/:tender_id/reject
func (h *TenderHandler) RejectTender(c *gin.Context) {
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)
	tender, err := h.tenderService.Reject(c.Request.Context(), c.Param("tender_id"), req.Reason, req.Reviewer)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// ResubmitTender 重新提交 POST /api/tenders/:tender_id/resubmit
func (h *TenderHandler) ResubmitTender(c *gin.Context) {
	var updates service.ResubmitUpdates
	_ = c.ShouldBindJSON(&updates)
	tender, err := h.tenderService.Resubmit(c.Request.Context(), c.Param("tender_id"), &updates)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tender)
}

// TransitionTender 终态流转 POST /api/tenders/:tender_id/close|complete|cancel
// 路由注册时以目标状态绑定
func (h *TenderHandler) TransitionTender(target string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tender, err := h.tenderService.Transition(c.Request.Context(), c.Param("tender_id"), target)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, tender)
	}
}

// AssessTender 风险评估 GET /api/tenders/:tender_id/assessment
func (h *TenderHandler) AssessTender(c *gin.Context) {
	assessment, err := h.assessmentService.AssessTender(c.Request.Context(), c.Param("tender_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}
