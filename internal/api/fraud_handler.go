package api

import (
	"net/http"
	"strconv"

	"TenderGuard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FraudHandler 共谋检测查询接口（图投影上的只读查询）
type FraudHandler struct {
	detector   *service.DetectorService
	assessment *service.AssessmentService
	logger     *logrus.Logger
}

// NewFraudHandler 创建检测接口处理器
func NewFraudHandler(detector *service.DetectorService, assessment *service.AssessmentService, logger *logrus.Logger) *FraudHandler {
	return &FraudHandler{detector: detector, assessment: assessment, logger: logger}
}

// Summary 四项检测计数总览 GET /api/fraud/summary
func (h *FraudHandler) Summary(c *gin.Context) {
	summary, err := h.assessment.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// AddressCollusion 共享地址检测 GET /api/fraud/address-collusion
func (h *FraudHandler) AddressCollusion(c *gin.Context) {
	findings, err := h.detector.DetectAddressCollusion(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings, "count": len(findings)})
}

// IPCollusion 共享提交来源检测 GET /api/fraud/ip-collusion
func (h *FraudHandler) IPCollusion(c *gin.Context) {
	findings, err := h.detector.DetectSubmissionNetworkCollusion(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings, "count": len(findings)})
}

// SharedOwnership 共享持股检测 GET /api/fraud/shared-ownership
func (h *FraudHandler) SharedOwnership(c *gin.Context) {
	findings, err := h.detector.DetectSharedOwnership(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"findings": findings, "count": len(findings)})
}

// FinancialTies 共享金融工具检测 GET /api/fraud/financial-ties
func (h *FraudHandler) FinancialTies(c *gin.Context) {
	report, err := h.detector.DetectFinancialTies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// TailoredClauses 高限制性条款（按招标分组） GET /api/fraud/tailored-clauses?threshold=
func (h *FraudHandler) TailoredClauses(c *gin.Context) {
	threshold, err := strconv.ParseFloat(c.DefaultQuery("threshold", "0.8"), 64)
	if err != nil || threshold < 0 || threshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold 必须在 [0,1] 区间"})
		return
	}
	tenders, err := h.assessment.HighRiskClauses(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenders": tenders, "count": len(tenders)})
}
