package api

import (
	"net/http"
	"strings"

	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegistryHandler 公司/人员/金融关联登记接口。
// 登记数据只进主库，入图由 POST /api/graph/sync 统一完成。
type RegistryHandler struct {
	registry repository.RegistryRepository
	logger   *logrus.Logger
}

// NewRegistryHandler 创建登记接口处理器
func NewRegistryHandler(registry repository.RegistryRepository, logger *logrus.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, logger: logger}
}

// CreateCompany 登记公司 POST /api/companies
func (h *RegistryHandler) CreateCompany(c *gin.Context) {
	var company model.Company
	if err := c.ShouldBindJSON(&company); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(company.CompanyID) == "" {
		respondError(c, h.logger, model.NewValidationError("companyId", "公司编号不能为空"))
		return
	}
	if err := h.registry.CreateCompany(c.Request.Context(), &company); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// ListCompanies 公司列表 GET /api/companies
func (h *RegistryHandler) ListCompanies(c *gin.Context) {
	companies, err := h.registry.ListCompanies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies, "count": len(companies)})
}

// CreatePerson 登记人员及持股 POST /api/persons
func (h *RegistryHandler) CreatePerson(c *gin.Context) {
	var person model.Person
	if err := c.ShouldBindJSON(&person); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(person.PersonID) == "" {
		respondError(c, h.logger, model.NewValidationError("personId", "人员编号不能为空"))
		return
	}
	if err := h.registry.CreatePerson(c.Request.Context(), &person); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, person)
}

// ListPersons 人员列表（含持股记录） GET /api/persons
func (h *RegistryHandler) ListPersons(c *gin.Context) {
	persons, err := h.registry.ListPersons(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"persons": persons, "count": len(persons)})
}

// CreateFinancialTie 登记金融关联指纹 POST /api/financial-ties
func (h *RegistryHandler) CreateFinancialTie(c *gin.Context) {
	var tie model.FinancialTie
	if err := c.ShouldBindJSON(&tie); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if strings.TrimSpace(tie.EntityID) == "" {
		respondError(c, h.logger, model.NewValidationError("entityId", "实体编号不能为空"))
		return
	}
	if err := h.registry.CreateFinancialTie(c.Request.Context(), &tie); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tie)
}

// ListFinancialTies 金融关联列表 GET /api/financial-ties
func (h *RegistryHandler) ListFinancialTies(c *gin.Context) {
	ties, err := h.registry.ListFinancialTies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"financialTies": ties, "count": len(ties)})
}
