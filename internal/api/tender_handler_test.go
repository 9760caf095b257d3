package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"TenderGuard/internal/config"
	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"
	"TenderGuard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestRouter 用内存sqlite搭完整路由，与生产装配一致
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.Company{}, &model.Person{}, &model.PersonOwnership{},
		&model.FinancialTie{}, &model.Tender{}, &model.Bid{},
		&model.TenderClause{}, &model.GraphNode{}, &model.GraphEdge{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	registryRepo := repository.NewRegistryRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	bidRepo := repository.NewBidRepository(db)
	graphRepo := repository.NewGraphRepository(db)

	risk := config.RiskConfig{ClauseDangerThreshold: 0.8, ClauseWarningThreshold: 0.5}
	graphSync := service.NewGraphSyncService(registryRepo, tenderRepo, bidRepo, graphRepo, log)
	detector := service.NewDetectorService(graphRepo, log)
	assessment := service.NewAssessmentService(detector, tenderRepo, nil, risk, log)
	tenderSvc := service.NewTenderService(tenderRepo, nil, log)
	bidSvc := service.NewBidService(bidRepo, tenderRepo, log)

	r := gin.New()
	tenderHandler := NewTenderHandler(tenderSvc, assessment, log)
	r.POST("/api/tenders", tenderHandler.CreateTender)
	r.GET("/api/tenders", tenderHandler.ListTenders)
	r.GET("/api/tenders/:tender_id", tenderHandler.GetTender)
	r.POST("/api/tenders/:tender_id/approve", tenderHandler.ApproveTender)
	r.POST("/api/tenders/:tender_id/reject", tenderHandler.RejectTender)
	r.POST("/api/tenders/:tender_id/close", tenderHandler.TransitionTender(model.TenderStatusClosed))
	r.GET("/api/tenders/:tender_id/assessment", tenderHandler.AssessTender)

	bidHandler := NewBidHandler(bidSvc, log)
	r.POST("/api/bids", bidHandler.PlaceBid)

	registryHandler := NewRegistryHandler(registryRepo, log)
	r.POST("/api/companies", registryHandler.CreateCompany)

	graphHandler := NewGraphHandler(graphSync, graphRepo, log)
	r.POST("/api/graph/sync", graphHandler.Sync)

	fraudHandler := NewFraudHandler(detector, assessment, log)
	r.GET("/api/fraud/summary", fraudHandler.Summary)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenderLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	// 创建
	w := doJSON(t, r, http.MethodPost, "/api/tenders", gin.H{
		"deptName": "PWD", "title": "道路工程", "location": "Pune",
		"pincode": "411001", "estValueInCr": 12.5, "publishDate": "2026-03-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var tender model.Tender
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tender))
	assert.Equal(t, "PWD-2026-001", tender.TenderID)
	assert.Equal(t, model.TenderStatusPendingApproval, tender.Status)

	// 缺必填字段
	w = doJSON(t, r, http.MethodPost, "/api/tenders", gin.H{"deptName": "PWD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 不存在的招标
	w = doJSON(t, r, http.MethodGet, "/api/tenders/PWD-2026-999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 驳回缺原因
	w = doJSON(t, r, http.MethodPost, "/api/tenders/"+tender.TenderID+"/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 审批通过
	w = doJSON(t, r, http.MethodPost, "/api/tenders/"+tender.TenderID+"/approve", gin.H{"reviewer": "r1"})
	require.Equal(t, http.StatusOK, w.Code)

	// 二次审批 → 冲突
	w = doJSON(t, r, http.MethodPost, "/api/tenders/"+tender.TenderID+"/approve", gin.H{"reviewer": "r1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 投标
	w = doJSON(t, r, http.MethodPost, "/api/bids", gin.H{
		"tenderId": tender.TenderID, "companyId": "C001", "bidAmount": 9.5, "ipAddress": "10.0.0.9",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// 重复投标
	w = doJSON(t, r, http.MethodPost, "/api/bids", gin.H{
		"tenderId": tender.TenderID, "companyId": "C001", "bidAmount": 9.9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 关闭
	w = doJSON(t, r, http.MethodPost, "/api/tenders/"+tender.TenderID+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAssessmentAndSyncOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	for _, c := range []gin.H{
		{"companyId": "C001", "name": "Alpha", "address": "12 MG Road, Pune 411001", "director": "R. Sharma"},
		{"companyId": "C002", "name": "Beta", "address": "12 mg road, pune 411001", "director": "R. Sharma"},
	} {
		w := doJSON(t, r, http.MethodPost, "/api/companies", c)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/api/tenders", gin.H{
		"deptName": "PWD", "title": "道路工程", "location": "Pune",
		"pincode": "411001", "estValueInCr": 12.5, "publishDate": "2026-03-15T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var tender model.Tender
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tender))

	w = doJSON(t, r, http.MethodPost, "/api/graph/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sync service.SyncResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sync))
	assert.Equal(t, 2, sync.Companies)

	w = doJSON(t, r, http.MethodGet, "/api/tenders/"+tender.TenderID+"/assessment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var a service.TenderAssessment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &a))
	assert.Len(t, a.Checks, 5)
	assert.Equal(t, service.StatusDanger, a.Overall)

	w = doJSON(t, r, http.MethodGet, "/api/fraud/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.FraudSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.AddressCollusionCount)
}
