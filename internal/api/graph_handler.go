package api

import (
	"net/http"

	"TenderGuard/internal/repository"
	"TenderGuard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GraphHandler 图投影同步与状态接口
type GraphHandler struct {
	syncService *service.GraphSyncService
	graph       repository.GraphRepository
	logger      *logrus.Logger
}

// NewGraphHandler 创建图接口处理器
func NewGraphHandler(syncService *service.GraphSyncService, graph repository.GraphRepository, logger *logrus.Logger) *GraphHandler {
	return &GraphHandler{syncService: syncService, graph: graph, logger: logger}
}

// Sync 全量重建图投影 POST /api/graph/sync
func (h *GraphHandler) Sync(c *gin.Context) {
	result, err := h.syncService.Sync(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Status 图投影规模 GET /api/graph/status
func (h *GraphHandler) Status(c *gin.Context) {
	nodes, err := h.graph.CountNodes(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	edges, err := h.graph.CountEdges(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes, "edges": edges})
}
