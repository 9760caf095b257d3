package api

import (
	"errors"
	"net/http"

	"TenderGuard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError 统一错误到HTTP状态码的映射：
// 未找到→404，参数校验→400，非法状态流转→409，图库不可用→503，其余→500
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, model.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrStoreUnavailable):
		logger.WithError(err).Error("图投影存储不可用")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.WithError(err).Error("请求处理失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
