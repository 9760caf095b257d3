package model

import (
	"errors"
	"fmt"
)

// 错误分类（调用方用 errors.Is / errors.As 判断）
var (
	// ErrNotFound 实体不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrInvalidTransition 生命周期状态流转违规
	ErrInvalidTransition = errors.New("非法状态流转")
	// ErrStoreUnavailable 主库或图库不可达
	ErrStoreUnavailable = errors.New("存储不可用")
)

// ValidationError 输入校验失败（字段级）
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("校验失败 [%s]: %s", e.Field, e.Reason)
}

// NewValidationError 构造字段校验错误
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
