package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateTenderRequest 创建招标请求
type CreateTenderRequest struct {
	DeptName            string     `json:"deptName"`
	Title               string     `json:"title"`
	Location            string     `json:"location"`
	Pincode             string     `json:"pincode"`
	EstValueInCr        float64    `json:"estValueInCr"`
	PublishDate         *time.Time `json:"publishDate"`
	ClosingDate         *time.Time `json:"closingDate"`
	MandatoryConditions string     `json:"mandatoryConditions"` // 可选：初始强制条款正文
}

// ResubmitUpdates 重新提交时允许修改的字段（nil 表示不修改）
type ResubmitUpdates struct {
	Title        *string    `json:"title"`
	Location     *string    `json:"location"`
	Pincode      *string    `json:"pincode"`
	EstValueInCr *float64   `json:"estValueInCr"`
	ClosingDate  *time.Time `json:"closingDate"`
}

// TenderService 招标生命周期服务。状态机只做守卫：
// 是否批准由人工审批决定，风险评估结论仅供参考。
type TenderService struct {
	tenders  repository.TenderRepository
	enqueuer ClauseEnqueuer
	logger   *logrus.Logger
}

// NewTenderService 创建招标服务
func NewTenderService(tenders repository.TenderRepository, enqueuer ClauseEnqueuer, logger *logrus.Logger) *TenderService {
	return &TenderService{tenders: tenders, enqueuer: enqueuer, logger: logger}
}

// Create 创建招标（初始状态 pending_approval）。
// TenderID 由仓储在事务内按 (dept, year) 递增序号生成；
// 附带强制条款时一并入库并异步触发评分。
func (s *TenderService) Create(ctx context.Context, req *CreateTenderRequest) (*model.Tender, error) {
	if strings.TrimSpace(req.DeptName) == "" {
		return nil, model.NewValidationError("deptName", "发布部门不能为空")
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, model.NewValidationError("location", "项目地点不能为空")
	}
	if strings.TrimSpace(req.Pincode) == "" {
		return nil, model.NewValidationError("pincode", "邮政编码不能为空")
	}
	if req.EstValueInCr <= 0 {
		return nil, model.NewValidationError("estValueInCr", "预估金额必须大于0")
	}

	publishDate := time.Now()
	if req.PublishDate != nil {
		publishDate = *req.PublishDate
	}
	tender := &model.Tender{
		DeptName:     strings.TrimSpace(req.DeptName),
		Year:         publishDate.Year(),
		Title:        req.Title,
		Location:     req.Location,
		Pincode:      req.Pincode,
		EstValueInCr: req.EstValueInCr,
		PublishDate:  publishDate,
		ClosingDate:  req.ClosingDate,
		Status:       model.TenderStatusPendingApproval,
	}

	var clause *model.TenderClause
	if strings.TrimSpace(req.MandatoryConditions) != "" {
		clause = &model.TenderClause{
			ClauseID:        "CL-" + uuid.NewString(),
			SectionType:     "Technical Eligibility",
			RequirementText: req.MandatoryConditions,
			IsMandatory:     true,
		}
	}

	if err := s.tenders.CreateWithSequence(ctx, tender, clause); err != nil {
		return nil, err
	}
	s.logger.WithField("tender_id", tender.TenderID).Info("招标创建成功，待审批")

	if clause != nil && s.enqueuer != nil {
		s.enqueuer.Enqueue(tender.TenderID)
	}
	return tender, nil
}

// Approve 审批通过：仅允许 pending_approval → active，记录审批人并清除驳回原因
func (s *TenderService) Approve(ctx context.Context, tenderID, reviewer string) (*model.Tender, error) {
	tender, err := s.tenders.GetByTenderID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != model.TenderStatusPendingApproval {
		return nil, fmt.Errorf("%w: %s 状态为 %s，仅待审批招标可批准", model.ErrInvalidTransition, tenderID, tender.Status)
	}
	now := time.Now()
	if err := s.tenders.UpdateStatusFields(ctx, tenderID, map[string]interface{}{
		"status":           model.TenderStatusActive,
		"rejection_reason": nil,
		"reviewed_by":      reviewer,
		"reviewed_at":      now,
	}); err != nil {
		return nil, err
	}
	s.logger.WithField("tender_id", tenderID).WithField("reviewer", reviewer).Info("招标审批通过")
	return s.tenders.GetByTenderID(ctx, tenderID)
}

// Reject 驳回：仅允许 pending_approval → rejected，原因必填
func (s *TenderService) Reject(ctx context.Context, tenderID, reason, reviewer string) (*model.Tender, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, model.NewValidationError("reason", "驳回原因不能为空")
	}
	tender, err := s.tenders.GetByTenderID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != model.TenderStatusPendingApproval {
		return nil, fmt.Errorf("%w: %s 状态为 %s，仅待审批招标可驳回", model.ErrInvalidTransition, tenderID, tender.Status)
	}
	now := time.Now()
	if err := s.tenders.UpdateStatusFields(ctx, tenderID, map[string]interface{}{
		"status":           model.TenderStatusRejected,
		"rejection_reason": reason,
		"reviewed_by":      reviewer,
		"reviewed_at":      now,
	}); err != nil {
		return nil, err
	}
	s.logger.WithField("tender_id", tenderID).WithField("reason", reason).Info("招标已驳回")
	return s.tenders.GetByTenderID(ctx, tenderID)
}

// Resubmit 重新提交：仅允许 rejected → pending_approval，
// 应用白名单字段修改并清除驳回原因与审批人信息
func (s *TenderService) Resubmit(ctx context.Context, tenderID string, updates *ResubmitUpdates) (*model.Tender, error) {
	tender, err := s.tenders.GetByTenderID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != model.TenderStatusRejected {
		return nil, fmt.Errorf("%w: %s 状态为 %s，仅被驳回招标可重新提交", model.ErrInvalidTransition, tenderID, tender.Status)
	}

	fields := map[string]interface{}{
		"status":           model.TenderStatusPendingApproval,
		"rejection_reason": nil,
		"reviewed_by":      nil,
		"reviewed_at":      nil,
	}
	if updates != nil {
		if updates.Title != nil {
			fields["title"] = *updates.Title
		}
		if updates.Location != nil {
			fields["location"] = *updates.Location
		}
		if updates.Pincode != nil {
			fields["pincode"] = *updates.Pincode
		}
		if updates.EstValueInCr != nil {
			fields["est_value_in_cr"] = *updates.EstValueInCr
		}
		if updates.ClosingDate != nil {
			fields["closing_date"] = *updates.ClosingDate
		}
	}
	if err := s.tenders.UpdateStatusFields(ctx, tenderID, fields); err != nil {
		return nil, err
	}
	s.logger.WithField("tender_id", tenderID).Info("招标重新提交，回到待审批")
	return s.tenders.GetByTenderID(ctx, tenderID)
}

// Transition 管理端状态流转：仅允许 active → closed/completed/cancelled（终态）
func (s *TenderService) Transition(ctx context.Context, tenderID, target string) (*model.Tender, error) {
	if !model.TerminalTenderStatus(target) {
		return nil, model.NewValidationError("status", "仅支持流转到 closed/completed/cancelled")
	}
	tender, err := s.tenders.GetByTenderID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != model.TenderStatusActive {
		return nil, fmt.Errorf("%w: %s 状态为 %s，仅进行中招标可流转到终态", model.ErrInvalidTransition, tenderID, tender.Status)
	}
	if err := s.tenders.UpdateStatusFields(ctx, tenderID, map[string]interface{}{
		"status": target,
	}); err != nil {
		return nil, err
	}
	return s.tenders.GetByTenderID(ctx, tenderID)
}

// Get 招标详情（含条款）
func (s *TenderService) Get(ctx context.Context, tenderID string) (*model.Tender, []*model.TenderClause, error) {
	tender, err := s.tenders.GetByTenderID(ctx, tenderID)
	if err != nil {
		return nil, nil, err
	}
	clauses, err := s.tenders.ListClauses(ctx, tenderID)
	if err != nil {
		return nil, nil, err
	}
	return tender, clauses, nil
}

// List 招标列表
func (s *TenderService) List(ctx context.Context, filter repository.TenderFilter, limit int) ([]*model.Tender, error) {
	return s.tenders.List(ctx, filter, limit)
}

// Stats 按状态统计
func (s *TenderService) Stats(ctx context.Context, deptName string) ([]*repository.TenderStatusStat, error) {
	return s.tenders.Stats(ctx, deptName)
}
