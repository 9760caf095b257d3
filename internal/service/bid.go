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

// PlaceBidRequest 投标请求
type PlaceBidRequest struct {
	TenderID  string  `json:"tenderId"`
	CompanyID string  `json:"companyId"`
	BidAmount float64 `json:"bidAmount"`
	IPAddress string  `json:"ipAddress"`
}

// CompanyBidView 公司维度投标视图，附带招标摘要
type CompanyBidView struct {
	Bid          *model.Bid `json:"bid"`
	TenderTitle  string     `json:"tenderTitle"`
	TenderStatus string     `json:"tenderStatus"`
	DeptName     string     `json:"deptName"`
	Location     string     `json:"location"`
	EstValueInCr float64    `json:"estValueInCr"`
}

// BidService 投标服务。投标只允许落在进行中的招标上，
// 同一公司对同一招标只允许一笔投标。
type BidService struct {
	bids    repository.BidRepository
	tenders repository.TenderRepository
	logger  *logrus.Logger
}

// NewBidService 创建投标服务
func NewBidService(bids repository.BidRepository, tenders repository.TenderRepository, logger *logrus.Logger) *BidService {
	return &BidService{bids: bids, tenders: tenders, logger: logger}
}

// Place 提交投标。校验顺序：招标存在 → 招标进行中 → 无重复投标 → 金额合法。
// 来源指纹可为空，缺失不拒单，只是不参与共享来源检测。
func (s *BidService) Place(ctx context.Context, req *PlaceBidRequest) (*model.Bid, error) {
	if strings.TrimSpace(req.TenderID) == "" {
		return nil, model.NewValidationError("tenderId", "招标编号不能为空")
	}
	if strings.TrimSpace(req.CompanyID) == "" {
		return nil, model.NewValidationError("companyId", "公司编号不能为空")
	}

	tender, err := s.tenders.GetByTenderID(ctx, req.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != model.TenderStatusActive {
		return nil, model.NewValidationError("tenderId", fmt.Sprintf("招标 %s 状态为 %s，仅进行中招标可投标", req.TenderID, tender.Status))
	}

	exists, err := s.bids.ExistsForTenderCompany(ctx, req.TenderID, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.NewValidationError("companyId", fmt.Sprintf("公司 %s 已对招标 %s 投标", req.CompanyID, req.TenderID))
	}
	if req.BidAmount <= 0 {
		return nil, model.NewValidationError("bidAmount", "投标金额必须大于0")
	}

	bid := &model.Bid{
		BidID:     "BID-" + uuid.NewString(),
		TenderID:  req.TenderID,
		CompanyID: req.CompanyID,
		BidAmount: req.BidAmount,
		BidDate:   time.Now(),
		IPAddress: strings.TrimSpace(req.IPAddress),
		Status:    model.BidStatusPending,
	}
	if err := s.bids.Create(ctx, bid); err != nil {
		return nil, err
	}
	s.logger.WithField("bid_id", bid.BidID).WithField("tender_id", bid.TenderID).Info("投标提交成功")
	return bid, nil
}

// ListByTender 招标维度投标列表（金额升序）
func (s *BidService) ListByTender(ctx context.Context, tenderID string) ([]*model.Bid, error) {
	if _, err := s.tenders.GetByTenderID(ctx, tenderID); err != nil {
		return nil, err
	}
	return s.bids.ListByTender(ctx, tenderID)
}

// ListByCompany 公司维度投标列表，附带招标标题/状态
func (s *BidService) ListByCompany(ctx context.Context, companyID string) ([]*CompanyBidView, error) {
	bids, err := s.bids.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	views := make([]*CompanyBidView, 0, len(bids))
	for _, b := range bids {
		view := &CompanyBidView{Bid: b}
		tender, err := s.tenders.GetByTenderID(ctx, b.TenderID)
		if err != nil {
			s.logger.WithError(err).WithField("tender_id", b.TenderID).Warn("投标关联的招标查询失败")
		} else {
			view.TenderTitle = tender.Title
			view.TenderStatus = tender.Status
			view.DeptName = tender.DeptName
			view.Location = tender.Location
			view.EstValueInCr = tender.EstValueInCr
		}
		views = append(views, view)
	}
	return views, nil
}

// List 全量投标列表（limit 封顶由仓储控制）
func (s *BidService) List(ctx context.Context, limit int) ([]*model.Bid, error) {
	return s.bids.List(ctx, limit)
}

// UpdateStatus 更新投标状态（pending/accepted/rejected/winner）
func (s *BidService) UpdateStatus(ctx context.Context, bidID, status string) error {
	if !model.ValidBidStatus(status) {
		return model.NewValidationError("status", fmt.Sprintf("非法投标状态: %s", status))
	}
	return s.bids.UpdateStatus(ctx, bidID, status)
}
