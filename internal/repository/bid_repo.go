package repository

import (
	"context"
	"errors"
	"fmt"

	"TenderGuard/internal/model"

	"gorm.io/gorm"
)

// BidRepository 投标仓储
type BidRepository interface {
	Create(ctx context.Context, b *model.Bid) error
	// ExistsForTenderCompany 同一 (tender, company) 是否已有投标
	ExistsForTenderCompany(ctx context.Context, tenderID, companyID string) (bool, error)
	// ListByTender 按金额升序（低价在前，便于评标）
	ListByTender(ctx context.Context, tenderID string) ([]*model.Bid, error)
	// ListByCompany 按投标时间降序
	ListByCompany(ctx context.Context, companyID string) ([]*model.Bid, error)
	List(ctx context.Context, limit int) ([]*model.Bid, error)
	// ListAllForSync 图同步专用全量读取，不设上限：投影必须覆盖全部记录
	ListAllForSync(ctx context.Context) ([]*model.Bid, error)
	UpdateStatus(ctx context.Context, bidID, status string) error
}

type bidRepository struct {
	db *gorm.DB
}

// NewBidRepository 创建 BidRepository 实例
func NewBidRepository(db *gorm.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) Create(ctx context.Context, b *model.Bid) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("保存投标失败: %w, tender_id: %s, company_id: %s", err, b.TenderID, b.CompanyID)
	}
	return nil
}

func (r *bidRepository) ExistsForTenderCompany(ctx context.Context, tenderID, companyID string) (bool, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).
		Where("tender_id = ? AND company_id = ?", tenderID, companyID).
		First(&bid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *bidRepository) ListByTender(ctx context.Context, tenderID string) ([]*model.Bid, error) {
	var bids []*model.Bid
	if err := r.db.WithContext(ctx).
		Where("tender_id = ?", tenderID).
		Order("bid_amount ASC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepository) ListByCompany(ctx context.Context, companyID string) ([]*model.Bid, error) {
	var bids []*model.Bid
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("bid_date DESC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepository) List(ctx context.Context, limit int) ([]*model.Bid, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var bids []*model.Bid
	if err := r.db.WithContext(ctx).
		Order("bid_date DESC").
		Limit(limit).
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepository) ListAllForSync(ctx context.Context) ([]*model.Bid, error) {
	var bids []*model.Bid
	if err := r.db.WithContext(ctx).Order("bid_id ASC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepository) UpdateStatus(ctx context.Context, bidID, status string) error {
	res := r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("bid_id = ?", bidID).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("更新投标状态失败: %w, bid_id: %s", res.Error, bidID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: bid %s", model.ErrNotFound, bidID)
	}
	return nil
}
