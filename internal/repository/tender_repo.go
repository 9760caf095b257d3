package repository

import (
	"context"
	"errors"
	"fmt"

	"TenderGuard/internal/model"

	"gorm.io/gorm"
)

// TenderFilter 招标列表筛选条件
type TenderFilter struct {
	Status   string // 生命周期状态
	DeptName string // 发布部门
}

// TenderStatusStat 按状态聚合的统计行
type TenderStatusStat struct {
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	TotalValue float64 `json:"totalValue"`
}

// TenderRepository 招标与条款仓储
type TenderRepository interface {
	// CreateWithSequence 在单事务内取 (dept, year) 最大序号+1、生成 TenderID 并入库；
	// clause 非空时一并保存初始条款。序号从1开始、严格递增、无空洞。
	CreateWithSequence(ctx context.Context, t *model.Tender, clause *model.TenderClause) error
	GetByTenderID(ctx context.Context, tenderID string) (*model.Tender, error)
	List(ctx context.Context, filter TenderFilter, limit int) ([]*model.Tender, error)
	// ListAllForSync 图同步专用全量读取，不设上限：投影必须覆盖全部记录
	ListAllForSync(ctx context.Context) ([]*model.Tender, error)
	Stats(ctx context.Context, deptName string) ([]*TenderStatusStat, error)
	// UpdateStatusFields 按业务ID更新生命周期相关字段（status/rejection_reason/reviewed_by/reviewed_at 等）
	UpdateStatusFields(ctx context.Context, tenderID string, fields map[string]interface{}) error

	CreateClause(ctx context.Context, clause *model.TenderClause) error
	ListClauses(ctx context.Context, tenderID string) ([]*model.TenderClause, error)
	// ListUnscoredClauses 查询尚未评分的条款（restrictiveness_score 为空）
	ListUnscoredClauses(ctx context.Context, tenderID string) ([]*model.TenderClause, error)
	// ListClausesAboveScore 全局查询分数≥threshold的条款，按分数降序
	ListClausesAboveScore(ctx context.Context, threshold float64) ([]*model.TenderClause, error)
	CountClausesAboveScore(ctx context.Context, threshold float64) (int64, error)
	UpdateClauseScore(ctx context.Context, tenderID, clauseID string, score float64) error
}

type tenderRepository struct {
	db *gorm.DB
}

// NewTenderRepository 创建 TenderRepository 实例
func NewTenderRepository(db *gorm.DB) TenderRepository {
	return &tenderRepository{db: db}
}

// CreateWithSequence 序号分配与入库在同一事务内完成，保证部门年度内单调无空洞
func (r *tenderRepository) CreateWithSequence(ctx context.Context, t *model.Tender, clause *model.TenderClause) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxNum int
		if err := tx.Model(&model.Tender{}).
			Where("dept_name = ? AND year = ?", t.DeptName, t.Year).
			Select("COALESCE(MAX(tender_num), 0)").
			Scan(&maxNum).Error; err != nil {
			return fmt.Errorf("查询部门年度最大序号失败: %w", err)
		}
		t.TenderNum = maxNum + 1
		t.TenderID = model.FormatTenderID(t.DeptName, t.Year, t.TenderNum)
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("保存招标失败: %w, tender_id: %s", err, t.TenderID)
		}
		if clause != nil {
			clause.TenderID = t.TenderID
			if err := tx.Create(clause).Error; err != nil {
				return fmt.Errorf("保存初始条款失败: %w, tender_id: %s", err, t.TenderID)
			}
		}
		return nil
	})
}

func (r *tenderRepository) GetByTenderID(ctx context.Context, tenderID string) (*model.Tender, error) {
	var t model.Tender
	if err := r.db.WithContext(ctx).Where("tender_id = ?", tenderID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tender %s", model.ErrNotFound, tenderID)
		}
		return nil, err
	}
	return &t, nil
}

func (r *tenderRepository) List(ctx context.Context, filter TenderFilter, limit int) ([]*model.Tender, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	db := r.db.WithContext(ctx).Model(&model.Tender{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.DeptName != "" {
		db = db.Where("dept_name = ?", filter.DeptName)
	}
	var tenders []*model.Tender
	if err := db.Order("created_at DESC, publish_date DESC").Limit(limit).Find(&tenders).Error; err != nil {
		return nil, err
	}
	return tenders, nil
}

func (r *tenderRepository) ListAllForSync(ctx context.Context) ([]*model.Tender, error) {
	var tenders []*model.Tender
	if err := r.db.WithContext(ctx).Order("tender_id ASC").Find(&tenders).Error; err != nil {
		return nil, err
	}
	return tenders, nil
}

// Stats 按状态分组统计数量与预估总额
func (r *tenderRepository) Stats(ctx context.Context, deptName string) ([]*TenderStatusStat, error) {
	db := r.db.WithContext(ctx).Model(&model.Tender{})
	if deptName != "" {
		db = db.Where("dept_name = ?", deptName)
	}
	var stats []*TenderStatusStat
	if err := db.
		Select("status, COUNT(*) AS count, COALESCE(SUM(est_value_in_cr), 0) AS total_value").
		Group("status").
		Order("status ASC").
		Scan(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *tenderRepository) UpdateStatusFields(ctx context.Context, tenderID string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Tender{}).
		Where("tender_id = ?", tenderID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("更新招标状态失败: %w, tender_id: %s", res.Error, tenderID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: tender %s", model.ErrNotFound, tenderID)
	}
	return nil
}

func (r *tenderRepository) CreateClause(ctx context.Context, clause *model.TenderClause) error {
	if err := r.db.WithContext(ctx).Create(clause).Error; err != nil {
		return fmt.Errorf("保存条款失败: %w, clause_id: %s", err, clause.ClauseID)
	}
	return nil
}

func (r *tenderRepository) ListClauses(ctx context.Context, tenderID string) ([]*model.TenderClause, error) {
	var clauses []*model.TenderClause
	if err := r.db.WithContext(ctx).
		Where("tender_id = ?", tenderID).
		Order("clause_id ASC").
		Find(&clauses).Error; err != nil {
		return nil, err
	}
	return clauses, nil
}

func (r *tenderRepository) ListUnscoredClauses(ctx context.Context, tenderID string) ([]*model.TenderClause, error) {
	var clauses []*model.TenderClause
	if err := r.db.WithContext(ctx).
		Where("tender_id = ? AND restrictiveness_score IS NULL", tenderID).
		Order("clause_id ASC").
		Find(&clauses).Error; err != nil {
		return nil, err
	}
	return clauses, nil
}

func (r *tenderRepository) ListClausesAboveScore(ctx context.Context, threshold float64) ([]*model.TenderClause, error) {
	var clauses []*model.TenderClause
	if err := r.db.WithContext(ctx).
		Where("restrictiveness_score >= ?", threshold).
		Order("restrictiveness_score DESC").
		Find(&clauses).Error; err != nil {
		return nil, err
	}
	return clauses, nil
}

func (r *tenderRepository) CountClausesAboveScore(ctx context.Context, threshold float64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.TenderClause{}).
		Where("restrictiveness_score >= ?", threshold).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *tenderRepository) UpdateClauseScore(ctx context.Context, tenderID, clauseID string, score float64) error {
	res := r.db.WithContext(ctx).Model(&model.TenderClause{}).
		Where("tender_id = ? AND clause_id = ?", tenderID, clauseID).
		Update("restrictiveness_score", score)
	if res.Error != nil {
		return fmt.Errorf("更新条款分数失败: %w, clause_id: %s", res.Error, clauseID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: clause %s", model.ErrNotFound, clauseID)
	}
	return nil
}
