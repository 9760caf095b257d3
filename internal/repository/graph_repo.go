package repository

import (
	"context"
	"fmt"

	"TenderGuard/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GraphRepository 图投影仓储。投影是主库的派生索引：只有 Sync 写入，检测器只读。
// 读写失败统一包装为 ErrStoreUnavailable，供聚合器转为 error 状态而非静默丢弃。
type GraphRepository interface {
	// Ping 连通性检查。Sync 入口先探测，失败对整次调用致命。
	Ping(ctx context.Context) error
	// UpsertNode (kind, key) 冲突时覆盖 label/props，不产生重复节点
	UpsertNode(ctx context.Context, n *model.GraphNode) error
	// UpsertEdge (kind, from, to) 冲突时覆盖 props，不产生重复边
	UpsertEdge(ctx context.Context, e *model.GraphEdge) error
	// DeleteEdgesByKind 等值边重算前清除旧边，保证边集是公司集合的纯函数
	DeleteEdgesByKind(ctx context.Context, kinds ...string) error
	ListNodes(ctx context.Context, kind string) ([]*model.GraphNode, error)
	ListEdges(ctx context.Context, kind string) ([]*model.GraphEdge, error)
	CountNodes(ctx context.Context) (int64, error)
	CountEdges(ctx context.Context) (int64, error)
}

type graphRepository struct {
	db *gorm.DB
}

// NewGraphRepository 创建 GraphRepository 实例
func NewGraphRepository(db *gorm.DB) GraphRepository {
	return &graphRepository{db: db}
}

func (r *graphRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *graphRepository) UpsertNode(ctx context.Context, n *model.GraphNode) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "props"}),
	}).Create(n).Error; err != nil {
		return fmt.Errorf("upsert节点失败: %w, kind: %s, key: %s", err, n.Kind, n.Key)
	}
	return nil
}

func (r *graphRepository) UpsertEdge(ctx context.Context, e *model.GraphEdge) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "kind"}, {Name: "from_kind"}, {Name: "from_key"}, {Name: "to_kind"}, {Name: "to_key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"props"}),
	}).Create(e).Error; err != nil {
		return fmt.Errorf("upsert边失败: %w, kind: %s, %s→%s", err, e.Kind, e.FromKey, e.ToKey)
	}
	return nil
}

func (r *graphRepository) DeleteEdgesByKind(ctx context.Context, kinds ...string) error {
	if len(kinds) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("kind IN ?", kinds).
		Delete(&model.GraphEdge{}).Error; err != nil {
		return fmt.Errorf("删除边失败: %w, kinds: %v", err, kinds)
	}
	return nil
}

func (r *graphRepository) ListNodes(ctx context.Context, kind string) ([]*model.GraphNode, error) {
	var nodes []*model.GraphNode
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("key ASC").
		Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("%w: 查询节点失败: %v", model.ErrStoreUnavailable, err)
	}
	return nodes, nil
}

func (r *graphRepository) ListEdges(ctx context.Context, kind string) ([]*model.GraphEdge, error) {
	var edges []*model.GraphEdge
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("from_key ASC, to_key ASC").
		Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("%w: 查询边失败: %v", model.ErrStoreUnavailable, err)
	}
	return edges, nil
}

func (r *graphRepository) CountNodes(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.GraphNode{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *graphRepository) CountEdges(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.GraphEdge{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
