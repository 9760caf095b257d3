package repository

import (
	"context"
	"fmt"

	"TenderGuard/internal/model"

	"gorm.io/gorm"
)

// RegistryRepository 主库登记实体仓储（公司/人员/金融关联）。
// 本仓储只服务登记CRUD与图同步读取，图投影永远不反向写回主库。
type RegistryRepository interface {
	CreateCompany(ctx context.Context, c *model.Company) error
	ListCompanies(ctx context.Context) ([]*model.Company, error)
	CreatePerson(ctx context.Context, p *model.Person) error
	// ListPersons 预加载持股记录，按原始顺序返回
	ListPersons(ctx context.Context) ([]*model.Person, error)
	CreateFinancialTie(ctx context.Context, t *model.FinancialTie) error
	ListFinancialTies(ctx context.Context) ([]*model.FinancialTie, error)
}

type registryRepository struct {
	db *gorm.DB
}

// NewRegistryRepository 创建 RegistryRepository 实例
func NewRegistryRepository(db *gorm.DB) RegistryRepository {
	return &registryRepository{db: db}
}

func (r *registryRepository) CreateCompany(ctx context.Context, c *model.Company) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("保存公司失败: %w, company_id: %s", err, c.CompanyID)
	}
	return nil
}

func (r *registryRepository) ListCompanies(ctx context.Context) ([]*model.Company, error) {
	var companies []*model.Company
	if err := r.db.WithContext(ctx).Order("company_id ASC").Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// CreatePerson 人员与持股记录同事务入库，Position 记录原始顺序
func (r *registryRepository) CreatePerson(ctx context.Context, p *model.Person) error {
	for i := range p.Companies {
		p.Companies[i].PersonID = p.PersonID
		p.Companies[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("保存人员失败: %w, person_id: %s", err, p.PersonID)
	}
	return nil
}

func (r *registryRepository) ListPersons(ctx context.Context) ([]*model.Person, error) {
	var persons []*model.Person
	if err := r.db.WithContext(ctx).
		Preload("Companies", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("person_id ASC").
		Find(&persons).Error; err != nil {
		return nil, err
	}
	return persons, nil
}

func (r *registryRepository) CreateFinancialTie(ctx context.Context, t *model.FinancialTie) error {
	if t.EntityType == "" {
		t.EntityType = "company"
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("保存金融关联失败: %w, entity_id: %s", err, t.EntityID)
	}
	return nil
}

func (r *registryRepository) ListFinancialTies(ctx context.Context) ([]*model.FinancialTie, error) {
	var ties []*model.FinancialTie
	if err := r.db.WithContext(ctx).Order("entity_id ASC").Find(&ties).Error; err != nil {
		return nil, err
	}
	return ties, nil
}
