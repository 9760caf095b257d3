package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type syncFixture struct {
	db       *gorm.DB
	registry repository.RegistryRepository
	tenders  repository.TenderRepository
	bids     repository.BidRepository
	graph    repository.GraphRepository
	svc      *GraphSyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	db := newTestDB(t)
	f := &syncFixture{
		db:       db,
		registry: repository.NewRegistryRepository(db),
		tenders:  repository.NewTenderRepository(db),
		bids:     repository.NewBidRepository(db),
		graph:    repository.NewGraphRepository(db),
	}
	f.svc = NewGraphSyncService(f.registry, f.tenders, f.bids, f.graph, newTestLogger())
	return f
}

// seedCollusionScenario 两家公司共享归一化后相同的地址与董事，
// 同一来源指纹投标同一招标，一人持股两家公司，共享银行账户指纹。
// 第三家公司缺董事字段，应整体跳过。
func (f *syncFixture) seedCollusionScenario(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, f.registry.CreateCompany(ctx, &model.Company{
		CompanyID: "C001", Name: "Alpha Constructions",
		Address: "12 MG Road,  Pune 411001", Director: "R. Sharma",
	}))
	require.NoError(t, f.registry.CreateCompany(ctx, &model.Company{
		CompanyID: "C002", Name: "Beta Infra",
		Address: "12 mg road, pune 411001", Director: "r. sharma",
	}))
	require.NoError(t, f.registry.CreateCompany(ctx, &model.Company{
		CompanyID: "C003", Name: "Gamma Corp",
		Address: "7 FC Road, Pune", Director: "",
	}))

	publish := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for range []int{0, 1} {
		require.NoError(t, f.tenders.CreateWithSequence(ctx, &model.Tender{
			DeptName: "PWD", Year: 2026, Title: "道路工程",
			Location: "Pune", Pincode: "411001", EstValueInCr: 10,
			PublishDate: publish, Status: model.TenderStatusActive,
		}, nil))
	}

	bidDate := publish.AddDate(0, 0, 3)
	require.NoError(t, f.bids.Create(ctx, &model.Bid{
		BidID: "BID-1", TenderID: "PWD-2026-001", CompanyID: "C001",
		BidAmount: 9.5, BidDate: bidDate, IPAddress: "10.0.0.9", Status: model.BidStatusPending,
	}))
	require.NoError(t, f.bids.Create(ctx, &model.Bid{
		BidID: "BID-2", TenderID: "PWD-2026-001", CompanyID: "C002",
		BidAmount: 9.8, BidDate: bidDate, IPAddress: "10.0.0.9", Status: model.BidStatusPending,
	}))
	// 来源指纹为空：合法投标，但不参与来源检测
	require.NoError(t, f.bids.Create(ctx, &model.Bid{
		BidID: "BID-3", TenderID: "PWD-2026-002", CompanyID: "C001",
		BidAmount: 8.0, BidDate: bidDate, IPAddress: "", Status: model.BidStatusPending,
	}))

	require.NoError(t, f.registry.CreatePerson(ctx, &model.Person{
		PersonID: "P001", PersonName: "Rakesh Sharma",
		Companies: []model.PersonOwnership{
			{CompanyID: "C001", Designation: "Director", SharePercent: 60},
			{CompanyID: "C002", Designation: "Partner", SharePercent: 40},
		},
	}))

	require.NoError(t, f.registry.CreateFinancialTie(ctx, &model.FinancialTie{
		EntityID: "C001", EntityType: "company", BankAccHash: "bh-77",
	}))
	require.NoError(t, f.registry.CreateFinancialTie(ctx, &model.FinancialTie{
		EntityID: "C002", EntityType: "company", BankAccHash: "bh-77",
	}))
}

func TestSyncBuildsProjection(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCollusionScenario(t)
	ctx := context.Background()

	result, err := f.svc.Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Companies)
	assert.Equal(t, 2, result.Tenders)
	assert.Equal(t, 3, result.Bids)
	assert.Equal(t, 1, result.Persons)
	assert.Equal(t, 2, result.FinancialTies)
	// SAME_ADDRESS 与 SAME_DIRECTOR 各一条
	assert.Equal(t, 2, result.EqualityEdges)
	assert.Contains(t, result.SkippedRecords, "company:C003")
	assert.Zero(t, result.UpsertFailures)

	companies, err := f.graph.ListNodes(ctx, model.NodeCompany)
	require.NoError(t, err)
	assert.Len(t, companies, 2)

	// 归一化后相同的地址只产生一个 Address 节点
	addresses, err := f.graph.ListNodes(ctx, model.NodeAddress)
	require.NoError(t, err)
	assert.Len(t, addresses, 1)
	assert.Equal(t, "12 mg road, pune 411001", addresses[0].Key)

	sameAddr, err := f.graph.ListEdges(ctx, model.EdgeSameAddress)
	require.NoError(t, err)
	require.Len(t, sameAddr, 1)
	assert.Equal(t, "C001", sameAddr[0].FromKey) // 无序对按字典序定向
	assert.Equal(t, "C002", sameAddr[0].ToKey)

	// 空指纹投标不产生 SUBMITTED_FROM 边
	origins, err := f.graph.ListEdges(ctx, model.EdgeSubmittedFrom)
	require.NoError(t, err)
	assert.Len(t, origins, 2)

	owns, err := f.graph.ListEdges(ctx, model.EdgeOwns)
	require.NoError(t, err)
	assert.Len(t, owns, 2)

	bank, err := f.graph.ListEdges(ctx, model.EdgeHasBankAccount)
	require.NoError(t, err)
	assert.Len(t, bank, 2)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCollusionScenario(t)
	ctx := context.Background()

	first, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	nodesAfterFirst, err := f.graph.CountNodes(ctx)
	require.NoError(t, err)
	edgesAfterFirst, err := f.graph.CountEdges(ctx)
	require.NoError(t, err)

	second, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	nodesAfterSecond, err := f.graph.CountNodes(ctx)
	require.NoError(t, err)
	edgesAfterSecond, err := f.graph.CountEdges(ctx)
	require.NoError(t, err)
	assert.Equal(t, nodesAfterFirst, nodesAfterSecond)
	assert.Equal(t, edgesAfterFirst, edgesAfterSecond)
}

func TestSyncEqualityEdgesFollowSource(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCollusionScenario(t)
	ctx := context.Background()

	_, err := f.svc.Sync(ctx)
	require.NoError(t, err)

	// 源头地址改变后重算：等值边必须消失而不是残留
	require.NoError(t, f.db.Model(&model.Company{}).
		Where("company_id = ?", "C002").
		Update("address", "99 JM Road, Mumbai 400001").Error)

	_, err = f.svc.Sync(ctx)
	require.NoError(t, err)

	sameAddr, err := f.graph.ListEdges(ctx, model.EdgeSameAddress)
	require.NoError(t, err)
	assert.Empty(t, sameAddr)

	// 董事未变，SAME_DIRECTOR 仍在
	sameDir, err := f.graph.ListEdges(ctx, model.EdgeSameDirector)
	require.NoError(t, err)
	assert.Len(t, sameDir, 1)
}

// 投影是主库的纯函数：记录数超过任何分页上限时也必须全量入图
func TestSyncCoversAllRecords(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	publish := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	tenders := make([]*model.Tender, 0, 505)
	for i := 1; i <= 505; i++ {
		tenders = append(tenders, &model.Tender{
			TenderID: fmt.Sprintf("PWD-2026-%03d", i),
			DeptName: "PWD", Year: 2026, TenderNum: i,
			Title: "批量工程", Location: "Pune", Pincode: "411001",
			EstValueInCr: 1, PublishDate: publish, Status: model.TenderStatusActive,
		})
	}
	require.NoError(t, f.db.CreateInBatches(tenders, 100).Error)

	bids := make([]*model.Bid, 0, 520)
	for i := 1; i <= 520; i++ {
		bids = append(bids, &model.Bid{
			BidID:     fmt.Sprintf("BID-%04d", i),
			TenderID:  "PWD-2026-001",
			CompanyID: fmt.Sprintf("C%04d", i),
			BidAmount: float64(i), BidDate: publish,
			Status: model.BidStatusPending,
		})
	}
	require.NoError(t, f.db.CreateInBatches(bids, 100).Error)

	result, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 505, result.Tenders)
	assert.Equal(t, 520, result.Bids)

	edges, err := f.graph.ListEdges(ctx, model.EdgeBidOn)
	require.NoError(t, err)
	assert.Len(t, edges, 520)
}

func TestSyncFailsWhenStoreUnavailable(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCollusionScenario(t)

	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.svc.Sync(context.Background())
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}
