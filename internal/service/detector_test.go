package service

import (
	"context"
	"testing"

	"TenderGuard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// detectorFixture 在内存库上建好投影后返回检测服务
func detectorFixture(t *testing.T) (*DetectorService, *syncFixture) {
	f := newSyncFixture(t)
	f.seedCollusionScenario(t)
	_, err := f.svc.Sync(context.Background())
	require.NoError(t, err)
	return NewDetectorService(f.graph, newTestLogger()), f
}

func TestDetectAddressCollusion(t *testing.T) {
	det, _ := detectorFixture(t)

	findings, err := det.DetectAddressCollusion(context.Background())
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, 2, f.Count)
	require.Len(t, f.Companies, 2)
	assert.Equal(t, "C001", f.Companies[0].CompanyID)
	assert.Equal(t, "C002", f.Companies[1].CompanyID)
	assert.Equal(t, "Alpha Constructions", f.Companies[0].CompanyName)
	// 展示地址取公司ID最小者（C001）的原始拼写
	assert.Equal(t, "12 MG Road,  Pune 411001", f.Address)
}

// 展示地址与登记顺序无关，始终取公司ID最小者的拼写
func TestDetectAddressCollusionDisplayIsStable(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	// 故意先登记ID较大的公司
	require.NoError(t, f.registry.CreateCompany(ctx, &model.Company{
		CompanyID: "C900", Name: "Zeta Traders",
		Address: "5  JM ROAD, Pune", Director: "A. Kulkarni",
	}))
	require.NoError(t, f.registry.CreateCompany(ctx, &model.Company{
		CompanyID: "C100", Name: "Delta Works",
		Address: "5 JM Road, Pune", Director: "B. Joshi",
	}))
	_, err := f.svc.Sync(ctx)
	require.NoError(t, err)

	det := NewDetectorService(f.graph, newTestLogger())
	findings, err := det.DetectAddressCollusion(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "5 JM Road, Pune", findings[0].Address)
}

func TestDetectSubmissionNetworkCollusion(t *testing.T) {
	det, _ := detectorFixture(t)

	findings, err := det.DetectSubmissionNetworkCollusion(context.Background())
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "10.0.0.9", f.IPAddress)
	assert.Equal(t, 2, f.Count)
	require.Len(t, f.Bids, 2)
	assert.Equal(t, "C001", f.Bids[0].CompanyID)
	assert.Equal(t, "BID-1", f.Bids[0].BidID)
	assert.Equal(t, "C002", f.Bids[1].CompanyID)
}

func TestDetectSharedOwnership(t *testing.T) {
	det, _ := detectorFixture(t)

	findings, err := det.DetectSharedOwnership(context.Background())
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "P001", f.PersonID)
	assert.Equal(t, "Rakesh Sharma", f.PersonName)
	assert.Equal(t, 2, f.Count)
	require.Len(t, f.Companies, 2)
	assert.Equal(t, "C001", f.Companies[0].CompanyID)
	assert.Equal(t, "Director", f.Companies[0].Designation)
	assert.Equal(t, 60.0, f.Companies[0].SharePercent)
}

func TestDetectFinancialTies(t *testing.T) {
	det, _ := detectorFixture(t)

	report, err := det.DetectFinancialTies(context.Background())
	require.NoError(t, err)

	require.Len(t, report.BankAccounts, 1)
	assert.Equal(t, "bh-77", report.BankAccounts[0].InstrumentID)
	assert.Equal(t, 2, report.BankAccounts[0].Count)
	assert.Empty(t, report.Notaries)
	assert.Empty(t, report.EscrowAccounts)
}

// 单独持有某工具的公司不构成发现
func TestDetectFinancialTiesIgnoresSingletons(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	require.NoError(t, f.registry.CreateCompany(ctx, &model.Company{
		CompanyID: "C010", Name: "Solo Ltd", Address: "1 Lake View, Nashik", Director: "K. Rao",
	}))
	require.NoError(t, f.registry.CreateFinancialTie(ctx, &model.FinancialTie{
		EntityID: "C010", EntityType: "company", BankAccHash: "bh-solo", NotaryID: "N-1",
	}))
	_, err := f.svc.Sync(ctx)
	require.NoError(t, err)

	det := NewDetectorService(f.graph, newTestLogger())
	report, err := det.DetectFinancialTies(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.BankAccounts)
	assert.Empty(t, report.Notaries)
	assert.Empty(t, report.EscrowAccounts)
}

// 投影为空时四个检测都应返回空集而非错误
func TestDetectorsOnEmptyProjection(t *testing.T) {
	f := newSyncFixture(t)
	det := NewDetectorService(f.graph, newTestLogger())
	ctx := context.Background()

	addr, err := det.DetectAddressCollusion(ctx)
	require.NoError(t, err)
	assert.Empty(t, addr)

	ip, err := det.DetectSubmissionNetworkCollusion(ctx)
	require.NoError(t, err)
	assert.Empty(t, ip)

	own, err := det.DetectSharedOwnership(ctx)
	require.NoError(t, err)
	assert.Empty(t, own)

	report, err := det.DetectFinancialTies(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.BankAccounts)
}
