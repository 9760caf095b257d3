package service

import (
	"context"
	"strings"
	"testing"

	"TenderGuard/internal/model"
	"TenderGuard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBidFixture(t *testing.T) (*BidService, *TenderService, *gorm.DB) {
	db := newTestDB(t)
	tenderRepo := repository.NewTenderRepository(db)
	bidRepo := repository.NewBidRepository(db)
	logger := newTestLogger()
	return NewBidService(bidRepo, tenderRepo, logger),
		NewTenderService(tenderRepo, &recordingEnqueuer{}, logger),
		db
}

// activeTender 创建并审批通过一个招标
func activeTender(t *testing.T, svc *TenderService) *model.Tender {
	t.Helper()
	ctx := context.Background()
	tender, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	tender, err = svc.Approve(ctx, tender.TenderID, "reviewer-1")
	require.NoError(t, err)
	return tender
}

func TestPlaceBid(t *testing.T) {
	bids, tenders, _ := newBidFixture(t)
	ctx := context.Background()
	tender := activeTender(t, tenders)

	bid, err := bids.Place(ctx, &PlaceBidRequest{
		TenderID:  tender.TenderID,
		CompanyID: "C001",
		BidAmount: 10.5,
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bid.BidID, "BID-"))
	assert.Equal(t, model.BidStatusPending, bid.Status)
	assert.False(t, bid.BidDate.IsZero())
}

func TestPlaceBidGuards(t *testing.T) {
	bids, tenders, _ := newBidFixture(t)
	ctx := context.Background()

	// 招标不存在
	_, err := bids.Place(ctx, &PlaceBidRequest{TenderID: "PWD-2026-999", CompanyID: "C001", BidAmount: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)

	// 非 active 招标不可投标
	pending, err := tenders.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = bids.Place(ctx, &PlaceBidRequest{TenderID: pending.TenderID, CompanyID: "C001", BidAmount: 1})
	assert.True(t, model.IsValidation(err))

	tender := activeTender(t, tenders)

	// 金额必须为正
	_, err = bids.Place(ctx, &PlaceBidRequest{TenderID: tender.TenderID, CompanyID: "C001", BidAmount: 0})
	assert.True(t, model.IsValidation(err))

	// 同一公司重复投标
	_, err = bids.Place(ctx, &PlaceBidRequest{TenderID: tender.TenderID, CompanyID: "C001", BidAmount: 5})
	require.NoError(t, err)
	_, err = bids.Place(ctx, &PlaceBidRequest{TenderID: tender.TenderID, CompanyID: "C001", BidAmount: 6})
	assert.True(t, model.IsValidation(err))
}

func TestListBidsByTenderSortedByAmount(t *testing.T) {
	bids, tenders, _ := newBidFixture(t)
	ctx := context.Background()
	tender := activeTender(t, tenders)

	for _, b := range []struct {
		company string
		amount  float64
	}{
		{"C002", 12.0},
		{"C001", 9.5},
		{"C003", 11.0},
	} {
		_, err := bids.Place(ctx, &PlaceBidRequest{TenderID: tender.TenderID, CompanyID: b.company, BidAmount: b.amount})
		require.NoError(t, err)
	}

	list, err := bids.ListByTender(ctx, tender.TenderID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "C001", list[0].CompanyID) // 低价在前
	assert.Equal(t, "C003", list[1].CompanyID)
	assert.Equal(t, "C002", list[2].CompanyID)
}

func TestListBidsByCompanyAnnotated(t *testing.T) {
	bids, tenders, _ := newBidFixture(t)
	ctx := context.Background()
	tender := activeTender(t, tenders)

	_, err := bids.Place(ctx, &PlaceBidRequest{TenderID: tender.TenderID, CompanyID: "C001", BidAmount: 7})
	require.NoError(t, err)

	views, err := bids.ListByCompany(ctx, "C001")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, tender.Title, views[0].TenderTitle)
	assert.Equal(t, model.TenderStatusActive, views[0].TenderStatus)
	assert.Equal(t, tender.EstValueInCr, views[0].EstValueInCr)
}

func TestUpdateBidStatus(t *testing.T) {
	bids, tenders, _ := newBidFixture(t)
	ctx := context.Background()
	tender := activeTender(t, tenders)

	bid, err := bids.Place(ctx, &PlaceBidRequest{TenderID: tender.TenderID, CompanyID: "C001", BidAmount: 7})
	require.NoError(t, err)

	assert.True(t, model.IsValidation(bids.UpdateStatus(ctx, bid.BidID, "approved")))
	require.NoError(t, bids.UpdateStatus(ctx, bid.BidID, model.BidStatusWinner))
	assert.ErrorIs(t, bids.UpdateStatus(ctx, "BID-unknown", model.BidStatusWinner), model.ErrNotFound)
}
