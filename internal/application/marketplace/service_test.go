package marketplace

import (
	"context"
	"math"
	"testing"

	"deedshare-backend/internal/application/ledger"
	"deedshare-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupMarketTest(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Property{}, &domain.OwnershipStake{},
		&domain.Listing{}, &domain.LedgerEvent{},
	))
	// 0xseller 7000 / 0xother 3000 on property 1
	require.NoError(t, ledger.MintTx(db, 1, domain.OwnerSplit{
		{Address: "0xseller", BasisPoints: 7000},
		{Address: "0xother", BasisPoints: 3000},
	}))
	return &Service{DB: db}
}

func TestCreateListing_ChecksBalance(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xSELLER", 5000, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingActive, listing.Status)
	assert.Equal(t, int64(5000), listing.Remaining)
	assert.Equal(t, "0xseller", listing.Seller)

	// Listing does not debit the ledger.
	bal, err := ledger.BalanceOfTx(s.DB, 1, "0xseller")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), bal)

	_, err = s.CreateListing(ctx, 1, "0xseller", 8000, 2)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, err = s.CreateListing(ctx, 1, "0xseller", 0, 2)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = s.CreateListing(ctx, 1, "0xseller", 100, 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	// Prices that could overflow a fill's cost are rejected up front.
	_, err = s.CreateListing(ctx, 1, "0xseller", 100, math.MaxInt64)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = s.CreateListing(ctx, 1, "0xseller", 100, math.MaxInt64/ledger.TotalBasisPoints+1)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestBuy_PartialFill(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xseller", 5000, 2)
	require.NoError(t, err)

	result, err := s.Buy(ctx, listing.ListingID, "0xbuyer", 2000, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), result.Cost)
	assert.Equal(t, int64(0), result.Change)
	assert.Equal(t, int64(3000), result.Remaining)
	assert.Equal(t, domain.ListingActive, result.Status)

	sellerBal, _ := ledger.BalanceOfTx(s.DB, 1, "0xseller")
	buyerBal, _ := ledger.BalanceOfTx(s.DB, 1, "0xbuyer")
	assert.Equal(t, int64(5000), sellerBal)
	assert.Equal(t, int64(2000), buyerBal)

	split, err := ledger.PartitionTx(s.DB, 1)
	require.NoError(t, err)
	var sum int64
	for _, o := range split {
		sum += o.BasisPoints
	}
	assert.Equal(t, int64(10000), sum)
}

func TestBuy_FullFillClosesListing(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xseller", 3000, 5)
	require.NoError(t, err)

	result, err := s.Buy(ctx, listing.ListingID, "0xbuyer", 3000, 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), result.Cost)
	assert.Equal(t, int64(5000), result.Change)
	assert.Equal(t, int64(0), result.Remaining)
	assert.Equal(t, domain.ListingSold, result.Status)

	_, err = s.Buy(ctx, listing.ListingID, "0xbuyer2", 1, 10)
	assert.ErrorIs(t, err, ErrListingNotActive)
}

func TestBuy_AmountAndPaymentBounds(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xseller", 1000, 3)
	require.NoError(t, err)

	_, err = s.Buy(ctx, listing.ListingID, "0xbuyer", 0, 100)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = s.Buy(ctx, listing.ListingID, "0xbuyer", 1001, 100000)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = s.Buy(ctx, listing.ListingID, "0xbuyer", 1000, 2999)
	assert.ErrorIs(t, err, ErrInsufficientPayment)

	_, err = s.Buy(ctx, 999, "0xbuyer", 100, 300)
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestBuy_RechecksSellerBalance(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xseller", 5000, 2)
	require.NoError(t, err)

	// Seller moves shares out after listing; the offer is now backed by
	// less than it promises.
	require.NoError(t, ledger.TransferTx(s.DB, 1, "0xseller", "0xelsewhere", 6000))

	_, err = s.Buy(ctx, listing.ListingID, "0xbuyer", 5000, 10000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// The failed buy rolled back whole: listing untouched, buyer got nothing.
	got, err := s.GetListing(ctx, listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingActive, got.Status)
	assert.Equal(t, int64(5000), got.Remaining)
	buyerBal, _ := ledger.BalanceOfTx(s.DB, 1, "0xbuyer")
	assert.Equal(t, int64(0), buyerBal)

	// A smaller fill within the seller's remaining balance still works.
	result, err := s.Buy(ctx, listing.ListingID, "0xbuyer", 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), result.Remaining)
}

func TestBuy_TwoListingsOneSellerConserve(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	// Both listings pass the create-time balance check against the same
	// 7000; together they promise more than the seller holds.
	l1, err := s.CreateListing(ctx, 1, "0xseller", 4000, 2)
	require.NoError(t, err)
	l2, err := s.CreateListing(ctx, 1, "0xseller", 4000, 2)
	require.NoError(t, err)

	_, err = s.Buy(ctx, l1.ListingID, "0xzoe", 4000, 8000)
	require.NoError(t, err)

	// The second fill settles against the seller's live balance of 3000,
	// not the 7000 both listings were created against.
	_, err = s.Buy(ctx, l2.ListingID, "0xwill", 4000, 8000)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	result, err := s.Buy(ctx, l2.ListingID, "0xwill", 3000, 6000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), result.Remaining)

	split, err := ledger.PartitionTx(s.DB, 1)
	require.NoError(t, err)
	var sum int64
	for _, o := range split {
		sum += o.BasisPoints
		assert.NotEqual(t, "0xseller", o.Address)
	}
	assert.Equal(t, int64(10000), sum)
}

func TestBuy_SellerCannotBuyOwnListing(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xseller", 1000, 2)
	require.NoError(t, err)

	_, err = s.Buy(ctx, listing.ListingID, "0xSELLER", 500, 1000)
	assert.ErrorIs(t, err, ledger.ErrSelfTransfer)
}

func TestCancelListing_SellerOnly(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	listing, err := s.CreateListing(ctx, 1, "0xseller", 1000, 2)
	require.NoError(t, err)

	_, err = s.CancelListing(ctx, listing.ListingID, "0xother")
	assert.ErrorIs(t, err, ErrUnauthorized)

	cancelled, err := s.CancelListing(ctx, listing.ListingID, "0xSeller")
	require.NoError(t, err)
	assert.Equal(t, domain.ListingCancelled, cancelled.Status)

	_, err = s.CancelListing(ctx, listing.ListingID, "0xseller")
	assert.ErrorIs(t, err, ErrListingNotActive)

	_, err = s.Buy(ctx, listing.ListingID, "0xbuyer", 100, 200)
	assert.ErrorIs(t, err, ErrListingNotActive)
}

func TestListingQueries(t *testing.T) {
	s := setupMarketTest(t)
	ctx := context.Background()

	l1, err := s.CreateListing(ctx, 1, "0xseller", 1000, 2)
	require.NoError(t, err)
	_, err = s.CreateListing(ctx, 1, "0xother", 500, 3)
	require.NoError(t, err)
	_, err = s.CancelListing(ctx, l1.ListingID, "0xseller")
	require.NoError(t, err)

	active, err := s.GetActiveListings(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	mine, err := s.GetSellerListings(ctx, "0xSELLER")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	byProp, err := s.GetPropertyListings(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byProp, 2)
}
