package ledger

import (
	"context"
	"testing"

	"deedshare-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Property{}, &domain.OwnershipStake{}))
	return db
}

func sumPartition(t *testing.T, db *gorm.DB, propertyID uint64) int64 {
	split, err := PartitionTx(db, propertyID)
	require.NoError(t, err)
	var sum int64
	for _, o := range split {
		sum += o.BasisPoints
	}
	return sum
}

func TestValidateSplit(t *testing.T) {
	cases := []struct {
		name  string
		split domain.OwnerSplit
		want  error
	}{
		{"valid two-way", domain.OwnerSplit{{Address: "0xa", BasisPoints: 6000}, {Address: "0xb", BasisPoints: 4000}}, nil},
		{"valid sole owner", domain.OwnerSplit{{Address: "0xa", BasisPoints: 10000}}, nil},
		{"empty", domain.OwnerSplit{}, ErrEmptyOwners},
		{"sum short", domain.OwnerSplit{{Address: "0xa", BasisPoints: 9999}}, ErrInvalidSplit},
		{"sum over", domain.OwnerSplit{{Address: "0xa", BasisPoints: 6000}, {Address: "0xb", BasisPoints: 5000}}, ErrInvalidSplit},
		{"zero share", domain.OwnerSplit{{Address: "0xa", BasisPoints: 0}, {Address: "0xb", BasisPoints: 10000}}, ErrInvalidSplit},
		{"negative share", domain.OwnerSplit{{Address: "0xa", BasisPoints: -1}, {Address: "0xb", BasisPoints: 10001}}, ErrInvalidSplit},
		{"duplicate owner", domain.OwnerSplit{{Address: "0xa", BasisPoints: 5000}, {Address: "0xA", BasisPoints: 5000}}, ErrDuplicateOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSplit(tc.split)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestEqualSplit_RemainderToFirst(t *testing.T) {
	split := EqualSplit([]string{"0xA", "0xb", "0xc"})
	require.Len(t, split, 3)
	assert.Equal(t, int64(3334), split[0].BasisPoints)
	assert.Equal(t, int64(3333), split[1].BasisPoints)
	assert.Equal(t, int64(3333), split[2].BasisPoints)
	assert.Equal(t, "0xa", split[0].Address)
	assert.NoError(t, ValidateSplit(split))
}

func TestMintTx_OnlyOnce(t *testing.T) {
	db := setupLedgerTest(t)
	split := domain.OwnerSplit{{Address: "0xa", BasisPoints: 7000}, {Address: "0xb", BasisPoints: 3000}}

	require.NoError(t, MintTx(db, 1, split))
	assert.Equal(t, int64(10000), sumPartition(t, db, 1))

	err := MintTx(db, 1, split)
	assert.ErrorIs(t, err, ErrAlreadyMinted)
}

func TestTransferTx_MovesBalance(t *testing.T) {
	db := setupLedgerTest(t)
	require.NoError(t, MintTx(db, 1, domain.OwnerSplit{
		{Address: "0xa", BasisPoints: 7000},
		{Address: "0xb", BasisPoints: 3000},
	}))

	require.NoError(t, TransferTx(db, 1, "0xA", "0xC", 2000))

	a, err := BalanceOfTx(db, 1, "0xa")
	require.NoError(t, err)
	c, err := BalanceOfTx(db, 1, "0xc")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), a)
	assert.Equal(t, int64(2000), c)
	assert.Equal(t, int64(10000), sumPartition(t, db, 1))
}

func TestTransferTx_DrainedSenderLeavesPartition(t *testing.T) {
	db := setupLedgerTest(t)
	require.NoError(t, MintTx(db, 1, domain.OwnerSplit{
		{Address: "0xa", BasisPoints: 9000},
		{Address: "0xb", BasisPoints: 1000},
	}))

	require.NoError(t, TransferTx(db, 1, "0xb", "0xa", 1000))

	split, err := PartitionTx(db, 1)
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.Equal(t, "0xa", split[0].Address)
	assert.Equal(t, int64(10000), split[0].BasisPoints)
}

func TestTransferTx_Errors(t *testing.T) {
	db := setupLedgerTest(t)
	require.NoError(t, MintTx(db, 1, domain.OwnerSplit{{Address: "0xa", BasisPoints: 10000}}))

	assert.ErrorIs(t, TransferTx(db, 1, "0xa", "0xb", 0), ErrInvalidAmount)
	assert.ErrorIs(t, TransferTx(db, 1, "0xa", "0xb", -5), ErrInvalidAmount)
	assert.ErrorIs(t, TransferTx(db, 1, "0xa", "0xA", 100), ErrSelfTransfer)
	assert.ErrorIs(t, TransferTx(db, 99, "0xa", "0xb", 100), ErrUnknownProperty)
	assert.ErrorIs(t, TransferTx(db, 1, "0xa", "0xb", 10001), ErrInsufficientBalance)
	assert.ErrorIs(t, TransferTx(db, 1, "0xc", "0xb", 100), ErrInsufficientBalance)
}

func TestReplacePartitionTx(t *testing.T) {
	db := setupLedgerTest(t)
	require.NoError(t, MintTx(db, 1, domain.OwnerSplit{
		{Address: "0xa", BasisPoints: 5000},
		{Address: "0xb", BasisPoints: 5000},
	}))

	next := domain.OwnerSplit{{Address: "0xc", BasisPoints: 10000}}
	require.NoError(t, ReplacePartitionTx(db, 1, next))

	split, err := PartitionTx(db, 1)
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.Equal(t, "0xc", split[0].Address)
	assert.Equal(t, int64(10000), sumPartition(t, db, 1))

	assert.ErrorIs(t, ReplacePartitionTx(db, 99, next), ErrUnknownProperty)
	assert.ErrorIs(t, ReplacePartitionTx(db, 1, domain.OwnerSplit{{Address: "0xd", BasisPoints: 9000}}), ErrInvalidSplit)
}

func TestBalanceOf_UnknownOwnerIsZero(t *testing.T) {
	db := setupLedgerTest(t)
	require.NoError(t, MintTx(db, 1, domain.OwnerSplit{{Address: "0xa", BasisPoints: 10000}}))

	svc := &Service{DB: db}
	bal, err := svc.BalanceOf(context.Background(), 1, "0xnobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	bal, err = svc.BalanceOf(context.Background(), 42, "0xa")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestHoldingsOf_AcrossProperties(t *testing.T) {
	db := setupLedgerTest(t)
	require.NoError(t, MintTx(db, 1, domain.OwnerSplit{{Address: "0xa", BasisPoints: 10000}}))
	require.NoError(t, MintTx(db, 2, domain.OwnerSplit{
		{Address: "0xa", BasisPoints: 2500},
		{Address: "0xb", BasisPoints: 7500},
	}))

	svc := &Service{DB: db}
	stakes, err := svc.HoldingsOf(context.Background(), "0xA")
	require.NoError(t, err)
	require.Len(t, stakes, 2)
	assert.Equal(t, uint64(1), stakes[0].PropertyID)
	assert.Equal(t, uint64(2), stakes[1].PropertyID)
	assert.Equal(t, int64(2500), stakes[1].BasisPoints)
}
