package ledger

import (
	"context"
	"strings"

	"deedshare-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TotalBasisPoints is the whole of a property: 10000 basis points = 100%.
const TotalBasisPoints int64 = 10000

// Service is the sole writer of ownership partitions. All other components
// read balances through it or mutate them through the Tx functions below,
// always inside a single transaction per property.
type Service struct {
	DB *gorm.DB
}

// Normalize lowercases an address so partition lookups are case-insensitive.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ValidateSplit checks an owner split: non-empty, no duplicate addresses,
// every share positive, shares summing to exactly 10000.
func ValidateSplit(split domain.OwnerSplit) error {
	if len(split) == 0 {
		return ErrEmptyOwners
	}
	seen := make(map[string]struct{}, len(split))
	var sum int64
	for _, o := range split {
		addr := Normalize(o.Address)
		if addr == "" {
			return ErrEmptyOwners
		}
		if _, dup := seen[addr]; dup {
			return ErrDuplicateOwner
		}
		seen[addr] = struct{}{}
		if o.BasisPoints <= 0 {
			return ErrInvalidSplit
		}
		sum += o.BasisPoints
	}
	if sum != TotalBasisPoints {
		return ErrInvalidSplit
	}
	return nil
}

// EqualSplit builds a split over owners with equal shares; the remainder
// basis points go to the first owner so the sum stays exactly 10000.
func EqualSplit(owners []string) domain.OwnerSplit {
	n := int64(len(owners))
	if n == 0 {
		return nil
	}
	each := TotalBasisPoints / n
	split := make(domain.OwnerSplit, len(owners))
	for i, addr := range owners {
		split[i] = domain.OwnerShare{Address: Normalize(addr), BasisPoints: each}
	}
	split[0].BasisPoints += TotalBasisPoints - each*n
	return split
}

// lockPartition reads a property's stake rows under FOR UPDATE so the
// partition cannot change beneath the caller's transaction. Postgres blocks
// concurrent writers on the locked rows; sqlite ignores the clause and
// serializes writers itself.
func lockPartition(tx *gorm.DB, propertyID uint64) ([]domain.OwnershipStake, error) {
	var stakes []domain.OwnershipStake
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("property_id = ?", propertyID).Find(&stakes).Error
	return stakes, err
}

// MintTx creates the ownership partition for a property, exactly once.
// Must run inside the caller's transaction (request approval).
func MintTx(tx *gorm.DB, propertyID uint64, split domain.OwnerSplit) error {
	if err := ValidateSplit(split); err != nil {
		return err
	}
	existing, err := lockPartition(tx, propertyID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ErrAlreadyMinted
	}
	for _, o := range split {
		stake := domain.OwnershipStake{
			PropertyID:  propertyID,
			Owner:       Normalize(o.Address),
			BasisPoints: o.BasisPoints,
		}
		if err := tx.Create(&stake).Error; err != nil {
			return err
		}
	}
	return nil
}

// TransferTx moves basis points between two owners of a minted property.
// Both stakes change or neither; a drained sender row is deleted so the
// partition never carries zero-balance owners. The whole partition is read
// under FOR UPDATE: the balance arithmetic below uses the read values, so a
// concurrent writer must not slip between the read and the writes.
func TransferTx(tx *gorm.DB, propertyID uint64, from, to string, amount int64) error {
	from, to = Normalize(from), Normalize(to)
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSelfTransfer
	}

	stakes, err := lockPartition(tx, propertyID)
	if err != nil {
		return err
	}
	if len(stakes) == 0 {
		return ErrUnknownProperty
	}

	var sender, receiver *domain.OwnershipStake
	for i := range stakes {
		switch stakes[i].Owner {
		case from:
			sender = &stakes[i]
		case to:
			receiver = &stakes[i]
		}
	}
	if sender == nil || sender.BasisPoints < amount {
		return ErrInsufficientBalance
	}

	if sender.BasisPoints == amount {
		if err := tx.Delete(sender).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Model(sender).Update("basis_points", sender.BasisPoints-amount).Error; err != nil {
			return err
		}
	}

	if receiver == nil {
		stake := domain.OwnershipStake{PropertyID: propertyID, Owner: to, BasisPoints: amount}
		return tx.Create(&stake).Error
	}
	return tx.Model(receiver).Update("basis_points", receiver.BasisPoints+amount).Error
}

// ReplacePartitionTx wholesale-replaces a minted property's partition.
// The only operation that changes the owner set rather than just balances;
// used by mediated-transfer execution.
func ReplacePartitionTx(tx *gorm.DB, propertyID uint64, split domain.OwnerSplit) error {
	if err := ValidateSplit(split); err != nil {
		return err
	}
	existing, err := lockPartition(tx, propertyID)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return ErrUnknownProperty
	}
	if err := tx.Where("property_id = ?", propertyID).Delete(&domain.OwnershipStake{}).Error; err != nil {
		return err
	}
	for _, o := range split {
		stake := domain.OwnershipStake{
			PropertyID:  propertyID,
			Owner:       Normalize(o.Address),
			BasisPoints: o.BasisPoints,
		}
		if err := tx.Create(&stake).Error; err != nil {
			return err
		}
	}
	return nil
}

// BalanceOfTx reads an owner's basis points inside a transaction. Unknown
// owners hold 0.
func BalanceOfTx(tx *gorm.DB, propertyID uint64, owner string) (int64, error) {
	var stake domain.OwnershipStake
	err := tx.Where("property_id = ? AND owner = ?", propertyID, Normalize(owner)).First(&stake).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return stake.BasisPoints, nil
}

// PartitionTx reads a property's full partition in stable owner order.
func PartitionTx(tx *gorm.DB, propertyID uint64) (domain.OwnerSplit, error) {
	var stakes []domain.OwnershipStake
	if err := tx.Where("property_id = ?", propertyID).Order("owner ASC").Find(&stakes).Error; err != nil {
		return nil, err
	}
	split := make(domain.OwnerSplit, len(stakes))
	for i, s := range stakes {
		split[i] = domain.OwnerShare{Address: s.Owner, BasisPoints: s.BasisPoints}
	}
	return split, nil
}

// BalanceOf reads an owner's basis points from committed state.
func (s *Service) BalanceOf(ctx context.Context, propertyID uint64, owner string) (int64, error) {
	return BalanceOfTx(s.DB.WithContext(ctx), propertyID, owner)
}

// PartitionOf reads a property's committed partition; empty means unminted.
func (s *Service) PartitionOf(ctx context.Context, propertyID uint64) (domain.OwnerSplit, error) {
	return PartitionTx(s.DB.WithContext(ctx), propertyID)
}

// HoldingsOf lists every stake an address currently holds across properties
// (portfolio view).
func (s *Service) HoldingsOf(ctx context.Context, owner string) ([]domain.OwnershipStake, error) {
	var stakes []domain.OwnershipStake
	err := s.DB.WithContext(ctx).Where("owner = ?", Normalize(owner)).Order("property_id ASC").Find(&stakes).Error
	return stakes, err
}
