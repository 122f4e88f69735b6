package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Settlement is the outcome of zeroing one debt row.
type Settlement struct {
	PayerID    uint64
	PayeeID    uint64
	GroupID    uint64
	CurrencyID uint64
	Amount     decimal.Decimal
}

type DebtLedger struct{}

func NewDebtLedger() *DebtLedger {
	return &DebtLedger{}
}

// Canonical orders a pair so the lower id comes first. sign is -1 when the
// input order was flipped, +1 otherwise.
func Canonical(a, b uint64) (low, high uint64, sign int32) {
	if a <= b {
		return a, b, 1
	}
	return b, a, -1
}

// ApplyDelta records that userA is owed delta by userB in the given group and
// currency. The stored row is canonical, so the sign flips when userA > userB.
func (l *DebtLedger) ApplyDelta(tx *gorm.DB, userA, userB, groupID, currencyID uint64, delta decimal.Decimal) (decimal.Decimal, error) {
	if userA == userB {
		return decimal.Zero, validationError("debt between user %d and itself", userA)
	}
	low, high, sign := Canonical(userA, userB)
	if sign < 0 {
		delta = delta.Neg()
	}

	seed := models.Debt{
		UserID1:    low,
		UserID2:    high,
		GroupID:    groupID,
		CurrencyID: currencyID,
		Amount:     decimal.Zero,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return decimal.Zero, fmt.Errorf("seed debt: %w", err)
	}

	var row models.Debt
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id1 = ? AND user_id2 = ? AND group_id = ? AND currency_id = ?", low, high, groupID, currencyID).
		First(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("lock debt: %w", err)
	}

	row.Amount = row.Amount.Add(delta)
	if err := tx.Model(&row).Update("amount", row.Amount).Error; err != nil {
		return decimal.Zero, fmt.Errorf("update debt: %w", err)
	}
	return row.Amount, nil
}

// NonZeroBetween returns every unsettled row between two users across all
// groups and currencies, locked for update.
func (l *DebtLedger) NonZeroBetween(tx *gorm.DB, userA, userB uint64) ([]models.Debt, error) {
	low, high, _ := Canonical(userA, userB)
	var rows []models.Debt
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id1 = ? AND user_id2 = ? AND amount <> 0", low, high).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	return rows, nil
}

// Settle zeroes the row and reports who pays whom. A negative amount means
// user1 owes user2, so user1 pays.
func (l *DebtLedger) Settle(tx *gorm.DB, debt *models.Debt) (Settlement, error) {
	if debt.Amount.IsZero() {
		return Settlement{}, fmt.Errorf("%w: debt %d is already settled", ErrNothingToSettle, debt.ID)
	}

	s := Settlement{
		GroupID:    debt.GroupID,
		CurrencyID: debt.CurrencyID,
		Amount:     debt.Amount.Abs(),
	}
	if debt.Amount.IsNegative() {
		s.PayerID, s.PayeeID = debt.UserID1, debt.UserID2
	} else {
		s.PayerID, s.PayeeID = debt.UserID2, debt.UserID1
	}

	if err := tx.Model(debt).Update("amount", decimal.Zero).Error; err != nil {
		return Settlement{}, fmt.Errorf("zero debt: %w", err)
	}
	debt.Amount = decimal.Zero
	return s, nil
}

// ForUser lists every nonzero row touching userID.
func (l *DebtLedger) ForUser(db *gorm.DB, userID uint64) ([]models.Debt, error) {
	var rows []models.Debt
	err := db.Preload("User1").Preload("User2").Preload("Group").Preload("Currency").
		Where("(user_id1 = ? OR user_id2 = ?) AND amount <> 0", userID, userID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load debts: %w", err)
	}
	return rows, nil
}
