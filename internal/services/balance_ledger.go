package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BalanceLedger accumulates per (group, user, currency) running balances.
// Every method takes the caller's transaction handle.
type BalanceLedger struct{}

func NewBalanceLedger() *BalanceLedger {
	return &BalanceLedger{}
}

// ApplyDelta adds delta to the (group, user, currency) row, creating it at zero
// first if absent, and returns the new balance. The row is read under a row lock
// so concurrent writers on the same key serialize.
func (l *BalanceLedger) ApplyDelta(tx *gorm.DB, groupID, userID, currencyID uint64, delta decimal.Decimal) (decimal.Decimal, error) {
	seed := models.GroupBalance{
		GroupID:    groupID,
		UserID:     userID,
		CurrencyID: currencyID,
		Balance:    decimal.Zero,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return decimal.Zero, fmt.Errorf("seed group balance: %w", err)
	}

	var row models.GroupBalance
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ? AND user_id = ? AND currency_id = ?", groupID, userID, currencyID).
		First(&row).Error; err != nil {
		return decimal.Zero, fmt.Errorf("lock group balance: %w", err)
	}

	row.Balance = row.Balance.Add(delta)
	if err := tx.Model(&row).Update("balance", row.Balance).Error; err != nil {
		return decimal.Zero, fmt.Errorf("update group balance: %w", err)
	}
	return row.Balance, nil
}

func (l *BalanceLedger) ForUserInGroup(tx *gorm.DB, groupID, userID uint64) ([]models.GroupBalance, error) {
	var rows []models.GroupBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Order("currency_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load group balances: %w", err)
	}
	return rows, nil
}

func (l *BalanceLedger) ForGroup(db *gorm.DB, groupID uint64) ([]models.GroupBalance, error) {
	var rows []models.GroupBalance
	err := db.Preload("User").Preload("Currency").
		Where("group_id = ?", groupID).
		Order("currency_id ASC, user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load group balances: %w", err)
	}
	return rows, nil
}
