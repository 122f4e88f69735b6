package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/models"
	"gorm.io/gorm"
)

// ActivityLog appends balance snapshots and reads back the latest one.
// Running totals are threaded from these rows, never recomputed from history.
type ActivityLog struct{}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

func (l *ActivityLog) Record(tx *gorm.DB, userID, currencyID, expenseID uint64, total, group, expense decimal.Decimal) (*models.Activity, error) {
	row := &models.Activity{
		UserID:         userID,
		CurrencyID:     currencyID,
		ExpenseID:      expenseID,
		TotalBalance:   total,
		GroupBalance:   group,
		ExpenseBalance: expense,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}
	return row, nil
}

// MostRecent returns the latest activity for (user, currency), ignoring rows
// tied to excludeExpenseID. Returns nil, nil when there is none.
func (l *ActivityLog) MostRecent(tx *gorm.DB, userID, currencyID, excludeExpenseID uint64) (*models.Activity, error) {
	var row models.Activity
	err := tx.Where("user_id = ? AND currency_id = ? AND expense_id <> ?", userID, currencyID, excludeExpenseID).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest activity: %w", err)
	}
	return &row, nil
}

func (l *ActivityLog) MostRecentInGroup(tx *gorm.DB, userID, currencyID, groupID, excludeExpenseID uint64) (*models.Activity, error) {
	var row models.Activity
	err := tx.Joins("JOIN expenses ON expenses.id = activities.expense_id").
		Where("activities.user_id = ? AND activities.currency_id = ? AND expenses.group_id = ? AND activities.expense_id <> ?",
			userID, currencyID, groupID, excludeExpenseID).
		Order("activities.created_at DESC, activities.id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest group activity: %w", err)
	}
	return &row, nil
}

// Thread appends the snapshot for one participant of expense. delta moves the
// running totals; expenseBalance is stored as-is.
func (l *ActivityLog) Thread(tx *gorm.DB, userID uint64, expense *models.Expense, delta, expenseBalance decimal.Decimal) (*models.Activity, error) {
	prev, err := l.MostRecent(tx, userID, expense.CurrencyID, expense.ID)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return l.Record(tx, userID, expense.CurrencyID, expense.ID, delta, delta, expenseBalance)
	}

	total := prev.TotalBalance.Add(delta)
	group := delta
	prevGroup, err := l.MostRecentInGroup(tx, userID, expense.CurrencyID, expense.GroupID, expense.ID)
	if err != nil {
		return nil, err
	}
	if prevGroup != nil {
		group = prevGroup.GroupBalance.Add(delta)
	}
	return l.Record(tx, userID, expense.CurrencyID, expense.ID, total, group, expenseBalance)
}
