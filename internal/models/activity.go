package models

import "github.com/shopspring/decimal"

// Activity is an append-only snapshot of a user's balances right after a
// financial event. Rows are never updated.
type Activity struct {
	BaseModel
	UserID         uint64          `json:"userID" gorm:"not null;index:idx_activity_user_currency"`
	CurrencyID     uint64          `json:"currencyID" gorm:"not null;index:idx_activity_user_currency"`
	ExpenseID      uint64          `json:"expenseID" gorm:"not null;index"`
	TotalBalance   decimal.Decimal `json:"totalBalance" gorm:"type:decimal(20,4);not null"`
	GroupBalance   decimal.Decimal `json:"groupBalance" gorm:"type:decimal(20,4);not null"`
	ExpenseBalance decimal.Decimal `json:"expenseBalance" gorm:"type:decimal(20,4);not null"`
	Expense        Expense         `json:"-" gorm:"foreignKey:ExpenseID"`
	User           User            `json:"-" gorm:"foreignKey:UserID"`
	Currency       Currency        `json:"-" gorm:"foreignKey:CurrencyID"`
}

func (Activity) TableName() string {
	return "activities"
}
