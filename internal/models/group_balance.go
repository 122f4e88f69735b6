package models

import "github.com/shopspring/decimal"

// GroupBalance is one user's running balance inside a group for a currency.
// Positive means the user is owed money, negative means the user owes.
type GroupBalance struct {
	BaseModel
	GroupID    uint64          `json:"groupID" gorm:"not null;uniqueIndex:idx_group_user_currency"`
	UserID     uint64          `json:"userID" gorm:"not null;index;uniqueIndex:idx_group_user_currency"`
	CurrencyID uint64          `json:"currencyID" gorm:"not null;uniqueIndex:idx_group_user_currency"`
	Balance    decimal.Decimal `json:"balance" gorm:"type:decimal(20,4);not null;default:0"`
	Group      Group           `json:"-" gorm:"foreignKey:GroupID"`
	User       User            `json:"-" gorm:"foreignKey:UserID"`
	Currency   Currency        `json:"-" gorm:"foreignKey:CurrencyID"`
}

func (GroupBalance) TableName() string {
	return "group_balances"
}
