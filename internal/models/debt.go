package models

import "github.com/shopspring/decimal"

// Debt is the net amount between two users in one group and currency.
// UserID1 is always the lower id. Amount > 0 means UserID2 owes UserID1,
// Amount < 0 means UserID1 owes UserID2.
type Debt struct {
	BaseModel
	UserID1    uint64          `json:"userID1" gorm:"column:user_id1;not null;index;uniqueIndex:idx_debt_pair"`
	UserID2    uint64          `json:"userID2" gorm:"column:user_id2;not null;index;uniqueIndex:idx_debt_pair"`
	GroupID    uint64          `json:"groupID" gorm:"not null;uniqueIndex:idx_debt_pair"`
	CurrencyID uint64          `json:"currencyID" gorm:"not null;uniqueIndex:idx_debt_pair"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(20,4);not null;default:0"`
	User1      User            `json:"-" gorm:"foreignKey:UserID1"`
	User2      User            `json:"-" gorm:"foreignKey:UserID2"`
	Group      Group           `json:"-" gorm:"foreignKey:GroupID"`
	Currency   Currency        `json:"-" gorm:"foreignKey:CurrencyID"`
}

func (Debt) TableName() string {
	return "debts"
}
