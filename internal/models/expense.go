package models

import "github.com/shopspring/decimal"

const SettleDescription = "Settle balance"

type Expense struct {
	BaseModel
	Description string          `json:"description" gorm:"type:varchar(64);not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:decimal(20,4);not null"`
	GroupID     uint64          `json:"groupID" gorm:"not null;index"`
	PaidByID    uint64          `json:"paidByUserID" gorm:"column:paid_by_user_id;not null;index"`
	CurrencyID  uint64          `json:"currencyID" gorm:"not null;index"`
	// SettledWithID is the payee when this row records a settle-up; nil for
	// ordinary expenses.
	SettledWithID *uint64  `json:"settledWithUserID,omitempty" gorm:"column:settled_with_user_id;index"`
	Group         Group    `json:"-" gorm:"foreignKey:GroupID"`
	PaidBy        User     `json:"-" gorm:"foreignKey:PaidByID"`
	SettledWith   *User    `json:"-" gorm:"foreignKey:SettledWithID"`
	Currency      Currency `json:"-" gorm:"foreignKey:CurrencyID"`
}

func (e *Expense) IsSettlement() bool {
	return e.SettledWithID != nil && *e.SettledWithID != 0
}

func (Expense) TableName() string {
	return "expenses"
}
