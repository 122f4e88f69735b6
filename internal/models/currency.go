package models

const DefaultCurrencyID uint64 = 1

type Currency struct {
	BaseModel
	Name   string `json:"name" gorm:"type:varchar(64);uniqueIndex;not null"`
	Symbol string `json:"symbol" gorm:"type:varchar(4);uniqueIndex;not null"`
}

func (Currency) TableName() string {
	return "currencies"
}
