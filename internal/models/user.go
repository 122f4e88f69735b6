package models

const (
	DefaultTimezone = "America/Los_Angeles"
	DefaultLanguage = "en"
)

type User struct {
	BaseModel
	Name             string            `json:"name" gorm:"type:varchar(64);not null"`
	Email            string            `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash     string            `json:"-" gorm:"type:text;not null"`
	CurrencyID       uint64            `json:"currencyID" gorm:"not null;default:1;index"`
	Number           *string           `json:"number,omitempty" gorm:"type:varchar(10)"`
	Timezone         string            `json:"timezone" gorm:"type:varchar(64);not null;default:'America/Los_Angeles'"`
	Language         string            `json:"language" gorm:"type:varchar(64);not null;default:'en'"`
	Image            *string           `json:"image,omitempty" gorm:"type:text"`
	Currency         Currency          `json:"currency,omitempty" gorm:"foreignKey:CurrencyID"`
	GroupMemberships []GroupMembership `json:"-" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}
