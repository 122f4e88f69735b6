package models

type Group struct {
	BaseModel
	Name          string            `json:"name" gorm:"type:varchar(64);uniqueIndex;not null"`
	Image         *string           `json:"image,omitempty" gorm:"type:text"`
	GroupStrength int               `json:"groupStrength" gorm:"not null;default:1"`
	CreatedByID   uint64            `json:"createdBy" gorm:"column:created_by;not null;index"`
	CreatedBy     User              `json:"-" gorm:"foreignKey:CreatedByID"`
	Memberships   []GroupMembership `json:"memberships,omitempty" gorm:"foreignKey:GroupID"`
}

func (Group) TableName() string {
	return "groups"
}
