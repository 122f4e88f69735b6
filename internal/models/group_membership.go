package models

// MembershipStatus is the invitation lifecycle of one (group, user) row.
// INVITE_SENT moves to INVITE_ACCEPTED or INVITE_REJECTED; INVITE_ACCEPTED
// moves to LEFT_GROUP. Only INVITE_ACCEPTED rows count toward group strength.
type MembershipStatus string

const (
	MembershipInviteSent     MembershipStatus = "INVITE_SENT"
	MembershipInviteAccepted MembershipStatus = "INVITE_ACCEPTED"
	MembershipInviteRejected MembershipStatus = "INVITE_REJECTED"
	MembershipLeftGroup      MembershipStatus = "LEFT_GROUP"
)

func (s MembershipStatus) IsActive() bool {
	return s == MembershipInviteAccepted
}

func (s MembershipStatus) IsTerminal() bool {
	return s == MembershipInviteRejected || s == MembershipLeftGroup
}

type GroupMembership struct {
	BaseModel
	UserID  uint64           `json:"userID" gorm:"not null;index;uniqueIndex:idx_group_user"`
	GroupID uint64           `json:"groupID" gorm:"not null;index;uniqueIndex:idx_group_user"`
	Status  MembershipStatus `json:"status" gorm:"type:varchar(20);not null;default:'INVITE_SENT'"`
	User    User             `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Group   Group            `json:"group,omitempty" gorm:"foreignKey:GroupID"`
}

func (GroupMembership) TableName() string {
	return "group_memberships"
}
