package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxGroupNameLength = 64

type MembershipService struct {
	DB       *gorm.DB
	balances *BalanceLedger
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{DB: db, balances: NewBalanceLedger()}
}

func normalizeGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupNameLength {
		return "", validationError("group name must be 1-%d characters", maxGroupNameLength)
	}
	return name, nil
}

// CreateGroup creates the group with the creator as its only accepted member
// and a pending invite for every id in memberIDs.
func (s *MembershipService) CreateGroup(ctx context.Context, creatorID uint64, name string, memberIDs []uint64) (*models.Group, error) {
	name, err := normalizeGroupName(name)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(memberIDs))
	members := make([]uint64, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id == creatorID {
			return nil, validationError("cannot invite yourself")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil, validationError("at least one member is required")
	}

	group := &models.Group{Name: name, CreatedByID: creatorID, GroupStrength: 1}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Group{}).Where("LOWER(name) = LOWER(?)", name).Count(&taken).Error; err != nil {
			return fmt.Errorf("check group name: %w", err)
		}
		if taken > 0 {
			return fmt.Errorf("%w: group %q", ErrDuplicateName, name)
		}

		ids := append([]uint64{creatorID}, members...)
		var found int64
		if err := tx.Model(&models.User{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return fmt.Errorf("check members: %w", err)
		}
		if found != int64(len(ids)) {
			return ErrInvalidMember
		}

		if err := tx.Create(group).Error; err != nil {
			return translateStorageError("create group", err)
		}

		rows := make([]models.GroupMembership, 0, len(members)+1)
		rows = append(rows, models.GroupMembership{GroupID: group.ID, UserID: creatorID, Status: models.MembershipInviteAccepted})
		for _, id := range members {
			rows = append(rows, models.GroupMembership{GroupID: group.ID, UserID: id, Status: models.MembershipInviteSent})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return translateStorageError("create memberships", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(creatorID, "group_created", map[string]interface{}{
		"group_id": group.ID,
		"name":     group.Name,
		"invited":  members,
	})
	return group, nil
}

// Invite adds a pending invite, or reopens a rejected or left membership row.
func (s *MembershipService) Invite(ctx context.Context, groupID, userID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockGroup(tx, groupID); err != nil {
			return err
		}
		var user models.User
		if err := tx.Select("id").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidMember
			}
			return fmt.Errorf("load user: %w", err)
		}

		var m models.GroupMembership
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m = models.GroupMembership{GroupID: groupID, UserID: userID, Status: models.MembershipInviteSent}
			return translateStorageError("create invite", tx.Create(&m).Error)
		}
		if err != nil {
			return fmt.Errorf("load membership: %w", err)
		}
		if !m.Status.IsTerminal() {
			return validationError("user %d already has an open membership", userID)
		}
		return tx.Model(&m).Update("status", models.MembershipInviteSent).Error
	})
}

func (s *MembershipService) Accept(ctx context.Context, groupID, userID uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockGroup(tx, groupID); err != nil {
			return err
		}
		m, err := findMembership(tx, groupID, userID, models.MembershipInviteSent)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchInvite
			}
			return err
		}
		if err := tx.Model(m).Update("status", models.MembershipInviteAccepted).Error; err != nil {
			return fmt.Errorf("accept invite: %w", err)
		}
		return adjustStrength(tx, groupID, 1)
	})
	if err != nil {
		return err
	}
	logger.InfoWithUser(userID, "invite_accepted", map[string]interface{}{"group_id": groupID})
	return nil
}

func (s *MembershipService) Reject(ctx context.Context, groupID, userID uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := findMembership(tx, groupID, userID, models.MembershipInviteSent)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchInvite
			}
			return err
		}
		return tx.Model(m).Update("status", models.MembershipInviteRejected).Error
	})
	if err != nil {
		return err
	}
	logger.InfoWithUser(userID, "invite_rejected", map[string]interface{}{"group_id": groupID})
	return nil
}

// Leave requires every balance the user holds in the group to be zero.
func (s *MembershipService) Leave(ctx context.Context, groupID, userID uint64) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockGroup(tx, groupID); err != nil {
			return err
		}
		m, err := findMembership(tx, groupID, userID, models.MembershipInviteAccepted)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: not an active member", ErrInvalidGroup)
			}
			return err
		}

		rows, err := s.balances.ForUserInGroup(tx, groupID, userID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if !row.Balance.IsZero() {
				return ErrBalancesNotSettled
			}
		}

		if err := tx.Model(m).Update("status", models.MembershipLeftGroup).Error; err != nil {
			return fmt.Errorf("leave group: %w", err)
		}
		return adjustStrength(tx, groupID, -1)
	})
	if err != nil {
		return err
	}
	logger.InfoWithUser(userID, "group_left", map[string]interface{}{"group_id": groupID})
	return nil
}

func (s *MembershipService) IsActiveMember(ctx context.Context, groupID, userID uint64) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipInviteAccepted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}

func (s *MembershipService) ActiveMemberIDs(ctx context.Context, groupID uint64) ([]uint64, error) {
	return activeMemberIDs(s.DB.WithContext(ctx), groupID)
}

func (s *MembershipService) GetGroup(ctx context.Context, groupID uint64) (*models.Group, error) {
	var group models.Group
	err := s.DB.WithContext(ctx).
		Preload("Memberships", "status = ?", models.MembershipInviteAccepted).
		Preload("Memberships.User").
		First(&group, groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidGroup
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	return &group, nil
}

// UpdateGroup renames the group and/or replaces its image key. Only active
// members may edit.
func (s *MembershipService) UpdateGroup(ctx context.Context, groupID, userID uint64, name string, image *string) (*models.Group, error) {
	updates := map[string]interface{}{}
	if name != "" {
		normalized, err := normalizeGroupName(name)
		if err != nil {
			return nil, err
		}
		updates["name"] = normalized
	}
	if image != nil {
		updates["image"] = *image
	}
	if len(updates) == 0 {
		return nil, validationError("nothing to update")
	}

	var group *models.Group
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if group, err = lockGroup(tx, groupID); err != nil {
			return err
		}
		if _, err := findMembership(tx, groupID, userID, models.MembershipInviteAccepted); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAMember
			}
			return err
		}
		if newName, ok := updates["name"]; ok {
			var taken int64
			if err := tx.Model(&models.Group{}).
				Where("LOWER(name) = LOWER(?) AND id <> ?", newName, groupID).
				Count(&taken).Error; err != nil {
				return fmt.Errorf("check group name: %w", err)
			}
			if taken > 0 {
				return fmt.Errorf("%w: group %q", ErrDuplicateName, newName)
			}
		}
		if err := tx.Model(group).Updates(updates).Error; err != nil {
			return translateStorageError("update group", err)
		}
		return tx.First(group, groupID).Error
	})
	if err != nil {
		return nil, err
	}
	logger.InfoWithUser(userID, "group_updated", map[string]interface{}{"group_id": groupID})
	return group, nil
}

// ListGroups returns the groups the user is an active member of, optionally
// filtered by a name keyword.
func (s *MembershipService) ListGroups(ctx context.Context, userID uint64, keyword string) ([]models.Group, error) {
	query := s.DB.WithContext(ctx).
		Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.user_id = ? AND group_memberships.status = ?", userID, models.MembershipInviteAccepted)
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		query = query.Where("LOWER(groups.name) LIKE ?", "%"+strings.ToLower(keyword)+"%")
	}
	var groups []models.Group
	if err := query.Order("groups.name ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *MembershipService) ListInvitations(ctx context.Context, userID uint64) ([]models.GroupMembership, error) {
	var rows []models.GroupMembership
	err := s.DB.WithContext(ctx).
		Preload("Group").
		Preload("Group.CreatedBy").
		Where("user_id = ? AND status = ?", userID, models.MembershipInviteSent).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return rows, nil
}

func lockGroup(tx *gorm.DB, groupID uint64) (*models.Group, error) {
	var group models.Group
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&group, groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidGroup
	}
	if err != nil {
		return nil, fmt.Errorf("lock group: %w", err)
	}
	return &group, nil
}

func findMembership(tx *gorm.DB, groupID, userID uint64, status models.MembershipStatus) (*models.GroupMembership, error) {
	var m models.GroupMembership
	err := tx.Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, status).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load membership: %w", err)
	}
	return &m, nil
}

func adjustStrength(tx *gorm.DB, groupID uint64, by int) error {
	err := tx.Model(&models.Group{}).Where("id = ?", groupID).
		Update("group_strength", gorm.Expr("group_strength + ?", by)).Error
	if err != nil {
		return fmt.Errorf("update group strength: %w", err)
	}
	return nil
}

func activeMemberIDs(db *gorm.DB, groupID uint64) ([]uint64, error) {
	var ids []uint64
	err := db.Model(&models.GroupMembership{}).
		Where("group_id = ? AND status = ?", groupID, models.MembershipInviteAccepted).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load active members: %w", err)
	}
	return ids, nil
}
