package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotAMember         = errors.New("user is not an active member of the group")
	ErrNoSuchInvite       = errors.New("no pending invite for this group")
	ErrInvalidGroup       = errors.New("invalid group")
	ErrBalancesNotSettled = errors.New("balances in this group are not settled")
	ErrNothingToSettle    = errors.New("nothing to settle")
	ErrDuplicateName      = errors.New("name already taken")
	ErrInvalidMember      = errors.New("member does not exist")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translateStorageError maps gorm errors that carry domain meaning onto the
// sentinel taxonomy and wraps the rest with the failing action.
func translateStorageError(action string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s", ErrDuplicateName, action)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s", ErrInvalidMember, action)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

// isDomainError reports whether err belongs to the caller-facing taxonomy.
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrNotAMember, ErrNoSuchInvite, ErrInvalidGroup,
		ErrBalancesNotSettled, ErrNothingToSettle, ErrDuplicateName, ErrInvalidMember,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
