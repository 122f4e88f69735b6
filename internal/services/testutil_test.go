package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/models"
	"gorm.io/gorm"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Currency{},
		&models.User{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Expense{},
		&models.GroupBalance{},
		&models.Debt{},
		&models.Activity{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	for _, c := range []models.Currency{{Name: "US Dollar", Symbol: "$"}, {Name: "Euro", Symbol: "€"}} {
		c := c
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("failed seeding currency: %v", err)
		}
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@test.com", name),
		PasswordHash: "hash",
		CurrencyID:   models.DefaultCurrencyID,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", name, err)
	}
	return user
}

// createActiveGroup creates a group owned by members[0] with every other
// member already accepted.
func createActiveGroup(t *testing.T, db *gorm.DB, name string, members ...*models.User) *models.Group {
	t.Helper()
	ms := NewMembershipService(db)
	ctx := context.Background()

	ids := make([]uint64, 0, len(members)-1)
	for _, m := range members[1:] {
		ids = append(ids, m.ID)
	}
	group, err := ms.CreateGroup(ctx, members[0].ID, name, ids)
	if err != nil {
		t.Fatalf("failed creating group %s: %v", name, err)
	}
	for _, id := range ids {
		if err := ms.Accept(ctx, group.ID, id); err != nil {
			t.Fatalf("failed accepting invite for %d: %v", id, err)
		}
	}
	return group
}

func balanceOf(t *testing.T, db *gorm.DB, groupID, userID, currencyID uint64) decimal.Decimal {
	t.Helper()
	var row models.GroupBalance
	err := db.Where("group_id = ? AND user_id = ? AND currency_id = ?", groupID, userID, currencyID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero
	}
	if err != nil {
		t.Fatalf("failed loading balance: %v", err)
	}
	return row.Balance
}

// debtFrom returns the debt between a and b in a's perspective: positive
// means b owes a.
func debtFrom(t *testing.T, db *gorm.DB, a, b, groupID, currencyID uint64) decimal.Decimal {
	t.Helper()
	low, high, sign := Canonical(a, b)
	var row models.Debt
	err := db.Where("user_id1 = ? AND user_id2 = ? AND group_id = ? AND currency_id = ?", low, high, groupID, currencyID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero
	}
	if err != nil {
		t.Fatalf("failed loading debt: %v", err)
	}
	if sign < 0 {
		return row.Amount.Neg()
	}
	return row.Amount
}

func assertDecimal(t *testing.T, label string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", label, got.String(), want)
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
