package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/splitledger/backend/internal/config"
	"github.com/splitledger/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var defaultCurrencies = []models.Currency{
	{Name: "US Dollar", Symbol: "$"},
	{Name: "Euro", Symbol: "€"},
	{Name: "British Pound", Symbol: "£"},
	{Name: "Indian Rupee", Symbol: "₹"},
	{Name: "Japanese Yen", Symbol: "¥"},
	{Name: "Canadian Dollar", Symbol: "C$"},
	{Name: "Australian Dollar", Symbol: "A$"},
}

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormCfg)
		if err == nil {
			// a single writer connection serializes ledger transactions
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				sqlDB.SetMaxOpenConns(1)
			}
		}
	case config.DriverPostgres, "":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := seedCurrencies(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Currency{},
		&models.User{},
		&models.Group{},
		&models.GroupMembership{},
		&models.Expense{},
		&models.GroupBalance{},
		&models.Debt{},
		&models.Activity{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}

	constraints := `
DO $$
BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'debt_canonical_pair_check') THEN
    ALTER TABLE debts ADD CONSTRAINT debt_canonical_pair_check CHECK (user_id1 < user_id2);
  END IF;
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'expense_amount_positive_check') THEN
    ALTER TABLE expenses ADD CONSTRAINT expense_amount_positive_check CHECK (amount > 0);
  END IF;
END $$;`

	return db.Exec(constraints).Error
}

func seedCurrencies(db *gorm.DB) error {
	rows := make([]models.Currency, len(defaultCurrencies))
	copy(rows, defaultCurrencies)
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
