package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/events"
	"github.com/splitledger/backend/internal/metrics"
	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/pkg/logger"
	"gorm.io/gorm"
)

// MoneyScale is the number of decimal places every stored amount carries.
const MoneyScale = 4

const maxDescriptionLength = 64

// maxAmount is the first value that no longer fits decimal(20,4).
var maxAmount = decimal.New(1, 20-MoneyScale)

type ExpenseInput struct {
	GroupID     uint64
	PayerID     uint64
	CurrencyID  uint64
	Description string
	Amount      decimal.Decimal
}

// LedgerService applies expenses and settle-ups to the balance, debt and
// activity ledgers. Each call is one transaction.
type LedgerService struct {
	DB         *gorm.DB
	Balances   *BalanceLedger
	Debts      *DebtLedger
	Activities *ActivityLog
	publisher  events.Publisher
	metrics    *metrics.Ledger
}

func NewLedgerService(db *gorm.DB, publisher events.Publisher, m *metrics.Ledger) *LedgerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &LedgerService{
		DB:         db,
		Balances:   NewBalanceLedger(),
		Debts:      NewDebtLedger(),
		Activities: NewActivityLog(),
		publisher:  publisher,
		metrics:    m,
	}
}

// SplitShare divides amount into n equal shares rounded to MoneyScale and
// returns the share together with what the payer is credited, share*(n-1).
func SplitShare(amount decimal.Decimal, n int) (share, payerCredit decimal.Decimal) {
	if n <= 1 {
		return decimal.Zero, decimal.Zero
	}
	share = amount.DivRound(decimal.NewFromInt(int64(n)), MoneyScale)
	return share, share.Mul(decimal.NewFromInt(int64(n - 1)))
}

func (in *ExpenseInput) validate() error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" || utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return validationError("description must be 1-%d characters", maxDescriptionLength)
	}
	if !in.Amount.IsPositive() {
		return validationError("amount must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(MoneyScale)) {
		return validationError("amount supports at most %d decimal places", MoneyScale)
	}
	if in.Amount.GreaterThanOrEqual(maxAmount) {
		return validationError("amount must be less than %s", maxAmount.String())
	}
	if in.GroupID == 0 || in.PayerID == 0 || in.CurrencyID == 0 {
		return validationError("group, payer and currency are required")
	}
	return nil
}

// RecordExpense splits in.Amount equally across the group's active members,
// with the payer owed a share by every other member.
func (s *LedgerService) RecordExpense(ctx context.Context, in ExpenseInput) (expense *models.Expense, err error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { s.metrics.ObserveTx("record_expense", start, err) }()

	var (
		members []uint64
		share   decimal.Decimal
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, in.GroupID)
		if err != nil {
			return err
		}
		if err := s.currencyExists(tx, in.CurrencyID); err != nil {
			return err
		}

		members, err = activeMemberIDs(tx, in.GroupID)
		if err != nil {
			return err
		}
		if !containsID(members, in.PayerID) {
			return ErrNotAMember
		}
		n := group.GroupStrength
		if n != len(members) {
			return fmt.Errorf("group %d strength %d does not match %d active members", group.ID, n, len(members))
		}

		var credit decimal.Decimal
		share, credit = SplitShare(in.Amount, n)

		expense = &models.Expense{
			Description: in.Description,
			Amount:      in.Amount,
			GroupID:     in.GroupID,
			PaidByID:    in.PayerID,
			CurrencyID:  in.CurrencyID,
		}
		if err := tx.Create(expense).Error; err != nil {
			return translateStorageError("create expense", err)
		}

		for _, m := range members {
			if m == in.PayerID {
				continue
			}
			if _, err := s.Debts.ApplyDelta(tx, in.PayerID, m, in.GroupID, in.CurrencyID, share); err != nil {
				return err
			}
			if _, err := s.Balances.ApplyDelta(tx, in.GroupID, m, in.CurrencyID, share.Neg()); err != nil {
				return err
			}
		}
		if _, err := s.Balances.ApplyDelta(tx, in.GroupID, in.PayerID, in.CurrencyID, credit); err != nil {
			return err
		}

		for _, m := range members {
			if m == in.PayerID {
				continue
			}
			if _, err := s.Activities.Thread(tx, m, expense, share.Neg(), share.Neg()); err != nil {
				return err
			}
		}
		_, err = s.Activities.Thread(tx, in.PayerID, expense, credit, credit)
		return err
	})
	if err != nil {
		s.logFailure(in.PayerID, "expense_record_failed", err, map[string]interface{}{
			"group_id": in.GroupID,
			"amount":   in.Amount.String(),
		})
		return nil, err
	}

	s.metrics.ExpenseRecorded()
	logger.InfoWithUser(in.PayerID, "expense_recorded", map[string]interface{}{
		"expense_id": expense.ID,
		"group_id":   expense.GroupID,
		"amount":     expense.Amount.String(),
		"share":      share.String(),
		"members":    len(members),
	})
	s.publish(ctx, events.TopicExpenseRecorded, events.ExpenseRecorded{
		ExpenseID:    expense.ID,
		GroupID:      expense.GroupID,
		PayerID:      expense.PaidByID,
		CurrencyID:   expense.CurrencyID,
		Description:  expense.Description,
		Amount:       expense.Amount,
		Share:        share,
		Participants: members,
		OccurredAt:   expense.CreatedAt,
	})
	return expense, nil
}

// SettleUp zeroes every nonzero debt between the two users, across all groups
// and currencies, recording one settlement expense per debt row.
func (s *LedgerService) SettleUp(ctx context.Context, requesterID, counterpartyID uint64) (settled []models.Expense, err error) {
	if requesterID == counterpartyID {
		return nil, validationError("cannot settle with yourself")
	}

	start := time.Now()
	defer func() { s.metrics.ObserveTx("settle_up", start, err) }()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		debts, err := s.Debts.NonZeroBetween(tx, requesterID, counterpartyID)
		if err != nil {
			return err
		}
		if len(debts) == 0 {
			return ErrNothingToSettle
		}

		settled = make([]models.Expense, 0, len(debts))
		for i := range debts {
			expense, err := s.settleDebt(tx, &debts[i])
			if err != nil {
				return err
			}
			settled = append(settled, *expense)
		}
		return nil
	})
	if err != nil {
		s.logFailure(requesterID, "settle_up_failed", err, map[string]interface{}{
			"counterparty_id": counterpartyID,
		})
		return nil, err
	}

	s.metrics.SettlementsRecorded(len(settled))
	logger.InfoWithUser(requesterID, "settled_up", map[string]interface{}{
		"counterparty_id": counterpartyID,
		"settlements":     len(settled),
	})
	for _, e := range settled {
		s.publish(ctx, events.TopicBalanceSettled, events.BalanceSettled{
			ExpenseID:  e.ID,
			GroupID:    e.GroupID,
			PayerID:    e.PaidByID,
			PayeeID:    *e.SettledWithID,
			CurrencyID: e.CurrencyID,
			Amount:     e.Amount,
			OccurredAt: e.CreatedAt,
		})
	}
	return settled, nil
}

func (s *LedgerService) settleDebt(tx *gorm.DB, debt *models.Debt) (*models.Expense, error) {
	st, err := s.Debts.Settle(tx, debt)
	if err != nil {
		return nil, err
	}

	payee := st.PayeeID
	expense := &models.Expense{
		Description:   models.SettleDescription,
		Amount:        st.Amount,
		GroupID:       st.GroupID,
		PaidByID:      st.PayerID,
		CurrencyID:    st.CurrencyID,
		SettledWithID: &payee,
	}
	if err := tx.Create(expense).Error; err != nil {
		return nil, translateStorageError("create settlement", err)
	}

	if _, err := s.Balances.ApplyDelta(tx, st.GroupID, st.PayerID, st.CurrencyID, st.Amount); err != nil {
		return nil, err
	}
	if _, err := s.Balances.ApplyDelta(tx, st.GroupID, st.PayeeID, st.CurrencyID, st.Amount.Neg()); err != nil {
		return nil, err
	}

	if _, err := s.Activities.Thread(tx, st.PayerID, expense, st.Amount, decimal.Zero); err != nil {
		return nil, err
	}
	if _, err := s.Activities.Thread(tx, st.PayeeID, expense, st.Amount.Neg(), decimal.Zero); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *LedgerService) currencyExists(tx *gorm.DB, currencyID uint64) error {
	var count int64
	if err := tx.Model(&models.Currency{}).Where("id = ?", currencyID).Count(&count).Error; err != nil {
		return fmt.Errorf("check currency: %w", err)
	}
	if count == 0 {
		return validationError("unknown currency %d", currencyID)
	}
	return nil
}

// publish runs after commit; a delivery failure is logged, the ledger write stands.
func (s *LedgerService) publish(ctx context.Context, topic string, payload interface{}) {
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logger.Error("event_publish_failed", err, map[string]interface{}{"topic": topic})
	}
}

func (s *LedgerService) logFailure(userID uint64, action string, err error, details map[string]interface{}) {
	if isDomainError(err) {
		details["reason"] = err.Error()
		logger.WarnWithUser(userID, action, details)
		return
	}
	logger.ErrorWithUser(userID, action, err, details)
}

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
