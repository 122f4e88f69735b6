package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const displayScale = 2

// FormatMoney renders an unsigned amount with its currency symbol.
func FormatMoney(symbol string, amount decimal.Decimal) string {
	return symbol + amount.Abs().StringFixed(displayScale)
}

// BalanceStatement phrases a signed group balance. It returns "" for zero.
func BalanceStatement(symbol string, balance decimal.Decimal) string {
	switch balance.Sign() {
	case 1:
		return "gets back " + FormatMoney(symbol, balance)
	case -1:
		return "owes " + FormatMoney(symbol, balance)
	default:
		return ""
	}
}

type GroupBalanceLine struct {
	UserID     uint64          `json:"userId"`
	Name       string          `json:"name"`
	Image      *string         `json:"image,omitempty"`
	CurrencyID uint64          `json:"currencyId"`
	Balance    decimal.Decimal `json:"balance"`
	Statement  string          `json:"groupStatement"`
}

type DebtGroupLine struct {
	GroupID   uint64          `json:"groupId"`
	GroupName string          `json:"groupName"`
	Amount    decimal.Decimal `json:"amount"`
	Statement string          `json:"statement"`
}

// DebtLine is the net position with one counterparty in one currency.
// Amount is positive when the counterparty owes the viewer.
type DebtLine struct {
	CounterpartyID   uint64          `json:"userId"`
	CounterpartyName string          `json:"name"`
	CurrencyID       uint64          `json:"currencyId"`
	Symbol           string          `json:"symbol"`
	Amount           decimal.Decimal `json:"amount"`
	Statement        string          `json:"statement"`
	Groups           []DebtGroupLine `json:"groups"`
}

type FeedItem struct {
	ActivityID     uint64          `json:"id"`
	ExpenseID      uint64          `json:"expenseId"`
	GroupID        uint64          `json:"groupId"`
	GroupName      string          `json:"groupName"`
	Symbol         string          `json:"symbol"`
	Message        string          `json:"message"`
	Statement      string          `json:"statement"`
	TotalBalance   decimal.Decimal `json:"totalBalance"`
	GroupBalance   decimal.Decimal `json:"groupBalance"`
	ExpenseBalance decimal.Decimal `json:"expenseBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type CurrencyTotal struct {
	CurrencyID uint64          `json:"currencyId"`
	Symbol     string          `json:"symbol"`
	YouOwe     decimal.Decimal `json:"youOwe"`
	YouAreOwed decimal.Decimal `json:"youAreOwed"`
	Net        decimal.Decimal `json:"net"`
	// LastTotal is the running total of the newest activity in this currency.
	LastTotal decimal.Decimal `json:"lastTotal"`
}

type Dashboard struct {
	Totals []CurrencyTotal `json:"totals"`
	Debts  []DebtLine      `json:"debts"`
}

type ExpenseLine struct {
	ID              uint64          `json:"id"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	DisplayAmount   string          `json:"displayAmount"`
	PaidByUserID    uint64          `json:"paidByUserId"`
	PaidByUserName  string          `json:"paidByUserName"`
	SettledWithName string          `json:"settledWithUserName,omitempty"`
	Month           string          `json:"month"`
	Day             string          `json:"day"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// SummaryService turns ledger rows into the statements shown to users. It
// never writes.
type SummaryService struct {
	DB       *gorm.DB
	balances *BalanceLedger
	debts    *DebtLedger
}

func NewSummaryService(db *gorm.DB) *SummaryService {
	return &SummaryService{DB: db, balances: NewBalanceLedger(), debts: NewDebtLedger()}
}

func (s *SummaryService) GroupBalances(ctx context.Context, groupID uint64) ([]GroupBalanceLine, error) {
	rows, err := s.balances.ForGroup(s.DB.WithContext(ctx), groupID)
	if err != nil {
		return nil, err
	}
	lines := make([]GroupBalanceLine, 0, len(rows))
	for _, row := range rows {
		if row.Balance.IsZero() {
			continue
		}
		lines = append(lines, GroupBalanceLine{
			UserID:     row.UserID,
			Name:       row.User.Name,
			Image:      row.User.Image,
			CurrencyID: row.CurrencyID,
			Balance:    row.Balance,
			Statement:  BalanceStatement(row.Currency.Symbol, row.Balance),
		})
	}
	return lines, nil
}

func (s *SummaryService) Debts(ctx context.Context, userID uint64) ([]DebtLine, error) {
	rows, err := s.debts.ForUser(s.DB.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return aggregateDebts(userID, rows), nil
}

func aggregateDebts(userID uint64, rows []models.Debt) []DebtLine {
	type key struct{ counterparty, currency uint64 }
	byKey := map[key]*DebtLine{}
	var order []key

	for _, row := range rows {
		// amount > 0 means user2 owes user1
		amount := row.Amount
		counterparty := row.User2
		if row.UserID2 == userID {
			amount = amount.Neg()
			counterparty = row.User1
		}

		k := key{counterparty.ID, row.CurrencyID}
		line, ok := byKey[k]
		if !ok {
			line = &DebtLine{
				CounterpartyID:   counterparty.ID,
				CounterpartyName: counterparty.Name,
				CurrencyID:       row.CurrencyID,
				Symbol:           row.Currency.Symbol,
				Amount:           decimal.Zero,
			}
			byKey[k] = line
			order = append(order, k)
		}
		line.Amount = line.Amount.Add(amount)
		line.Groups = append(line.Groups, DebtGroupLine{
			GroupID:   row.GroupID,
			GroupName: row.Group.Name,
			Amount:    amount,
			Statement: debtStatement(counterparty.Name, row.Currency.Symbol, amount) + " in " + row.Group.Name,
		})
	}

	lines := make([]DebtLine, 0, len(order))
	for _, k := range order {
		line := byKey[k]
		if line.Amount.IsZero() {
			line.Statement = "you and " + line.CounterpartyName + " are settled up"
		} else {
			line.Statement = debtStatement(line.CounterpartyName, line.Symbol, line.Amount)
		}
		lines = append(lines, *line)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].CounterpartyName != lines[j].CounterpartyName {
			return lines[i].CounterpartyName < lines[j].CounterpartyName
		}
		return lines[i].CurrencyID < lines[j].CurrencyID
	})
	return lines
}

func debtStatement(name, symbol string, amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "you owe " + name + " " + FormatMoney(symbol, amount)
	}
	return name + " owes you " + FormatMoney(symbol, amount)
}

// SettleCandidates lists the users the viewer has any unsettled debt with.
func (s *SummaryService) SettleCandidates(ctx context.Context, userID uint64) ([]models.User, error) {
	var ids []uint64
	err := s.DB.WithContext(ctx).Model(&models.Debt{}).
		Where("user_id1 = ? AND amount <> 0", userID).
		Distinct().Pluck("user_id2", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load settle candidates: %w", err)
	}
	var reverse []uint64
	err = s.DB.WithContext(ctx).Model(&models.Debt{}).
		Where("user_id2 = ? AND amount <> 0", userID).
		Distinct().Pluck("user_id1", &reverse).Error
	if err != nil {
		return nil, fmt.Errorf("load settle candidates: %w", err)
	}
	ids = append(ids, reverse...)

	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load settle candidates: %w", err)
	}
	return users, nil
}

// Feed returns the viewer's activities newest first with rendered messages.
func (s *SummaryService) Feed(ctx context.Context, userID uint64, offset, limit int) ([]FeedItem, int64, error) {
	db := s.DB.WithContext(ctx)
	var total int64
	if err := db.Model(&models.Activity{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	var rows []models.Activity
	err := db.Preload("Currency").
		Preload("Expense").
		Preload("Expense.Group").
		Preload("Expense.PaidBy").
		Preload("Expense.SettledWith").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("load activities: %w", err)
	}

	items := make([]FeedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, feedItem(userID, row))
	}
	return items, total, nil
}

func feedItem(viewerID uint64, a models.Activity) FeedItem {
	e := a.Expense
	symbol := a.Currency.Symbol
	payer := displayName(viewerID, e.PaidBy)

	item := FeedItem{
		ActivityID:     a.ID,
		ExpenseID:      e.ID,
		GroupID:        e.GroupID,
		GroupName:      e.Group.Name,
		Symbol:         symbol,
		TotalBalance:   a.TotalBalance,
		GroupBalance:   a.GroupBalance,
		ExpenseBalance: a.ExpenseBalance,
		CreatedAt:      a.CreatedAt,
	}

	if e.IsSettlement() && e.SettledWith != nil {
		payee := e.SettledWith.Name
		if e.SettledWith.ID == viewerID {
			payee = "you"
		}
		item.Message = fmt.Sprintf("%s paid %s %s in %q", payer, payee, FormatMoney(symbol, e.Amount), e.Group.Name)
		if e.PaidByID == viewerID {
			item.Statement = "you paid " + FormatMoney(symbol, e.Amount)
		} else {
			item.Statement = "you received " + FormatMoney(symbol, e.Amount)
		}
		return item
	}

	item.Message = fmt.Sprintf("%s added %q in %q", payer, e.Description, e.Group.Name)
	switch a.ExpenseBalance.Sign() {
	case 1:
		item.Statement = "you get back " + FormatMoney(symbol, a.ExpenseBalance)
	case -1:
		item.Statement = "you owe " + FormatMoney(symbol, a.ExpenseBalance)
	default:
		item.Statement = "no balance change"
	}
	return item
}

func displayName(viewerID uint64, u models.User) string {
	if u.ID == viewerID {
		return "You"
	}
	return u.Name
}

// Dashboard loads the latest activity per currency, the open debts, and the
// currency table concurrently, then folds them into per-currency totals.
func (s *SummaryService) Dashboard(ctx context.Context, userID uint64) (*Dashboard, error) {
	var (
		latest     []models.Activity
		debts      []models.Debt
		currencies []models.Currency
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sub := s.DB.Model(&models.Activity{}).
			Select("MAX(id)").
			Where("user_id = ?", userID).
			Group("currency_id")
		if err := s.DB.WithContext(gctx).Where("id IN (?)", sub).Find(&latest).Error; err != nil {
			return fmt.Errorf("load latest activities: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		debts, err = s.debts.ForUser(s.DB.WithContext(gctx), userID)
		return err
	})
	g.Go(func() error {
		if err := s.DB.WithContext(gctx).Find(&currencies).Error; err != nil {
			return fmt.Errorf("load currencies: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	symbols := make(map[uint64]string, len(currencies))
	for _, c := range currencies {
		symbols[c.ID] = c.Symbol
	}

	totals := map[uint64]*CurrencyTotal{}
	get := func(currencyID uint64) *CurrencyTotal {
		t, ok := totals[currencyID]
		if !ok {
			t = &CurrencyTotal{
				CurrencyID: currencyID,
				Symbol:     symbols[currencyID],
				YouOwe:     decimal.Zero,
				YouAreOwed: decimal.Zero,
				Net:        decimal.Zero,
				LastTotal:  decimal.Zero,
			}
			totals[currencyID] = t
		}
		return t
	}

	for _, a := range latest {
		get(a.CurrencyID).LastTotal = a.TotalBalance
	}
	lines := aggregateDebts(userID, debts)
	for _, line := range lines {
		t := get(line.CurrencyID)
		if line.Amount.IsNegative() {
			t.YouOwe = t.YouOwe.Add(line.Amount.Abs())
		} else {
			t.YouAreOwed = t.YouAreOwed.Add(line.Amount)
		}
		t.Net = t.YouAreOwed.Sub(t.YouOwe)
	}

	out := &Dashboard{Totals: make([]CurrencyTotal, 0, len(totals)), Debts: lines}
	for _, t := range totals {
		out.Totals = append(out.Totals, *t)
	}
	sort.Slice(out.Totals, func(i, j int) bool { return out.Totals[i].CurrencyID < out.Totals[j].CurrencyID })
	return out, nil
}

// GroupExpenses lists a group's expenses newest first, labelled with month and
// day in the viewer's timezone. An unknown timezone falls back to UTC.
func (s *SummaryService) GroupExpenses(ctx context.Context, groupID uint64, timezone string) ([]ExpenseLine, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	var rows []models.Expense
	err = s.DB.WithContext(ctx).
		Preload("PaidBy").
		Preload("SettledWith").
		Preload("Currency").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	lines := make([]ExpenseLine, 0, len(rows))
	for _, e := range rows {
		local := e.CreatedAt.In(loc)
		line := ExpenseLine{
			ID:             e.ID,
			Description:    e.Description,
			Amount:         e.Amount,
			DisplayAmount:  FormatMoney(e.Currency.Symbol, e.Amount),
			PaidByUserID:   e.PaidByID,
			PaidByUserName: e.PaidBy.Name,
			Month:          local.Format("Jan"),
			Day:            local.Format("2"),
			CreatedAt:      e.CreatedAt,
		}
		if e.SettledWith != nil {
			line.SettledWithName = e.SettledWith.Name
		}
		lines = append(lines, line)
	}
	return lines, nil
}
