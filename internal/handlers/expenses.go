package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/pkg/utils"
)

type ExpensesHandler struct {
	Ledger *services.LedgerService
}

func NewExpensesHandler(ledger *services.LedgerService) *ExpensesHandler {
	return &ExpensesHandler{Ledger: ledger}
}

type createExpenseRequest struct {
	GroupID     uint64          `json:"groupId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Create records an expense paid by the caller in the caller's preferred
// currency.
func (h *ExpensesHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	expense, err := h.Ledger.RecordExpense(c.UserContext(), services.ExpenseInput{
		GroupID:     req.GroupID,
		PayerID:     currentUser.ID,
		CurrencyID:  currentUser.CurrencyID,
		Description: req.Description,
		Amount:      req.Amount,
	})
	if err != nil {
		return ledgerError(c, currentUser.ID, "expense_create_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, expense)
}
