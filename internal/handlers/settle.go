package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/pkg/utils"
)

type SettleHandler struct {
	Ledger  *services.LedgerService
	Summary *services.SummaryService
}

func NewSettleHandler(ledger *services.LedgerService, summary *services.SummaryService) *SettleHandler {
	return &SettleHandler{Ledger: ledger, Summary: summary}
}

func (h *SettleHandler) Candidates(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	users, err := h.Summary.SettleCandidates(c.UserContext(), currentUser.ID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "settle_candidates_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, users)
}

type settleRequest struct {
	UserID uint64 `json:"userId"`
}

func (h *SettleHandler) Settle(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req settleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "userId is required")
	}

	settlements, err := h.Ledger.SettleUp(c.UserContext(), currentUser.ID, req.UserID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "settle_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, settlements)
}
