package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/pkg/utils"
)

type SummaryHandler struct {
	Summary *services.SummaryService
}

func NewSummaryHandler(summary *services.SummaryService) *SummaryHandler {
	return &SummaryHandler{Summary: summary}
}

func (h *SummaryHandler) Debts(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	lines, err := h.Summary.Debts(c.UserContext(), currentUser.ID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "debts_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, lines)
}

func (h *SummaryHandler) Activities(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c, utils.DefaultPageLimit)
	items, total, err := h.Summary.Feed(c.UserContext(), currentUser.ID, p.Offset, p.Limit)
	if err != nil {
		return ledgerError(c, currentUser.ID, "activities_failed", err)
	}
	return utils.Paginated(c, items, p, total)
}

func (h *SummaryHandler) Dashboard(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	dashboard, err := h.Summary.Dashboard(c.UserContext(), currentUser.ID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "dashboard_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, dashboard)
}
