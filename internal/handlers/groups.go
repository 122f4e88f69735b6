package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/pkg/utils"
)

type GroupsHandler struct {
	Membership *services.MembershipService
	Summary    *services.SummaryService
	Images     *ImageUploader
}

func NewGroupsHandler(membership *services.MembershipService, summary *services.SummaryService, images *ImageUploader) *GroupsHandler {
	return &GroupsHandler{Membership: membership, Summary: summary, Images: images}
}

type groupResponse struct {
	models.Group
	ImageURL string `json:"imageUrl,omitempty"`
}

func (h *GroupsHandler) withImage(c *fiber.Ctx, group *models.Group) groupResponse {
	return groupResponse{Group: *group, ImageURL: h.Images.URL(c.UserContext(), group.Image)}
}

// memberGroupID parses :id and confirms the caller is an active member. It
// writes the error response itself and returns ok=false when the request
// should stop.
func (h *GroupsHandler) memberGroupID(c *fiber.Ctx, userID uint64) (uint64, bool, error) {
	groupID, err := parseID(c.Params("id"))
	if err != nil {
		return 0, false, utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	active, err := h.Membership.IsActiveMember(c.UserContext(), groupID, userID)
	if err != nil {
		return 0, false, ledgerError(c, userID, "group_access_check_failed", err)
	}
	if !active {
		return 0, false, utils.Error(c, fiber.StatusForbidden, "group access denied")
	}
	return groupID, true, nil
}

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []uint64 `json:"members"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	group, err := h.Membership.CreateGroup(c.UserContext(), currentUser.ID, req.Name, req.Members)
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_create_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, group)
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groups, err := h.Membership.ListGroups(c.UserContext(), currentUser.ID, "")
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_list_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groups, err := h.Membership.ListGroups(c.UserContext(), currentUser.ID, c.Query("keyword"))
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_search_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Invitations(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	invites, err := h.Membership.ListInvitations(c.UserContext(), currentUser.ID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "invitation_list_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, invites)
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, ok, err := h.memberGroupID(c, currentUser.ID)
	if !ok {
		return err
	}
	group, err := h.Membership.GetGroup(c.UserContext(), groupID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_get_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, h.withImage(c, group))
}

type updateGroupRequest struct {
	Name string `json:"name"`
}

func (h *GroupsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	groupID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req updateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	group, err := h.Membership.UpdateGroup(c.UserContext(), groupID, currentUser.ID, req.Name, nil)
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_update_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, h.withImage(c, group))
}

func (h *GroupsHandler) UploadImage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	groupID, ok, err := h.memberGroupID(c, currentUser.ID)
	if !ok {
		return err
	}
	existing, err := h.Membership.GetGroup(c.UserContext(), groupID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_get_failed", err)
	}

	key, err := h.Images.Upload(c, "groups", groupID)
	if err != nil {
		return imageError(c, currentUser.ID, err)
	}

	group, err := h.Membership.UpdateGroup(c.UserContext(), groupID, currentUser.ID, "", &key)
	if err != nil {
		h.Images.Replace(c.UserContext(), &key)
		return ledgerError(c, currentUser.ID, "group_image_update_failed", err)
	}
	h.Images.Replace(c.UserContext(), existing.Image)
	return utils.Success(c, fiber.StatusOK, h.withImage(c, group))
}

func (h *GroupsHandler) Accept(c *fiber.Ctx) error {
	return h.transition(c, "group_accept_failed", h.Membership.Accept)
}

func (h *GroupsHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, "group_reject_failed", h.Membership.Reject)
}

func (h *GroupsHandler) Leave(c *fiber.Ctx) error {
	return h.transition(c, "group_leave_failed", h.Membership.Leave)
}

type membershipTransition func(ctx context.Context, groupID, userID uint64) error

func (h *GroupsHandler) transition(c *fiber.Ctx, action string, apply membershipTransition) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	groupID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	if err := apply(c.UserContext(), groupID, currentUser.ID); err != nil {
		return ledgerError(c, currentUser.ID, action, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"groupId": groupID})
}

type inviteRequest struct {
	UserID uint64 `json:"userId"`
}

func (h *GroupsHandler) Invite(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	groupID, ok, err := h.memberGroupID(c, currentUser.ID)
	if !ok {
		return err
	}

	var req inviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "userId is required")
	}

	if err := h.Membership.Invite(c.UserContext(), groupID, req.UserID); err != nil {
		return ledgerError(c, currentUser.ID, "group_invite_failed", err)
	}
	return utils.Success(c, fiber.StatusCreated, fiber.Map{"groupId": groupID, "userId": req.UserID})
}

func (h *GroupsHandler) Balances(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	groupID, ok, err := h.memberGroupID(c, currentUser.ID)
	if !ok {
		return err
	}

	lines, err := h.Summary.GroupBalances(c.UserContext(), groupID)
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_balances_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, lines)
}

func (h *GroupsHandler) Expenses(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	groupID, ok, err := h.memberGroupID(c, currentUser.ID)
	if !ok {
		return err
	}

	lines, err := h.Summary.GroupExpenses(c.UserContext(), groupID, currentUser.Timezone)
	if err != nil {
		return ledgerError(c, currentUser.ID, "group_expenses_failed", err)
	}
	return utils.Success(c, fiber.StatusOK, lines)
}
