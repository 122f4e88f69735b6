package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/internal/storage"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP layer needs. Gatherer may be nil, in
// which case /metrics is not mounted.
type Deps struct {
	DB         *gorm.DB
	Membership *services.MembershipService
	Ledger     *services.LedgerService
	Summary    *services.SummaryService
	Store      storage.ObjectStore
	Gatherer   prometheus.Gatherer
}

func RegisterRoutes(app *fiber.App, deps Deps) {
	images := &ImageUploader{Store: deps.Store}
	authMiddleware := middleware.NewAuthMiddleware(deps.DB)

	authHandler := NewAuthHandler(deps.DB, images)
	usersHandler := NewUsersHandler(deps.DB)
	currenciesHandler := NewCurrenciesHandler(deps.DB)
	groupsHandler := NewGroupsHandler(deps.Membership, deps.Summary, images)
	expensesHandler := NewExpensesHandler(deps.Ledger)
	settleHandler := NewSettleHandler(deps.Ledger, deps.Summary)
	summaryHandler := NewSummaryHandler(deps.Summary)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Get("/version", GetVersion)
	api.Get("/currencies", currenciesHandler.List)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/me/image", authMiddleware.RequireAuth, authHandler.UploadImage)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.Search)

	groupRoutes := api.Group("/groups", authMiddleware.RequireAuth)
	groupRoutes.Post("/", groupsHandler.Create)
	groupRoutes.Get("/", groupsHandler.List)
	groupRoutes.Get("/search", groupsHandler.Search)
	groupRoutes.Get("/invitations", groupsHandler.Invitations)
	groupRoutes.Get("/:id", groupsHandler.Get)
	groupRoutes.Put("/:id", groupsHandler.Update)
	groupRoutes.Put("/:id/image", groupsHandler.UploadImage)
	groupRoutes.Post("/:id/accept", groupsHandler.Accept)
	groupRoutes.Post("/:id/reject", groupsHandler.Reject)
	groupRoutes.Post("/:id/leave", groupsHandler.Leave)
	groupRoutes.Post("/:id/invite", groupsHandler.Invite)
	groupRoutes.Get("/:id/balances", groupsHandler.Balances)
	groupRoutes.Get("/:id/expenses", groupsHandler.Expenses)

	api.Post("/expenses", authMiddleware.RequireAuth, expensesHandler.Create)

	settleRoutes := api.Group("/settle", authMiddleware.RequireAuth)
	settleRoutes.Get("/", settleHandler.Candidates)
	settleRoutes.Post("/", settleHandler.Settle)

	api.Get("/debts", authMiddleware.RequireAuth, summaryHandler.Debts)
	api.Get("/activities", authMiddleware.RequireAuth, summaryHandler.Activities)
	api.Get("/dashboard", authMiddleware.RequireAuth, summaryHandler.Dashboard)
}
