package routes

import (
	"sacco-hub/internal/adapters/http/handlers"
	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, svc *services.Services, cfg *config.Config) {
	pageSize := cfg.Sacco.PageSize

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg)
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	userHandler := handlers.NewUserHandler(svc.User, pageSize)
	groupHandler := handlers.NewGroupHandler(svc.Membership, pageSize)
	meetingHandler := handlers.NewMeetingHandler(svc.Meeting)
	chatHandler := handlers.NewChatHandler(svc.Chat)
	loanHandler := handlers.NewLoanHandler(svc.Loan, pageSize)
	savingsHandler := handlers.NewSavingsHandler(svc.Savings, pageSize, cfg.MPesa.CallbackToken)
	notificationHandler := handlers.NewNotificationHandler(svc.Notification, pageSize)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1", middleware.NoStore())
	apiV1.Get("/", healthHandler.APIInfo)

	// Public routes
	setupAuthRoutes(apiV1.Group("/auth"), authHandler, cfg)
	apiV1.Post("/payments/mpesa/callback/:token", savingsHandler.MPesaCallback)

	// Authenticated routes
	auth := middleware.AuthMiddleware(cfg)

	apiV1.Get("/me", auth, userHandler.Me)
	apiV1.Put("/me/password", auth, middleware.StrictRateLimiter(cfg), userHandler.ChangePassword)
	apiV1.Get("/dashboard", auth, dashboardHandler.GetMemberDashboard)

	setupGroupRoutes(apiV1.Group("/groups", auth), groupHandler, meetingHandler, chatHandler)
	setupLoanRoutes(apiV1.Group("/loans", auth), loanHandler)
	setupSavingsRoutes(apiV1.Group("/savings", auth), savingsHandler)
	setupNotificationRoutes(apiV1.Group("/notifications", auth), notificationHandler)

	// Admin routes
	setupAdminRoutes(apiV1.Group("/admin", auth, middleware.AdminOnly()), userHandler, loanHandler, dashboardHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes
	router.Post("/register", middleware.StrictRateLimiter(cfg), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(cfg), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupGroupRoutes configures group, meeting and chat routes
func setupGroupRoutes(
	router fiber.Router,
	groupHandler *handlers.GroupHandler,
	meetingHandler *handlers.MeetingHandler,
	chatHandler *handlers.ChatHandler,
) {
	router.Post("/", groupHandler.Create)
	router.Get("/", groupHandler.List)
	router.Get("/:id", groupHandler.Get)
	router.Get("/:id/members", groupHandler.Members)

	// Membership
	router.Post("/:id/join", groupHandler.Join)
	router.Get("/:id/requests", groupHandler.Requests)
	router.Post("/:id/requests/:memberId/decision", groupHandler.Decide)
	router.Post("/:id/admin", groupHandler.Promote)

	// Meetings
	router.Post("/:id/meetings", meetingHandler.Schedule)
	router.Get("/:id/meetings", meetingHandler.List)

	// Chat
	router.Post("/:id/messages", chatHandler.Send)
	router.Get("/:id/messages", chatHandler.History)
	router.Get("/:id/chat/stream", chatHandler.Stream)
}

// setupLoanRoutes configures member loan routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Post("/", handler.Request)
	router.Get("/mine", handler.Mine)
	router.Get("/:id", handler.Get)
	router.Get("/:id/payments", handler.Payments)
}

// setupSavingsRoutes configures savings routes
func setupSavingsRoutes(router fiber.Router, handler *handlers.SavingsHandler) {
	router.Post("/deposits", handler.Deposit)
	router.Get("/deposits", handler.List)
	router.Get("/summary", handler.Summary)
}

// setupNotificationRoutes configures notification routes
func setupNotificationRoutes(router fiber.Router, handler *handlers.NotificationHandler) {
	router.Get("/", handler.List)
	router.Get("/stream", handler.Stream)
	router.Patch("/read-all", handler.MarkAllRead)
	router.Patch("/:id/read", handler.MarkRead)
}

// setupAdminRoutes configures admin-only routes
func setupAdminRoutes(
	router fiber.Router,
	userHandler *handlers.UserHandler,
	loanHandler *handlers.LoanHandler,
	dashboardHandler *handlers.DashboardHandler,
) {
	router.Get("/dashboard", dashboardHandler.GetAdminDashboard)

	router.Get("/users", userHandler.ListMembers)
	router.Patch("/users/:id/role", userHandler.SetRole)

	router.Get("/loans", loanHandler.AdminList)
	router.Post("/loans/:id/decision", loanHandler.Decide)
	router.Post("/loans/:id/payments", loanHandler.RecordPayment)
}
