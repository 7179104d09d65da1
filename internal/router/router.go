package router

import (
	"cofrinho/internal/config"
	"cofrinho/internal/handler"
	"cofrinho/internal/ledger"
	"cofrinho/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and the API routes.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	ledgerSvc := ledger.NewService(db)

	api := r.Group("/api")

	// auth endpoints (no token required)
	authHandler := handler.NewAuthHandler(db, cfg.JWT.Secret,
		cfg.JWT.ExpireHours, cfg.JWT.ResetExpireMins, cfg.Security.BcryptCost)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/password-reset", authHandler.RequestPasswordReset)
	api.POST("/auth/password-reset/confirm", authHandler.ConfirmPasswordReset)

	// everything below needs a valid session
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret, db))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/me", handler.GetMe(db))
	protected.PUT("/me", handler.UpdateProfile(db))
	protected.POST("/me/password", handler.ChangePassword(db, cfg.Security.BcryptCost))

	trxHandler := handler.NewTransactionHandler(db, ledgerSvc, cfg.App.PageSize)
	protected.POST("/transactions", trxHandler.Create)
	protected.GET("/transactions", trxHandler.List)
	protected.GET("/balance", trxHandler.GetBalance)
	protected.GET("/balance/check", trxHandler.CheckBalance)

	goalHandler := handler.NewGoalHandler(db, ledgerSvc)
	protected.POST("/goals", goalHandler.Create)
	protected.GET("/goals", goalHandler.List)
	protected.GET("/goals/:id", goalHandler.Get)
	protected.PUT("/goals/:id", goalHandler.Update)
	protected.DELETE("/goals/:id", goalHandler.Delete)
	protected.GET("/goals/:id/transactions", goalHandler.Deposits)

	recurringHandler := handler.NewRecurringHandler(db, ledgerSvc)
	protected.POST("/recurring", recurringHandler.Create)
	protected.GET("/recurring", recurringHandler.List)
	protected.PUT("/recurring/:id", recurringHandler.Update)
	protected.DELETE("/recurring/:id", recurringHandler.Delete)
	protected.POST("/recurring/process", recurringHandler.Process)

	friendHandler := handler.NewFriendHandler(db)
	protected.GET("/friends/search", friendHandler.Search)
	protected.POST("/friends/requests", friendHandler.SendRequest)
	protected.GET("/friends/requests", friendHandler.ListRequests)
	protected.POST("/friends/requests/:id/accept", friendHandler.Respond(true))
	protected.POST("/friends/requests/:id/reject", friendHandler.Respond(false))
	protected.DELETE("/friends/requests/:id", friendHandler.CancelRequest)
	protected.GET("/friends", friendHandler.ListFriends)
	protected.GET("/friends/:id/goals", friendHandler.FriendGoals)

	exportHandler := handler.NewExportHandler(db)
	protected.GET("/export/csv", exportHandler.ExportCSV)
	protected.GET("/export/xlsx", exportHandler.ExportXLSX)

	return r
}
