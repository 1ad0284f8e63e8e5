// Package server assembles the HTTP router from the service layer.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "wykonczymy/internal/docs" // Register swagger docs
	"wykonczymy/internal/handlers"
	"wykonczymy/internal/middleware"
	"wykonczymy/internal/services"
)

// Services is everything the router dispatches to.
type Services struct {
	Users          services.UserServicer
	CashRegisters  services.CashRegisterServicer
	Investments    services.InvestmentServicer
	Categories     services.OtherCategoryServicer
	Media          services.MediaServicer
	Transactions   services.TransactionServicer
	Settlements    services.SettlementServicer
	Reconciliation services.ReconciliationServicer
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the router for the environment it runs in.
type Options struct {
	// OperatorAPIKey guards /api/v1/ops. Empty answers 503 there.
	OperatorAPIKey string
	// Health is pinged by /api/health when set.
	Health Pinger
	// RequestLogging adds per-request access logs.
	RequestLogging bool
	// Swagger mounts the API browser at /swagger.
	Swagger bool
}

// NewRouter wires handlers and middleware into a gin engine.
func NewRouter(svc Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users)
	userHandler := handlers.NewUserHandler(svc.Users)
	registerHandler := handlers.NewCashRegisterHandler(svc.CashRegisters)
	investmentHandler := handlers.NewInvestmentHandler(svc.Investments)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories)
	mediaHandler := handlers.NewMediaHandler(svc.Media)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions)
	settlementHandler := handlers.NewSettlementHandler(svc.Settlements)
	reconciliationHandler := handlers.NewReconciliationHandler(svc.Reconciliation)

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.RequestLogging {
		router.Use(middleware.RequestLogging())
	}
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	router.GET("/api/health", health(opts.Health))

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.RefreshToken)

	// Operator routes
	ops := v1.Group("/ops")
	ops.Use(middleware.OperatorAuthMiddleware(opts.OperatorAPIKey))
	ops.POST("/reconcile", reconciliationHandler.OperatorRecalculateAll)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(svc.Users))

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/profile", authHandler.GetProfile)

	users := protected.Group("/users")
	users.POST("", userHandler.CreateUser)
	users.GET("", userHandler.ListUsers)
	users.GET("/:id", userHandler.GetUser)
	users.PUT("/:id", userHandler.UpdateUser)
	users.DELETE("/:id", userHandler.DeactivateUser)
	users.GET("/:id/saldo", transactionHandler.GetWorkerSaldo)

	registers := protected.Group("/cash-registers")
	registers.POST("", registerHandler.CreateCashRegister)
	registers.GET("", registerHandler.ListCashRegisters)
	registers.GET("/:id", registerHandler.GetCashRegister)
	registers.PUT("/:id", registerHandler.UpdateCashRegister)
	registers.PUT("/:id/balance", registerHandler.OverrideBalance)
	registers.GET("/:id/transactions", transactionHandler.GetRegisterTransactions)

	investments := protected.Group("/investments")
	investments.POST("", investmentHandler.CreateInvestment)
	investments.GET("", investmentHandler.ListInvestments)
	investments.GET("/:id", investmentHandler.GetInvestment)
	investments.PUT("/:id", investmentHandler.UpdateInvestment)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	media := protected.Group("/media")
	media.POST("", mediaHandler.CreateMedia)
	media.GET("/:id", mediaHandler.GetMedia)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.POST("/transfer", transactionHandler.CreateTransfer)
	transactions.GET("/export", transactionHandler.ExportTransactions)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	settlements := protected.Group("/settlements")
	settlements.POST("", settlementHandler.CreateSettlement)
	settlements.GET("/:id", settlementHandler.GetSettlement)

	reconciliation := protected.Group("/reconciliation")
	reconciliation.POST("/run", reconciliationHandler.RecalculateAll)
	reconciliation.POST("/verify", reconciliationHandler.Verify)
	reconciliation.GET("/reports", reconciliationHandler.ListReports)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func health(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
