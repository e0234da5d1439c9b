// Package server wires the services into a gin engine.
package server

import (
	"log"
	"net/http"
	"time"

	"go-sales-crm/internal/ai"
	"go-sales-crm/internal/auth"
	"go-sales-crm/internal/config"
	"go-sales-crm/internal/handlers"
	"go-sales-crm/internal/inventory"
	"go-sales-crm/internal/mailer"
	"go-sales-crm/internal/middleware"
	"go-sales-crm/internal/models"
	"go-sales-crm/internal/quotes"
	"go-sales-crm/internal/threads"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the collaborators the router needs. Zero fields get defaults from cfg.
type Deps struct {
	DB      *gorm.DB
	Numbers quotes.NumberGenerator
	Mailer  mailer.Mailer
}

// NewRouter builds the HTTP API.
func NewRouter(cfg config.Config, deps Deps) (*gin.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	numbers := deps.Numbers
	if numbers == nil {
		var err error
		if numbers, err = quotes.NewNumberGenerator(cfg.QuoteNumberStrategy, cfg.SnowflakeNode); err != nil {
			return nil, err
		}
	}
	mail := deps.Mailer
	if mail == nil {
		mail = mailer.New(cfg)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiration)
	quoteSvc := quotes.NewService(deps.DB, numbers)
	ledger := inventory.NewLedger(deps.DB)
	agent := ai.NewAgent(cfg.GeminiAPIKey, cfg.GeminiModel, deps.DB, quoteSvc, ledger)

	authH := handlers.NewAuthHandler(deps.DB, tokens)
	quoteH := handlers.NewQuoteHandler(quoteSvc, mail, cfg.BaseURL, cfg.CompanyName)
	invH := handlers.NewInventoryHandler(ledger)
	oppH := handlers.NewOpportunityHandler(deps.DB, quoteSvc)
	emailH := handlers.NewEmailHandler(threads.NewService(deps.DB))
	lookupH := handlers.NewLookupHandler(deps.DB)
	reportH := handlers.NewReportHandler(deps.DB)
	askH := handlers.NewAssistantHandler(agent)
	sysH := handlers.NewSystemHandler(deps.DB, cfg)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "online"}) })
	r.POST("/login", authH.Login)

	// --- FEATURE FLAG: Registration ---
	if cfg.AllowRegistration {
		r.POST("/register", authH.Register)
		log.Println("⚠️ WARNING: Registration route is OPEN. Disable this in production!")
	} else {
		log.Println("🔒 Registration route is safely DISABLED.")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		api.GET("/inventory", invH.List)
		api.GET("/inventory/availability/:productId", invH.Availability)
		api.POST("/inventory/reserve", invH.Reserve)
		api.GET("/inventory/low-stock", invH.LowStock)
		api.GET("/inventory/transactions", invH.Transactions)
		api.GET("/inventory/export", invH.Export)

		api.GET("/quotes", quoteH.List)
		api.POST("/quotes", quoteH.Create)
		api.GET("/quotes/:id", quoteH.Get)
		api.PUT("/quotes/:id", quoteH.Update)
		api.DELETE("/quotes/:id", quoteH.Delete)
		api.PUT("/quotes/:id/status", quoteH.SetStatus)
		api.GET("/quotes/:id/pdf", quoteH.PDF)
		api.POST("/quotes/:id/send", quoteH.Send)

		api.GET("/opportunities", oppH.List)
		api.GET("/opportunities/:id", oppH.Get)
		api.GET("/clients", oppH.Clients)

		api.GET("/emails", emailH.List)
		api.POST("/emails", emailH.Ingest)
		api.GET("/emails/:id", emailH.Get)
		api.GET("/emails/:id/messages", emailH.Messages)
		api.PUT("/emails/:id", emailH.Update)
		api.PUT("/emails/:id/quote", emailH.LinkQuote)
		api.DELETE("/emails/:id", emailH.Delete)

		api.GET("/products", lookupH.Products)
		api.GET("/warehouses", lookupH.Warehouses)
		api.GET("/customers", lookupH.Customers)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/inventory/update", invH.Update)
			admin.POST("/products", lookupH.AddProduct)
			admin.PUT("/products/:id", lookupH.UpdateProduct)
			admin.DELETE("/products/:id", lookupH.DeleteProduct)
			admin.POST("/warehouses", lookupH.AddWarehouse)
			admin.POST("/customers", lookupH.AddCustomer)
			admin.GET("/reports/quotes", reportH.Quotes)
			admin.GET("/reports/inventory", reportH.Inventory)
			admin.POST("/assistant/ask", askH.Ask)
			admin.GET("/system/status", sysH.Status)
		}
	}

	return r, nil
}
