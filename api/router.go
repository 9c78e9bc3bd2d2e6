// api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/smbworks/erp-backend/api/handlers"
	"github.com/smbworks/erp-backend/api/middleware"
	"github.com/smbworks/erp-backend/config"
	"github.com/smbworks/erp-backend/internal/credentials"
	"github.com/smbworks/erp-backend/internal/dal"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(db dal.DB, creds *credentials.Manager, cfg *config.Config) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.New(corsConfig(cfg)))
	// Runs after Logger/Recovery and wraps every handler below.
	router.Use(middleware.ErrorHandler())

	authHandler := handlers.NewAuthHandler(db, cfg)
	adminHandler := handlers.NewAdminHandler(db)
	keyHandler := handlers.NewAPIKeyHandler(creds)
	entities := handlers.NewEntityHandler(db)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "backend": db.Kind()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": db.Kind()})
	})

	apiRoutes := router.Group("/api")

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	authRoutes := apiRoutes.Group("/auth")
	{
		authRoutes.POST("/login", middleware.RateLimitMiddleware(loginLimiter), authHandler.Login)

		session := authRoutes.Group("", middleware.RequireAuth(cfg))
		session.GET("/me", authHandler.Me)
		session.POST("/change-password", authHandler.ChangePassword)
	}

	// Reads are open; writes need a session token or an API key.
	write := middleware.WriteGuard(cfg, creds)
	{
		apiRoutes.GET("/customers", entities.ListCustomers)
		apiRoutes.GET("/customers/:id", entities.GetCustomer)
		apiRoutes.POST("/customers", write, entities.CreateCustomer)
		apiRoutes.PUT("/customers/:id", write, entities.UpdateCustomer)
		apiRoutes.DELETE("/customers/:id", write, entities.DeleteCustomer)

		apiRoutes.GET("/products", entities.ListProducts)
		apiRoutes.GET("/products/:id", entities.GetProduct)
		apiRoutes.POST("/products", write, entities.CreateProduct)
		apiRoutes.PUT("/products/:id", write, entities.UpdateProduct)
		apiRoutes.DELETE("/products/:id", write, entities.DeleteProduct)

		apiRoutes.GET("/employees", entities.ListEmployees)
		apiRoutes.GET("/employees/:id", entities.GetEmployee)
		apiRoutes.POST("/employees", write, entities.CreateEmployee)
		apiRoutes.PUT("/employees/:id", write, entities.UpdateEmployee)
		apiRoutes.DELETE("/employees/:id", write, entities.DeleteEmployee)

		apiRoutes.GET("/orders", entities.ListOrders)
		apiRoutes.GET("/orders/:id", entities.GetOrder)
		apiRoutes.GET("/orders/:id/lines", entities.ListOrderLines)
		apiRoutes.GET("/orders/:id/total", entities.OrderTotal)
		apiRoutes.POST("/orders", write, entities.CreateOrder)
		apiRoutes.PUT("/orders/:id", write, entities.UpdateOrder)
		apiRoutes.DELETE("/orders/:id", write, entities.DeleteOrder)

		apiRoutes.POST("/order-lines", write, entities.CreateOrderLine)
		apiRoutes.DELETE("/order-lines/:order_id/:line_no", write, entities.DeleteOrderLine)

		apiRoutes.GET("/timesheets", entities.ListTimesheets)
		apiRoutes.GET("/timesheets/:id", entities.GetTimesheet)
		apiRoutes.POST("/timesheets", write, entities.CreateTimesheet)
		apiRoutes.PUT("/timesheets/:id", write, entities.UpdateTimesheet)
		apiRoutes.DELETE("/timesheets/:id", write, entities.DeleteTimesheet)

		apiRoutes.GET("/inventory", entities.ListInventory)
		apiRoutes.GET("/inventory/:id", entities.GetInventoryTxn)
		apiRoutes.POST("/inventory", write, entities.CreateInventoryTxn)
		apiRoutes.PUT("/inventory/:id", write, entities.UpdateInventoryTxn)
		apiRoutes.DELETE("/inventory/:id", write, entities.DeleteInventoryTxn)
		apiRoutes.GET("/stock", entities.StockOnHand)
	}

	// --- Admin Routes ---
	users := apiRoutes.Group("/admin", middleware.RequireAuth(cfg), middleware.RequireAdmin())
	{
		users.POST("/users", adminHandler.CreateUser)
		users.GET("/users", adminHandler.ListUsers)
		users.GET("/audit", adminHandler.ListAudit)
	}

	// Credential administration is also served on the older unprefixed paths.
	for _, prefix := range []string{"/api/admin", "/admin"} {
		keys := router.Group(prefix, middleware.AdminKey(cfg))
		keys.GET("/api-keys", keyHandler.List)
		keys.POST("/api-keys", keyHandler.Issue)
		keys.DELETE("/api-keys/:id", keyHandler.Delete)
		keys.POST("/api-keys/:id/rotate", keyHandler.Rotate)
		keys.GET("/api-key-audit", keyHandler.ListAudit)
		keys.DELETE("/api-key-audit", keyHandler.PurgeAudit)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-API-Key", "X-Admin-Key"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	return c
}
