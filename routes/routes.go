// Package routes assembles the HTTP router.
package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/config"
	"github.com/yunusmujadidi/purchase-order/controllers"
	"github.com/yunusmujadidi/purchase-order/metrics"
	"github.com/yunusmujadidi/purchase-order/middleware"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/services"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the handlers are built from
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Orders   repository.OrderRepository
	Service  *services.OrderService
	Importer *services.ImportService
	Images   services.ImageService
	Hub      *services.Hub
	Metrics  *metrics.Collector
	Tokens   *services.TokenService    // nil in Auth0 mode
	UserInfo services.UserInfoProvider // nil in local token mode
}

// SetupRouter registers every route on a new gin engine
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	loc := cfg.Location()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	orders := controllers.NewOrderController(deps.Orders, deps.Service, deps.Images, loc)
	imports := controllers.NewImportController(deps.Orders, deps.Importer)
	reports := controllers.NewAnalyticsController(deps.Orders, deps.Metrics, loc)
	users := controllers.NewUserController(deps.DB, deps.Tokens, deps.UserInfo)

	authenticated := middleware.EnsureValidToken(cfg)
	currentUser := middleware.LoadCurrentUser()
	adminOnly := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", controllers.HealthCheck)
		v1.GET("/database/status", controllers.DatabaseStatus(deps.DB))
		v1.POST("/auth/login", users.Login)

		if local, ok := deps.Images.(*services.LocalImageService); ok {
			v1.GET("/uploads/:filename", controllers.GetUploadedImage(local.Dir()))
		}

		// Auth0 callers create their profile before they have one to load
		v1.POST("/users/me", authenticated, users.ProvisionMe)

		api := v1.Group("", authenticated, currentUser)

		api.GET("/users/me", users.GetMyProfile)
		api.PUT("/users/me", users.UpdateMyProfile)

		manage := api.Group("/users", middleware.RequireRole(models.RoleSuperAdmin))
		if !cfg.UsesAuth0() {
			manage.Use(middleware.RequireScope(services.ScopeManageUsers))
		}
		manage.GET("", users.ListUsers)
		manage.POST("", users.CreateUser)
		manage.PUT("/:id", users.UpdateUser)
		manage.DELETE("/:id", users.DeleteUser)

		api.GET("/orders", orders.ListOrders)
		api.POST("/orders", orders.CreateOrder)
		api.GET("/orders/export", imports.ExportOrders)
		api.GET("/orders/events", controllers.StreamEvents(deps.Hub))
		api.POST("/orders/import/preview", adminOnly, imports.PreviewImport)
		api.POST("/orders/import", adminOnly, imports.ImportOrders)
		api.GET("/orders/:id", orders.GetOrder)
		api.PUT("/orders/:id", orders.UpdateOrder)
		api.PATCH("/orders/:id/stage", orders.UpdateStage)
		api.PATCH("/orders/:id/status", orders.UpdateStatus)
		api.DELETE("/orders/:id", adminOnly, orders.DeleteOrder)
		api.POST("/orders/:id/picture", orders.UploadPicture)
		api.GET("/orders/:id/activity", orders.ListActivity)
		api.POST("/orders/:id/comments", orders.AddComment)

		api.GET("/dashboard", reports.GetDashboard)
		api.GET("/analytics", reports.GetAnalytics)
	}

	return router
}

// corsConfig allows the configured origins; "*" allows any origin without credentials
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = origins
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	}
	return c
}
