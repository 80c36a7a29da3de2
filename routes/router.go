package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/gavelhub/gavel/config"
	"github.com/gavelhub/gavel/controllers"
	"github.com/gavelhub/gavel/middleware"
	"github.com/gavelhub/gavel/repository"
	"github.com/gavelhub/gavel/services"
	"github.com/gavelhub/gavel/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(utils.GinLogger())
	r.Use(utils.GinRecovery())
	r.Use(middleware.MetricsRecorder())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	repo := repository.NewListingRepository(db)
	auctionSvc := services.NewAuctionService(repo, services.Policy{
		DenyOwnerBid:   cfg.DenyOwnerBid,
		OwnerOnlyClose: cfg.OwnerOnlyClose,
	})

	authController := controllers.NewAuthController(repository.NewUserRepository(db))
	listingController := controllers.NewListingController(db, repo)
	auctionController := controllers.NewAuctionController(auctionSvc)
	commentController := controllers.NewCommentController(db)
	categoryController := controllers.NewCategoryController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public catalog browsing. Detail resolves the caller when a token is
	// present so the watching/owner flags render.
	api.GET("/listings", listingController.ListActive)
	api.GET("/listings/closed", listingController.ListClosed)
	api.GET("/listings/:id", middleware.AuthOptional(), listingController.GetListing)
	api.GET("/categories", categoryController.ListCategories)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/listings", listingController.CreateListing)
	protected.POST("/listings/:id/bids", auctionController.PlaceBid)
	protected.POST("/listings/:id/close", auctionController.CloseAuction)
	protected.POST("/listings/:id/comments", commentController.CreateComment)
	protected.POST("/listings/:id/watch", auctionController.Watch)
	protected.DELETE("/listings/:id/watch", auctionController.Unwatch)
	protected.GET("/watchlist", listingController.MyWatchlist)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
