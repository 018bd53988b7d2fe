// Package server assembles the HTTP router.
package server

import (
	"net/http" // HTTP status codes

	"calculator_app/internal/api"        // Custom package for API handlers
	"calculator_app/internal/config"     // Custom package for configuration
	"calculator_app/internal/middleware" // Custom package for middleware
	"calculator_app/internal/utils"      // Token issuer
	"calculator_app/internal/web"        // Pages and static assets

	"github.com/gin-contrib/cors"                             // CORS middleware
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// New builds the router with every API route and page. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*gin.Engine, error) {
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(), cors.New(corsConfig(cfg.CORSOrigins)))

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}

	r.GET("/health", api.HealthHandler(db))          // Liveness and DB check
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus scrape endpoint
	r.NoRoute(func(c *gin.Context) {                 // JSON 404 for unknown routes
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Auth routes
	authGroup := r.Group("/auth")
	authGroup.POST("/register", api.RegisterHandler(db, cfg.BcryptCost)) // Registration endpoint
	authGroup.POST("/login", api.LoginHandler(db, tokens))               // JSON login endpoint
	authGroup.POST("/token", api.TokenHandler(db, tokens))               // Form login endpoint
	authGroup.POST("/refresh", api.RefreshHandler(db, rdb, tokens))      // Token rotation endpoint

	// Everything below requires an access token of an active user
	protected := r.Group("")
	protected.Use(middleware.JWTAuthMiddleware(tokens, rdb), middleware.ActiveUserMiddleware(db))
	protected.POST("/auth/logout", api.LogoutHandler(rdb))

	users := protected.Group("/users/me")
	users.GET("", api.GetMeHandler())
	users.PUT("", api.UpdateMeHandler(db))
	users.PUT("/password", api.ChangePasswordHandler(db, cfg.BcryptCost))

	calcs := &api.CalculationHandlers{DB: db, Redis: rdb, CacheTTL: cfg.CacheTTL}
	calcGroup := protected.Group("/calculations")
	calcGroup.POST("", calcs.Create)       // Add
	calcGroup.GET("", calcs.List)          // Browse
	calcGroup.GET("/:id", calcs.Get)       // Read
	calcGroup.PUT("/:id", calcs.Update)    // Edit
	calcGroup.DELETE("/:id", calcs.Delete) // Delete

	if err := web.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cc.ExposeHeaders = []string{"X-Total-Count", "X-Cache"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}
