package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gescom-system/config"
	"gescom-system/internal/database"
	"gescom-system/internal/gateway/handlers"
	"gescom-system/internal/gateway/middleware"
	"gescom-system/internal/services/article"
	"gescom-system/internal/services/audit"
	"gescom-system/internal/services/client"
	"gescom-system/internal/services/livraison"
	"gescom-system/internal/services/user"
	"gescom-system/internal/utils"
)

func main() {
	cfg := config.LoadConfig()
	utils.JwtSecret = []byte(cfg.Auth.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	defer redisClient.Close()

	livraisonService := livraison.NewService(db, redisClient)
	articleService := article.NewService(db, redisClient)
	clientService := client.NewService(db)
	userService := user.NewService(db, cfg.Auth.TokenTTL)
	auditService := audit.NewService(db)

	livraisonHandler := handlers.NewLivraisonHTTPHandler(livraisonService, auditService)
	articleHandler := handlers.NewArticleHTTPHandler(articleService)
	clientHandler := handlers.NewClientHTTPHandler(clientService)
	userHandler := handlers.NewUserHTTPHandler(userService)
	auditHandler := handlers.NewAuditHTTPHandler(auditService)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit())

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		livraisons := protected.Group("/livraisons")
		livraisons.Use(middleware.RoleOrAdmin("Livraison"))
		{
			livraisons.GET("", livraisonHandler.List)
			livraisons.POST("", livraisonHandler.Create)
			livraisons.GET("/compteur", livraisonHandler.GetCompteur)
			livraisons.PUT("/compteur", livraisonHandler.IncrementCompteur)
			livraisons.GET("/:id", livraisonHandler.Get)
			livraisons.PUT("/:id", livraisonHandler.Update)
			livraisons.DELETE("/:id", livraisonHandler.Delete)
		}

		articles := protected.Group("/articles")
		articles.Use(middleware.RoleOrAdmin("Article"))
		{
			articles.GET("", articleHandler.List)
			articles.POST("", articleHandler.Create)
			articles.GET("/low-stock", articleHandler.ListLowStock)
			articles.GET("/:id", articleHandler.Get)
			articles.PUT("/:id", articleHandler.Update)
			articles.DELETE("/:id", articleHandler.Delete)
		}

		familles := protected.Group("/familles")
		familles.Use(middleware.RoleOrAdmin("Article"))
		{
			familles.GET("", articleHandler.ListFamilles)
			familles.POST("", articleHandler.CreateFamille)
		}

		unites := protected.Group("/unites")
		unites.Use(middleware.RoleOrAdmin("Article"))
		{
			unites.GET("", articleHandler.ListUnites)
			unites.POST("", articleHandler.CreateUnite)
		}

		clients := protected.Group("/clients")
		clients.Use(middleware.RoleOrAdmin("Client"))
		{
			clients.GET("", clientHandler.List)
			clients.POST("", clientHandler.Create)
			clients.GET("/:id", clientHandler.Get)
			clients.PUT("/:id", clientHandler.Update)
			clients.DELETE("/:id", clientHandler.Delete)
		}

		users := protected.Group("/users")
		users.Use(middleware.RoleOrAdmin("Utilisateur"))
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		roles := protected.Group("/roles")
		roles.Use(middleware.RoleOrAdmin("Utilisateur"))
		{
			roles.GET("", userHandler.ListRoles)
			roles.POST("", userHandler.CreateRole)
		}

		auditlog := protected.Group("/auditlog")
		auditlog.Use(middleware.RoleOrAdmin("Audit"))
		{
			auditlog.GET("", auditHandler.List)
			auditlog.POST("", auditHandler.Create)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
