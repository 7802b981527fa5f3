package server

import (
	"strings"
	"time"

	"anoa.com/engagementledger/internal/config"
	"anoa.com/engagementledger/internal/middleware"

	contentRepo "anoa.com/engagementledger/internal/modules/content/repository"
	engagementHttp "anoa.com/engagementledger/internal/modules/engagement/delivery/http"
	engagementRepo "anoa.com/engagementledger/internal/modules/engagement/repository"
	engagementService "anoa.com/engagementledger/internal/modules/engagement/service"
	userHttp "anoa.com/engagementledger/internal/modules/user/delivery/http"
	userRepo "anoa.com/engagementledger/internal/modules/user/repository"
	userService "anoa.com/engagementledger/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Server {
	store := engagementRepo.NewReactionStore(db)
	content := contentRepo.NewContentRepository(db)

	engagementSvc := engagementService.NewEngagementService(store, content, redisClient, cfg.ClapMax)
	engagementHandler := engagementHttp.NewEngagementHandler(engagementSvc, content)

	users := userRepo.NewUserRepository(db)
	authSvc := userService.NewAuthService(users, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := userHttp.NewAuthHandler(authSvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	api := router.Group("/api")

	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Read paths work anonymously; a token or userId adds the actor's view
	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/articles/:slug/claps", engagementHandler.GetArticleClaps)
		public.GET("/articles/:slug/reactions", engagementHandler.GetArticleReactions)
		public.GET("/articles/:slug/ratings", engagementHandler.GetArticleRatings)
		public.GET("/comments/:comment_id/likes", engagementHandler.GetCommentLikes)
		public.GET("/comments/:comment_id/dislikes", engagementHandler.GetCommentLikes)
	}

	// Write paths require a verified actor
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/articles/:slug/likes", engagementHandler.LikeArticle)
		protected.POST("/articles/:slug/dislikes", engagementHandler.DislikeArticle)
		protected.POST("/articles/:slug/bookmarks", engagementHandler.ToggleArticleBookmark)
		protected.POST("/articles/:slug/claps", engagementHandler.ClapArticle)
		protected.POST("/articles/:slug/ratings", engagementHandler.RateArticle)
		protected.POST("/articles/:slug/report", rateLimiter.Limit("report", time.Minute), engagementHandler.ReportArticle)

		protected.POST("/comments/:comment_id/likes", engagementHandler.LikeComment)
		protected.POST("/comments/:comment_id/dislikes", engagementHandler.DislikeComment)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
