package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"anoa.com/folio/internal/config"
	"anoa.com/folio/internal/middleware"
	"anoa.com/folio/pkg/logger"
	"anoa.com/folio/pkg/storage"
	"anoa.com/folio/pkg/token"

	profileHttp "anoa.com/folio/internal/modules/profile/delivery/http"
	profileRepo "anoa.com/folio/internal/modules/profile/repository"
	profileService "anoa.com/folio/internal/modules/profile/service"

	publicationHttp "anoa.com/folio/internal/modules/publication/delivery/http"
	publicationRepo "anoa.com/folio/internal/modules/publication/repository"
	publicationService "anoa.com/folio/internal/modules/publication/service"

	searchService "anoa.com/folio/internal/modules/search/service"

	userHttp "anoa.com/folio/internal/modules/user/delivery/http"
	userRepo "anoa.com/folio/internal/modules/user/repository"
	userService "anoa.com/folio/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators built in main. Everything except DB may be nil.
type Deps struct {
	DB           *gorm.DB
	Redis        *redis.Client
	Search       searchService.PublicationIndex
	ImageStorage storage.ImageStorage
}

type Server struct {
	cfg    *config.Config
	engine *gin.Engine

	Users        userRepo.UserRepository
	AuthService  userService.AuthService
	ProfileSvc   profileService.ProfileService
	Publications publicationService.PublicationService
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	userRepository := userRepo.NewUserRepository(deps.DB)
	authSvc := userService.NewAuthService(userRepository, tokens, deps.ImageStorage)
	authHandler := userHttp.NewAuthHandler(authSvc)

	profileRepository := profileRepo.NewProfileRepository(deps.DB)
	profileSvc := profileService.NewProfileService(profileRepository, userRepository, authSvc)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	publicationRepository := publicationRepo.NewPublicationRepository(deps.DB)
	publicationSvc := publicationService.NewPublicationService(publicationRepository, userRepository, deps.Search, deps.Redis, publicationService.Limits{
		Publication: cfg.RateLimitPublication,
		Comment:     cfg.RateLimitComment,
		Rating:      cfg.RateLimitRating,
	})
	publicationHandler := publicationHttp.NewPublicationHandler(publicationSvc)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	requireAuth := authMiddleware.RequireAuth()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Users & auth
	router.POST("/users", authHandler.Register)
	router.POST("/auth", authHandler.Login)
	router.GET("/auth", requireAuth, authHandler.Me)
	router.PUT("/auth/avatar", requireAuth, authHandler.UploadAvatar)

	// Profiles
	profiles := router.Group("/profile")
	{
		profiles.GET("", profileHandler.GetAllProfiles)
		profiles.POST("", requireAuth, profileHandler.UpsertProfile)
		profiles.DELETE("", requireAuth, profileHandler.DeleteAccount)
		profiles.GET("/me", requireAuth, profileHandler.GetCurrentProfile)
		profiles.GET("/author/:userId", profileHandler.GetProfileByOwner)
	}

	// Publications
	publications := router.Group("/publications")
	{
		publications.GET("", publicationHandler.GetAllPublications)
		publications.POST("", requireAuth, publicationHandler.CreatePublication)
		publications.GET("/featured", publicationHandler.GetFeaturedPublications)
		publications.GET("/search", publicationHandler.SearchPublications)
		publications.GET("/authors/:userId", publicationHandler.GetPublicationsByAuthor)
		publications.GET("/:pubId", publicationHandler.GetPublication)
		publications.PUT("/:pubId", requireAuth, publicationHandler.UpdatePublication)
		publications.DELETE("/:pubId", requireAuth, publicationHandler.DeletePublication)
		publications.PUT("/rate/:pubId", requireAuth, publicationHandler.RatePublication)
		publications.POST("/comment/:pubId", requireAuth, publicationHandler.AddComment)
		publications.DELETE("/comment/:pubId/:commentId", requireAuth, publicationHandler.DeleteComment)
	}

	return &Server{
		cfg:          cfg,
		engine:       router,
		Users:        userRepository,
		AuthService:  authSvc,
		ProfileSvc:   profileSvc,
		Publications: publicationSvc,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	log := logger.Get()

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.TokenHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
