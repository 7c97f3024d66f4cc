package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/yeshivabachur/breslov-academy-sub000/api/swagger"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/handler"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/middleware"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/models"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/repository"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/service"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/store"
	"github.com/yeshivabachur/breslov-academy-sub000/internal/tenancy"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/cache"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/config"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/database"
	"github.com/yeshivabachur/breslov-academy-sub000/pkg/logger"
	corsmiddleware "github.com/yeshivabachur/breslov-academy-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/yeshivabachur/breslov-academy-sub000/pkg/middleware/requestid"
	"go.uber.org/zap"
)

// @title Breslov Academy Platform Core
// @version 1.0.0
// @description Tenancy and entitlement access-control core
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()

	guard := tenancy.NewGuard(tenancy.Config{
		DevUserID:         cfg.Platform.DevUserID,
		AdminEmails:       cfg.Platform.AdminEmails,
		AdminRoleOverride: cfg.Platform.AdminRoleOverride,
		LogSize:           cfg.Platform.GuardLogSize,
	}, logr, metrics)

	entityStore, storePing, err := buildStore(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("store init failed", "backend", cfg.Store.Backend, "error", err)
	}
	guarded := tenancy.NewGuardedStore(entityStore, guard)

	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, policy cache disabled", zap.Error(err))
		cacheRepo = repository.NewCacheRepository(nil, logr)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	membershipRepo := repository.NewMembershipRepository(guarded)
	policyRepo := repository.NewPolicyRepository(guarded)
	contentRepo := repository.NewContentRepository(guarded)
	entitlementRepo := repository.NewEntitlementRepository(guarded)
	commerceRepo := repository.NewCommerceRepository(guarded)
	auditRepo := repository.NewAuditRepository(guarded)
	userRepo := repository.NewUserRepository(guarded)

	validate := validator.New()

	policyDefaults := service.PolicyDefaults{
		DisablePreviews:   !cfg.Content.AllowPreviews,
		MaxPreviewSeconds: cfg.Content.MaxPreviewSeconds,
		MaxPreviewChars:   cfg.Content.MaxPreviewChars,
	}
	policySvc := service.NewPolicyService(policyRepo, cacheRepo, policyDefaults, cfg.Content.PolicyCacheTTL, cfg.Content.PolicyCacheEnabled, logr)
	membershipSvc := service.NewMembershipService(membershipRepo, logr)
	entitlementSvc := service.NewEntitlementService(entitlementRepo, commerceRepo, metrics, logr)
	accessSvc := service.NewAccessService(metrics)
	contentSvc := service.NewContentService(contentRepo, policySvc, membershipSvc, entitlementSvc, accessSvc, logr)
	checkoutSvc := service.NewCheckoutService(commerceRepo, entitlementSvc, auditRepo, metrics, logr)
	authSvc := service.NewAuthService(userRepo, membershipSvc, auditRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	webhookPrincipal := tenancy.Principal{
		UserID: "payment-webhook",
		Email:  "webhook@system.internal",
		Role:   models.RoleSuperAdmin,
	}

	authHandler := handler.NewAuthHandler(authSvc)
	entityHandler := handler.NewEntityHandler(guarded, policySvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc, cfg.Checkout.WebhookSecret, webhookPrincipal)
	entitlementHandler := handler.NewEntitlementHandler(entitlementSvc)
	meHandler := handler.NewMeHandler(membershipSvc, entitlementSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, storePing)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/webhooks/payment", checkoutHandler.Webhook)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.Use(middleware.ResolveTenant(guard, membershipSvc))

	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/me/memberships", meHandler.Memberships)
	authed.GET("/me/entitlements", meHandler.Entitlements)

	authed.GET("/entities/:type", entityHandler.List)
	authed.POST("/entities/:type", entityHandler.Create)
	authed.GET("/entities/:type/:id", entityHandler.Get)
	authed.PUT("/entities/:type/:id", entityHandler.Update)
	authed.PATCH("/entities/:type/:id", entityHandler.Update)
	authed.DELETE("/entities/:type/:id", entityHandler.Delete)

	authed.GET("/content/lessons/:id", contentHandler.GetLesson)
	authed.GET("/content/quizzes/:id/questions", contentHandler.GetQuizQuestions)
	authed.POST("/content/questions/batch", contentHandler.BatchQuestions)

	authed.POST("/checkout", checkoutHandler.Begin)
	authed.POST("/checkout/complete", checkoutHandler.Complete)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireGlobalAdmin(guard))
	admin.Use(middleware.Audit(auditRepo, models.AuditActionAdminRead, "entities"))
	admin.GET("/entities/:type", entityHandler.AdminList)
	admin.GET("/entities/:type/:id", entityHandler.AdminGet)
	admin.POST("/entitlements/:id/revoke", entitlementHandler.Revoke)
	admin.GET("/guard/interventions", entityHandler.GuardInterventions)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Backend)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// buildStore selects the entity store backend and its readiness probe. The
// in-memory store is a single-process development shortcut.
func buildStore(cfg *config.Config, logr *zap.Logger) (store.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logr.Warn("using in-memory entity store; data will not survive restarts")
		return store.NewMemoryStore(), nil, nil
	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(db), db.Ping, nil
	}
}
