package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hungbv115/education-backend/internal/config"
	"github.com/hungbv115/education-backend/internal/geo"
	"github.com/hungbv115/education-backend/internal/handler"
	"github.com/hungbv115/education-backend/internal/notification"
	"github.com/hungbv115/education-backend/internal/repository"
	"github.com/hungbv115/education-backend/internal/service"
	"github.com/hungbv115/education-backend/internal/utils"
	"github.com/hungbv115/education-backend/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout    = 5 * time.Second
	tokenSweepInterval = time.Hour
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
	outbox *service.OutboxService
	tokens *service.TokenService
}

// NewApp wires repositories, services and handlers. The notification
// dispatcher and geolocation resolver are external collaborators supplied by
// the caller so tests can substitute them.
func NewApp(infra Infrastructure, cfg *config.Config, dispatcher notification.Dispatcher, resolver geo.Resolver) *App {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.SessionExpiry.Duration,
	)

	sessionRevoker := service.NewSessionRevoker(infra.Redis())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	tokenService := service.NewTokenService(repos.Token, cfg.Token)
	outboxService := service.NewOutboxService(repos.Outbox, dispatcher, cfg.Outbox, infra.Logger())

	accountService := service.NewAccountService(
		repos.User,
		tokenService,
		outboxService,
		cfg.Security.BCryptCost,
		cfg.App.BaseURL,
		infra.Logger(),
	)

	authService := service.NewAuthService(
		repos.User,
		repos.Device,
		repos.Location,
		tokenService,
		outboxService,
		jwtManager,
		sessionRevoker,
		resolver,
		cfg.Geo.Enabled,
		cfg.App.BaseURL,
		infra.Logger(),
	)

	accountHandler := handler.NewAccountHandler(accountService)
	authHandler := handler.NewAuthHandler(authService)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, accountHandler, authHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
		outbox: outboxService,
		tokens: tokenService,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// sweepExpiredTokens periodically drops expired account tokens. Expired rows
// are never redeemable, the sweep only bounds table growth.
func (a *App) sweepExpiredTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.tokens.PurgeExpired(ctx); err != nil {
				a.infra.Logger().Warn("failed to purge expired tokens", zap.Error(err))
			}
		}
	}
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	accountHandler *handler.AccountHandler,
	authHandler *handler.AuthHandler,
	authService service.AuthService,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	limited := handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.ClientIPKey)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", limited, accountHandler.Signup)
			auth.POST("/login", limited, authHandler.Login)

			auth.GET("/registration/confirm", accountHandler.ConfirmRegistration)
			auth.POST("/registration/resend", limited, accountHandler.ResendVerification)

			auth.POST("/password/reset", limited, accountHandler.RequestPasswordReset)
			auth.POST("/password/save", accountHandler.SavePassword)

			auth.POST("/device/login", limited, authHandler.DeviceLogin)
			auth.POST("/device/approve", handler.AuthMiddleware(authService), authHandler.ApproveDevice)
			auth.GET("/device/approve", authHandler.ApproveDeviceByToken)
			auth.GET("/devices", handler.AuthMiddleware(authService), authHandler.ListDevices)

			auth.POST("/logout", handler.AuthMiddleware(authService), authHandler.Logout)
			auth.GET("/me", handler.AuthMiddleware(authService), authHandler.GetMe)
			auth.PUT("/me/2fa", handler.AuthMiddleware(authService), authHandler.Update2FA)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go a.outbox.Run(ctx)
	go a.sweepExpiredTokens(ctx)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
