package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/qcom/intake/internal/config"
	"github.com/qcom/intake/internal/handlers"
	"github.com/qcom/intake/internal/middleware"
	"github.com/qcom/intake/internal/notify"
	"github.com/qcom/intake/internal/repository"
	"github.com/qcom/intake/internal/service"
	"github.com/qcom/intake/internal/validation"
	"github.com/sirupsen/logrus"
)

const (
	limiterCleanupInterval = time.Minute
	limiterIdleTimeout     = 10 * time.Minute
)

// App is the fully wired HTTP application.
type App struct {
	Handler http.Handler
	Store   *repository.Store
	Admins  *service.AdminService

	sweeper    *service.Sweeper
	ipLimiter  *middleware.IPRateLimiter
	dispatcher *notify.Dispatcher
	closers    []func() error
	background sync.WaitGroup
	logger     *logrus.Logger
}

// Build opens every backend named by cfg and wires services, handlers and
// routes on top of them.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &App{Store: store, logger: logger}

	cache, sweepers, closeKV, err := OpenKV(ctx, &cfg.Redis, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	app.closers = append(app.closers, closeKV)

	files, uploadsDir, err := OpenFileStore(ctx, &cfg.Upload)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	m := NewMailer(&cfg.Mail, logger)
	dispatcher, closeNotifiers := NewDispatcher(cfg, m, logger)
	app.dispatcher = dispatcher
	app.closers = append(app.closers, closeNotifiers)

	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	sessions := service.NewSessionService(cache, logger)
	app.Admins = service.NewAdminService(store.Admins, jwtService, sessions, cfg.Admin.BcryptCost, logger)

	limiter := service.NewRateLimiter(cache, cfg.OTP.RequestLimit, cfg.OTP.RequestWindow)
	otpService := service.NewOTPService(store.OTPs, store.Users, limiter, m, &cfg.OTP, logger)
	submissions := service.NewSubmissionService(store.Users, store.Submissions, dispatcher, logger)
	dashboard := service.NewDashboardService(store.Users, store.Submissions, store.Advertisements)
	ads := service.NewAdvertisementService(store.Advertisements, logger)
	uploads := service.NewUploadService(files, cfg.Upload.MaxSize, cfg.Upload.AllowedTypes, logger)

	app.sweeper = service.NewSweeper(store.OTPs, cfg.Store.SweepInterval, logger, sweepers...)
	proxies, err := middleware.NewTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.ipLimiter = middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, proxies, logger)

	v := validation.New()
	routerCfg := handlers.RouterConfig{
		Form:           handlers.NewFormHandlers(submissions, v, logger),
		OTP:            handlers.NewOTPHandlers(otpService, v, logger),
		Upload:         handlers.NewUploadHandlers(uploads, logger),
		Admin:          handlers.NewAdminHandlers(app.Admins, submissions, dashboard, v, cfg.JWT.CookieName, cfg.Env != config.EnvDevelopment, logger),
		Advertisements: handlers.NewAdvertisementHandlers(ads, v, logger),
		Health:         handlers.NewHealthHandlers(store, store.Driver, logger),
		Auth:           middleware.NewAuthMiddleware(app.Admins, cfg.JWT.CookieName, logger),
		IPLimiter:      app.ipLimiter,
		Proxies:        proxies,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if uploadsDir != "" {
		routerCfg.UploadsDir = uploadsDir
		routerCfg.UploadsPath = cfg.Upload.PublicPath
	}
	app.Handler = handlers.NewRouter(routerCfg, logger)

	if cfg.Admin.SeedFile != "" {
		if _, err := SeedAdmins(ctx, app.Admins, cfg.Admin.SeedFile, logger); err != nil {
			app.Close(ctx)
			return nil, err
		}
	}

	if cfg.OTP.ReturnToClient {
		logger.Warn("OTP_RETURN_TO_CLIENT is enabled; verification codes are included in responses")
	}
	return app, nil
}

// RunBackground starts the OTP sweeper and the per-IP limiter cleanup. Both
// stop when ctx is cancelled.
func (a *App) RunBackground(ctx context.Context) {
	a.background.Add(2)
	go func() {
		defer a.background.Done()
		a.sweeper.Run(ctx)
	}()
	go func() {
		defer a.background.Done()
		a.ipLimiter.Cleanup(ctx, limiterCleanupInterval, limiterIdleTimeout)
	}()
}

// Close drains pending notifications and releases every backend. The
// context given to RunBackground must be cancelled first.
func (a *App) Close(ctx context.Context) {
	a.background.Wait()
	if a.dispatcher != nil {
		if err := a.dispatcher.Wait(ctx); err != nil {
			a.logger.WithError(err).Warn("Pending notifications were not delivered before shutdown")
		}
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	errs = append(errs, a.Store.Close(ctx))
	if err := errors.Join(errs...); err != nil {
		a.logger.WithError(err).Error("Failed to close backends cleanly")
	}
}
