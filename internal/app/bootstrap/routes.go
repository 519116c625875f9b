// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	booksfeature "github.com/dalemusser/bookhunter/internal/app/features/books"
	contactfeature "github.com/dalemusser/bookhunter/internal/app/features/contact"
	errorsfeature "github.com/dalemusser/bookhunter/internal/app/features/errors"
	healthfeature "github.com/dalemusser/bookhunter/internal/app/features/health"
	loginfeature "github.com/dalemusser/bookhunter/internal/app/features/login"
	logoutfeature "github.com/dalemusser/bookhunter/internal/app/features/logout"
	passwordfeature "github.com/dalemusser/bookhunter/internal/app/features/password"
	profilefeature "github.com/dalemusser/bookhunter/internal/app/features/profile"
	signupfeature "github.com/dalemusser/bookhunter/internal/app/features/signup"
	verifyfeature "github.com/dalemusser/bookhunter/internal/app/features/verify"
	"github.com/dalemusser/bookhunter/internal/app/services/accounts"
	"github.com/dalemusser/bookhunter/internal/app/services/collection"
	"github.com/dalemusser/bookhunter/internal/app/system/auth"
	"github.com/dalemusser/bookhunter/internal/app/system/metrics"
	"github.com/dalemusser/bookhunter/internal/app/system/ratelimit"
	"github.com/dalemusser/bookhunter/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// BookHunter builds the session manager and both services, applies session
// middleware, and mounts the account, collection, health and metrics routes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	proxies, err := ratelimit.ParseTrustedProxies(appCfg.TrustedProxies)
	if err != nil {
		logger.Error("trusted proxy list invalid", zap.Error(err))
		return nil, err
	}
	return buildRouter(appCfg, deps, sessionMgr, proxies, logger), nil
}

func buildRouter(appCfg AppConfig, deps DBDeps, sessionMgr *auth.SessionManager, proxies *ratelimit.TrustedProxies, logger *zap.Logger) chi.Router {
	acctSvc := accounts.New(deps.Accounts, deps.Notifications, accounts.Config{
		BaseURL:    appCfg.BaseURL,
		SiteName:   appCfg.SiteName,
		ResetTTL:   appCfg.ResetTokenTTL,
		BcryptCost: appCfg.BcryptCost,
	}, logger)
	colSvc := collection.New(deps.Accounts, deps.Books, logger)

	// LoadSessionUser re-reads the account on each request, so a verification
	// done in another tab takes effect without signing in again.
	sessionMgr.SetUserFetcher(acctSvc)

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Client address for rate limits: forwarded headers count only when the
	// peer is a configured proxy.
	r.Use(proxies.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	var rdb redis.Cmdable
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	// Account lifecycle
	authLimit := func(route string) func(http.Handler) http.Handler {
		return ratelimit.ByIP(deps.IPLimiter, route, logger)
	}

	signupHandler := signupfeature.NewHandler(acctSvc, errLog, logger)
	r.Mount("/signup", signupfeature.Routes(signupHandler, authLimit("signup")))

	verifyHandler := verifyfeature.NewHandler(acctSvc, sessionMgr, errLog, logger)
	r.Mount("/verify", verifyfeature.Routes(verifyHandler))

	loginLimiter := ratelimit.NewLoginLimiter(deps.IPLimiter, deps.UserLimiter, logger)
	loginHandler := loginfeature.NewHandler(acctSvc, sessionMgr, loginLimiter, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	passwordHandler := passwordfeature.NewHandler(acctSvc, sessionMgr, errLog, logger)
	r.Mount("/forgot", passwordfeature.ForgotRoutes(passwordHandler, authLimit("forgot")))
	r.Mount("/reset", passwordfeature.ResetRoutes(passwordHandler))

	contactHandler := contactfeature.NewHandler(deps.Notifications, appCfg.ContactTo, appCfg.SiteName, logger)
	r.Mount("/send", contactfeature.Routes(contactHandler, authLimit("contact")))

	// Collections (verified accounts only)
	booksHandler := booksfeature.NewHandler(colSvc, errLog, logger)
	r.Mount("/library", booksfeature.Routes(booksHandler, models.Library, sessionMgr, logger))
	r.Mount("/wishlist", booksfeature.Routes(booksHandler, models.Wishlist, sessionMgr, logger))

	profileHandler := profilefeature.NewHandler(acctSvc, colSvc, errLog, logger)
	profilefeature.Routes(r, profileHandler, sessionMgr, logger)

	return r
}
