// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	discussfeature "github.com/dalemusser/coursediscuss/internal/app/features/discuss"
	healthfeature "github.com/dalemusser/coursediscuss/internal/app/features/health"
	logoutfeature "github.com/dalemusser/coursediscuss/internal/app/features/logout"
	coursecontentstore "github.com/dalemusser/coursediscuss/internal/app/store/coursecontent"
	forumbindingstore "github.com/dalemusser/coursediscuss/internal/app/store/forumbindings"
	forumstore "github.com/dalemusser/coursediscuss/internal/app/store/forums"
	pagebindingstore "github.com/dalemusser/coursediscuss/internal/app/store/pagebindings"
	userstore "github.com/dalemusser/coursediscuss/internal/app/store/users"
	"github.com/dalemusser/coursediscuss/internal/app/system/auth"
	"github.com/dalemusser/coursediscuss/internal/app/system/bindingcache"
	"github.com/dalemusser/coursediscuss/internal/app/system/forumlocator"
	"github.com/dalemusser/coursediscuss/internal/app/system/pagediscussion"
	"github.com/dalemusser/coursediscuss/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The discussion endpoints are mounted at
// /discuss behind the session middleware; /health stays public.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Reload the user on each request so suspended accounts lose access at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	// Initialize and boot the template engine once at startup.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	settings := appCfg.DiscussSettings()

	forums := forumstore.New(deps.MongoDatabase)
	users := userstore.New(deps.MongoDatabase)

	// Forum bindings go through Redis when it is configured; a nil client
	// makes the cache a pass-through.
	forumBindings := bindingcache.New(
		forumbindingstore.New(deps.MongoDatabase),
		deps.Redis,
		appCfg.ForumBindingCacheTTL,
		logger,
	)
	locator := forumlocator.New(forumBindings, forums, forumlocator.NewMatchRules(settings.ForumNamePatterns), logger)

	pages := pagediscussion.New(
		pagebindingstore.New(deps.MongoDatabase),
		forums,
		coursecontentstore.New(deps.MongoDatabase),
		users,
		pagediscussion.Config{
			LinkInitialPostToPage: settings.LinkInitialPostToPage,
			PostingUserID:         settings.PostingUserID,
			LMSBaseURL:            settings.LMSBaseURL,
		},
		logger,
	)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	discussHandler := discussfeature.NewHandler(locator, pages, forums, users, eng, settings, logger)
	if appCfg.PostRateLimit > 0 {
		discussHandler.Throttle = ratelimit.NewPostLimiter(appCfg.PostRateLimit, appCfg.PostRateWindow)
	}
	r.Mount("/discuss", discussfeature.Routes(discussHandler, sessionMgr))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, settings.LMSBaseURL, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	return r, nil
}
