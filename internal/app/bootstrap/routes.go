// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditlogfeature "github.com/dalemusser/larder/internal/app/features/auditlog"
	authapifeature "github.com/dalemusser/larder/internal/app/features/authapi"
	authgooglefeature "github.com/dalemusser/larder/internal/app/features/authgoogle"
	categoriesfeature "github.com/dalemusser/larder/internal/app/features/categories"
	fooditemsfeature "github.com/dalemusser/larder/internal/app/features/fooditems"
	groupsfeature "github.com/dalemusser/larder/internal/app/features/groups"
	healthfeature "github.com/dalemusser/larder/internal/app/features/health"
	notificationsfeature "github.com/dalemusser/larder/internal/app/features/notifications"
	realtimefeature "github.com/dalemusser/larder/internal/app/features/realtime"
	shoppingfeature "github.com/dalemusser/larder/internal/app/features/shopping"
	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/dalemusser/larder/internal/app/system/clientip"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup. Everything below /api speaks JSON; /auth/google is the browser
// redirect flow; /health and /metrics are for operators.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Reload the user on each request so deleted accounts lose access at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	db, client, svc := deps.MongoDatabase, deps.MongoClient, deps.svc

	proxies, err := clientip.ParseTrusted(appCfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(proxies.Middleware)
	r.Use(metrics.InstrumentHandler)
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	var broker healthfeature.Pinger
	if deps.Broker != nil {
		broker = deps.Broker
	}
	healthHandler := healthfeature.NewHandler(client, broker, logger)
	if deps.Hub != nil {
		healthHandler.Feeds = deps.Hub
	}
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		googleHandler.Audit = svc.Audit
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	} else {
		logger.Info("google sign-in disabled: no client id configured")
	}

	api := chi.NewRouter()
	api.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, http.StatusNotFound, "not found")
	})
	api.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	authHandler := authapifeature.NewHandler(db, sessionMgr, svc.Limiter, svc.Mailer, appCfg.PasswordResetExpiry, appCfg.BaseURL, logger)
	authHandler.SiteName = appCfg.MailFromName
	authHandler.Audit = svc.Audit
	api.Mount("/auth", authapifeature.Routes(authHandler))

	api.Mount("/categories", categoriesfeature.Routes(categoriesfeature.NewHandler(db, logger), sessionMgr))

	// Group-scoped resources hang off /groups/{gid}; chi tries the longer
	// static prefixes before falling back to the groups router.
	groupsHandler := groupsfeature.NewHandler(db, client, logger)
	groupsHandler.Audit = svc.Audit
	api.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))
	activityHandler := auditlogfeature.NewHandler(db, logger)
	api.Mount("/groups/{gid}/activity", auditlogfeature.Routes(activityHandler, sessionMgr))
	api.Mount("/activity", auditlogfeature.MyRoutes(activityHandler, sessionMgr))

	foodHandler := fooditemsfeature.NewHandler(db, deps.Hub, svc.Loc, logger)
	api.Mount("/groups/{gid}/food-items", fooditemsfeature.Routes(foodHandler, sessionMgr))
	api.Mount("/groups/{gid}/expiring", fooditemsfeature.ExpiringRoutes(foodHandler, sessionMgr))

	shopHandler := shoppingfeature.NewHandler(db, client, deps.Hub, logger)
	api.Mount("/groups/{gid}/lists", shoppingfeature.GroupRoutes(shopHandler, sessionMgr))
	api.Mount("/lists", shoppingfeature.ListRoutes(shopHandler, sessionMgr))
	api.Mount("/list-items", shoppingfeature.ItemRoutes(shopHandler, sessionMgr))

	notifyHandler := notificationsfeature.NewHandler(db, svc.Pusher, appCfg.BaseURL, logger)
	api.Mount("/notifications", notificationsfeature.Routes(notifyHandler, sessionMgr))

	feedHandler := realtimefeature.NewHandler(db, deps.Hub, appCfg.BaseURL, logger)
	api.Mount("/realtime", realtimefeature.Routes(feedHandler, sessionMgr))

	r.Mount("/api", api)

	return r, nil
}
