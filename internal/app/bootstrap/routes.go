// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"

	accountfeature "github.com/dalemusser/gamerie/internal/app/features/account"
	errorsfeature "github.com/dalemusser/gamerie/internal/app/features/errors"
	healthfeature "github.com/dalemusser/gamerie/internal/app/features/health"
	profilefeature "github.com/dalemusser/gamerie/internal/app/features/profile"
	socialfeature "github.com/dalemusser/gamerie/internal/app/features/social"
	accountsvc "github.com/dalemusser/gamerie/internal/app/services/account"
	profilesvc "github.com/dalemusser/gamerie/internal/app/services/profile"
	socialsvc "github.com/dalemusser/gamerie/internal/app/services/social"
	"github.com/dalemusser/gamerie/internal/app/store/audit"
	"github.com/dalemusser/gamerie/internal/app/store/credentials"
	"github.com/dalemusser/gamerie/internal/app/store/emailverify"
	userstore "github.com/dalemusser/gamerie/internal/app/store/users"
	"github.com/dalemusser/gamerie/internal/app/system/auditlog"
	"github.com/dalemusser/gamerie/internal/app/system/auth"
	"github.com/dalemusser/gamerie/internal/app/system/authprovider"
	"github.com/dalemusser/gamerie/internal/app/system/mailer"
	"github.com/dalemusser/gamerie/internal/app/system/notify"
	"github.com/dalemusser/gamerie/internal/app/system/ratelimit"
	"github.com/dalemusser/gamerie/internal/app/system/respond"
	"github.com/dalemusser/gamerie/internal/app/system/tasks"
	"github.com/dalemusser/gamerie/internal/app/system/timeouts"
	"github.com/dalemusser/gamerie/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. Gamerie builds the identity provider and
// the three services over deps, then mounts:
//
//	/auth         sign-up, sign-in, logout, reset, verify, me
//	/users/{id}   profile read/edit/delete, images, games, achievements, teams, follow
//	/health       liveness
//	/metrics      Prometheus
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	var sender mailer.Sender = mailer.LogSender{Log: logger}
	if appCfg.MailSMTPHost != "" {
		sender = mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
			Timeout:  timeouts.Medium(),
		}, logger)
	}

	provider, err := authprovider.NewLocal(
		credentials.New(deps.Docs),
		emailverify.New(deps.Docs, appCfg.EmailVerifyExpiry),
		sender,
		authprovider.Config{
			Issuer:     appCfg.AuthIssuer,
			SigningKey: []byte(appCfg.AuthSigningKey),
			TokenTTL:   appCfg.AuthTokenTTL,
			BcryptCost: bcrypt.DefaultCost,
			SiteName:   appCfg.MailFromName,
			BaseURL:    appCfg.BaseURL,
		}, logger)
	if err != nil {
		logger.Error("identity provider init failed", zap.Error(err))
		return nil, err
	}

	users := userstore.New(deps.Docs)
	sessionMgr.Attach(provider, users)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	notifier := notify.New(logger, reg)

	auditLog := auditlog.New(audit.New(deps.Docs), logger, auditlog.Config{
		Auth:    appCfg.AuditLogAuth,
		Profile: appCfg.AuditLogProfile,
	})

	accounts := accountsvc.New(provider, users, auditLog, notifier, deps.Events, logger)
	deps.closers.add("account background work", func(ctx context.Context) error {
		accounts.Wait()
		return nil
	})
	profiles := profilesvc.New(users, deps.Blobs, auditLog, notifier, deps.Events, logger)
	social := socialsvc.New(users, socialsvc.Options{
		Reciprocal: appCfg.FollowReciprocal,
		Refresh:    appCfg.SnapshotRefresh,
	}, auditLog, notifier, deps.Events, logger)

	jobs := workers.NewRunner(logger, timeouts.Long(),
		tasks.SnapshotPruneJob(social, appCfg.SnapshotMaxAge, logger))
	jobs.Start()
	deps.closers.add("background jobs", func(context.Context) error {
		jobs.Stop()
		return nil
	})

	r := chi.NewRouter()

	// Request metadata for audit events, a per-request notification
	// collector, then the session (anonymous when there is no valid cookie).
	r.Use(auditlog.Middleware)
	r.Use(respond.Collect)
	r.Use(sessionMgr.LoadSessionUser)

	errorsfeature.Mount(r, errorsfeature.NewHandler(logger))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(pinger(deps), appCfg.BlobBackend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	accountHandler := accountfeature.NewHandler(accounts, sessionMgr, logger)
	if appCfg.AuthRateLimit {
		accountHandler.Limiter = ratelimit.NewAuthLimiter(ratelimit.DefaultAuthConfig)
		deps.closers.add("auth rate limiter", func(context.Context) error {
			accountHandler.Limiter.Stop()
			return nil
		})
	}
	r.Mount("/auth", accountfeature.Routes(accountHandler))

	profileHandler := profilefeature.NewHandler(profiles, sessionMgr, appCfg.MaxImageBytes, logger)
	socialHandler := socialfeature.NewHandler(social, sessionMgr, logger)
	r.Route("/users/{id}", func(r chi.Router) {
		profilefeature.MountRoutes(r, profileHandler)
		socialfeature.MountRoutes(r, socialHandler)
	})

	return r, nil
}

// pinger returns the MongoDB client as a health Pinger, or nil when
// documents live in memory.
func pinger(deps DBDeps) healthfeature.Pinger {
	if deps.MongoClient == nil {
		return nil
	}
	return deps.MongoClient
}
