package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"familytree/internal/access"
	"familytree/internal/config"
	"familytree/internal/database"
	"familytree/internal/handlers"
	"familytree/internal/logger"
	"familytree/internal/metrics"
	"familytree/internal/repository"
	"familytree/internal/security"
	"familytree/internal/service"
	"familytree/migrations"
)

const (
	stepDatabase   = "Connecting to database"
	stepMigrations = "Running migrations"
	stepServices   = "Starting services"
)

// readNotificationRetention is how long read notifications are kept
const readNotificationRetention = 30 * 24 * time.Hour

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(stepDatabase, stepMigrations, stepServices)

	// The health endpoint answers while the rest of the server initializes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", startup.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlers.Logging(log, metrics.InstrumentHandler(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	startup.SetCurrentStep(stepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()
	log.Info("database connection established", "type", cfg.DatabaseType)
	startup.CompleteStep(stepDatabase)

	startup.SetCurrentStep(stepMigrations)
	applied, err := db.RunMigrations(migrations.Source(cfg.MigrationsPath))
	if err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}
	log.Info("migrations completed", "applied", len(applied))
	startup.CompleteStep(stepMigrations)

	startup.SetCurrentStep(stepServices)
	stalePolicy, err := service.ParseStalePolicy(cfg.SubFamilyStalePolicy)
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, log.With("component", "email"))
	if err != nil {
		log.Warn("email disabled", "error", err)
	}
	emailService.SetDebug(cfg.EmailDebug)

	repos := repository.NewRepositories(db)
	tx := service.NewTransactor(db)
	policy := access.NewPolicy(repos.Memberships, repos.Members)

	resolver := service.NewSubFamilyResolver(repos, tx, stalePolicy, log.With("component", "resolver"))
	notifications := service.NewNotificationService(repos.Notifications, repos.Users, emailService, log)
	authService := service.NewAuthService(repos, tx, security.NewTokenIssuer(cfg.JWTSecret, cfg.SessionDuration), emailService, cfg.SessionDuration, log)
	familyService := service.NewFamilyService(repos, tx, policy, resolver, notifications, log)
	memberService := service.NewMemberService(repos, tx, policy, resolver, notifications, log)
	postService := service.NewPostService(repos, tx, policy, notifications, log)
	commentService := service.NewCommentService(repos, tx, policy, notifications, log)
	invitationService := service.NewInvitationService(repos, tx, policy, emailService, notifications, log)
	backupService := service.NewBackupService(db, tx, policy, log)

	oauthProviders := map[string]handlers.OAuthProvider{}
	if google := handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret); google != nil {
		oauthProviders[google.Name] = *google
	}

	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(ctx, cfg.LoginRateLimit, time.Minute)

	routes := &handlers.Handlers{
		Middleware:    handlers.NewMiddleware(authService, csrf, limiter, log),
		Auth:          handlers.NewAuthHandler(authService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL, log),
		Families:      handlers.NewFamilyHandler(familyService, backupService, cfg.UploadMaxSize, log),
		Members:       handlers.NewMemberHandler(memberService, log),
		Posts:         handlers.NewPostHandler(postService, commentService, log),
		Invitations:   handlers.NewInvitationHandler(invitationService, log),
		Notifications: handlers.NewNotificationHandler(notifications, log),
		Admin:         handlers.NewAdminHandler(backupService, resolver, repos.Users, cfg.UploadMaxSize, log),
	}
	routes.Register(mux)

	scheduler, err := startJobs(cfg, log, authService, notifications, invitationService, resolver)
	if err != nil {
		log.Fatal("failed to schedule background jobs", "error", err)
	}
	startup.CompleteStep(stepServices)
	startup.MarkReady()
	log.Info("server ready", "oauth_providers", len(oauthProviders), "stale_policy", string(stalePolicy))

	<-ctx.Done()
	log.Info("server shutting down")

	<-scheduler.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// startJobs schedules the periodic maintenance work
func startJobs(cfg *config.Config, log *logger.Logger, auth *service.AuthService, notifications *service.NotificationService, invitations *service.InvitationService, resolver *service.SubFamilyResolver) (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc("@hourly", func() {
		n, err := auth.CleanupExpiredSessions()
		if err != nil {
			log.Error("session cleanup failed", "error", err)
			return
		}
		log.Info("expired sessions cleaned up", "removed", n)
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc("@daily", func() {
		if n, err := notifications.PurgeRead(readNotificationRetention); err != nil {
			log.Error("notification purge failed", "error", err)
		} else {
			log.Info("read notifications purged", "removed", n)
		}
		if n, err := invitations.PurgeExpired(); err != nil {
			log.Error("invitation purge failed", "error", err)
		} else {
			log.Info("expired invitations purged", "removed", n)
		}
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(cfg.ResolverSweepSchedule, func() {
		results, err := resolver.ResolveAll()
		if err != nil {
			log.Error("sub-family sweep failed", "error", err)
			return
		}
		log.Info("sub-family sweep complete", "families", len(results))
	}); err != nil {
		return nil, err
	}

	c.Start()
	return c, nil
}
