package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/classly-app/classly-api/api/swagger"
	"github.com/classly-app/classly-api/internal/handler"
	"github.com/classly-app/classly-api/internal/repository"
	"github.com/classly-app/classly-api/internal/router"
	"github.com/classly-app/classly-api/internal/service"
	"github.com/classly-app/classly-api/pkg/cache"
	"github.com/classly-app/classly-api/pkg/config"
	"github.com/classly-app/classly-api/pkg/database"
	"github.com/classly-app/classly-api/pkg/logger"
)

// @title Classly API
// @version 1.0.0
// @description Studio management: enrollments, capacity, payments and attendance
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Dashboard caching degrades to direct queries without Redis.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studioRepo := repository.NewStudioRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})
	invitationSvc := service.NewInvitationService(userRepo, studioRepo, validate, logr, service.InviteConfig{
		Secret:     cfg.Invites.Secret,
		Expiration: cfg.Invites.Expiration,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})
	classSvc := service.NewClassService(classRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, paymentRepo, validate, logr)
	paymentSvc := service.NewPaymentService(
		service.NewStripeGateway(cfg.Stripe.SecretKey),
		paymentRepo, enrollmentSvc,
		cfg.Stripe.WebhookSecret, cfg.Stripe.Currency,
		validate, logr, metrics,
	)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, enrollmentRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(cacheRepo, userRepo, studioRepo, paymentRepo, attendanceRepo, classRepo, enrollmentRepo, cfg.Dashboard.CacheTTL, metrics, logr)
	studentSvc := service.NewStudentService(userRepo, enrollmentRepo, validate, logr)
	instructorSvc := service.NewInstructorService(userRepo, logr)
	studioSvc := service.NewStudioService(studioRepo, userRepo, validate, logr)
	exportSvc := service.NewExportService(enrollmentRepo, paymentRepo, classRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reconciler.Enabled {
		reconciler := service.NewReconcilerService(classRepo, enrollmentSvc, service.ReconcilerConfig{
			SweepInterval: cfg.Reconciler.SweepInterval,
			Workers:       cfg.Reconciler.Workers,
		}, metrics, logr)
		enrollmentSvc.SetRecountScheduler(reconciler)
		reconciler.Start(ctx)
		defer reconciler.Stop()
	}

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Classes:     handler.NewClassHandler(classSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, metrics),
		Attendance:  handler.NewAttendanceHandler(attendanceSvc, enrollmentSvc),
		Payments:    handler.NewPaymentHandler(paymentSvc),
		Webhooks:    handler.NewWebhookHandler(paymentSvc),
		Invitations: handler.NewInvitationHandler(invitationSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Instructors: handler.NewInstructorHandler(instructorSvc),
		Studios:     handler.NewStudioHandler(studioSvc),
		Exports:     handler.NewExportHandler(exportSvc, enrollmentSvc),
	}

	engine := router.New(cfg, logr, authSvc, metrics, handlers, db.Ping)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
