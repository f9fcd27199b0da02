package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/handler"
	"github.com/classly-app/classly-api/internal/middleware"
	"github.com/classly-app/classly-api/internal/models"
	"github.com/classly-app/classly-api/internal/service"
	"github.com/classly-app/classly-api/pkg/config"
	"github.com/classly-app/classly-api/pkg/logger"
	corsmiddleware "github.com/classly-app/classly-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classly-app/classly-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	Classes     *handler.ClassHandler
	Enrollments *handler.EnrollmentHandler
	Attendance  *handler.AttendanceHandler
	Payments    *handler.PaymentHandler
	Webhooks    *handler.WebhookHandler
	Invitations *handler.InvitationHandler
	Dashboard   *handler.DashboardHandler
	Students    *handler.StudentHandler
	Instructors *handler.InstructorHandler
	Studios     *handler.StudioHandler
	Exports     *handler.ExportHandler
}

// New builds the gin engine with all routes and middleware mounted.
func New(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers, readyCheck func() error) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if readyCheck != nil {
			if err := readyCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	// Public
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/invitations/:token", h.Invitations.Validate)
	api.POST("/webhooks/stripe", h.Webhooks.Stripe)

	// Authenticated
	authed := api.Group("")
	authed.Use(middleware.JWT(auth))

	authed.GET("/auth/me", h.Auth.Me)
	authed.POST("/invitations/:token/accept", h.Invitations.Accept)

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrInstructor := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleInstructor, models.RoleStudent)
	adminOrStudent := middleware.RequireRoles(models.RoleAdmin, models.RoleStudent)

	// Classes
	authed.GET("/classes", anyRole, h.Classes.List)
	authed.GET("/classes/:id", anyRole, h.Classes.Get)
	authed.POST("/classes", admin, h.Classes.Create)
	authed.PUT("/classes/:id", admin, h.Classes.Update)
	authed.DELETE("/classes/:id", admin, h.Classes.Deactivate)

	// Enrollments
	authed.POST("/enrollments", adminOrStudent, h.Enrollments.Register)
	authed.GET("/enrollments/me", middleware.RequireRoles(models.RoleStudent), h.Enrollments.MyEnrollments)
	authed.DELETE("/enrollments/:id", adminOrStudent, h.Enrollments.Cancel)
	authed.GET("/classes/:id/roster", adminOrInstructor, h.Enrollments.Roster)

	// Attendance
	authed.POST("/classes/:id/attendance", adminOrInstructor, h.Attendance.Record)
	authed.GET("/classes/:id/attendance", adminOrInstructor, h.Attendance.ForClass)
	authed.GET("/students/:id/attendance", middleware.RBAC(string(models.RoleAdmin), string(models.RoleInstructor), "SELF"), h.Attendance.ForStudent)

	// Payments
	authed.POST("/payments/intent", adminOrStudent, h.Payments.CreateIntent)
	authed.GET("/payments", admin, h.Payments.List)

	// Invitations
	authed.POST("/invitations", admin, h.Invitations.Create)

	// Dashboard
	authed.GET("/dashboard/admin", admin, h.Dashboard.Admin)
	authed.GET("/dashboard/instructor", middleware.RequireRoles(models.RoleInstructor), h.Dashboard.Instructor)

	// Students
	authed.GET("/students", admin, h.Students.List)
	authed.GET("/students/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Students.Profile)

	// Instructors
	authed.GET("/instructors", admin, h.Instructors.List)
	authed.GET("/instructors/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Instructors.Get)
	authed.DELETE("/instructors/:id", admin, h.Instructors.Deactivate)

	// Studio structure
	authed.GET("/studio", anyRole, h.Studios.Get)
	authed.POST("/studio", admin, h.Studios.Create)
	authed.PUT("/studio", admin, h.Studios.Update)
	authed.GET("/studio/branches", anyRole, h.Studios.Branches)
	authed.POST("/studio/branches", admin, h.Studios.CreateBranch)
	authed.DELETE("/studio/branches/:id", admin, h.Studios.DeleteBranch)
	authed.GET("/studio/rooms", anyRole, h.Studios.Rooms)
	authed.POST("/studio/rooms", admin, h.Studios.CreateRoom)
	authed.DELETE("/studio/rooms/:id", admin, h.Studios.DeleteRoom)

	// Exports
	authed.GET("/exports/classes/:id/roster", adminOrInstructor, h.Exports.Roster)
	authed.GET("/exports/payments", admin, h.Exports.Payments)

	return r
}
