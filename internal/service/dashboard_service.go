package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classly-app/classly-api/internal/models"
	appErrors "github.com/classly-app/classly-api/pkg/errors"
)

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type studentCounter interface {
	CountStudents(ctx context.Context, studioID string) (int, error)
}

type activeClassCounter interface {
	CountActiveClasses(ctx context.Context, studioID string) (int, error)
}

type revenueReader interface {
	MonthlyRevenue(ctx context.Context, studioID string, monthStart time.Time) (float64, error)
}

type presenceReader interface {
	PresenceRate(ctx context.Context, studioID string, since time.Time) (float64, error)
}

type instructorClassLister interface {
	List(ctx context.Context, studioID string, filter models.ClassFilter) ([]models.ClassDetail, int, error)
}

type rosterReader interface {
	Roster(ctx context.Context, studioID, classID string) ([]models.RosterEntry, error)
}

// DashboardService aggregates studio statistics, cached in Redis. The
// numbers are decorative overview data; staleness up to the TTL is fine.
type DashboardService struct {
	cache       dashboardCache
	users       studentCounter
	studios     activeClassCounter
	payments    revenueReader
	attendance  presenceReader
	classes     instructorClassLister
	enrollments rosterReader
	cacheTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(
	cache dashboardCache,
	users studentCounter,
	studios activeClassCounter,
	payments revenueReader,
	attendance presenceReader,
	classes instructorClassLister,
	enrollments rosterReader,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		cache:       cache,
		users:       users,
		studios:     studios,
		payments:    payments,
		attendance:  attendance,
		classes:     classes,
		enrollments: enrollments,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AdminStats returns studio-wide statistics for the admin dashboard.
func (s *DashboardService) AdminStats(ctx context.Context, studioID string) (*models.AdminStats, error) {
	cacheKey := fmt.Sprintf("dashboard:admin:%s", studioID)
	var cached models.AdminStats
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	now := s.now()
	students, err := s.users.CountStudents(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	classes, err := s.studios.CountActiveClasses(ctx, studioID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count classes")
	}
	revenue, err := s.payments.MonthlyRevenue(ctx, studioID, monthStart(now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum revenue")
	}
	rate, err := s.attendance.PresenceRate(ctx, studioID, now.AddDate(0, -1, 0))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance rate")
	}

	stats := &models.AdminStats{
		TotalStudents:  students,
		ActiveClasses:  classes,
		MonthlyRevenue: revenue,
		AttendanceRate: rate,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache admin stats", zap.Error(err))
		}
	}
	return stats, nil
}

// InstructorStats returns today's classes and total distinct students for
// an instructor.
func (s *DashboardService) InstructorStats(ctx context.Context, studioID, instructorID string) (*models.InstructorStats, error) {
	cacheKey := fmt.Sprintf("dashboard:instructor:%s:%s", studioID, instructorID)
	var cached models.InstructorStats
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	today := int(s.now().Weekday())
	active := true
	todayClasses, _, err := s.classes.List(ctx, studioID, models.ClassFilter{
		InstructorID: instructorID,
		DayOfWeek:    &today,
		Active:       &active,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's classes")
	}

	allClasses, _, err := s.classes.List(ctx, studioID, models.ClassFilter{InstructorID: instructorID, Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor classes")
	}

	seen := make(map[string]struct{})
	for _, class := range allClasses {
		roster, err := s.enrollments.Roster(ctx, studioID, class.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
		}
		for _, entry := range roster {
			seen[entry.StudentID] = struct{}{}
		}
	}

	stats := &models.InstructorStats{TodayClasses: todayClasses, TotalStudents: len(seen)}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache instructor stats", zap.Error(err))
		}
	}
	return stats, nil
}
