package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jobpal/jobpal-server/internal/application/port"
	"github.com/jobpal/jobpal-server/internal/auth"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	"github.com/jobpal/jobpal-server/internal/domain/workflow"
	"github.com/jobpal/jobpal-server/internal/export"
)

// ExportService produces the staff-facing activity statistics download.
type ExportService interface {
	// ExportActivityBook returns the xlsx workbook of per-student activity
	// statistics. Staff only.
	ExportActivityBook(ctx context.Context, session *auth.Session) ([]byte, error)
}

type exportServiceImpl struct {
	jobRepo  port.JobSearchRepository
	userRepo port.UserRepository
	logger   Logger
}

// NewExportService creates a new ExportService.
func NewExportService(jobRepo port.JobSearchRepository, userRepo port.UserRepository, logger Logger) ExportService {
	return &exportServiceImpl{
		jobRepo:  jobRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *exportServiceImpl) ExportActivityBook(ctx context.Context, session *auth.Session) ([]byte, error) {
	if !session.Valid(time.Now()) {
		return nil, auth.ErrNoSession
	}
	if session.Role == workflow.RoleStudent {
		return nil, fmt.Errorf("%w: statistics are staff-only", ErrForbidden)
	}

	activities, err := s.jobRepo.ListAll(ctx, true)
	if err != nil {
		s.logger.Error("Failed to list activities for export", "error", err)
		return nil, fmt.Errorf("list activities: %w", err)
	}

	stats := s.aggregate(ctx, activities)

	buf, err := export.WriteActivityBook(stats)
	if err != nil {
		s.logger.Error("Failed to render activity workbook", "error", err)
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("Activity workbook exported", "rows", len(stats), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// aggregate folds the activities into one row per student. Withdrawn items
// stay out of the counts.
func (s *exportServiceImpl) aggregate(ctx context.Context, activities []*entity.JobHuntActivity) []export.ActivityStat {
	byUser := make(map[string]*export.ActivityStat)
	for _, activity := range activities {
		if activity.State == workflow.StateWithdrawn {
			continue
		}

		stat, exists := byUser[activity.UserID]
		if !exists {
			stat = &export.ActivityStat{UserID: activity.UserID}
			if user, err := s.userRepo.GetByID(ctx, activity.UserID); err == nil {
				stat.UserName = user.Name
				stat.Class = user.Class
			}
			byUser[activity.UserID] = stat
		}

		switch activity.LocationType {
		case entity.LocationSapporo:
			stat.SapporoCount++
		case entity.LocationTokyo:
			stat.TokyoCount++
		default:
			stat.OtherCount++
		}
		if activity.State == workflow.StateCompleted {
			stat.CompletedCount++
		}
		stat.TotalCount++
	}

	stats := make([]export.ActivityStat, 0, len(byUser))
	for _, stat := range byUser {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].UserID < stats[j].UserID })
	return stats
}
