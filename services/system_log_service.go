package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemLogService writes and queries the admin audit trail
type SystemLogService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSystemLogService creates a new system log service. Failed writes from
// Note are reported on log.
func NewSystemLogService(db *gorm.DB, log *logger.Logger) *SystemLogService {
	return &SystemLogService{db: db, log: log}
}

// LogEntry is the input for a new system log row
type LogEntry struct {
	Action      string
	Description string
	UserID      *uint
	EntityType  string
	EntityID    *uint
	IPAddress   string
	UserAgent   string
	Severity    model.Severity
	Metadata    interface{}
}

// ListLogsOptions represents options for listing logs
type ListLogsOptions struct {
	Search   string
	Severity string
	Limit    int
	Offset   int
}

// Record appends a log entry
func (s *SystemLogService) Record(ctx context.Context, entry LogEntry) error {
	if entry.Severity == "" {
		entry.Severity = model.SeverityLow
	}

	log := model.SystemLog{
		Action:      entry.Action,
		Description: entry.Description,
		UserID:      entry.UserID,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Severity:    entry.Severity,
	}

	if entry.Metadata != nil {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		log.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("failed to write system log: %w", err)
	}
	return nil
}

// Note records entry for a domain operation that has already succeeded.
// A failed write is logged and does not fail the operation.
func (s *SystemLogService) Note(ctx context.Context, entry LogEntry) {
	if err := s.Record(ctx, entry); err != nil {
		s.log.Warn("system log write failed", "action", entry.Action, "entity", entry.EntityType, "error", err)
	}
}

// List returns logs newest first with the total matching count
func (s *SystemLogService) List(ctx context.Context, opts ListLogsOptions) ([]model.SystemLog, int64, error) {
	var (
		logs  []model.SystemLog
		total int64
	)

	query := s.db.WithContext(ctx).Model(&model.SystemLog{})
	if opts.Search != "" {
		pattern := containsPattern(opts.Search)
		query = query.Where("LOWER(action) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	if opts.Severity != "" && opts.Severity != "all" {
		query = query.Where("severity = ?", opts.Severity)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(opts.Offset).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch logs: %w", err)
	}

	return logs, total, nil
}

// Clear deletes every log and returns the number removed
func (s *SystemLogService) Clear(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.SystemLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// PurgeOlderThan deletes logs created before cutoff
func (s *SystemLogService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.SystemLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
