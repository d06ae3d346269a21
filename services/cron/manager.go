package cron

import (
	"context"
	"time"

	"github.com/eduhub/marketplace-api/model"
	"github.com/eduhub/marketplace-api/services"
	"github.com/eduhub/marketplace-api/services/storage"
	"github.com/eduhub/marketplace-api/utils/auth"
	"github.com/eduhub/marketplace-api/utils/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	JobSweepOrphanUploads     = "sweep_orphan_uploads"
	JobCleanupSystemLogs      = "cleanup_system_logs"
	JobPruneReadNotifications = "prune_read_notifications"
	JobPruneExpiredSessions   = "prune_expired_sessions"
)

// Config holds the retention windows of the maintenance jobs
type Config struct {
	LogRetention      time.Duration
	OrphanUploadGrace time.Duration
	NotificationTTL   time.Duration
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	files         storage.FileStore
	logs          *services.SystemLogService
	notifications *services.NotificationService
	sessions      auth.SessionStore
	config        Config
	log           *logger.Logger
	now           func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, files storage.FileStore, logs *services.SystemLogService, notifications *services.NotificationService, sessions auth.SessionStore, config Config, log *logger.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	return &CronManager{
		cron:          c,
		db:            db,
		files:         files,
		logs:          logs,
		notifications: notifications,
		sessions:      sessions,
		config:        config,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("[CRON] starting cron jobs")

	// Register all jobs
	if err := m.registerJobs(); err != nil {
		return err
	}

	// Start the cron scheduler
	m.cron.Start()

	m.log.Info("[CRON] cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	m.log.Info("[CRON] stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("[CRON] cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	jobs := []struct {
		spec string
		name string
		fn   func(ctx context.Context) (string, error)
	}{
		// Every hour: remove uploads no row references
		{"0 0 * * * *", JobSweepOrphanUploads, m.SweepOrphanUploads},
		// Daily at 3 AM: drop system logs past retention
		{"0 0 3 * * *", JobCleanupSystemLogs, m.CleanupSystemLogs},
		// Daily at 3:30 AM: drop old read notifications
		{"0 30 3 * * *", JobPruneReadNotifications, m.PruneReadNotifications},
		// Every 10 minutes: drop expired sessions
		{"0 */10 * * * *", JobPruneExpiredSessions, m.PruneExpiredSessions},
	}

	for _, job := range jobs {
		job := job
		if _, err := m.cron.AddFunc(job.spec, func() { m.Run(job.name, job.fn) }); err != nil {
			return err
		}
	}

	m.log.Info("[CRON] all cron jobs registered")
	return nil
}

// Run executes one job with a timeout and records it in cron_job_logs
func (m *CronManager) Run(jobName string, fn func(ctx context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	entry := m.logJobStart(jobName)
	message, err := fn(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, message)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Info("[CRON] starting job", "job", jobName)

	cronLog := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now(),
	}
	if err := m.db.Create(cronLog).Error; err != nil {
		m.log.Warn("[CRON] failed to record job start", "job", jobName, "error", err)
	}
	return cronLog
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	m.log.Info("[CRON] completed job", "job", entry.JobName, "result", message)
	m.finish(entry, "completed", message, "")
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.log.Error("[CRON] job failed", "job", entry.JobName, "error", err)
	m.finish(entry, "failed", "", err.Error())
}

func (m *CronManager) finish(entry *model.CronJobLog, status, message, errMsg string) {
	if entry.ID == 0 {
		return
	}
	completed := m.now()
	if err := m.db.Model(entry).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": completed,
		"duration":     completed.Sub(entry.StartedAt).Milliseconds(),
		"message":      message,
		"error_msg":    errMsg,
	}).Error; err != nil {
		m.log.Warn("[CRON] failed to record job result", "job", entry.JobName, "error", err)
	}
}
