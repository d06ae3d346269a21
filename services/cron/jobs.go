package cron

import (
	"context"
	"fmt"

	"github.com/eduhub/marketplace-api/model"
)

// SweepOrphanUploads deletes stored files that are older than the grace
// period and referenced by no material, course thumbnail or avatar
func (m *CronManager) SweepOrphanUploads(ctx context.Context) (string, error) {
	objects, err := m.files.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list uploads: %w", err)
	}
	if len(objects) == 0 {
		return "No uploads to check", nil
	}

	referenced := make(map[string]bool)
	var urls []string
	if err := m.db.WithContext(ctx).Model(&model.CourseMaterial{}).Pluck("file_url", &urls).Error; err != nil {
		return "", fmt.Errorf("failed to load material urls: %w", err)
	}
	for _, u := range urls {
		referenced[u] = true
	}

	var thumbnails []string
	if err := m.db.WithContext(ctx).Model(&model.Course{}).
		Where("thumbnail_url IS NOT NULL").
		Pluck("thumbnail_url", &thumbnails).Error; err != nil {
		return "", fmt.Errorf("failed to load thumbnail urls: %w", err)
	}
	for _, u := range thumbnails {
		referenced[u] = true
	}

	var avatars []string
	if err := m.db.WithContext(ctx).Model(&model.User{}).
		Where("profile_image_url <> ''").
		Pluck("profile_image_url", &avatars).Error; err != nil {
		return "", fmt.Errorf("failed to load avatar urls: %w", err)
	}
	for _, u := range avatars {
		referenced[u] = true
	}

	cutoff := m.now().Add(-m.config.OrphanUploadGrace)
	removed, failed := 0, 0
	for _, obj := range objects {
		if obj.ModTime.After(cutoff) || referenced[m.files.URL(obj.Key)] {
			continue
		}
		if err := m.files.Delete(ctx, obj.Key); err != nil {
			m.log.Warn("[CRON] failed to delete orphaned upload", "key", obj.Key, "error", err)
			failed++
			continue
		}
		removed++
	}

	return fmt.Sprintf("Checked %d uploads, removed %d, failed %d", len(objects), removed, failed), nil
}

// CleanupSystemLogs deletes system logs older than the retention window
func (m *CronManager) CleanupSystemLogs(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-m.config.LogRetention)
	removed, err := m.logs.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %d system logs older than %s", removed, cutoff.Format("2006-01-02")), nil
}

// PruneReadNotifications deletes read notifications past their TTL
func (m *CronManager) PruneReadNotifications(ctx context.Context) (string, error) {
	cutoff := m.now().Add(-m.config.NotificationTTL)
	removed, err := m.notifications.PruneRead(ctx, cutoff)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %d read notifications", removed), nil
}

// PruneExpiredSessions removes expired sessions from the session store
func (m *CronManager) PruneExpiredSessions(ctx context.Context) (string, error) {
	removed, err := m.sessions.PruneExpired(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to prune %s sessions: %w", m.sessions.Name(), err)
	}
	return fmt.Sprintf("Removed %d expired sessions", removed), nil
}
