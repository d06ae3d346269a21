package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eduhub/marketplace-api/model"
	"gorm.io/gorm"
)

// SettingsService manages app settings and feature flags. Values are stored
// and displayed; nothing else in the platform reads them.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new settings service
func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// FeatureFlagUpdate is a partial feature flag update
type FeatureFlagUpdate struct {
	Name              *string
	Description       *string
	IsEnabled         *bool
	RolloutPercentage *int
}

// ValidateSettingValue checks value against the declared setting type
func ValidateSettingValue(settingType model.SettingType, value string) error {
	switch settingType {
	case model.SettingTypeBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: expected true or false", ErrInvalidSettingValue)
		}
	case model.SettingTypeInt:
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: expected an integer", ErrInvalidSettingValue)
		}
	case model.SettingTypeJSON:
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("%w: expected valid JSON", ErrInvalidSettingValue)
		}
	}
	return nil
}

// List returns every setting grouped by category
func (s *SettingsService) List(ctx context.Context) ([]model.AppSetting, error) {
	var settings []model.AppSetting
	if err := s.db.WithContext(ctx).Order("category ASC, key ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return settings, nil
}

// Public returns the settings readable without a session
func (s *SettingsService) Public(ctx context.Context) ([]model.AppSetting, error) {
	var settings []model.AppSetting
	if err := s.db.WithContext(ctx).Where("is_public = ?", true).Order("key ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	return settings, nil
}

// Get loads a setting by key
func (s *SettingsService) Get(ctx context.Context, key string) (*model.AppSetting, error) {
	var setting model.AppSetting
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to fetch setting: %w", err)
	}
	return &setting, nil
}

// Update changes a setting's value and, optionally, its description
func (s *SettingsService) Update(ctx context.Context, key, value string, description *string) (*model.AppSetting, error) {
	setting, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := ValidateSettingValue(setting.Type, value); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"value": value}
	if description != nil {
		updates["description"] = strings.TrimSpace(*description)
	}
	if err := s.db.WithContext(ctx).Model(setting).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update setting: %w", err)
	}
	return s.Get(ctx, key)
}

// ListFeatureFlags returns every feature flag
func (s *SettingsService) ListFeatureFlags(ctx context.Context) ([]model.FeatureFlag, error) {
	var flags []model.FeatureFlag
	if err := s.db.WithContext(ctx).Order("key ASC").Find(&flags).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch feature flags: %w", err)
	}
	return flags, nil
}

// UpdateFeatureFlag applies a partial update to a flag
func (s *SettingsService) UpdateFeatureFlag(ctx context.Context, id uint, update FeatureFlagUpdate) (*model.FeatureFlag, error) {
	var flag model.FeatureFlag
	if err := s.db.WithContext(ctx).First(&flag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeatureFlagNotFound
		}
		return nil, fmt.Errorf("failed to fetch feature flag: %w", err)
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		updates["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		updates["description"] = strings.TrimSpace(*update.Description)
	}
	if update.IsEnabled != nil {
		updates["is_enabled"] = *update.IsEnabled
	}
	if update.RolloutPercentage != nil {
		updates["rollout_percentage"] = *update.RolloutPercentage
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&flag).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update feature flag: %w", err)
		}
	}

	if err := s.db.WithContext(ctx).First(&flag, id).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch feature flag: %w", err)
	}
	return &flag, nil
}
