package service

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/palimpsest-cms/palimpsest/internal/domain"
)

const policyCacheKey = "versioning-policy"

// SettingsSource is the settings collaborator contract.
type SettingsSource interface {
	GetSettingsByGroup(ctx context.Context, group string) ([]domain.Setting, error)
	UpsertSetting(ctx context.Context, setting domain.Setting) error
}

// PolicyService supplies the versioning policy to the orchestrator. The
// parsed policy is cached briefly so hot paths don't hit the settings table
// on every operation.
type PolicyService struct {
	settings SettingsSource
	cache    *cache.Cache
}

func NewPolicyService(settings SettingsSource) *PolicyService {
	return &PolicyService{
		settings: settings,
		cache:    cache.New(1*time.Minute, 5*time.Minute),
	}
}

// Current returns the active versioning policy. Unknown keys are ignored and
// unparseable values fall back to defaults.
func (s *PolicyService) Current(ctx context.Context) (domain.VersioningPolicy, error) {
	if cached, found := s.cache.Get(policyCacheKey); found {
		return cached.(domain.VersioningPolicy), nil
	}

	settings, err := s.settings.GetSettingsByGroup(ctx, domain.SettingsGroupVersioning)
	if err != nil {
		return domain.VersioningPolicy{}, errors.Wrap(err, "PolicyService.Current: loading versioning settings failed")
	}

	policy := domain.DefaultVersioningPolicy()
	for _, setting := range settings {
		switch setting.Key {
		case domain.SettingMaxVersions:
			if n, err := strconv.Atoi(setting.Value); err == nil && n > 0 {
				policy.MaxVersions = n
			}
		case domain.SettingDraftsEnabled:
			if b, err := strconv.ParseBool(setting.Value); err == nil {
				policy.DraftsEnabled = b
			}
		case domain.SettingRequireApproval:
			if b, err := strconv.ParseBool(setting.Value); err == nil {
				policy.RequireApproval = b
			}
		case domain.SettingAutoPublish:
			if b, err := strconv.ParseBool(setting.Value); err == nil {
				policy.AutoPublish = b
			}
		}
	}

	s.cache.Set(policyCacheKey, policy, cache.DefaultExpiration)
	return policy, nil
}

// UpdateSettings writes versioning keys and drops the cached policy.
func (s *PolicyService) UpdateSettings(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		switch key {
		case domain.SettingMaxVersions, domain.SettingDraftsEnabled, domain.SettingRequireApproval, domain.SettingAutoPublish:
		default:
			return domain.ValidationError{Problems: []string{"unknown versioning setting " + strconv.Quote(key)}}
		}
		err := s.settings.UpsertSetting(ctx, domain.Setting{
			Group: domain.SettingsGroupVersioning,
			Key:   key,
			Value: value,
		})
		if err != nil {
			return errors.Wrap(err, "PolicyService.UpdateSettings: upsert failed")
		}
	}
	s.cache.Delete(policyCacheKey)
	return nil
}

// Settings returns the raw versioning settings group.
func (s *PolicyService) Settings(ctx context.Context) ([]domain.Setting, error) {
	return s.settings.GetSettingsByGroup(ctx, domain.SettingsGroupVersioning)
}
