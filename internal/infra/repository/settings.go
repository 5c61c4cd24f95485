package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database/models"
)

// SettingsRepository is the settings collaborator backing the versioning
// policy provider.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

// GetSettingsByGroup returns every key of a settings group.
func (r *SettingsRepository) GetSettingsByGroup(ctx context.Context, group string) ([]domain.Setting, error) {
	var rows []models.Setting
	err := r.conn(ctx).
		Where(`"group" = ?`, group).
		Order("key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("settings.get", "", err)
	}

	settings := make([]domain.Setting, 0, len(rows))
	for _, row := range rows {
		settings = append(settings, domain.Setting{Group: row.Group, Key: row.Key, Value: row.Value})
	}
	return settings, nil
}

// UpsertSetting writes one key of a settings group.
func (r *SettingsRepository) UpsertSetting(ctx context.Context, setting domain.Setting) error {
	row := models.Setting{Group: setting.Group, Key: setting.Key, Value: setting.Value}
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return translate("settings.upsert", "", err)
	}
	return nil
}
