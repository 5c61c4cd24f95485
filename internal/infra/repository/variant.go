package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database/models"
	"github.com/palimpsest-cms/palimpsest/internal/utils"
)

// VariantRepository persists document variants. The variant_identity unique
// index on (document_id, locale, status) is the backstop for the
// one-draft/one-published-per-locale invariant.
type VariantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

func (r *VariantRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

// Create allocates a fresh documentId and writes the first draft variant.
func (r *VariantRepository) Create(ctx context.Context, collection, locale string, payload map[string]any, createdBy string) (domain.DocumentVariant, error) {
	documentID := uuid.NewString()

	value, err := json.Marshal(payload)
	if err != nil {
		return domain.DocumentVariant{}, domain.DriverError{Op: "variant.create", Err: err}
	}

	row := models.Variant{
		DocumentID: documentID,
		Collection: collection,
		Locale:     locale,
		Status:     string(palimpsest.StatusDraft),
		Payload:    string(value),
		CreatedBy:  createdBy,
		UpdatedBy:  createdBy,
	}

	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return domain.DocumentVariant{}, translate("variant.create", documentID, err)
	}
	return toVariant(row)
}

// FindDraft looks up the draft variant for one locale.
func (r *VariantRepository) FindDraft(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error) {
	return r.find(ctx, collection, documentID, locale, palimpsest.StatusDraft)
}

// FindPublished looks up the published variant for one locale.
func (r *VariantRepository) FindPublished(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error) {
	return r.find(ctx, collection, documentID, locale, palimpsest.StatusPublished)
}

func (r *VariantRepository) find(ctx context.Context, collection, documentID, locale string, status palimpsest.Status) (domain.DocumentVariant, error) {
	var row models.Variant
	err := r.conn(ctx).
		Where("collection = ? AND document_id = ? AND locale = ? AND status = ?", collection, documentID, locale, string(status)).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DocumentVariant{}, domain.NotFoundError{Resource: "variant"}
		}
		return domain.DocumentVariant{}, translate("variant.find", documentID, err)
	}
	return toVariant(row)
}

// Update replaces the payload of the variant matching the compound key. The
// row is locked for the remainder of the surrounding transaction.
func (r *VariantRepository) Update(ctx context.Context, collection, documentID, locale string, status palimpsest.Status, payload map[string]any, updatedBy string) (domain.DocumentVariant, error) {
	value, err := json.Marshal(payload)
	if err != nil {
		return domain.DocumentVariant{}, domain.DriverError{Op: "variant.update", DocumentID: documentID, Err: err}
	}

	db := r.conn(ctx)

	var row models.Variant
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND document_id = ? AND locale = ? AND status = ?", collection, documentID, locale, string(status)).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DocumentVariant{}, domain.NotFoundError{Resource: "variant"}
		}
		return domain.DocumentVariant{}, translate("variant.update", documentID, err)
	}

	row.Payload = string(value)
	row.UpdatedBy = updatedBy
	row.MDate = time.Now().UTC()
	if err := db.Save(&row).Error; err != nil {
		return domain.DocumentVariant{}, translate("variant.update", documentID, err)
	}
	return toVariant(row)
}

// Publish copies the current draft payload into the published slot. The
// draft stays untouched apart from its published_at marker, which records
// the last time this locale went live and survives a later unpublish.
func (r *VariantRepository) Publish(ctx context.Context, collection, documentID, locale, publishedBy string) (domain.DocumentVariant, error) {
	db := r.conn(ctx)

	var draft models.Variant
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND document_id = ? AND locale = ? AND status = ?", collection, documentID, locale, string(palimpsest.StatusDraft)).
		Take(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DocumentVariant{}, domain.NotFoundError{Resource: "draft variant"}
		}
		return domain.DocumentVariant{}, translate("variant.publish", documentID, err)
	}

	now := time.Now().UTC()
	published := models.Variant{
		DocumentID:  documentID,
		Collection:  collection,
		Locale:      locale,
		Status:      string(palimpsest.StatusPublished),
		Payload:     draft.Payload,
		PublishedAt: &now,
		CreatedBy:   draft.CreatedBy,
		UpdatedBy:   publishedBy,
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "document_id"}, {Name: "locale"}, {Name: "status"}},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":      draft.Payload,
			"published_at": now,
			"updated_by":   publishedBy,
			"m_date":       now,
		}),
	}).Create(&published).Error
	if err != nil {
		return domain.DocumentVariant{}, translate("variant.publish", documentID, err)
	}

	err = db.Model(&models.Variant{}).
		Where("id = ?", draft.ID).
		Update("published_at", now).Error
	if err != nil {
		return domain.DocumentVariant{}, translate("variant.publish", documentID, err)
	}

	return toVariant(published)
}

// Unpublish removes the published variant for one locale. The draft is not
// touched.
func (r *VariantRepository) Unpublish(ctx context.Context, collection, documentID, locale string) error {
	result := r.conn(ctx).
		Where("collection = ? AND document_id = ? AND locale = ? AND status = ?", collection, documentID, locale, string(palimpsest.StatusPublished)).
		Delete(&models.Variant{})
	if result.Error != nil {
		return translate("variant.unpublish", documentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "published variant"}
	}
	return nil
}

// AddLocale creates a draft for a locale the document does not yet have.
// The payload is caller-supplied; nothing is copied from other locales.
func (r *VariantRepository) AddLocale(ctx context.Context, collection, documentID, locale string, payload map[string]any, createdBy string) (domain.DocumentVariant, error) {
	db := r.conn(ctx)

	var count int64
	err := db.Model(&models.Variant{}).
		Where("collection = ? AND document_id = ?", collection, documentID).
		Count(&count).Error
	if err != nil {
		return domain.DocumentVariant{}, translate("variant.addLocale", documentID, err)
	}
	if count == 0 {
		return domain.DocumentVariant{}, domain.NotFoundError{Resource: "document"}
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return domain.DocumentVariant{}, domain.DriverError{Op: "variant.addLocale", DocumentID: documentID, Err: err}
	}

	row := models.Variant{
		DocumentID: documentID,
		Collection: collection,
		Locale:     locale,
		Status:     string(palimpsest.StatusDraft),
		Payload:    string(value),
		CreatedBy:  createdBy,
		UpdatedBy:  createdBy,
	}
	if err := db.Create(&row).Error; err != nil {
		return domain.DocumentVariant{}, translate("variant.addLocale", documentID, err)
	}
	return toVariant(row)
}

// DeleteLocale removes the draft and published variants of one locale. Once
// the last locale is gone the documentId is fully retired.
func (r *VariantRepository) DeleteLocale(ctx context.Context, collection, documentID, locale string) error {
	result := r.conn(ctx).
		Where("collection = ? AND document_id = ? AND locale = ?", collection, documentID, locale).
		Delete(&models.Variant{})
	if result.Error != nil {
		return translate("variant.deleteLocale", documentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "locale"}
	}
	return nil
}

// Delete removes every variant of a document across locales and statuses.
func (r *VariantRepository) Delete(ctx context.Context, collection, documentID string) error {
	result := r.conn(ctx).
		Where("collection = ? AND document_id = ?", collection, documentID).
		Delete(&models.Variant{})
	if result.Error != nil {
		return translate("variant.delete", documentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "document"}
	}
	return nil
}

// GetLocaleStatuses answers "what exists" across all locales of a document
// with one query. Entries keep locale creation order for stable JSON output.
func (r *VariantRepository) GetLocaleStatuses(ctx context.Context, collection, documentID string) (utils.OrderedKVMap[domain.LocaleStatus], error) {
	var rows []models.Variant
	err := r.conn(ctx).
		Where("collection = ? AND document_id = ?", collection, documentID).
		Order("c_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("variant.localeStatuses", documentID, err)
	}
	if len(rows) == 0 {
		return nil, domain.NotFoundError{Resource: "document"}
	}

	statuses := utils.OrderedKVMap[domain.LocaleStatus]{}
	for i, row := range rows {
		entry, ok := statuses[row.Locale]
		if !ok {
			entry = utils.OrderedKV[domain.LocaleStatus]{Order: int64(i)}
		}
		switch palimpsest.Status(row.Status) {
		case palimpsest.StatusDraft:
			entry.Value.HasDraft = true
		case palimpsest.StatusPublished:
			entry.Value.HasPublished = true
		}
		statuses[row.Locale] = entry
	}
	return statuses, nil
}

var sortColumns = map[string]string{
	"createdAt":  "c_date",
	"updatedAt":  "m_date",
	"documentId": "document_id",
	"locale":     "locale",
}

// List pages through variants of one collection. Filtering, ordering and
// pagination are delegated to the driver.
func (r *VariantRepository) List(ctx context.Context, collection string, opts domain.ListOptions) (domain.Page, error) {
	db := r.conn(ctx).Model(&models.Variant{}).Where("collection = ?", collection)
	if opts.Locale != "" {
		db = db.Where("locale = ?", opts.Locale)
	}
	if opts.Status != "" {
		db = db.Where("status = ?", string(opts.Status))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return domain.Page{}, translate("variant.list", "", err)
	}

	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "c_date"
	}
	direction := "DESC"
	if opts.Ascending {
		direction = "ASC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	var rows []models.Variant
	err := db.Order(column + " " + direction).
		Offset(opts.Offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return domain.Page{}, translate("variant.list", "", err)
	}

	items := make([]domain.DocumentVariant, 0, len(rows))
	for _, row := range rows {
		variant, err := toVariant(row)
		if err != nil {
			return domain.Page{}, err
		}
		items = append(items, variant)
	}

	return domain.Page{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  limit,
	}, nil
}

func toVariant(row models.Variant) (domain.DocumentVariant, error) {
	var payload map[string]any
	if row.Payload != "" {
		if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
			return domain.DocumentVariant{}, domain.DriverError{Op: "variant.decode", DocumentID: row.DocumentID, Err: err}
		}
	}
	return domain.DocumentVariant{
		DocumentID:  row.DocumentID,
		Collection:  row.Collection,
		Locale:      row.Locale,
		Status:      palimpsest.Status(row.Status),
		Payload:     payload,
		PublishedAt: row.PublishedAt,
		CreatedAt:   row.CDate,
		UpdatedAt:   row.MDate,
		CreatedBy:   row.CreatedBy,
		UpdatedBy:   row.UpdatedBy,
	}, nil
}

// translate maps driver failures onto the domain taxonomy. gorm's
// TranslateError turns unique index violations into ErrDuplicatedKey.
func translate(op, documentID string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ConflictError{Resource: "variant"}
	}
	return domain.DriverError{Op: op, DocumentID: documentID, Err: err}
}
