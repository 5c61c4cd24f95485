package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database"
	"github.com/palimpsest-cms/palimpsest/internal/infra/database/models"
)

// RevisionRepository is the append-only history store. Rows are immutable;
// only Evict removes them, oldest first.
type RevisionRepository struct {
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

func (r *RevisionRepository) conn(ctx context.Context) *gorm.DB {
	return database.FromContext(ctx, r.db).WithContext(ctx)
}

// Append writes a new snapshot with versionId = previous max + 1 for the
// (document, locale) pair. The max lookup takes a row lock so concurrent
// appends for the same pair serialize; the revision_identity unique index
// catches whatever slips through.
func (r *RevisionRepository) Append(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	db := r.conn(ctx)

	var last models.Revision
	nextVersion := int64(1)
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("document_id = ? AND locale = ?", entry.DocumentID, entry.Locale).
		Order("version_id DESC").
		Limit(1).
		Take(&last).Error
	if err == nil {
		nextVersion = last.VersionID + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.HistoryEntry{}, translate("revision.append", entry.DocumentID, err)
	}

	row := models.Revision{
		DocumentID:    entry.DocumentID,
		Collection:    entry.Collection,
		Locale:        entry.Locale,
		VersionID:     nextVersion,
		Status:        string(entry.Status),
		SchemaVersion: entry.Snapshot.SchemaVersion,
		Checksum:      entry.Snapshot.Checksum,
		Snapshot:      string(entry.Snapshot.Data),
		CreatedBy:     entry.CreatedBy,
		Notes:         entry.Notes,
	}
	if err := db.Create(&row).Error; err != nil {
		return domain.HistoryEntry{}, translate("revision.append", entry.DocumentID, err)
	}
	return toHistoryEntry(row), nil
}

// Evict trims the history of one (document, locale) down to keep entries,
// dropping the lowest versionIds first.
func (r *RevisionRepository) Evict(ctx context.Context, documentID, locale string, keep int) error {
	if keep <= 0 {
		return nil
	}
	db := r.conn(ctx)

	var count int64
	err := db.Model(&models.Revision{}).
		Where("document_id = ? AND locale = ?", documentID, locale).
		Count(&count).Error
	if err != nil {
		return translate("revision.evict", documentID, err)
	}
	excess := count - int64(keep)
	if excess <= 0 {
		return nil
	}

	var victims []int64
	err = db.Model(&models.Revision{}).
		Where("document_id = ? AND locale = ?", documentID, locale).
		Order("version_id ASC").
		Limit(int(excess)).
		Pluck("id", &victims).Error
	if err != nil {
		return translate("revision.evict", documentID, err)
	}

	if err := db.Delete(&models.Revision{}, victims).Error; err != nil {
		return translate("revision.evict", documentID, err)
	}
	return nil
}

// FindVersions lists history entries for a document across all locales,
// newest first.
func (r *RevisionRepository) FindVersions(ctx context.Context, collection, documentID string) ([]domain.HistoryEntry, error) {
	return r.listVersions(ctx, collection, documentID, "")
}

// FindVersionsByLocale lists history entries for one locale, newest first.
func (r *RevisionRepository) FindVersionsByLocale(ctx context.Context, collection, documentID, locale string) ([]domain.HistoryEntry, error) {
	return r.listVersions(ctx, collection, documentID, locale)
}

func (r *RevisionRepository) listVersions(ctx context.Context, collection, documentID, locale string) ([]domain.HistoryEntry, error) {
	db := r.conn(ctx).Model(&models.Revision{}).
		Where("collection = ? AND document_id = ?", collection, documentID)
	if locale != "" {
		db = db.Where("locale = ?", locale)
	}

	var rows []models.Revision
	err := db.Order("version_id DESC").Order("locale ASC").Find(&rows).Error
	if err != nil {
		return nil, translate("revision.list", documentID, err)
	}

	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toHistoryEntry(row))
	}
	return entries, nil
}

// FindVersionByNumber resolves one history entry by its versionId.
func (r *RevisionRepository) FindVersionByNumber(ctx context.Context, collection, documentID, locale string, versionID int64) (domain.HistoryEntry, error) {
	var row models.Revision
	err := r.conn(ctx).
		Where("collection = ? AND document_id = ? AND locale = ? AND version_id = ?", collection, documentID, locale, versionID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.HistoryEntry{}, domain.NotFoundError{Resource: "version"}
		}
		return domain.HistoryEntry{}, translate("revision.find", documentID, err)
	}
	return toHistoryEntry(row), nil
}

func toHistoryEntry(row models.Revision) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		Collection: row.Collection,
		Locale:     row.Locale,
		VersionID:  row.VersionID,
		Status:     palimpsest.Status(row.Status),
		Snapshot: palimpsest.Envelope{
			SchemaVersion: row.SchemaVersion,
			Checksum:      row.Checksum,
			Data:          json.RawMessage(row.Snapshot),
		},
		CreatedAt: row.CDate,
		CreatedBy: row.CreatedBy,
		Notes:     row.Notes,
	}
}
