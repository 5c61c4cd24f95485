package usecase

import (
	"context"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/utils"
)

// VariantStore defines persistence over document variants. Implementations
// enforce the one-draft/one-published-per-locale invariant.
type VariantStore interface {
	Create(ctx context.Context, collection, locale string, payload map[string]any, createdBy string) (domain.DocumentVariant, error)
	FindDraft(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error)
	FindPublished(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error)
	Update(ctx context.Context, collection, documentID, locale string, status palimpsest.Status, payload map[string]any, updatedBy string) (domain.DocumentVariant, error)
	Publish(ctx context.Context, collection, documentID, locale, publishedBy string) (domain.DocumentVariant, error)
	Unpublish(ctx context.Context, collection, documentID, locale string) error
	AddLocale(ctx context.Context, collection, documentID, locale string, payload map[string]any, createdBy string) (domain.DocumentVariant, error)
	DeleteLocale(ctx context.Context, collection, documentID, locale string) error
	Delete(ctx context.Context, collection, documentID string) error
	GetLocaleStatuses(ctx context.Context, collection, documentID string) (utils.OrderedKVMap[domain.LocaleStatus], error)
	List(ctx context.Context, collection string, opts domain.ListOptions) (domain.Page, error)
}

// HistoryStore defines the append-only version history.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error)
	Evict(ctx context.Context, documentID, locale string, keep int) error
	FindVersions(ctx context.Context, collection, documentID string) ([]domain.HistoryEntry, error)
	FindVersionsByLocale(ctx context.Context, collection, documentID, locale string) ([]domain.HistoryEntry, error)
	FindVersionByNumber(ctx context.Context, collection, documentID, locale string, versionID int64) (domain.HistoryEntry, error)
}

// PolicyProvider supplies the active versioning policy.
type PolicyProvider interface {
	Current(ctx context.Context) (domain.VersioningPolicy, error)
}

// Transactor runs a unit of work inside one persistence transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventBus carries content change notifications. Delivery is best-effort.
type EventBus interface {
	Publish(ctx context.Context, event palimpsest.Event) error
}

// PublishedCache invalidates cached published variants when a locale's
// live state changes.
type PublishedCache interface {
	Invalidate(ctx context.Context, collection, documentID, locale string)
}
