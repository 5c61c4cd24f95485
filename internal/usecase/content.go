package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/registry"
	"github.com/palimpsest-cms/palimpsest/internal/utils"
)

var tracer = otel.Tracer("content")

// ContentUsecase sequences variant and history writes so each public
// operation behaves atomically: the variant change and its history snapshot
// share one transaction. Eviction and event delivery happen after commit and
// are best-effort.
type ContentUsecase struct {
	registry      *registry.Registry
	variants      VariantStore
	history       HistoryStore
	policy        PolicyProvider
	tx            Transactor
	events        EventBus
	cache         PublishedCache
	defaultLocale string
}

func NewContentUsecase(
	reg *registry.Registry,
	variants VariantStore,
	history HistoryStore,
	policy PolicyProvider,
	tx Transactor,
	events EventBus,
	cache PublishedCache,
	defaultLocale string,
) *ContentUsecase {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &ContentUsecase{
		registry:      reg,
		variants:      variants,
		history:       history,
		policy:        policy,
		tx:            tx,
		events:        events,
		cache:         cache,
		defaultLocale: defaultLocale,
	}
}

// CreateOptions qualifies Create.
type CreateOptions struct {
	Locale string
	Editor string
}

// UpdateOptions qualifies Update.
type UpdateOptions struct {
	Locale string
	Status palimpsest.Status
	Editor string
}

// PublishOptions qualifies Publish. ApprovedBy must be set when the policy
// requires approval.
type PublishOptions struct {
	Locale     string
	ApprovedBy string
	Editor     string
}

func (uc *ContentUsecase) locale(requested string) string {
	if requested == "" {
		return uc.defaultLocale
	}
	return requested
}

// Create allocates a new document and writes its first draft variant.
func (uc *ContentUsecase) Create(ctx context.Context, collection string, payload map[string]any, opts CreateOptions) (domain.DocumentVariant, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.Create")
	defer span.End()

	ct, err := uc.registry.Get(collection)
	if err != nil {
		return domain.DocumentVariant{}, err
	}
	if problems := ct.Validate(payload); len(problems) > 0 {
		return domain.DocumentVariant{}, domain.ValidationError{Problems: problems}
	}

	policy, err := uc.policy.Current(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	locale := uc.locale(opts.Locale)

	var variant domain.DocumentVariant
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		variant, err = uc.variants.Create(ctx, collection, locale, payload, opts.Editor)
		if err != nil {
			return err
		}
		return uc.appendHistory(ctx, ct, variant, palimpsest.StatusDraft, opts.Editor, "")
	})
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	uc.housekeep(ctx, policy, variant.DocumentID, locale)
	uc.emit(ctx, palimpsest.EventCreated, variant)

	if policy.AutoPublish || !policy.DraftsEnabled {
		return uc.publishLocale(ctx, ct, collection, variant.DocumentID, locale, opts.Editor)
	}
	return variant, nil
}

// Update rewrites the payload of one variant in place.
func (uc *ContentUsecase) Update(ctx context.Context, collection, documentID string, payload map[string]any, opts UpdateOptions) (domain.DocumentVariant, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.Update")
	defer span.End()

	ct, err := uc.registry.Get(collection)
	if err != nil {
		return domain.DocumentVariant{}, err
	}
	if problems := ct.Validate(payload); len(problems) > 0 {
		return domain.DocumentVariant{}, domain.ValidationError{Problems: problems}
	}

	policy, err := uc.policy.Current(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	locale := uc.locale(opts.Locale)
	status := opts.Status
	if status == "" {
		status = palimpsest.StatusDraft
	}

	var variant domain.DocumentVariant
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		variant, err = uc.variants.Update(ctx, collection, documentID, locale, status, payload, opts.Editor)
		if err != nil {
			return err
		}
		return uc.appendHistory(ctx, ct, variant, status, opts.Editor, "")
	})
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	uc.housekeep(ctx, policy, documentID, locale)
	uc.emit(ctx, palimpsest.EventUpdated, variant)
	if status == palimpsest.StatusPublished && uc.cache != nil {
		uc.cache.Invalidate(ctx, collection, documentID, locale)
	}

	if status == palimpsest.StatusDraft && (policy.AutoPublish || !policy.DraftsEnabled) {
		return uc.publishLocale(ctx, ct, collection, documentID, locale, opts.Editor)
	}
	return variant, nil
}

// Publish copies the current draft of one locale into its published slot.
// The draft itself stays in place; later edits keep targeting it.
func (uc *ContentUsecase) Publish(ctx context.Context, collection, documentID string, opts PublishOptions) (domain.DocumentVariant, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.Publish")
	defer span.End()

	ct, err := uc.registry.Get(collection)
	if err != nil {
		return domain.DocumentVariant{}, err
	}

	policy, err := uc.policy.Current(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}
	if policy.RequireApproval && opts.ApprovedBy == "" {
		return domain.DocumentVariant{}, domain.PolicyViolationError{Reason: "publishing requires approval"}
	}

	editor := opts.Editor
	if opts.ApprovedBy != "" {
		editor = opts.ApprovedBy
	}
	return uc.publishLocale(ctx, ct, collection, documentID, uc.locale(opts.Locale), editor)
}

// publishLocale is the internal publish path. Policy has already been
// checked (or the publish is policy-initiated).
func (uc *ContentUsecase) publishLocale(ctx context.Context, ct palimpsest.ContentType, collection, documentID, locale, editor string) (domain.DocumentVariant, error) {
	var variant domain.DocumentVariant
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		variant, err = uc.variants.Publish(ctx, collection, documentID, locale, editor)
		if err != nil {
			return err
		}
		return uc.appendHistory(ctx, ct, variant, palimpsest.StatusPublished, editor, "")
	})
	if err != nil {
		return domain.DocumentVariant{}, err
	}

	policy, policyErr := uc.policy.Current(ctx)
	if policyErr == nil {
		uc.housekeep(ctx, policy, documentID, locale)
	}
	if uc.cache != nil {
		uc.cache.Invalidate(ctx, collection, documentID, locale)
	}
	uc.emit(ctx, palimpsest.EventPublished, variant)
	return variant, nil
}

// Unpublish removes the published variant of one locale. No history entry is
// written; the operation is reversible through the untouched draft.
func (uc *ContentUsecase) Unpublish(ctx context.Context, collection, documentID, locale string) error {
	ctx, span := tracer.Start(ctx, "Content.Usecase.Unpublish")
	defer span.End()

	if _, err := uc.registry.Get(collection); err != nil {
		return err
	}

	locale = uc.locale(locale)
	if err := uc.variants.Unpublish(ctx, collection, documentID, locale); err != nil {
		span.RecordError(err)
		return err
	}

	if uc.cache != nil {
		uc.cache.Invalidate(ctx, collection, documentID, locale)
	}
	uc.emit(ctx, palimpsest.EventUnpublished, domain.DocumentVariant{
		DocumentID: documentID,
		Collection: collection,
		Locale:     locale,
		Status:     palimpsest.StatusPublished,
	})
	return nil
}

// AddLocale creates a draft for a locale the document does not yet carry.
// Content is caller-supplied; nothing is copied from the default locale.
func (uc *ContentUsecase) AddLocale(ctx context.Context, collection, documentID, locale string, payload map[string]any, editor string) (domain.DocumentVariant, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.AddLocale")
	defer span.End()

	ct, err := uc.registry.Get(collection)
	if err != nil {
		return domain.DocumentVariant{}, err
	}
	if problems := ct.Validate(payload); len(problems) > 0 {
		return domain.DocumentVariant{}, domain.ValidationError{Problems: problems}
	}

	policy, err := uc.policy.Current(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	var variant domain.DocumentVariant
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		variant, err = uc.variants.AddLocale(ctx, collection, documentID, locale, payload, editor)
		if err != nil {
			return err
		}
		return uc.appendHistory(ctx, ct, variant, palimpsest.StatusDraft, editor, "")
	})
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	uc.housekeep(ctx, policy, documentID, locale)
	uc.emit(ctx, palimpsest.EventLocaleAdded, variant)

	if policy.AutoPublish || !policy.DraftsEnabled {
		return uc.publishLocale(ctx, ct, collection, documentID, locale, editor)
	}
	return variant, nil
}

// Delete removes every variant of a document. History is retained for audit.
func (uc *ContentUsecase) Delete(ctx context.Context, collection, documentID string) error {
	ctx, span := tracer.Start(ctx, "Content.Usecase.Delete")
	defer span.End()

	if _, err := uc.registry.Get(collection); err != nil {
		return err
	}

	statuses, err := uc.variants.GetLocaleStatuses(ctx, collection, documentID)
	if err != nil {
		return err
	}

	if err := uc.variants.Delete(ctx, collection, documentID); err != nil {
		span.RecordError(err)
		return err
	}

	if uc.cache != nil {
		for _, locale := range statuses.Keys() {
			uc.cache.Invalidate(ctx, collection, documentID, locale)
		}
	}
	uc.emit(ctx, palimpsest.EventDeleted, domain.DocumentVariant{
		DocumentID: documentID,
		Collection: collection,
	})
	return nil
}

// DeleteLocale removes one locale of a document, draft and published alike.
func (uc *ContentUsecase) DeleteLocale(ctx context.Context, collection, documentID, locale string) error {
	ctx, span := tracer.Start(ctx, "Content.Usecase.DeleteLocale")
	defer span.End()

	if _, err := uc.registry.Get(collection); err != nil {
		return err
	}

	if err := uc.variants.DeleteLocale(ctx, collection, documentID, locale); err != nil {
		span.RecordError(err)
		return err
	}

	if uc.cache != nil {
		uc.cache.Invalidate(ctx, collection, documentID, locale)
	}
	uc.emit(ctx, palimpsest.EventDeleted, domain.DocumentVariant{
		DocumentID: documentID,
		Collection: collection,
		Locale:     locale,
	})
	return nil
}

// RestoreVersion reinstates a historical snapshot into the draft slot. It
// never touches the published variant: restoring an old published snapshot
// does not republish it.
func (uc *ContentUsecase) RestoreVersion(ctx context.Context, collection, documentID, locale string, versionID int64, editor string) (domain.DocumentVariant, error) {
	ctx, span := tracer.Start(ctx, "Content.Usecase.RestoreVersion")
	defer span.End()

	ct, err := uc.registry.Get(collection)
	if err != nil {
		return domain.DocumentVariant{}, err
	}

	locale = uc.locale(locale)

	entry, err := uc.history.FindVersionByNumber(ctx, collection, documentID, locale, versionID)
	if err != nil {
		return domain.DocumentVariant{}, err
	}

	payload, err := entry.Snapshot.Open(ct.SchemaVersion)
	if err != nil {
		return domain.DocumentVariant{}, domain.ValidationError{Problems: []string{err.Error()}}
	}
	if problems := ct.Validate(payload); len(problems) > 0 {
		return domain.DocumentVariant{}, domain.ValidationError{Problems: problems}
	}

	policy, err := uc.policy.Current(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	notes := fmt.Sprintf("Restored from version %d", versionID)

	var variant domain.DocumentVariant
	err = uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		variant, err = uc.variants.Update(ctx, collection, documentID, locale, palimpsest.StatusDraft, payload, editor)
		if err != nil {
			return err
		}
		return uc.appendHistory(ctx, ct, variant, palimpsest.StatusDraft, editor, notes)
	})
	if err != nil {
		span.RecordError(err)
		return domain.DocumentVariant{}, err
	}

	uc.housekeep(ctx, policy, documentID, locale)
	uc.emit(ctx, palimpsest.EventRestored, variant)
	return variant, nil
}

// List pages through one collection.
func (uc *ContentUsecase) List(ctx context.Context, collection string, opts domain.ListOptions) (domain.Page, error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return domain.Page{}, err
	}
	return uc.variants.List(ctx, collection, opts)
}

// FindByDocumentID resolves one variant by its compound key.
func (uc *ContentUsecase) FindByDocumentID(ctx context.Context, collection, documentID, locale string, status palimpsest.Status) (domain.DocumentVariant, error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return domain.DocumentVariant{}, err
	}
	if status == palimpsest.StatusPublished {
		return uc.variants.FindPublished(ctx, collection, documentID, uc.locale(locale))
	}
	return uc.variants.FindDraft(ctx, collection, documentID, uc.locale(locale))
}

// FindDraft resolves the draft variant of one locale.
func (uc *ContentUsecase) FindDraft(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return domain.DocumentVariant{}, err
	}
	return uc.variants.FindDraft(ctx, collection, documentID, uc.locale(locale))
}

// FindPublished resolves the published variant of one locale.
func (uc *ContentUsecase) FindPublished(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return domain.DocumentVariant{}, err
	}
	return uc.variants.FindPublished(ctx, collection, documentID, uc.locale(locale))
}

// GetLocaleStatuses answers "what exists" per locale in a stable order.
func (uc *ContentUsecase) GetLocaleStatuses(ctx context.Context, collection, documentID string) (utils.OrderedKVMap[domain.LocaleStatus], error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return nil, err
	}
	return uc.variants.GetLocaleStatuses(ctx, collection, documentID)
}

// GetDocumentLocales lists the locales a document exists in.
func (uc *ContentUsecase) GetDocumentLocales(ctx context.Context, collection, documentID string) ([]string, error) {
	statuses, err := uc.GetLocaleStatuses(ctx, collection, documentID)
	if err != nil {
		return nil, err
	}
	return statuses.Keys(), nil
}

// GetVersions lists history entries, newest first. An empty locale spans all
// locales.
func (uc *ContentUsecase) GetVersions(ctx context.Context, collection, documentID, locale string) ([]domain.HistoryEntry, error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return nil, err
	}
	if locale == "" {
		return uc.history.FindVersions(ctx, collection, documentID)
	}
	return uc.history.FindVersionsByLocale(ctx, collection, documentID, locale)
}

// GetVersion resolves one history entry.
func (uc *ContentUsecase) GetVersion(ctx context.Context, collection, documentID, locale string, versionID int64) (domain.HistoryEntry, error) {
	if _, err := uc.registry.Get(collection); err != nil {
		return domain.HistoryEntry{}, err
	}
	return uc.history.FindVersionByNumber(ctx, collection, documentID, uc.locale(locale), versionID)
}

func (uc *ContentUsecase) appendHistory(ctx context.Context, ct palimpsest.ContentType, variant domain.DocumentVariant, status palimpsest.Status, editor, notes string) error {
	snapshot, err := palimpsest.SealEnvelope(ct.SchemaVersion, variant.Payload)
	if err != nil {
		return err
	}
	_, err = uc.history.Append(ctx, domain.HistoryEntry{
		DocumentID: variant.DocumentID,
		Collection: variant.Collection,
		Locale:     variant.Locale,
		Status:     status,
		Snapshot:   snapshot,
		CreatedBy:  editor,
		Notes:      notes,
	})
	return err
}

// housekeep trims history beyond the retention bound. A failure here must
// not fail the surrounding operation.
func (uc *ContentUsecase) housekeep(ctx context.Context, policy domain.VersioningPolicy, documentID, locale string) {
	if err := uc.history.Evict(ctx, documentID, locale, policy.MaxVersions); err != nil {
		slog.WarnContext(ctx, "history eviction failed",
			slog.String("documentId", documentID),
			slog.String("locale", locale),
			slog.String("error", err.Error()),
			slog.String("module", "content"),
		)
	}
}

// emit publishes a content event. Delivery failures are logged, never
// surfaced.
func (uc *ContentUsecase) emit(ctx context.Context, eventType string, variant domain.DocumentVariant) {
	if uc.events == nil {
		return
	}
	event := palimpsest.Event{
		Type:       eventType,
		Collection: variant.Collection,
		DocumentID: variant.DocumentID,
		Locale:     variant.Locale,
		Status:     variant.Status,
		Payload:    variant.Payload,
		Timestamp:  time.Now().UTC(),
	}
	if err := uc.events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "event delivery failed",
			slog.String("type", eventType),
			slog.String("documentId", variant.DocumentID),
			slog.String("error", err.Error()),
			slog.String("module", "content"),
		)
	}
}
