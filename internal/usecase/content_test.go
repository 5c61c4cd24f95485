package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/registry"
	"github.com/palimpsest-cms/palimpsest/internal/utils"
)

type variantKey struct {
	locale string
	status palimpsest.Status
}

type fakeVariantStore struct {
	seq       int
	documents map[string]map[variantKey]domain.DocumentVariant
}

var _ VariantStore = (*fakeVariantStore)(nil)

func newFakeVariantStore() *fakeVariantStore {
	return &fakeVariantStore{documents: map[string]map[variantKey]domain.DocumentVariant{}}
}

func clonePayload(payload map[string]any) map[string]any {
	cloned := make(map[string]any, len(payload))
	for k, v := range payload {
		cloned[k] = v
	}
	return cloned
}

func (f *fakeVariantStore) snapshot() map[string]map[variantKey]domain.DocumentVariant {
	out := make(map[string]map[variantKey]domain.DocumentVariant, len(f.documents))
	for id, variants := range f.documents {
		inner := make(map[variantKey]domain.DocumentVariant, len(variants))
		for k, v := range variants {
			inner[k] = v
		}
		out[id] = inner
	}
	return out
}

func (f *fakeVariantStore) restore(s map[string]map[variantKey]domain.DocumentVariant) {
	f.documents = s
}

func (f *fakeVariantStore) Create(_ context.Context, collection, locale string, payload map[string]any, createdBy string) (domain.DocumentVariant, error) {
	f.seq++
	id := string(rune('A' + f.seq - 1))
	variant := domain.DocumentVariant{
		DocumentID: id,
		Collection: collection,
		Locale:     locale,
		Status:     palimpsest.StatusDraft,
		Payload:    clonePayload(payload),
		CreatedBy:  createdBy,
	}
	f.documents[id] = map[variantKey]domain.DocumentVariant{
		{locale, palimpsest.StatusDraft}: variant,
	}
	return variant, nil
}

func (f *fakeVariantStore) find(documentID, locale string, status palimpsest.Status) (domain.DocumentVariant, error) {
	variants, ok := f.documents[documentID]
	if !ok {
		return domain.DocumentVariant{}, domain.NotFoundError{Resource: "document"}
	}
	variant, ok := variants[variantKey{locale, status}]
	if !ok {
		return domain.DocumentVariant{}, domain.NotFoundError{Resource: "variant"}
	}
	return variant, nil
}

func (f *fakeVariantStore) FindDraft(_ context.Context, _, documentID, locale string) (domain.DocumentVariant, error) {
	return f.find(documentID, locale, palimpsest.StatusDraft)
}

func (f *fakeVariantStore) FindPublished(_ context.Context, _, documentID, locale string) (domain.DocumentVariant, error) {
	return f.find(documentID, locale, palimpsest.StatusPublished)
}

func (f *fakeVariantStore) Update(_ context.Context, _, documentID, locale string, status palimpsest.Status, payload map[string]any, updatedBy string) (domain.DocumentVariant, error) {
	variant, err := f.find(documentID, locale, status)
	if err != nil {
		return domain.DocumentVariant{}, err
	}
	variant.Payload = clonePayload(payload)
	variant.UpdatedBy = updatedBy
	f.documents[documentID][variantKey{locale, status}] = variant
	return variant, nil
}

func (f *fakeVariantStore) Publish(_ context.Context, _, documentID, locale, publishedBy string) (domain.DocumentVariant, error) {
	draft, err := f.find(documentID, locale, palimpsest.StatusDraft)
	if err != nil {
		return domain.DocumentVariant{}, domain.NotFoundError{Resource: "draft variant"}
	}
	published := draft
	published.Status = palimpsest.StatusPublished
	published.Payload = clonePayload(draft.Payload)
	published.UpdatedBy = publishedBy
	f.documents[documentID][variantKey{locale, palimpsest.StatusPublished}] = published
	return published, nil
}

func (f *fakeVariantStore) Unpublish(_ context.Context, _, documentID, locale string) error {
	if _, err := f.find(documentID, locale, palimpsest.StatusPublished); err != nil {
		return err
	}
	delete(f.documents[documentID], variantKey{locale, palimpsest.StatusPublished})
	return nil
}

func (f *fakeVariantStore) AddLocale(_ context.Context, collection, documentID, locale string, payload map[string]any, createdBy string) (domain.DocumentVariant, error) {
	variants, ok := f.documents[documentID]
	if !ok {
		return domain.DocumentVariant{}, domain.NotFoundError{Resource: "document"}
	}
	if _, exists := variants[variantKey{locale, palimpsest.StatusDraft}]; exists {
		return domain.DocumentVariant{}, domain.ConflictError{Resource: "variant"}
	}
	variant := domain.DocumentVariant{
		DocumentID: documentID,
		Collection: collection,
		Locale:     locale,
		Status:     palimpsest.StatusDraft,
		Payload:    clonePayload(payload),
		CreatedBy:  createdBy,
	}
	variants[variantKey{locale, palimpsest.StatusDraft}] = variant
	return variant, nil
}

func (f *fakeVariantStore) DeleteLocale(_ context.Context, _, documentID, locale string) error {
	variants, ok := f.documents[documentID]
	if !ok {
		return domain.NotFoundError{Resource: "document"}
	}
	delete(variants, variantKey{locale, palimpsest.StatusDraft})
	delete(variants, variantKey{locale, palimpsest.StatusPublished})
	if len(variants) == 0 {
		delete(f.documents, documentID)
	}
	return nil
}

func (f *fakeVariantStore) Delete(_ context.Context, _, documentID string) error {
	if _, ok := f.documents[documentID]; !ok {
		return domain.NotFoundError{Resource: "document"}
	}
	delete(f.documents, documentID)
	return nil
}

func (f *fakeVariantStore) GetLocaleStatuses(_ context.Context, _, documentID string) (utils.OrderedKVMap[domain.LocaleStatus], error) {
	variants, ok := f.documents[documentID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "document"}
	}
	statuses := utils.OrderedKVMap[domain.LocaleStatus]{}
	order := int64(0)
	for key := range variants {
		entry, ok := statuses[key.locale]
		if !ok {
			entry = utils.OrderedKV[domain.LocaleStatus]{Order: order}
			order++
		}
		switch key.status {
		case palimpsest.StatusDraft:
			entry.Value.HasDraft = true
		case palimpsest.StatusPublished:
			entry.Value.HasPublished = true
		}
		statuses[key.locale] = entry
	}
	return statuses, nil
}

func (f *fakeVariantStore) List(_ context.Context, collection string, opts domain.ListOptions) (domain.Page, error) {
	var items []domain.DocumentVariant
	for _, variants := range f.documents {
		for _, variant := range variants {
			if variant.Collection == collection {
				items = append(items, variant)
			}
		}
	}
	return domain.Page{Items: items, Total: int64(len(items))}, nil
}

type historyKey struct {
	documentID string
	locale     string
}

type fakeHistoryStore struct {
	entries   map[historyKey][]domain.HistoryEntry
	appendErr error
}

var _ HistoryStore = (*fakeHistoryStore)(nil)

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{entries: map[historyKey][]domain.HistoryEntry{}}
}

func (f *fakeHistoryStore) Append(_ context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	if f.appendErr != nil {
		return domain.HistoryEntry{}, f.appendErr
	}
	key := historyKey{entry.DocumentID, entry.Locale}
	entry.VersionID = 1
	if existing := f.entries[key]; len(existing) > 0 {
		entry.VersionID = existing[len(existing)-1].VersionID + 1
	}
	f.entries[key] = append(f.entries[key], entry)
	return entry, nil
}

func (f *fakeHistoryStore) Evict(_ context.Context, documentID, locale string, keep int) error {
	key := historyKey{documentID, locale}
	entries := f.entries[key]
	if keep > 0 && len(entries) > keep {
		f.entries[key] = append([]domain.HistoryEntry(nil), entries[len(entries)-keep:]...)
	}
	return nil
}

func (f *fakeHistoryStore) FindVersions(_ context.Context, collection, documentID string) ([]domain.HistoryEntry, error) {
	var all []domain.HistoryEntry
	for key, entries := range f.entries {
		if key.documentID != documentID {
			continue
		}
		for i := len(entries) - 1; i >= 0; i-- {
			all = append(all, entries[i])
		}
	}
	return all, nil
}

func (f *fakeHistoryStore) FindVersionsByLocale(_ context.Context, _, documentID, locale string) ([]domain.HistoryEntry, error) {
	entries := f.entries[historyKey{documentID, locale}]
	reversed := make([]domain.HistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		reversed = append(reversed, entries[i])
	}
	return reversed, nil
}

func (f *fakeHistoryStore) FindVersionByNumber(_ context.Context, _, documentID, locale string, versionID int64) (domain.HistoryEntry, error) {
	for _, entry := range f.entries[historyKey{documentID, locale}] {
		if entry.VersionID == versionID {
			return entry, nil
		}
	}
	return domain.HistoryEntry{}, domain.NotFoundError{Resource: "version"}
}

type fakePolicyProvider struct {
	policy domain.VersioningPolicy
}

func (f *fakePolicyProvider) Current(_ context.Context) (domain.VersioningPolicy, error) {
	return f.policy, nil
}

type passTransactor struct{}

func (passTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// snapshotTransactor mimics transactional rollback over the in-memory store:
// variant state from before the unit of work is restored when it fails.
type snapshotTransactor struct {
	store *fakeVariantStore
}

func (t snapshotTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	before := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(before)
		return err
	}
	return nil
}

type captureBus struct {
	events []palimpsest.Event
}

func (b *captureBus) Publish(_ context.Context, event palimpsest.Event) error {
	b.events = append(b.events, event)
	return nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	err := reg.Register(palimpsest.ContentType{
		Name:          "post",
		SchemaVersion: 1,
		Fields: []palimpsest.Field{
			{Name: "title", Type: palimpsest.FieldString, Required: true},
			{Name: "body", Type: palimpsest.FieldText},
		},
	})
	if err != nil {
		t.Fatalf("registering content type failed: %v", err)
	}
	return reg
}

type fixture struct {
	uc       *ContentUsecase
	variants *fakeVariantStore
	history  *fakeHistoryStore
	policy   *fakePolicyProvider
	bus      *captureBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	variants := newFakeVariantStore()
	history := newFakeHistoryStore()
	policy := &fakePolicyProvider{policy: domain.DefaultVersioningPolicy()}
	bus := &captureBus{}
	uc := NewContentUsecase(testRegistry(t), variants, history, policy, passTransactor{}, bus, nil, "en")
	return &fixture{uc: uc, variants: variants, history: history, policy: policy, bus: bus}
}

func TestCreateWritesDraftAndHistory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	variant, err := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{Editor: "alice"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if variant.Status != palimpsest.StatusDraft {
		t.Fatalf("expected draft, got %s", variant.Status)
	}
	if variant.Locale != "en" {
		t.Fatalf("expected default locale en, got %s", variant.Locale)
	}

	if _, err := fx.uc.FindPublished(ctx, "post", variant.DocumentID, "en"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected published not-found, got %v", err)
	}

	versions, err := fx.uc.GetVersions(ctx, "post", variant.DocumentID, "en")
	if err != nil {
		t.Fatalf("get versions failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Status != palimpsest.StatusDraft || versions[0].VersionID != 1 {
		t.Fatalf("unexpected history: %+v", versions)
	}
}

func TestCreateRejectsInvalidPayload(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.uc.Create(context.Background(), "post", map[string]any{"body": "no title"}, CreateOptions{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = fx.uc.Create(context.Background(), "post", map[string]any{"title": "x", "bogus": 1}, CreateOptions{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for undeclared field, got %v", err)
	}
}

func TestPublishPreservesDraft(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	published, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{Locale: "en"})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if published.Status != palimpsest.StatusPublished {
		t.Fatalf("expected published, got %s", published.Status)
	}

	draft, err := fx.uc.FindDraft(ctx, "post", created.DocumentID, "en")
	if err != nil {
		t.Fatalf("draft gone after publish: %v", err)
	}
	if draft.Payload["title"] != "Hello" {
		t.Fatalf("draft payload changed: %+v", draft.Payload)
	}
}

func TestUnpublishIsReversible(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if _, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := fx.uc.Unpublish(ctx, "post", created.DocumentID, "en"); err != nil {
		t.Fatalf("unpublish failed: %v", err)
	}

	if _, err := fx.uc.FindPublished(ctx, "post", created.DocumentID, "en"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected published not-found after unpublish, got %v", err)
	}

	draft, err := fx.uc.FindDraft(ctx, "post", created.DocumentID, "en")
	if err != nil || draft.Payload["title"] != "Hello" {
		t.Fatalf("draft not intact after unpublish: %v %+v", err, draft.Payload)
	}

	// no history entry for unpublish
	versions, _ := fx.uc.GetVersions(ctx, "post", created.DocumentID, "en")
	if len(versions) != 2 {
		t.Fatalf("expected create+publish history only, got %d entries", len(versions))
	}
}

func TestPublishWithoutDraftFails(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})

	_, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{Locale: "fr"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for locale without draft, got %v", err)
	}
}

func TestAddLocaleAndStatuses(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if _, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if _, err := fx.uc.AddLocale(ctx, "post", created.DocumentID, "fr", map[string]any{"title": "Bonjour"}, "bob"); err != nil {
		t.Fatalf("add locale failed: %v", err)
	}

	_, err := fx.uc.AddLocale(ctx, "post", created.DocumentID, "fr", map[string]any{"title": "Encore"}, "bob")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for existing locale, got %v", err)
	}

	statuses, err := fx.uc.GetLocaleStatuses(ctx, "post", created.DocumentID)
	if err != nil {
		t.Fatalf("locale statuses failed: %v", err)
	}
	en := statuses["en"].Value
	fr := statuses["fr"].Value
	if !en.HasDraft || !en.HasPublished {
		t.Fatalf("unexpected en status: %+v", en)
	}
	if !fr.HasDraft || fr.HasPublished {
		t.Fatalf("unexpected fr status: %+v", fr)
	}
}

func TestLocaleIsolation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if _, err := fx.uc.AddLocale(ctx, "post", created.DocumentID, "fr", map[string]any{"title": "Bonjour"}, ""); err != nil {
		t.Fatalf("add locale failed: %v", err)
	}

	if _, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{Locale: "en"}); err != nil {
		t.Fatalf("publish en failed: %v", err)
	}

	if _, err := fx.uc.FindPublished(ctx, "post", created.DocumentID, "fr"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("publishing en must not publish fr, got %v", err)
	}

	if err := fx.uc.Unpublish(ctx, "post", created.DocumentID, "en"); err != nil {
		t.Fatalf("unpublish en failed: %v", err)
	}
	frDraft, err := fx.uc.FindDraft(ctx, "post", created.DocumentID, "fr")
	if err != nil || frDraft.Payload["title"] != "Bonjour" {
		t.Fatalf("fr draft affected by en lifecycle: %v %+v", err, frDraft.Payload)
	}
}

func TestRetentionBound(t *testing.T) {
	fx := newFixture(t)
	fx.policy.policy.MaxVersions = 3
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "v1"}, CreateOptions{})
	for _, title := range []string{"v2", "v3", "v4", "v5"} {
		if _, err := fx.uc.Update(ctx, "post", created.DocumentID, map[string]any{"title": title}, UpdateOptions{}); err != nil {
			t.Fatalf("update %s failed: %v", title, err)
		}
	}

	versions, err := fx.uc.GetVersions(ctx, "post", created.DocumentID, "en")
	if err != nil {
		t.Fatalf("get versions failed: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 retained versions, got %d", len(versions))
	}
	// newest first, strictly decreasing versionIds, most recent retained
	if versions[0].VersionID != 5 || versions[2].VersionID != 3 {
		t.Fatalf("unexpected retained window: %d..%d", versions[0].VersionID, versions[2].VersionID)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i].VersionID >= versions[i-1].VersionID {
			t.Fatalf("versions not strictly decreasing at %d", i)
		}
	}
}

func TestRestoreTargetsDraftOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "first"}, CreateOptions{})
	if _, err := fx.uc.Update(ctx, "post", created.DocumentID, map[string]any{"title": "second"}, UpdateOptions{}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	restored, err := fx.uc.RestoreVersion(ctx, "post", created.DocumentID, "en", 1, "carol")
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Status != palimpsest.StatusDraft || restored.Payload["title"] != "first" {
		t.Fatalf("unexpected restore result: %+v", restored)
	}

	published, err := fx.uc.FindPublished(ctx, "post", created.DocumentID, "en")
	if err != nil || published.Payload["title"] != "second" {
		t.Fatalf("restore must not touch published: %v %+v", err, published.Payload)
	}

	versions, _ := fx.uc.GetVersions(ctx, "post", created.DocumentID, "en")
	if versions[0].Notes != "Restored from version 1" {
		t.Fatalf("missing restore note: %q", versions[0].Notes)
	}
}

func TestRestoreRejectsStaleSchema(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "first"}, CreateOptions{})

	// simulate a snapshot taken under an older schema version
	key := historyKey{created.DocumentID, "en"}
	fx.history.entries[key][0].Snapshot.SchemaVersion = 0

	_, err := fx.uc.RestoreVersion(ctx, "post", created.DocumentID, "en", 1, "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for stale schema, got %v", err)
	}
}

func TestRestoreMissingVersion(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "first"}, CreateOptions{})

	_, err := fx.uc.RestoreVersion(ctx, "post", created.DocumentID, "en", 42, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for missing version, got %v", err)
	}
}

func TestPublishRequiresApproval(t *testing.T) {
	fx := newFixture(t)
	fx.policy.policy.RequireApproval = true
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})

	_, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{})
	if !errors.Is(err, domain.ErrPolicyViolation) {
		t.Fatalf("expected policy violation, got %v", err)
	}

	if _, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{ApprovedBy: "lead"}); err != nil {
		t.Fatalf("approved publish failed: %v", err)
	}
}

func TestAutoPublishPolicy(t *testing.T) {
	fx := newFixture(t)
	fx.policy.policy.AutoPublish = true
	ctx := context.Background()

	variant, err := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if variant.Status != palimpsest.StatusPublished {
		t.Fatalf("auto-publish should return the published variant, got %s", variant.Status)
	}

	if _, err := fx.uc.FindPublished(ctx, "post", variant.DocumentID, "en"); err != nil {
		t.Fatalf("expected published variant to exist: %v", err)
	}
}

func TestDeleteRetainsHistory(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})

	if err := fx.uc.Delete(ctx, "post", created.DocumentID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := fx.uc.FindDraft(ctx, "post", created.DocumentID, "en"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected variants gone, got %v", err)
	}

	versions, err := fx.uc.GetVersions(ctx, "post", created.DocumentID, "en")
	if err != nil || len(versions) != 1 {
		t.Fatalf("history must survive delete: %v %d", err, len(versions))
	}
}

func TestHistoryFailureRollsBackVariantWrite(t *testing.T) {
	variants := newFakeVariantStore()
	history := newFakeHistoryStore()
	history.appendErr = errors.New("history store down")
	policy := &fakePolicyProvider{policy: domain.DefaultVersioningPolicy()}
	uc := NewContentUsecase(testRegistry(t), variants, history, policy, snapshotTransactor{store: variants}, nil, nil, "en")
	ctx := context.Background()

	_, err := uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if err == nil {
		t.Fatalf("expected create to fail when history append fails")
	}
	if len(variants.documents) != 0 {
		t.Fatalf("expected the variant write rolled back, %d documents survive", len(variants.documents))
	}
}

func TestUnknownCollection(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.uc.Create(context.Background(), "widget", map[string]any{}, CreateOptions{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found for unknown collection, got %v", err)
	}
}

func TestEventsEmitted(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, _ := fx.uc.Create(ctx, "post", map[string]any{"title": "Hello"}, CreateOptions{})
	if _, err := fx.uc.Publish(ctx, "post", created.DocumentID, PublishOptions{}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if len(fx.bus.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(fx.bus.events))
	}
	if fx.bus.events[0].Type != palimpsest.EventCreated || fx.bus.events[1].Type != palimpsest.EventPublished {
		t.Fatalf("unexpected event sequence: %s, %s", fx.bus.events[0].Type, fx.bus.events[1].Type)
	}
}
