package palimpsest

import (
	"testing"
)

var articleType = ContentType{
	Name:          "articles",
	SchemaVersion: 2,
	Fields: []Field{
		{Name: "title", Type: FieldString, Required: true},
		{Name: "body", Type: FieldText},
		{Name: "views", Type: FieldInteger},
		{Name: "rating", Type: FieldFloat},
		{Name: "featured", Type: FieldBoolean},
		{Name: "publishedDate", Type: FieldDateTime},
		{Name: "meta", Type: FieldJSON},
	},
}

func TestValidateAcceptsWellFormedPayload(t *testing.T) {
	problems := articleType.Validate(map[string]any{
		"title":         "hello",
		"body":          "world",
		"views":         float64(12),
		"rating":        4.5,
		"featured":      true,
		"publishedDate": "2026-01-15T09:00:00Z",
		"meta":          map[string]any{"anything": []any{1, 2}},
	})
	if len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestValidateRequiredField(t *testing.T) {
	problems := articleType.Validate(map[string]any{
		"body": "no title",
	})
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %v", problems)
	}
}

func TestValidateUndeclaredField(t *testing.T) {
	problems := articleType.Validate(map[string]any{
		"title":  "hello",
		"author": "nobody declared this",
	})
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %v", problems)
	}
}

func TestValidateTypeMismatches(t *testing.T) {
	cases := map[string]map[string]any{
		"string":   {"title": 42},
		"integer":  {"title": "x", "views": 1.5},
		"boolean":  {"title": "x", "featured": "yes"},
		"datetime": {"title": "x", "publishedDate": "yesterday"},
	}
	for name, payload := range cases {
		if problems := articleType.Validate(payload); len(problems) == 0 {
			t.Errorf("%s: expected a problem for %v", name, payload)
		}
	}
}

func TestValidateNilValueOnOptionalField(t *testing.T) {
	problems := articleType.Validate(map[string]any{
		"title": "hello",
		"body":  nil,
	})
	if len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("draft"); err != nil {
		t.Fatalf("draft should parse: %v", err)
	}
	if _, err := ParseStatus("published"); err != nil {
		t.Fatalf("published should parse: %v", err)
	}
	if _, err := ParseStatus("archived"); err == nil {
		t.Fatalf("archived should not parse")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	payload := map[string]any{"title": "hello", "views": float64(3)}

	env, err := SealEnvelope(2, payload)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if env.Checksum == "" {
		t.Fatalf("expected a checksum")
	}

	got, err := env.Open(2)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if got["title"] != "hello" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestEnvelopeRejectsSchemaVersionMismatch(t *testing.T) {
	env, _ := SealEnvelope(1, map[string]any{"title": "old"})

	if _, err := env.Open(2); err == nil {
		t.Fatalf("expected a schema version error")
	}
}

func TestEnvelopeRejectsTamperedData(t *testing.T) {
	env, _ := SealEnvelope(1, map[string]any{"title": "old"})
	env.Data = []byte(`{"title":"tampered"}`)

	if _, err := env.Open(1); err == nil {
		t.Fatalf("expected a checksum error")
	}
}
