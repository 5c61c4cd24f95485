package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
)

func TestRegisterAndGet(t *testing.T) {
	reg := New()

	ct := palimpsest.ContentType{Name: "posts", SchemaVersion: 1}
	require.NoError(t, reg.Register(ct))

	got, err := reg.Get("posts")
	require.NoError(t, err)
	require.Equal(t, "posts", got.Name)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := New()

	ct := palimpsest.ContentType{Name: "posts", SchemaVersion: 1}
	require.NoError(t, reg.Register(ct))
	require.Error(t, reg.Register(ct))
}

func TestRegisterRejectsInvalidDeclarations(t *testing.T) {
	reg := New()

	require.Error(t, reg.Register(palimpsest.ContentType{Name: "", SchemaVersion: 1}))
	require.Error(t, reg.Register(palimpsest.ContentType{Name: "posts", SchemaVersion: 0}))
}

func TestGetUnknownCollection(t *testing.T) {
	reg := New()

	_, err := reg.Get("nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNamesSorted(t *testing.T) {
	reg := New()

	for _, name := range []string{"pages", "articles", "posts"} {
		require.NoError(t, reg.Register(palimpsest.ContentType{Name: name, SchemaVersion: 1}))
	}

	require.Equal(t, []string{"articles", "pages", "posts"}, reg.Names())
}
