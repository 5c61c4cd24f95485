package schemas

import (
	"github.com/palimpsest-cms/palimpsest"
)

// Builtin content types registered by default. Deployments declare their
// own collections in the config file; these cover the common cases.
var (
	Page = palimpsest.ContentType{
		Name:          "pages",
		SchemaVersion: 1,
		Fields: []palimpsest.Field{
			{Name: "title", Type: palimpsest.FieldString, Required: true},
			{Name: "slug", Type: palimpsest.FieldString, Required: true},
			{Name: "body", Type: palimpsest.FieldText},
			{Name: "publishOrder", Type: palimpsest.FieldInteger},
		},
	}

	Post = palimpsest.ContentType{
		Name:          "posts",
		SchemaVersion: 1,
		Fields: []palimpsest.Field{
			{Name: "title", Type: palimpsest.FieldString, Required: true},
			{Name: "body", Type: palimpsest.FieldText, Required: true},
			{Name: "tags", Type: palimpsest.FieldJSON},
			{Name: "publishedDate", Type: palimpsest.FieldDateTime},
		},
	}
)

func Builtins() []palimpsest.ContentType {
	return []palimpsest.ContentType{Page, Post}
}
