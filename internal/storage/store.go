// Package storage abstracts where receipt images live. The portal runs
// against Google Cloud Storage in production and a local directory in
// development; both drivers hand back a dereferenceable URL on upload.
package storage

import (
	"context"
	"io"
	"strings"
)

type ReceiptStore interface {
	// Upload stores the object under name and returns its public URL.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes the object a previous Upload returned url for.
	Delete(ctx context.Context, url string) error
}

// SanitizeObjectName flattens a receipt object name into something safe for
// both a bucket key and a filesystem path: path separators and whitespace
// collapse to single characters, everything else passes through.
func SanitizeObjectName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '/', '\\':
			b.WriteRune('_')
		case ' ', '\t':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
