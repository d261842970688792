package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AddAwards registers award slugs with their designations.
func (s *Store) AddAwards(ctx context.Context, awards ...Award) error {
	for _, a := range awards {
		if strings.TrimSpace(a.Slug) == "" {
			return errors.New("award slug required")
		}
	}
	return s.Commit(ctx, &Batch{Awards: awards})
}

// SetMetadata stores one metadata field.
func (s *Store) SetMetadata(ctx context.Context, field, value string) error {
	for _, known := range MetadataFields {
		if field == known {
			return s.Commit(ctx, &Batch{Metadata: map[string]string{field: strings.TrimSpace(value)}})
		}
	}
	return fmt.Errorf("unknown metadata field %q (expected one of %s)", field, strings.Join(MetadataFields, ", "))
}

// Metadata returns every stored metadata field.
func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	return loadMetadata(ensureContext(ctx), s.db)
}
