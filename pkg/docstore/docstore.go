// Package docstore is the narrow document-store contract used for crawl-cache
// entries and transaction archives.
package docstore

import "context"

// Store is a key-value document store. Documents are structs with bson tags;
// the id is stored as "_id" and may contain any characters, including "_".
type Store interface {
	// Get decodes the document with id into out. found is false when absent.
	Get(ctx context.Context, collection, id string, out any) (found bool, err error)

	// Upsert creates the document or replaces it entirely.
	Upsert(ctx context.Context, collection, id string, doc any) error

	// Delete removes the document; deleting a missing id is not an error.
	Delete(ctx context.Context, collection, id string) error

	// FindByField decodes every document whose field equals value into out,
	// which must be a pointer to a slice. Results are ordered by id.
	FindByField(ctx context.Context, collection, field string, value any, out any) error
}
