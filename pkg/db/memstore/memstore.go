// Package memstore is an in-process docstore.Store backed by go-cache.
// Documents are kept bson-encoded so reads return copies, like a real store.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
)

// Store keeps documents in memory. Entries never expire on their own: any
// freshness policy belongs to the caller.
type Store struct {
	items *gocache.Cache
}

// New creates an empty store.
func New() *Store {
	return &Store{items: gocache.New(gocache.NoExpiration, 0)}
}

func key(collection, id string) string {
	return collection + "\x00" + id
}

// Get decodes the document with id into out.
func (s *Store) Get(ctx context.Context, collection, id string, out any) (bool, error) {
	v, ok := s.items.Get(key(collection, id))
	if !ok {
		return false, nil
	}
	if err := bson.Unmarshal(v.([]byte), out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return true, nil
}

// Upsert stores doc under id, replacing any previous document.
func (s *Store) Upsert(ctx context.Context, collection, id string, doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	s.items.Set(key(collection, id), raw, gocache.NoExpiration)
	return nil
}

// Delete removes the document with id.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.items.Delete(key(collection, id))
	return nil
}

// FindByField decodes every document of collection whose field equals value
// into out, a pointer to a slice, ordered by id.
func (s *Store) FindByField(ctx context.Context, collection, field string, value any, out any) error {
	slice := reflect.ValueOf(out)
	if slice.Kind() != reflect.Ptr || slice.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("out must be a pointer to a slice, got %T", out)
	}
	slice = slice.Elem()
	elemType := slice.Type().Elem()

	prefix := collection + "\x00"
	var keys []string
	items := s.items.Items()
	for k := range items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := reflect.MakeSlice(slice.Type(), 0, len(keys))
	for _, k := range keys {
		raw := bson.Raw(items[k].Object.([]byte))
		fv, err := raw.LookupErr(field)
		if err != nil || !equalValue(fv, value) {
			continue
		}

		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return fmt.Errorf("decode %s: %w", strings.TrimPrefix(k, prefix), err)
		}
		result = reflect.Append(result, elem.Elem())
	}

	slice.Set(result)
	return nil
}

// Len reports how many documents are stored across all collections.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// equalValue matches on bson type and bytes, so 5 and "5" differ.
func equalValue(v bson.RawValue, want any) bool {
	t, data, err := bson.MarshalValue(want)
	if err != nil {
		return false
	}
	return v.Equal(bson.RawValue{Type: t, Value: data})
}
