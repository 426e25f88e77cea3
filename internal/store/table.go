package store

import (
	"encoding/json"

	"go.etcd.io/bbolt"

	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/sentinel"
)

// table wraps a region with lossless JSON value encoding. A value that no
// longer decodes is a storage integrity failure: it is surfaced as an
// internal error for the affected request, never silently skipped.
type table[V any] struct {
	region *Region
}

func newTable[V any](db *DB, name string) (table[V], error) {
	r, err := db.Region(name)
	if err != nil {
		return table[V]{}, err
	}
	return table[V]{region: r}, nil
}

func (t table[V]) get(key []byte) (V, error) {
	var v V
	raw, err := t.region.Get(key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt stored record")
	}
	return v, nil
}

func (t table[V]) insert(key []byte, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode record")
	}
	return t.region.PutIfAbsent(key, raw)
}

func (t table[V]) update(key []byte, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode record")
	}
	return t.region.Update(key, raw)
}

func (t table[V]) put(key []byte, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode record")
	}
	_, err = t.region.Put(key, raw)
	return err
}

// modify applies fn to the stored value under key. The read, the change and
// the write commit in one bolt transaction, so a caller holding a stale
// snapshot can never overwrite a concurrent writer. An error from fn aborts
// the write; a missing key is sentinel.ErrNotFound.
func (t table[V]) modify(key []byte, fn func(*V) error) (V, error) {
	var v V
	err := t.region.update(func(b *bbolt.Bucket) error {
		raw := b.Get(key)
		if raw == nil {
			return sentinel.ErrNotFound
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "corrupt stored record")
		}
		if err := fn(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode record")
		}
		return b.Put(key, out)
	})
	return v, err
}

func (t table[V]) remove(key []byte) (V, bool, error) {
	var v V
	prev, err := t.region.Delete(key)
	if err != nil {
		return v, false, err
	}
	if prev == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(prev, &v); err != nil {
		return v, false, dErrors.Wrap(err, dErrors.CodeInternal, "corrupt stored record")
	}
	return v, true, nil
}

// filter returns all values matching pred in ascending key order. A nil pred
// returns everything.
func (t table[V]) filter(pred func(V) bool) ([]V, error) {
	var out []V
	err := t.region.ForEach(func(_, raw []byte) error {
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "corrupt stored record")
		}
		if pred == nil || pred(v) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (t table[V]) count() (uint64, error) {
	return t.region.Len()
}
