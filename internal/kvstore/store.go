package kvstore

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by GetItem when no record exists under the
// requested partition and sort key.
var ErrNotFound = errors.New("kvstore: item not found")

// keySeparator joins partition and sort key into one badger key. Neither
// key segment may contain a NUL byte.
const keySeparator = byte(0x00)

// Item is one record in the single-table design: a partition key grouping
// records by owner, a sort key distinguishing record types and instances
// within the partition, and a JSON-encoded value.
type Item struct {
	PK    string
	SK    string
	Value []byte
}

// Store is a partition/sort keyed table backed by Badger.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the table under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open kv store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store. Used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory kv store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKey(pk, sk string) []byte {
	key := make([]byte, 0, len(pk)+1+len(sk))
	key = append(key, pk...)
	key = append(key, keySeparator)
	key = append(key, sk...)
	return key
}

func decodeKey(key []byte) (pk, sk string) {
	if i := bytes.IndexByte(key, keySeparator); i >= 0 {
		return string(key[:i]), string(key[i+1:])
	}
	return string(key), ""
}

// PutItem writes the item unconditionally, replacing any existing record
// under the same composite key.
func (s *Store) PutItem(item Item) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(item.PK, item.SK), item.Value)
	})
	if err != nil {
		return fmt.Errorf("failed to put item %s/%s: %w", item.PK, item.SK, err)
	}
	return nil
}

// GetItem is a point lookup by composite key.
func (s *Store) GetItem(pk, sk string) (Item, error) {
	item := Item{PK: pk, SK: sk}
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(encodeKey(pk, sk))
		if err != nil {
			return err
		}
		item.Value, err = entry.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("failed to get item %s/%s: %w", pk, sk, err)
	}
	return item, nil
}

// DeleteItem removes the record under the composite key. Deleting an absent
// key is not an error.
func (s *Store) DeleteItem(pk, sk string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encodeKey(pk, sk))
	})
	if err != nil {
		return fmt.Errorf("failed to delete item %s/%s: %w", pk, sk, err)
	}
	return nil
}

// Query returns up to limit items in the partition whose sort keys start
// with skPrefix, ordered by sort key. With descending set, iteration starts
// from the highest sort key (newest-first for timestamp-prefixed keys).
// limit <= 0 means no limit.
func (s *Store) Query(pk, skPrefix string, limit int, descending bool) ([]Item, error) {
	prefix := encodeKey(pk, skPrefix)
	var items []Item

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = descending
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if descending {
			// Reverse iteration seeks past the end of the prefix range.
			seek = append(append([]byte{}, prefix...), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			entry := it.Item()
			value, err := entry.ValueCopy(nil)
			if err != nil {
				return err
			}
			itemPK, itemSK := decodeKey(entry.KeyCopy(nil))
			items = append(items, Item{PK: itemPK, SK: itemSK, Value: value})
			if limit > 0 && len(items) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query partition %s: %w", pk, err)
	}
	return items, nil
}

// ScanPartitions walks the whole table (keys only) and returns the sorted
// set of distinct partition keys. O(table size); intended for admin use.
func (s *Store) ScanPartitions() ([]string, error) {
	seen := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			pk, _ := decodeKey(it.Item().KeyCopy(nil))
			seen[pk] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan partitions: %w", err)
	}

	partitions := make([]string, 0, len(seen))
	for pk := range seen {
		partitions = append(partitions, pk)
	}
	sort.Strings(partitions)
	return partitions, nil
}
