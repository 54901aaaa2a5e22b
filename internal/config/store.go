package config

import (
	"crypto/sha1"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

// ColumnSignature is a human-auditable fingerprint of a column index's
// defining expressions, grounded on the teacher's sql.ExpressionHash
// (config_test.go's TestConfig hashes column expressions with sha1 before
// persisting them in the index config).
type ColumnSignature [sha1.Size]byte

// Sign computes the signature for a keyspace/table/index/column tuple plus
// its options, used to detect "was this index already built with these
// options" across a process restart.
func Sign(keyspace, table, index, column string, opts Options) ColumnSignature {
	h := sha1.New()
	fmt.Fprintf(h, "%s/%s/%s/%s/%#v", keyspace, table, index, column, opts)
	var out ColumnSignature
	copy(out[:], h.Sum(nil))
	return out
}

// Descriptor is the persisted column index descriptor (spec.md 3, "Column
// index descriptor"): name, options, and the signature used to validate
// on-disk segments still match the declared configuration.
type Descriptor struct {
	Keyspace  string
	Table     string
	Index     string
	Column    string
	Kind      Kind
	Options   Options
	Signature ColumnSignature
}

var descriptorsBucket = []byte("column_descriptors")

// Store persists column index descriptors and build-progress bookkeeping in
// a single bbolt database per engine instance, replacing the teacher's
// per-index ".cfg" flat file (config_test.go) with one embedded database.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if absent) the descriptor store at path.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(descriptorsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func descriptorKey(keyspace, table, index string) []byte {
	return []byte(keyspace + "\x00" + table + "\x00" + index)
}

// Put persists d, overwriting any existing descriptor for the same
// (keyspace, table, index).
func (s *Store) Put(d Descriptor) error {
	buf, err := msgpack.Marshal(d)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(descriptorsBucket)
		return b.Put(descriptorKey(d.Keyspace, d.Table, d.Index), buf)
	})
}

// Get returns the descriptor for (keyspace, table, index), or ok=false.
func (s *Store) Get(keyspace, table, index string) (Descriptor, bool, error) {
	var d Descriptor
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(descriptorsBucket)
		v := b.Get(descriptorKey(keyspace, table, index))
		if v == nil {
			return nil
		}
		found = true
		return msgpack.Unmarshal(v, &d)
	})
	return d, found, err
}

// Delete removes the descriptor for (keyspace, table, index), per the Drop
// lifecycle transition.
func (s *Store) Delete(keyspace, table, index string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(descriptorsBucket)
		return b.Delete(descriptorKey(keyspace, table, index))
	})
}
