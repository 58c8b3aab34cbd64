package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// DefaultNamespace scopes every key this application writes, the way an
// origin scopes a browser's local storage.
const DefaultNamespace = "jobboard/"

var ErrKeyNotFound = errors.New("key not found")

// Store is a string-keyed, synchronous key/value store backed by badger.
// Every key is transparently prefixed with the store's namespace.
type Store struct {
	db        *badger.DB
	namespace string
}

// NewStore opens (or creates) a badger database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(dataDir, "badger"))
	opts.Logger = nil

	return open(opts)
}

// NewMemoryStore opens a badger database that lives only as long as the process.
func NewMemoryStore() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, namespace: DefaultNamespace}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(s.namespace + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return value, err
}

// Set writes value under key. The write is committed before Set returns.
func (s *Store) Set(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(s.namespace+key), value)
	})
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(s.namespace + key))
	})
}
