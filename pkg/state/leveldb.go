package state

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const defaultOpenTimeout = 2 * time.Second

// LevelDBStore persists values in a LevelDB database under a key prefix,
// so several scripts can share one database.
type LevelDBStore struct {
	db     *leveldb.DB
	prefix []byte
}

// NewLevelDBStore returns a store keeping its values under scope in db.
func NewLevelDBStore(db *leveldb.DB, scope string) *LevelDBStore {
	return &LevelDBStore{db: db, prefix: []byte(scope + "/")}
}

// OpenLevelDB opens the database at path, retrying while another process holds its lock.
func OpenLevelDB(path string, timeout time.Duration) (*leveldb.DB, error) {
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = timeout
	var db *leveldb.DB
	open := func() error {
		var err error
		db, err = leveldb.OpenFile(path, nil)
		if leveldbErrors.IsCorrupted(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(open, bo); err != nil {
		return nil, errors.Wrapf(err, "failed to open state database %q", path)
	}
	return db, nil
}

func (s *LevelDBStore) key(name string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(name))
	k = append(k, s.prefix...)
	return append(k, name...)
}

func (s *LevelDBStore) Get(name string) (any, bool, error) {
	data, err := s.db.Get(s.key(name), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read '%s'", name)
	}
	v, err := decodeValue(data)
	if err != nil {
		return nil, false, errors.Wrapf(err, "corrupted value of '%s'", name)
	}
	return v, true, nil
}

func (s *LevelDBStore) Put(name string, v any) error {
	data, err := encodeValue(v)
	if err != nil {
		return errors.Wrapf(err, "failed to store '%s'", name)
	}
	return s.db.Put(s.key(name), data, nil)
}

func (s *LevelDBStore) Delete(name string) error {
	return s.db.Delete(s.key(name), nil)
}

func (s *LevelDBStore) Keys() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix(s.prefix), nil)
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()[len(s.prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to list state keys")
	}
	return keys, nil
}

func (s *LevelDBStore) Clear() error {
	iter := s.db.NewIterator(util.BytesPrefix(s.prefix), nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(iter.Key())
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "failed to list state keys")
	}
	return s.db.Write(batch, nil)
}
