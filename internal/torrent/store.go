package torrent

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"time"

	"github.com/anacrolix/dht/v2/bep44"
	"github.com/dgraph-io/badger/v3"
)

var _ bep44.Store = (*ItemStore)(nil)

// ItemStore persists DHT bep44 items in badger so mutable items survive
// restarts. Entries carry a TTL; expiry stands in for explicit deletion.
type ItemStore struct {
	db  *badger.DB
	ttl time.Duration
}

// badgerLogger adapts slog for badger's logger interface.
type badgerLogger struct {
	log *slog.Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.log.Error(f, "args", v) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warn(f, "args", v) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.log.Info(f, "args", v) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.log.Debug(f, "args", v) }

// NewItemStore opens the badger database at path.
func NewItemStore(path string, itemsTTL time.Duration) (*ItemStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(&badgerLogger{log: slog.With("component", "item-store")}).
		WithValueLogFileSize(1<<26 - 1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	if err := db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		db.Close()
		return nil, err
	}

	return &ItemStore{db: db, ttl: itemsTTL}, nil
}

// Put stores a DHT item under its target with the configured TTL.
func (s *ItemStore) Put(i *bep44.Item) error {
	var value bytes.Buffer
	if err := gob.NewEncoder(&value).Encode(i); err != nil {
		return err
	}

	key := i.Target()
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.SetEntry(badger.NewEntry(key[:], value.Bytes()).WithTTL(s.ttl))
	})
}

// Get retrieves a DHT item by target.
func (s *ItemStore) Get(t bep44.Target) (*bep44.Item, error) {
	var item *bep44.Item
	err := s.db.View(func(tx *badger.Txn) error {
		dbi, err := tx.Get(t[:])
		if err == badger.ErrKeyNotFound {
			return bep44.ErrItemNotFound
		}
		if err != nil {
			return err
		}
		return dbi.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&item)
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Del is a no-op; the TTL handles expiration.
func (s *ItemStore) Del(t bep44.Target) error {
	return nil
}

// Close shuts down the badger database.
func (s *ItemStore) Close() error {
	return s.db.Close()
}
