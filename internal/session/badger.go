package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

const (
	userKeyPrefix = "user/"
	chanKeyPrefix = "chan/"
)

// BadgerStore keeps sessions and relay indices in BadgerDB, one key per
// record. Values are decimal strings so the database stays inspectable with
// stock badger tooling.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(path string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) CurrentChannel(userID int64) (int64, bool, error) {
	return s.get(userKey(userID))
}

func (s *BadgerStore) SetCurrentChannel(userID, channelID int64) error {
	return s.set(userKey(userID), channelID)
}

func (s *BadgerStore) LastIndex(channelID int64) (int64, bool, error) {
	return s.get(chanKey(channelID))
}

func (s *BadgerStore) SetLastIndex(channelID, index int64) error {
	return s.set(chanKey(channelID), index)
}

// Maintain runs one value-log GC cycle. Badger returns ErrNoRewrite when
// there was nothing to collect; that is not a failure.
func (s *BadgerStore) Maintain() error {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("value log gc: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) get(key []byte) (int64, bool, error) {
	var value int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt value for %s: %w", key, err)
			}
			value = v
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *BadgerStore) set(key []byte, value int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(strconv.FormatInt(value, 10)))
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func userKey(userID int64) []byte {
	return []byte(userKeyPrefix + strconv.FormatInt(userID, 10))
}

func chanKey(channelID int64) []byte {
	return []byte(chanKeyPrefix + strconv.FormatInt(channelID, 10))
}
