package app

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const prefsBucket = "prefs"

var (
	keySoundEnabled = []byte("sound_enabled")
	keyLayout       = []byte("layout")
)

// PrefStore persists user preferences across restarts. Reads are served from
// memory; writes go through to disk.
type PrefStore struct {
	logger *zap.Logger
	db     *bolt.DB

	mu           sync.RWMutex
	soundEnabled bool
	layout       json.RawMessage
}

func OpenPrefStore(logger *zap.Logger, path string, soundDefault bool) (*PrefStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}
	ps := &PrefStore{logger: logger, db: db, soundEnabled: soundDefault}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(prefsBucket))
		if err != nil {
			return err
		}
		if v := b.Get(keySoundEnabled); v != nil {
			ps.soundEnabled = string(v) == "1"
		}
		if v := b.Get(keyLayout); v != nil {
			ps.layout = append(json.RawMessage(nil), v...)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load prefs: %w", err)
	}
	return ps, nil
}

func (ps *PrefStore) SoundEnabled() bool {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.soundEnabled
}

func (ps *PrefStore) SetSoundEnabled(on bool) error {
	ps.mu.Lock()
	ps.soundEnabled = on
	ps.mu.Unlock()

	val := []byte("0")
	if on {
		val = []byte("1")
	}
	return ps.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(prefsBucket)).Put(keySoundEnabled, val)
	})
}

// Layout returns the stored dashboard layout, or nil when none was saved.
func (ps *PrefStore) Layout() json.RawMessage {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if ps.layout == nil {
		return nil
	}
	return append(json.RawMessage(nil), ps.layout...)
}

func (ps *PrefStore) SetLayout(layout json.RawMessage) error {
	ps.mu.Lock()
	ps.layout = append(json.RawMessage(nil), layout...)
	ps.mu.Unlock()

	return ps.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(prefsBucket)).Put(keyLayout, layout)
	})
}

func (ps *PrefStore) Close() error {
	return ps.db.Close()
}
