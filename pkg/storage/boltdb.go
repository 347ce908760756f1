package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/clanrelay/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// DBFileName is the database file created inside the data directory
const DBFileName = "clanrelay.db"

var (
	// Bucket names
	bucketEvents   = []byte("events")
	bucketIdentity = []byte("identity")
	bucketUnsent   = []byte("unsent")
)

// BoltStore implements Store using BoltDB.
//
// Layout:
//
//	events:   id (8 bytes) -> JSON event
//	identity: sha256(identity tuple) -> id
//	unsent:   timestamp (8 bytes) || id (8 bytes) -> empty
//
// The unsent bucket doubles as the delivery queue: bolt keeps keys sorted, so a
// cursor walk from First yields undelivered events by timestamp, then id.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	return OpenBoltStore(filepath.Join(dataDir, DBFileName))
}

// OpenBoltStore opens (or creates) the database at path
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketEvents, bucketIdentity, bucketUnsent} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Backup writes a consistent copy of the database to path while the store
// stays open
func (s *BoltStore) Backup(path string) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(path, 0600)
	})
	if err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

// Path returns the database file path
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// InsertIfAbsent runs in a single write transaction; bolt serializes writers,
// so two pollers inserting the same identity cannot both succeed.
func (s *BoltStore) InsertIfAbsent(event *types.Event) (bool, error) {
	key := identityKey(event.Identity())
	stored := *event
	stored.Timestamp = event.Timestamp.UTC()
	stored.Delivered = false

	inserted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		idb := tx.Bucket(bucketIdentity)
		if idb.Get(key) != nil {
			return nil
		}

		events := tx.Bucket(bucketEvents)
		id, err := events.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate event id: %w", err)
		}
		stored.ID = id

		data, err := json.Marshal(&stored)
		if err != nil {
			return err
		}
		if err := events.Put(itob(id), data); err != nil {
			return err
		}
		if err := idb.Put(key, itob(id)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketUnsent).Put(unsentKey(stored.Timestamp, id), []byte{}); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert event: %w", err)
	}

	if inserted {
		event.ID = stored.ID
		event.Timestamp = stored.Timestamp
		event.Delivered = false
	}
	return inserted, nil
}

func (s *BoltStore) SelectUnsent(limit int) ([]*types.Event, error) {
	var events []*types.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		eb := tx.Bucket(bucketEvents)
		c := tx.Bucket(bucketUnsent).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if limit > 0 && len(events) >= limit {
				break
			}
			id := binary.BigEndian.Uint64(k[12:])
			event, err := getEvent(eb, id)
			if err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	return events, err
}

func (s *BoltStore) MarkDelivered(ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		eb := tx.Bucket(bucketEvents)
		ub := tx.Bucket(bucketUnsent)
		for _, id := range ids {
			event, err := getEvent(eb, id)
			if err == ErrNotFound {
				continue
			}
			if err != nil {
				return err
			}
			if event.Delivered {
				continue
			}

			event.Delivered = true
			data, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if err := eb.Put(itob(id), data); err != nil {
				return err
			}
			if err := ub.Delete(unsentKey(event.Timestamp, id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetEvent(id uint64) (*types.Event, error) {
	var event *types.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		event, err = getEvent(tx.Bucket(bucketEvents), id)
		return err
	})
	return event, err
}

// ListEvents returns events newest-id first
func (s *BoltStore) ListEvents(opts ListOptions) ([]*types.Event, error) {
	var events []*types.Event
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if opts.Limit > 0 && len(events) >= opts.Limit {
				break
			}
			var event types.Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			if opts.UnsentOnly && event.Delivered {
				continue
			}
			events = append(events, &event)
		}
		return nil
	})
	return events, err
}

func (s *BoltStore) Stats() (*Stats, error) {
	stats := &Stats{ByCategory: make(map[types.Category]int)}
	err := s.db.View(func(tx *bolt.Tx) error {
		stats.Unsent = tx.Bucket(bucketUnsent).Stats().KeyN
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var event types.Event
			if err := json.Unmarshal(v, &event); err != nil {
				return err
			}
			stats.Total++
			stats.ByCategory[event.Category]++
			return nil
		})
	})
	return stats, err
}

func getEvent(b *bolt.Bucket, id uint64) (*types.Event, error) {
	data := b.Get(itob(id))
	if data == nil {
		return nil, ErrNotFound
	}
	var event types.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event %d: %w", id, err)
	}
	return &event, nil
}

// identityKey hashes a length-prefixed encoding of the identity tuple so that
// field boundaries cannot collide ("ab"+"c" vs "a"+"bc").
func identityKey(id types.Identity) []byte {
	var buf bytes.Buffer
	for _, field := range []string{id.ClanName, id.Actor, id.Text} {
		var n [binary.MaxVarintLen64]byte
		buf.Write(n[:binary.PutUvarint(n[:], uint64(len(field)))])
		buf.WriteString(field)
	}
	var ts [12]byte
	binary.BigEndian.PutUint64(ts[:8], uint64(id.Timestamp.Unix()))
	binary.BigEndian.PutUint32(ts[8:], uint32(id.Timestamp.Nanosecond()))
	buf.Write(ts[:])
	sum := sha256.Sum256(buf.Bytes())
	return sum[:]
}

// unsentKey orders by seconds, nanoseconds, then id. The sign bit of the
// seconds is flipped so that pre-1970 timestamps still sort before later ones.
func unsentKey(ts time.Time, id uint64) []byte {
	key := make([]byte, unsentKeyLen)
	binary.BigEndian.PutUint64(key[:8], uint64(ts.Unix())^(1<<63))
	binary.BigEndian.PutUint32(key[8:12], uint32(ts.Nanosecond()))
	binary.BigEndian.PutUint64(key[12:], id)
	return key
}

const unsentKeyLen = 20

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
