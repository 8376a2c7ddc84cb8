package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"photovault/internal/photo"
)

const eventsBucket = "collision_events"

// BoltLog is a bbolt-backed EventLog. Events are stored as JSON values
// keyed by a zero-padded nanosecond timestamp plus the event ID, so keys
// iterate in chronological order and age-based pruning is a prefix scan.
type BoltLog struct {
	db *bbolt.DB
}

// NewBoltLog opens (creating if needed) the event database at path.
// The open timeout guards against two processes holding the same file.
func NewBoltLog(path string) (*BoltLog, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening event database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating events bucket: %w", err)
	}
	return &BoltLog{db: db}, nil
}

func eventKey(ev *photo.Event) []byte {
	return fmt.Appendf(nil, "%020d#%s", ev.RecordedAt.UnixNano(), ev.ID)
}

// Append records an event.
func (l *BoltLog) Append(ev *photo.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	err = l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).Put(eventKey(ev), data)
	})
	if err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// List returns the user's events in chronological order.
func (l *BoltLog) List(userID string) ([]*photo.Event, error) {
	var out []*photo.Event
	err := l.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).ForEach(func(_, v []byte) error {
			var ev photo.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("decoding event: %w", err)
			}
			if ev.UserID == userID {
				out = append(out, &ev)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading events: %w", err)
	}
	return out, nil
}

// DeleteOlderThan removes events recorded before cutoff and returns the
// count removed.
func (l *BoltLog) DeleteOlderThan(cutoff time.Time) (int, error) {
	limit := fmt.Appendf(nil, "%020d", cutoff.UnixNano())

	removed := 0
	err := l.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(eventsBucket)).Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k, limit) < 0; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return removed, nil
}

// Close closes the event database.
func (l *BoltLog) Close() error {
	return l.db.Close()
}

// Compile-time check that BoltLog implements photo.EventLog.
var _ photo.EventLog = (*BoltLog)(nil)
