// Package badger implements the append-only event store on BadgerDB.
//
// Key layout:
//
//	ev:{20-digit zero-padded sequence}  → msgpack-encoded record
//	meta:seq                            → Badger sequence lease
//
// Keys sort in insertion order, so IDs are monotonic. Queries scan the event
// prefix, filter, and order by start_time; the store owns the limit.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/disaster-event-graph/internal/domain"
)

// DefaultQueryLimit applies when Query is called with a non-positive limit.
const DefaultQueryLimit = 200

const (
	eventPrefix  = "ev:"
	sequenceKey  = "meta:seq"
	seqBandwidth = 100
	idDigits     = 20
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("event store is closed")

// Options configures the store.
type Options struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string
	// InMemory runs BadgerDB without disk persistence; used in tests.
	InMemory bool
	Logger   *slog.Logger
}

// Store is an append-only event store. Writers are serialized; readers run
// concurrently on Badger read transactions.
type Store struct {
	db     *badgerdb.DB
	seq    *badgerdb.Sequence
	mu     sync.Mutex // single writer at a time
	logger *slog.Logger
}

// record is the persisted form of a stored event.
type record struct {
	ID          string   `msgpack:"id"`
	Source      string   `msgpack:"source"`
	EventType   string   `msgpack:"event_type"`
	Title       *string  `msgpack:"title"`
	Description *string  `msgpack:"description"`
	Latitude    *float64 `msgpack:"latitude"`
	Longitude   *float64 `msgpack:"longitude"`
	Country     *string  `msgpack:"country"`
	Magnitude   *float64 `msgpack:"magnitude"`
	StartTime   *string  `msgpack:"start_time"`
	URL         *string  `msgpack:"url"`
	RawJSON     []byte   `msgpack:"raw_json"`
	CreatedAt   int64    `msgpack:"created_at"` // unix nanoseconds
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("event store: Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbOpts := badgerdb.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger: logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badgerdb.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), seqBandwidth)
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("lease id sequence: %w", err)
	}
	return &Store{db: db, seq: seq, logger: logger}, nil
}

// Insert appends every event as a new row and returns the number written.
// Duplicates are never rejected or merged. The batch is flushed as a unit.
func (s *Store) Insert(ctx context.Context, events []domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.db.IsClosed() {
		return 0, ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := domain.Now()
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range events {
		n, err := s.seq.Next()
		if err != nil {
			return 0, fmt.Errorf("next event id: %w", err)
		}
		id := formatID(n + 1)
		val, err := msgpack.Marshal(toRecord(id, events[i], createdAt))
		if err != nil {
			return 0, fmt.Errorf("encode event: %w", err)
		}
		if err := wb.Set([]byte(eventPrefix+id), val); err != nil {
			return 0, fmt.Errorf("stage event: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush events: %w", err)
	}

	s.logger.Debug("events inserted", "count", len(events))
	return len(events), nil
}

// Query returns stored events matching filter, newest start_time first, at
// most limit of them (DefaultQueryLimit when limit <= 0). Records without a
// start_time sort last; equal start times put the newer row first.
func (s *Store) Query(ctx context.Context, filter domain.Filter, limit int) ([]domain.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.IsClosed() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var out []domain.StoredEvent
	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := []byte(eventPrefix)
		itOpts := badgerdb.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode event %s: %w", it.Item().Key(), err)
			}
			ev := fromRecord(rec)
			if filter.Matches(ev.Event) {
				out = append(out, ev)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].StartTime, out[j].StartTime
		switch {
		case a == nil && b == nil:
			return out[i].ID > out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		default:
			return out[i].ID > out[j].ID
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CheckReadiness reports whether the store is open and readable.
func (s *Store) CheckReadiness(_ context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return s.db.View(func(*badgerdb.Txn) error { return nil })
}

// Close releases the id lease and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return seqErr
}

func formatID(n uint64) string {
	id := strconv.FormatUint(n, 10)
	for len(id) < idDigits {
		id = "0" + id
	}
	return id
}

func toRecord(id string, e domain.Event, createdAt time.Time) record {
	return record{
		ID:          id,
		Source:      e.Source,
		EventType:   e.EventType,
		Title:       e.Title,
		Description: e.Description,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		Country:     e.Country,
		Magnitude:   e.Magnitude,
		StartTime:   e.StartTime,
		URL:         e.URL,
		RawJSON:     e.RawJSON,
		CreatedAt:   createdAt.UnixNano(),
	}
}

func fromRecord(r record) domain.StoredEvent {
	return domain.StoredEvent{
		ID: r.ID,
		Event: domain.Event{
			Source:      r.Source,
			EventType:   r.EventType,
			Title:       r.Title,
			Description: r.Description,
			Latitude:    r.Latitude,
			Longitude:   r.Longitude,
			Country:     r.Country,
			Magnitude:   r.Magnitude,
			StartTime:   r.StartTime,
			URL:         r.URL,
			RawJSON:     json.RawMessage(r.RawJSON),
		},
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
}

// badgerLogger routes badger's own logging into slog, dropping info and
// debug chatter.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error("badger", "message", fmt.Sprintf(f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn("badger", "message", fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
