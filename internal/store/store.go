// Package store keeps the authoritative, indexed copy of every record
// collection and persists each record individually through a Backend.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
)

// Record is anything a Collection can index.
type Record interface {
	RecordID() string
	RecordOwner() string
}

// Row is the persisted form of a record.
type Row struct {
	ID       string
	Owner    string
	Position int64
	Data     []byte
}

// Backend is durable per-record storage. Load returns the rows of a
// collection in any order; an unknown collection yields no rows.
type Backend interface {
	Load(ctx context.Context, collection string) ([]Row, error)
	Put(ctx context.Context, collection string, row Row) error
	Delete(ctx context.Context, collection, id string) error
}

// Placement decides where a new record sorts relative to existing ones.
type Placement int

const (
	// Back sorts after every existing record.
	Back Placement = iota
	// Front sorts before every existing record.
	Front
)

type entry[T Record] struct {
	rec T
	pos int64
}

// Collection is an id → record map with an owner → id-set index.
type Collection[T Record] struct {
	name    string
	backend Backend
	log     zerolog.Logger

	mu        sync.RWMutex
	byID      map[string]entry[T]
	byOwner   map[string]map[string]struct{}
	revisions map[string]uint64
	minPos    int64
	maxPos    int64
}

// NewCollection creates an empty collection. Call Load to read persisted rows.
func NewCollection[T Record](name string, backend Backend) *Collection[T] {
	return &Collection[T]{
		name:      name,
		backend:   backend,
		log:       logger.Component("store").With().Str("collection", name).Logger(),
		byID:      make(map[string]entry[T]),
		byOwner:   make(map[string]map[string]struct{}),
		revisions: make(map[string]uint64),
	}
}

// Name returns the collection key.
func (c *Collection[T]) Name() string {
	return c.name
}

// Load rebuilds the index from the backend. Rows that cannot be decoded are
// skipped so a corrupted record never takes the rest of the collection down.
func (c *Collection[T]) Load(ctx context.Context) error {
	rows, err := c.backend.Load(ctx, c.name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.byID = make(map[string]entry[T], len(rows))
	c.byOwner = make(map[string]map[string]struct{})
	c.minPos, c.maxPos = 0, 0

	skipped := 0
	for _, row := range rows {
		var rec T
		if err := json.Unmarshal(row.Data, &rec); err != nil {
			skipped++
			c.log.Warn().Err(err).Str("id", row.ID).Msg("Skipping undecodable record")
			continue
		}
		if rec.RecordID() == "" {
			skipped++
			c.log.Warn().Str("id", row.ID).Msg("Skipping record without id")
			continue
		}
		c.insertLocked(rec, row.Position)
	}

	c.log.Debug().Int("records", len(c.byID)).Int("skipped", skipped).Msg("Collection loaded")
	return nil
}

// Save writes rec to the backend and then indexes it. Existing records keep
// their position; new ones are placed according to placement.
func (c *Collection[T]) Save(ctx context.Context, rec T, placement Placement) error {
	id := rec.RecordID()
	if id == "" {
		return fmt.Errorf("failed to save %s record: empty id", c.name)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pos := c.maxPos + 1
	if existing, ok := c.byID[id]; ok {
		pos = existing.pos
	} else if placement == Front {
		pos = c.minPos - 1
	}

	row := Row{ID: id, Owner: rec.RecordOwner(), Position: pos, Data: data}
	if err := c.backend.Put(ctx, c.name, row); err != nil {
		return fmt.Errorf("failed to save %s record: %w", c.name, err)
	}

	if existing, ok := c.byID[id]; ok {
		c.removeLocked(existing.rec)
	}
	c.insertLocked(rec, pos)
	return nil
}

// Delete removes the record with the given id. It reports whether the
// record existed; deleting an unknown id is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.byID[id]
	if !ok {
		return false, nil
	}

	if err := c.backend.Delete(ctx, c.name, id); err != nil {
		return false, fmt.Errorf("failed to delete %s record: %w", c.name, err)
	}

	c.removeLocked(existing.rec)
	return true, nil
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.byID[id]
	return e.rec, ok
}

// Find returns the first record, in position order, matching pred.
func (c *Collection[T]) Find(pred func(T) bool) (T, bool) {
	for _, rec := range c.All() {
		if pred(rec) {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// ByOwner returns the owner's records in position order.
func (c *Collection[T]) ByOwner(owner string) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.byOwner[owner]
	entries := make([]entry[T], 0, len(ids))
	for id := range ids {
		entries = append(entries, c.byID[id])
	}
	return sortedRecords(entries)
}

// All returns every record in position order.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]entry[T], 0, len(c.byID))
	for _, e := range c.byID {
		entries = append(entries, e)
	}
	return sortedRecords(entries)
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Revision returns a counter that changes whenever one of the owner's
// records is saved or deleted.
func (c *Collection[T]) Revision(owner string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revisions[owner]
}

func (c *Collection[T]) insertLocked(rec T, pos int64) {
	id, owner := rec.RecordID(), rec.RecordOwner()

	c.byID[id] = entry[T]{rec: rec, pos: pos}
	set, ok := c.byOwner[owner]
	if !ok {
		set = make(map[string]struct{})
		c.byOwner[owner] = set
	}
	set[id] = struct{}{}
	c.revisions[owner]++

	c.minPos = min(c.minPos, pos)
	c.maxPos = max(c.maxPos, pos)
}

func (c *Collection[T]) removeLocked(rec T) {
	id, owner := rec.RecordID(), rec.RecordOwner()

	delete(c.byID, id)
	if set, ok := c.byOwner[owner]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(c.byOwner, owner)
		}
	}
	c.revisions[owner]++
}

func sortedRecords[T Record](entries []entry[T]) []T {
	slices.SortFunc(entries, func(a, b entry[T]) int {
		switch {
		case a.pos < b.pos:
			return -1
		case a.pos > b.pos:
			return 1
		default:
			return 0
		}
	})

	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}
