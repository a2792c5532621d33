package capflow

// Entity store: bbolt-backed persistence with JSON encoding, rather than the
// protobuf layer the teacher used — this module has no generated protobuf
// package to serialize against, and every entity kind is a plain Go struct
// already convenient to marshal directly. See DESIGN.md for the full
// reasoning.

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var (
	BucketEntities = []byte("entities")
	BucketEvents   = []byte("events")
)

// storedEntity is the on-disk envelope: kind tags the concrete Go type so
// Get can round-trip through the right struct.
type storedEntity struct {
	ID   string          `json:"id"`
	Kind EntityKind      `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// dateIndexEntry is one row of the sorted start_date index.
type dateIndexEntry struct {
	id    string
	start time.Time
	end   *time.Time
}

// Store wraps a bbolt database plus the in-memory indexes the cash-flow
// engine sweeps on every calculation (by kind, by active tag, by date
// range) — mirroring storage.go's bucket-per-kind layout but adding the
// secondary indexes the original Python's list-and-filter querying needed
// explicit code for.
type Store struct {
	db       *bbolt.DB
	tempPath string // non-empty when dbPath was ":memory:"; removed on Close

	mu       sync.RWMutex
	entities map[string]Entity
	byKind   map[EntityKind][]string
	byTag    map[string][]string
	byStart  []dateIndexEntry // sorted ascending by start date
}

// NewStore opens a bbolt-backed store at dbPath. dbPath == ":memory:" opens
// a throwaway temp-file-backed database instead — bbolt has no true
// in-memory mode, so this is the closest equivalent, removed again on
// Close; used by tests and scratch analysis sessions that don't want a
// file to outlive the process (SPEC_FULL.md §4.4/§C4).
func NewStore(dbPath string) (*Store, error) {
	var tempPath string
	if dbPath == ":memory:" {
		tmp, err := os.CreateTemp("", "capflow-store-*.db")
		if err != nil {
			return nil, errInternal("creating temp store file: %v", err)
		}
		tmp.Close()
		dbPath = tmp.Name()
		tempPath = dbPath
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 10 * time.Second})
	if err != nil {
		return nil, errInternal("opening database at %q: %v", dbPath, err)
	}
	s := &Store{
		db:       db,
		tempPath: tempPath,
		entities: make(map[string]Entity),
		byKind:   make(map[EntityKind][]string),
		byTag:    make(map[string][]string),
	}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}
	if err := s.loadIndexes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	err := s.db.Close()
	if s.tempPath != "" {
		if rmErr := os.Remove(s.tempPath); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{BucketEntities, BucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("creating bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

// loadIndexes rebuilds the in-memory kind index from whatever is already on
// disk, so a reopened Store doesn't need a full Put pass to answer queries.
func (s *Store) loadIndexes() error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketEntities)
		return b.ForEach(func(k, v []byte) error {
			var env storedEntity
			if err := json.Unmarshal(v, &env); err != nil {
				return fmt.Errorf("decoding entity %s: %w", k, err)
			}
			e, err := decodeEntity(env)
			if err != nil {
				return err
			}
			s.entities[env.ID] = e
			s.byKind[env.Kind] = append(s.byKind[env.Kind], env.ID)
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.rebuildSecondaryIndexes()
	return nil
}

// rebuildSecondaryIndexes recomputes byTag and byStart from the current
// entities map. Callers must hold s.mu, except during construction
// (loadIndexes runs before the Store is shared with other goroutines).
func (s *Store) rebuildSecondaryIndexes() {
	s.byTag = make(map[string][]string)
	entries := make([]dateIndexEntry, 0, len(s.entities))
	for id, e := range s.entities {
		b := e.Base()
		for _, t := range b.Tags {
			s.byTag[t] = append(s.byTag[t], id)
		}
		entries = append(entries, dateIndexEntry{id: id, start: b.StartDate, end: b.EndDate})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].start.Before(entries[j].start) })
	s.byStart = entries
}

// Put persists an entity under id, replacing any prior value, and updates
// the in-memory indexes.
func (s *Store) Put(id string, e Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errInternal("marshaling entity %q: %v", id, err)
	}
	env := storedEntity{ID: id, Kind: e.Base().Kind, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		return errInternal("marshaling envelope for %q: %v", id, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketEntities).Put([]byte(id), raw)
	})
	if err != nil {
		return errInternal("writing entity %q: %v", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[id]; !exists {
		s.byKind[e.Base().Kind] = append(s.byKind[e.Base().Kind], id)
	}
	s.entities[id] = e
	s.rebuildSecondaryIndexes()
	return nil
}

// Add persists a new entity, failing with a BadState error if id is already
// present — the strict counterpart to Put's upsert semantics (SPEC_FULL.md
// §4.4's Store: Add operation).
func (s *Store) Add(id string, e Entity) error {
	s.mu.RLock()
	_, exists := s.entities[id]
	s.mu.RUnlock()
	if exists {
		return errBadState("entity %q already exists", id)
	}
	return s.Put(id, e)
}

// Update replaces an existing entity, failing with a NotFound error if id
// isn't already present (SPEC_FULL.md §4.4's Store: Update operation).
func (s *Store) Update(id string, e Entity) error {
	s.mu.RLock()
	_, exists := s.entities[id]
	s.mu.RUnlock()
	if !exists {
		return errNotFound("entity %q not found", id)
	}
	return s.Put(id, e)
}

func (s *Store) Get(id string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, errNotFound("entity %q not found", id)
	}
	return e, nil
}

// GetByName finds the first entity (in ID order) with the given name,
// optionally restricted to one kind — pass "" to match any kind
// (SPEC_FULL.md §4.4's Store: GetByName(name, type?)).
func (s *Store) GetByName(name string, kind EntityKind) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := s.entities[id]
		b := e.Base()
		if b.Name != name {
			continue
		}
		if kind != "" && b.Kind != kind {
			continue
		}
		return e, nil
	}
	return nil, errNotFound("no entity named %q found", name)
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	e, ok := s.entities[id]
	if ok {
		delete(s.entities, id)
		ids := s.byKind[e.Base().Kind]
		for i, existing := range ids {
			if existing == id {
				s.byKind[e.Base().Kind] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		s.rebuildSecondaryIndexes()
	}
	s.mu.Unlock()

	if !ok {
		return errNotFound("entity %q not found", id)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketEntities).Delete([]byte(id))
	})
}

// ByKind returns all entities of a kind, ordered by ID for determinism.
func (s *Store) ByKind(kind EntityKind) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]string(nil), s.byKind[kind]...)
	sort.Strings(ids)
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entities[id])
	}
	return out
}

// All returns every entity in the store, ordered by ID.
func (s *Store) All() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entities))
	for id := range s.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entities[id])
	}
	return out
}

// ActiveAt returns every entity active on asOf, across all kinds, using the
// start-date index: entries are visited in ascending start-date order and
// the scan stops at the first start date after asOf rather than walking
// every entity in the store.
func (s *Store) ActiveAt(asOf time.Time) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, entry := range s.byStart {
		if entry.start.After(asOf) {
			break
		}
		if entry.end != nil && asOf.After(*entry.end) {
			continue
		}
		ids = append(ids, entry.id)
	}
	sort.Strings(ids)
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entities[id])
	}
	return out
}

// WithTag returns every entity carrying the given tag, via the tag index.
func (s *Store) WithTag(tag string) []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := append([]string(nil), s.byTag[tag]...)
	sort.Strings(ids)
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.entities[id])
	}
	return out
}

// QueryFilter narrows Query's result set; zero-valued fields (empty Kind,
// nil ActiveOn, empty Tags/NameContains) don't filter on that dimension.
type QueryFilter struct {
	Kind         EntityKind
	ActiveOn     *time.Time
	Tags         []string
	NameContains string
}

// Query filters entities by type/active_on/tags/name_contains, mirroring
// the predicate-based querying SPEC_FULL.md §4.4/§6 expects of the store.
func (s *Store) Query(filter QueryFilter) []Entity {
	var base []Entity
	if filter.Kind != "" {
		base = s.ByKind(filter.Kind)
	} else {
		base = s.All()
	}

	out := make([]Entity, 0, len(base))
	for _, e := range base {
		b := e.Base()
		if filter.ActiveOn != nil && !b.IsActive(*filter.ActiveOn) {
			continue
		}
		if len(filter.Tags) > 0 {
			matched := false
			for _, t := range filter.Tags {
				if b.HasTag(t) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// SyncFromDir loads every entity file under dir (LoadDirectory's per-file
// try-and-continue) and upserts each into the store keyed by its name,
// mirroring the directory-sync workflow storage/yaml_loader.py's load_all
// pairs with save_entity. Returns the number of files that loaded
// successfully, regardless of how many were then rejected by Put.
func (s *Store) SyncFromDir(dir string) (int, error) {
	entities, err := LoadDirectory(dir)
	if err != nil {
		return 0, err
	}
	for _, e := range entities {
		id := e.Base().Name
		if err := s.Put(id, e); err != nil {
			Log.Warn().Str("entity", id).Err(err).Msg("skipping invalid entity during sync")
		}
	}
	return len(entities), nil
}

// decodeEntity re-hydrates the concrete struct behind a stored envelope so
// callers keep working with *Employee, *Grant, etc. rather than a generic
// map.
func decodeEntity(env storedEntity) (Entity, error) {
	var e Entity
	switch env.Kind {
	case KindEmployee:
		e = &Employee{}
	case KindGrant:
		e = &Grant{}
	case KindInvestment:
		e = &Investment{}
	case KindSale:
		e = &Sale{}
	case KindService:
		e = &Service{}
	case KindFacility:
		e = &Facility{}
	case KindSoftware:
		e = &Software{}
	case KindEquipment:
		e = &Equipment{}
	case KindProject:
		e = &Project{}
	case KindShareholder:
		e = &Shareholder{}
	case KindShareClass:
		e = &ShareClass{}
	case KindFundingRound:
		e = &FundingRound{}
	default:
		return nil, errInvalidField("kind", "unrecognized entity kind %q for stored entity %q", env.Kind, env.ID)
	}
	if err := json.Unmarshal(env.Data, e); err != nil {
		return nil, errInternal("decoding %s entity %q: %v", env.Kind, env.ID, err)
	}
	return e, nil
}
