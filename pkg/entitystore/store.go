// Package entitystore implements the in-memory contact entity store, the
// substrate every other component reads and mutates.
//
// The store serializes its own map accesses, but the engine additionally
// requires the host to serialize logical mutations per entity: no concurrent
// enrichment and merge may touch the same entity ID simultaneously. That is
// a precondition on the caller, not something the store enforces.
package entitystore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tagus/contactgraph/pkg/interfaces"
)

var (
	// ErrEntityNotFound is returned when no entity exists with the given ID.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrDuplicateEntityID is returned when adding an entity whose ID is
	// already present in the store.
	ErrDuplicateEntityID = errors.New("duplicate entity id")

	// ErrInvalidEntityID is returned for operations with an empty entity ID.
	ErrInvalidEntityID = errors.New("invalid entity id")
)

// Store is an in-memory mapping of contact identities with a name index for
// exact-name lookups. The zero value is not usable; use New.
type Store struct {
	mu       sync.RWMutex
	entities map[string]interfaces.ContactEntity
	byName   map[string]string // display name -> entity ID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entities: make(map[string]interfaces.ContactEntity),
		byName:   make(map[string]string),
	}
}

// Add inserts a new entity. The ID must be non-empty and not already present.
func (s *Store) Add(entity interfaces.ContactEntity) error {
	if entity.ID == "" {
		return ErrInvalidEntityID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[entity.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEntityID, entity.ID)
	}

	now := time.Now()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	if entity.UpdatedAt.IsZero() {
		entity.UpdatedAt = now
	}

	s.put(entity)
	return nil
}

// Get returns a copy of the entity with the given ID.
func (s *Store) Get(id string) (interfaces.ContactEntity, error) {
	if id == "" {
		return interfaces.ContactEntity{}, ErrInvalidEntityID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return interfaces.ContactEntity{}, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}
	return entity.Clone(), nil
}

// GetByName returns a copy of the entity whose display name matches exactly.
// Matching is case-sensitive.
func (s *Store) GetByName(name string) (interfaces.ContactEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return interfaces.ContactEntity{}, fmt.Errorf("%w: name %q", ErrEntityNotFound, name)
	}
	return s.entities[id].Clone(), nil
}

// Update replaces an existing entity.
func (s *Store) Update(entity interfaces.ContactEntity) error {
	if entity.ID == "" {
		return ErrInvalidEntityID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.entities[entity.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entity.ID)
	}

	entity.UpdatedAt = time.Now()
	s.dropName(previous)
	s.put(entity)
	return nil
}

// Delete removes the entity with the given ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entity, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	s.dropName(entity)
	delete(s.entities, id)
	return nil
}

// List returns a cloned snapshot of every entity. Order is unspecified.
func (s *Store) List() []interfaces.ContactEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := make([]interfaces.ContactEntity, 0, len(s.entities))
	for _, entity := range s.entities {
		entities = append(entities, entity.Clone())
	}
	return entities
}

// Names returns the set of every display name currently in the store.
func (s *Store) Names() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]struct{}, len(s.byName))
	for name := range s.byName {
		names[name] = struct{}{}
	}
	return names
}

// Len returns the number of entities in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// ApplyEnrichment writes the updated entity and inserts the discovered stubs
// in one critical section, so the outcome is atomic from the caller's
// perspective. Discovered stubs whose ID collides with an existing entity
// are rejected, failing the whole apply before any write.
func (s *Store) ApplyEnrichment(outcome interfaces.EnrichmentOutcome) error {
	if outcome.Updated.ID == "" {
		return ErrInvalidEntityID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.entities[outcome.Updated.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, outcome.Updated.ID)
	}
	for _, stub := range outcome.Discovered {
		if stub.ID == "" {
			return ErrInvalidEntityID
		}
		if _, ok := s.entities[stub.ID]; ok {
			return fmt.Errorf("%w: discovered %s", ErrDuplicateEntityID, stub.ID)
		}
	}

	now := time.Now()
	updated := outcome.Updated
	updated.UpdatedAt = now
	s.dropName(previous)
	s.put(updated)

	for _, stub := range outcome.Discovered {
		stub.CreatedAt = now
		stub.UpdatedAt = now
		s.put(stub)
	}
	return nil
}

// ApplyMerge writes the surviving entity and removes the merged-away IDs in
// one critical section. The survivor's ID must not be among mergedIDs, and
// every merged ID must exist; a violation fails the whole apply before any
// write.
func (s *Store) ApplyMerge(survivor interfaces.ContactEntity, mergedIDs []string) error {
	if survivor.ID == "" {
		return ErrInvalidEntityID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range mergedIDs {
		if id == survivor.ID {
			return fmt.Errorf("%w: survivor %s listed for removal", ErrInvalidEntityID, id)
		}
		if _, ok := s.entities[id]; !ok {
			return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
	}

	for _, id := range mergedIDs {
		s.dropName(s.entities[id])
		delete(s.entities, id)
	}

	if previous, ok := s.entities[survivor.ID]; ok {
		s.dropName(previous)
	}
	survivor.UpdatedAt = time.Now()
	s.put(survivor)
	return nil
}

// put writes the entity and its name index entry. Callers hold the lock.
func (s *Store) put(entity interfaces.ContactEntity) {
	s.entities[entity.ID] = entity.Clone()
	if entity.Name != "" {
		s.byName[entity.Name] = entity.ID
	}
}

// dropName removes the name index entry if it still points at the entity.
func (s *Store) dropName(entity interfaces.ContactEntity) {
	if entity.Name == "" {
		return
	}
	if id, ok := s.byName[entity.Name]; ok && id == entity.ID {
		delete(s.byName, entity.Name)
	}
}
