package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/seqforge/taskkit/internal/bridge"
	"github.com/seqforge/taskkit/internal/metainfo"
)

// object is one platform file held in memory.
type object struct {
	ID      int64                           `json:"object_id"`
	Kind    string                          `json:"kind"`
	Meta    metainfo.Metainfo               `json:"metainfo"`
	Storage map[string][]bridge.StorageUnit `json:"storage,omitempty"`
	Index   []map[string]any                `json:"-"`
}

// store holds the dev backend's objects. The mutex guards the map and every
// object's contents; handlers mutate objects through withObject only.
type store struct {
	mu      sync.Mutex
	nextID  int64
	objects map[int64]*object
}

func newStore() *store {
	return &store{nextID: 1, objects: make(map[int64]*object)}
}

func (s *store) create(kind string, meta metainfo.Metainfo) *object {
	s.mu.Lock()
	defer s.mu.Unlock()
	if meta == nil {
		meta = metainfo.New()
	}
	obj := &object{
		ID:      s.nextID,
		Kind:    kind,
		Meta:    meta,
		Storage: make(map[string][]bridge.StorageUnit),
	}
	s.objects[obj.ID] = obj
	s.nextID++
	return obj
}

func (s *store) get(id int64) (*object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	return obj, ok
}

// withObject runs fn on the object while holding the store lock, so
// concurrent bridge calls never touch an object's maps at the same time.
// Returns false when the object does not exist.
func (s *store) withObject(id int64, fn func(*object)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[id]
	if !ok {
		return false
	}
	fn(obj)
	return true
}

// byAccession finds the object whose metainfo accession matches.
func (s *store) byAccession(accession string) (*object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byAccessionLocked(accession)
}

// byAccessionLocked is byAccession for callers already holding the lock,
// such as withObject closures.
func (s *store) byAccessionLocked(accession string) (*object, bool) {
	for _, obj := range s.objects {
		if got, ok := obj.Meta.FirstString(metainfo.KeyAccession); ok && got == accession {
			return obj, true
		}
	}
	return nil, false
}

// load seeds the store from a JSON file: a list of objects with a kind and a
// metainfo map.
func (s *store) load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var seeds []struct {
		Kind string            `json:"kind"`
		Meta metainfo.Metainfo `json:"metainfo"`
	}
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return fmt.Errorf("parse seed data %s: %w", path, err)
	}
	for _, seed := range seeds {
		s.create(seed.Kind, seed.Meta)
	}
	return nil
}
