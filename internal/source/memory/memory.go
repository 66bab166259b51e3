// Package memory is an in-process title store seeded from a data directory.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"caixa/internal/core"
	"caixa/internal/source"
)

type Store struct {
	mu     sync.RWMutex
	titles []core.Title
	ref    core.Reference
}

var _ source.Store = (*Store)(nil)

func New(ref core.Reference, titles []core.Title) *Store {
	return &Store{ref: ref, titles: append([]core.Title(nil), titles...)}
}

// NewFromDir seeds the store from titles.json and the reference YAML files in
// base. Missing files leave the corresponding data empty.
func NewFromDir(base string) (*Store, error) {
	ref, err := source.ReadReferenceDir(base)
	if err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}
	titles, err := source.ReadTitlesFile(filepath.Join(base, source.TitlesFile))
	if err != nil {
		return nil, fmt.Errorf("load titles: %w", err)
	}
	return New(ref, titles), nil
}

// ListTitles returns copies of the titles touching accountID in year.
func (s *Store) ListTitles(ctx context.Context, accountID string, year int) ([]core.Title, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Title, 0)
	for _, t := range s.titles {
		if source.Touches(t, accountID, year) {
			out = append(out, t)
		}
	}
	return out, nil
}

// LoadReference returns the reference tables. Callers must treat them as
// read-only.
func (s *Store) LoadReference(_ context.Context) (core.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ref, nil
}

// ImportTitles appends titles.
func (s *Store) ImportTitles(_ context.Context, titles []core.Title) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles = append(s.titles, titles...)
	return len(titles), nil
}

// SaveReference merges ref into the stored tables, replacing entries with the
// same key.
func (s *Store) SaveReference(_ context.Context, ref core.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = core.Reference{
		Classes:     mergeTable(s.ref.Classes, ref.Classes),
		Departments: mergeTable(s.ref.Departments, ref.Departments),
		Accounts:    mergeTable(s.ref.Accounts, ref.Accounts),
	}
	return nil
}

// mergeTable builds a fresh map so references handed out earlier stay stable.
func mergeTable[V any](a, b core.MapLookup[V]) core.MapLookup[V] {
	out := make(core.MapLookup[V], len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
