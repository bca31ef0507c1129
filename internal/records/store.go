// Package records owns the in-memory student collection and keeps it in
// sync with a storage.Storage slot.
//
// The collection is an ordered slice: newly created students go to the
// head, imported students go to the tail. Every mutation serializes the
// WHOLE slice to JSON and rewrites it under one key. A write either
// replaced the blob or it did not.
//
// Mutations are copy-on-write. The new slice is built, persisted, and only
// then swapped in, so a failed write leaves the in-memory collection
// exactly as it was before the call.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// DefaultKey is the slot key used when the configuration does not name one.
const DefaultKey = "students"

// ErrClearNotConfirmed is returned by Clear when the caller did not confirm.
var ErrClearNotConfirmed = errors.New("records: clear requires explicit confirmation")

// Store is the record store. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	students []types.Student

	storage storage.Storage
	key     string
	log     *slog.Logger

	// synced is false while the slot does not yet hold the collection,
	// which only happens for a store opened over a missing key.
	synced bool

	now   func() time.Time
	newID func() string
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open builds a Store from whatever is persisted under key.
//
//   - Nothing stored yet: start empty.
//   - Stored blob is not a JSON array of students: start empty and log a
//     warning. The bad blob is left in place until the next mutation.
//   - The backend itself fails: return the error; that is not "corrupt
//     data", it is an unavailable database.
func Open(ctx context.Context, st storage.Storage, key string, log *slog.Logger, opts ...Option) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		storage:  st,
		key:      key,
		log:      log,
		students: []types.Student{},
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	blob, err := st.Read(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Debug("no stored students, starting empty", slog.String("key", key))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("records.Open: read %q: %w", key, err)
	}

	// From here on the slot holds something. An unreadable blob counts as
	// synced so that closing a store nobody changed does not overwrite it.
	s.synced = true

	var loaded []types.Student
	if err := json.Unmarshal(blob, &loaded); err != nil {
		log.Warn("stored students are unreadable, starting empty",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return s, nil
	}
	if loaded != nil {
		s.students = loaded
	}

	log.Info("students loaded",
		slog.String("key", key),
		slog.Int("count", len(s.students)))
	return s, nil
}

// Close flushes the collection if the slot does not hold it yet, then
// releases the underlying storage. The storage is closed even when the
// flush fails.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flushErr error
	if !s.synced {
		if err := s.commit(ctx, s.students); err != nil {
			flushErr = fmt.Errorf("Close: flush: %w", err)
		} else {
			s.log.Debug("students flushed on close", slog.String("key", s.key))
		}
	}

	return errors.Join(flushErr, s.storage.Close())
}

// All returns a copy of the collection in storage order.
func (s *Store) All() []types.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.students)
}

// Len returns the number of stored students.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.students)
}

// Get returns the student with id.
func (s *Store) Get(id string) (types.Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.students[i], true
	}
	return types.Student{}, false
}

// Create assigns a fresh id and creation time, puts the student at the
// head of the collection and persists. Validation is the caller's job.
func (s *Store) Create(ctx context.Context, in types.StudentInput) (types.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := types.Student{
		ID:        s.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Roll:      in.Roll,
		ClassName: in.ClassName,
		Notes:     in.Notes,
		CreatedAt: s.now().UTC(),
	}

	next := make([]types.Student, 0, len(s.students)+1)
	next = append(next, st)
	next = append(next, s.students...)

	if err := s.commit(ctx, next); err != nil {
		return types.Student{}, fmt.Errorf("Create: %w", err)
	}

	s.log.Info("student created", slog.String("id", st.ID))
	return st, nil
}

// Update replaces the mutable fields of the student with id and stamps
// UpdatedAt. A missing id is not an error: it reports false and writes
// nothing.
func (s *Store) Update(ctx context.Context, id string, in types.StudentInput) (types.Student, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.log.Debug("update skipped, no such student", slog.String("id", id))
		return types.Student{}, false, nil
	}

	next := slices.Clone(s.students)
	updatedAt := s.now().UTC()
	st := next[i]
	st.Name = in.Name
	st.Email = in.Email
	st.Roll = in.Roll
	st.ClassName = in.ClassName
	st.Notes = in.Notes
	st.UpdatedAt = &updatedAt
	next[i] = st

	if err := s.commit(ctx, next); err != nil {
		return types.Student{}, false, fmt.Errorf("Update: %w", err)
	}

	s.log.Info("student updated", slog.String("id", id))
	return st, true, nil
}

// Delete removes the student with id. A missing id reports false.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.log.Debug("delete skipped, no such student", slog.String("id", id))
		return false, nil
	}

	next := slices.Delete(slices.Clone(s.students), i, i+1)
	if err := s.commit(ctx, next); err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}

	s.log.Info("student deleted", slog.String("id", id))
	return true, nil
}

// Clear empties the collection. confirmed must be true; the flag exists so
// that every caller has to ask the user first.
func (s *Store) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrClearNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.students)
	if err := s.commit(ctx, []types.Student{}); err != nil {
		return fmt.Errorf("Clear: %w", err)
	}

	s.log.Warn("all students cleared", slog.Int("removed", removed))
	return nil
}

// ImportMerge appends every candidate whose "roll::email" key is not yet
// present. The key set grows as candidates are accepted, so a duplicate
// later in the same batch is skipped too. The collection is persisted once,
// and not at all when nothing was added. It returns how many were added.
func (s *Store) ImportMerge(ctx context.Context, candidates []types.StudentInput) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.students)+len(candidates))
	for _, st := range s.students {
		seen[st.Input().DedupKey()] = struct{}{}
	}

	next := slices.Clone(s.students)
	added := 0
	now := s.now().UTC()

	for _, c := range candidates {
		key := c.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		next = append(next, types.Student{
			ID:        s.newID(),
			Name:      c.Name,
			Email:     c.Email,
			Roll:      c.Roll,
			ClassName: c.ClassName,
			Notes:     c.Notes,
			CreatedAt: now,
		})
		added++
	}

	if added == 0 {
		return 0, nil
	}

	if err := s.commit(ctx, next); err != nil {
		return 0, fmt.Errorf("ImportMerge: %w", err)
	}

	s.log.Info("students imported",
		slog.Int("added", added),
		slog.Int("skipped", len(candidates)-added))
	return added, nil
}

// commit persists next and, only on success, makes it the live collection.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []types.Student) error {
	blob, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := s.storage.Write(ctx, s.key, blob); err != nil {
		s.log.Error("failed to persist students",
			slog.String("key", s.key),
			slog.String("error", err.Error()))
		return fmt.Errorf("write %q: %w", s.key, err)
	}

	s.students = next
	s.synced = true
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.students, func(st types.Student) bool {
		return st.ID == id
	})
}
