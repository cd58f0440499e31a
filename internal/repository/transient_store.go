package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalarena/evalarena-go-api/internal/models"
)

const transientIDPrefix = "set_"

// TransientStore keeps evaluation sets in process memory, keyed by their
// generated identifier. Records live until process exit. The mutex only
// makes map access safe; concurrent read-modify-write cycles against the
// same set still race (last writer wins).
type TransientStore struct {
	mu   sync.RWMutex
	sets map[string]models.EvaluationSet
	now  func() time.Time
}

// NewTransientStore builds an empty store.
func NewTransientStore() *TransientStore {
	return &TransientStore{
		sets: make(map[string]models.EvaluationSet),
		now:  time.Now,
	}
}

// GenerateID produces a transient identifier. The prefix guarantees the
// result never matches the UUID shape reserved for persistent rows.
func (s *TransientStore) GenerateID() string {
	return transientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create stores a new set, assigning an identifier and timestamps when
// missing, and returns the stored record.
func (s *TransientStore) Create(set models.EvaluationSet) models.EvaluationSet {
	if set.ID == "" {
		set.ID = s.GenerateID()
	}
	if set.Questions == nil {
		set.Questions = []models.Question{}
	}
	if set.SyncState == "" {
		set.SyncState = models.SyncStateUnsynced
	}
	now := s.now()
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now
	}
	set.UpdatedAt = now

	s.mu.Lock()
	s.sets[set.ID] = set.Clone()
	s.mu.Unlock()

	return set
}

// Get returns a copy of the set with the given identifier.
func (s *TransientStore) Get(id string) (models.EvaluationSet, bool) {
	s.mu.RLock()
	set, ok := s.sets[id]
	s.mu.RUnlock()
	if !ok {
		return models.EvaluationSet{}, false
	}
	return set.Clone(), true
}

// AppendQuestion adds a question to the identified set and returns the
// updated record, or false when the identifier is unknown.
func (s *TransientStore) AppendQuestion(id string, question models.Question) (models.EvaluationSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[id]
	if !ok {
		return models.EvaluationSet{}, false
	}

	set.Questions = append(set.Questions, question)
	set.UpdatedAt = s.now()
	s.sets[id] = set

	return set.Clone(), true
}

// Put overwrites the stored record keyed by its identifier. Unknown
// identifiers are inserted; manual review relies on this to seed the
// transient store with persistent-origin records.
func (s *TransientStore) Put(set models.EvaluationSet) {
	set.UpdatedAt = s.now()

	s.mu.Lock()
	s.sets[set.ID] = set.Clone()
	s.mu.Unlock()
}

// SetRemoteID caches the persistent identifier on a transient record and
// flips it to the synced state.
func (s *TransientStore) SetRemoteID(id, remoteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[id]
	if !ok {
		return false
	}

	set.RemoteID = remoteID
	set.SyncState = models.SyncStateSynced
	s.sets[id] = set

	return true
}

// ListRecent returns up to limit sets ordered by creation time, newest
// first.
func (s *TransientStore) ListRecent(limit int) []models.EvaluationSet {
	s.mu.RLock()
	all := make([]models.EvaluationSet, 0, len(s.sets))
	for _, set := range s.sets {
		all = append(all, set.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Len reports how many sets the store currently holds.
func (s *TransientStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}
