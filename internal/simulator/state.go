package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/chrisdamba/slawatch/internal/models"
)

// DefaultBatchSize is the number of records NextBatch hands out.
const DefaultBatchSize = 5

// State is the simulation pool and its replay cursor. One State is created
// per run and shared by the feed and the loader retry path.
type State struct {
	mu        sync.Mutex
	pool      []models.RawOrderRecord
	cursor    int
	splitDate time.Time
	batchSize int
}

func NewState(pool []models.RawOrderRecord, splitDate time.Time, batchSize int) *State {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &State{
		pool:      append([]models.RawOrderRecord(nil), pool...),
		splitDate: splitDate,
		batchSize: batchSize,
	}
}

// Refill replaces the pool and rewinds the cursor.
func (s *State) Refill(records []models.RawOrderRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = append([]models.RawOrderRecord(nil), records...)
	s.cursor = 0
}

func (s *State) PoolSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pool)
}

func (s *State) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *State) SplitDate() time.Time {
	return s.splitDate
}

func (s *State) BatchSize() int {
	return s.batchSize
}

// next copies out the window at the cursor and advances it, wrapping to the
// start once the end of the pool is reached.
func (s *State) next() []models.RawOrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pool) == 0 {
		return nil
	}
	end := s.cursor + s.batchSize
	if end > len(s.pool) {
		end = len(s.pool)
	}
	batch := append([]models.RawOrderRecord(nil), s.pool[s.cursor:end]...)

	s.cursor = end
	if s.cursor >= len(s.pool) {
		s.cursor = 0
	}
	return batch
}

func (s *State) random(rng *rand.Rand) (models.RawOrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pool) == 0 {
		return models.RawOrderRecord{}, false
	}
	return s.pool[rng.Intn(len(s.pool))], true
}
