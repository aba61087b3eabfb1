package agent

import (
	"sync"
	"time"
)

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusDone      RunStatus = "done"
	StatusError     RunStatus = "error"
	StatusCancelled RunStatus = "cancelled"
)

type Result struct {
	Status  RunStatus `json:"status"`
	Outcome *Outcome  `json:"outcome,omitempty"`
	Err     string    `json:"error,omitempty"`
	Updated time.Time `json:"updated"`
}

// ResultStore keeps the latest result of each run started over HTTP.
// Results are removed once read in a final state.
type ResultStore struct {
	mu      sync.Mutex
	results map[string]Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]Result)}
}

func (s *ResultStore) Store(id string, res Result) {
	res.Updated = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[id] = res
}

// Get retrieves a stored result by id.
func (s *ResultStore) Get(id string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	return r, ok
}

// Delete removes a result to avoid unbounded growth.
func (s *ResultStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
}
