package ui

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

type Event struct {
	Time     time.Time `json:"time"`
	Agent    string    `json:"agent"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	Duration string    `json:"duration,omitempty"`
}

// UIStore keeps the timeline of every workflow run, bounded to the most
// recent maxRuns runs.
type UIStore struct {
	mu      sync.RWMutex
	runs    map[string][]Event
	order   []string
	maxRuns int
}

func NewUIStore() *UIStore {
	return &UIStore{
		runs:    make(map[string][]Event),
		maxRuns: 200,
	}
}

// AddEvent registra un evento para un run.
func (s *UIStore) AddEvent(runID, agent, kind, msg, duration string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		s.order = append(s.order, runID)
		if len(s.order) > s.maxRuns {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.runs, oldest)
		}
	}
	s.runs[runID] = append(s.runs[runID], Event{
		Time:     time.Now(),
		Agent:    agent,
		Kind:     kind,
		Message:  msg,
		Duration: duration,
	})
}

// snapshot devuelve una copia segura de los datos.
func (s *UIStore) snapshot() map[string][]Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Event, len(s.runs))
	for k, v := range s.runs {
		cp := make([]Event, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

type runSummary struct {
	ID        string `json:"id"`
	LastEvent Event  `json:"last_event"`
	Count     int    `json:"count"`
}

// HandleIndex lists runs, most recently active first.
func (s *UIStore) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.snapshot()

	rows := make([]runSummary, 0, len(data))
	for id, evs := range data {
		if len(evs) == 0 {
			continue
		}
		rows = append(rows, runSummary{ID: id, LastEvent: evs[len(evs)-1], Count: len(evs)})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].LastEvent.Time.After(rows[j].LastEvent.Time)
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// HandleRun returns the full timeline of one run.
func (s *UIStore) HandleRun(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Redirect(w, r, "/ui", http.StatusFound)
		return
	}

	s.mu.RLock()
	events, ok := s.runs[id]
	events = append([]Event(nil), events...)
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		ID     string  `json:"id"`
		Events []Event `json:"events"`
	}{ID: id, Events: events})
}
