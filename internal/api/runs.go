package api

import (
	"sync"

	"github.com/sells-group/gst-filter/internal/pipeline"
)

// defaultRunCapacity is how many recent results stay exportable.
const defaultRunCapacity = 32

// runStore keeps the most recent filter results for export, evicting the
// oldest once full.
type runStore struct {
	mu    sync.Mutex
	cap   int
	order []string
	runs  map[string]*pipeline.Result
}

func newRunStore(capacity int) *runStore {
	return &runStore{cap: capacity, runs: make(map[string]*pipeline.Result, capacity)}
}

func (s *runStore) put(res *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[res.RunID]; ok {
		return
	}
	if len(s.order) >= s.cap {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, res.RunID)
	s.runs[res.RunID] = res
}

func (s *runStore) get(id string) (*pipeline.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.runs[id]
	return res, ok
}
