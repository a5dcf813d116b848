package infra

import (
	"context"
	"sync"

	"middleware-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

// MemoryStatsStore guarda totais de decisões em memória, por regra e
// opcionalmente por sujeito. É o backend servido em GET /admin/stats.
//
// Não faz expiração: com trackSubjects ligado o mapa cresce com a cardinalidade.
type MemoryStatsStore struct {
	mu        sync.Mutex
	total     Counters
	byRule    map[string]Counters
	bySubject map[string]Counters

	trackSubjects bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackSubjects(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackSubjects = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRule:    make(map[string]Counters),
		bySubject: make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	rule := ev.RuleID
	if rule == "" {
		rule = ev.Method + " " + ev.Path
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	c := s.byRule[rule]
	c.add(ev.Allowed)
	s.byRule[rule] = c

	if s.trackSubjects && ev.Subject != "" {
		k := s.bySubject[ev.Subject]
		k.add(ev.Allowed)
		s.bySubject[ev.Subject] = k
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRule() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.byRule)
}

func (s *MemoryStatsStore) BySubject() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyCounters(s.bySubject)
}

// StatsSnapshot é o formato exposto pela API administrativa.
type StatsSnapshot struct {
	Total     Counters            `json:"total"`
	ByRule    map[string]Counters `json:"by_rule"`
	BySubject map[string]Counters `json:"by_subject,omitempty"`
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{Total: s.total, ByRule: copyCounters(s.byRule)}
	if s.trackSubjects {
		snap.BySubject = copyCounters(s.bySubject)
	}
	return snap
}

func copyCounters(in map[string]Counters) map[string]Counters {
	out := make(map[string]Counters, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
