package adapter

import (
	"context"
	"sync"

	"slide-capture/internal/domain"
)

type sinkKey struct {
	slideID       string
	interactionID string
}

// MemorySink keeps emitted responses in process, keyed by slide and
// interaction. With a positive capacity it keeps only the most recent
// responses; zero keeps everything and is meant for tests.
type MemorySink struct {
	capacity int

	mu    sync.RWMutex
	all   []*domain.InteractionResponse
	byKey map[sinkKey][]*domain.InteractionResponse
}

func NewMemorySink(capacity int) *MemorySink {
	return &MemorySink{
		capacity: max(capacity, 0),
		byKey:    make(map[sinkKey][]*domain.InteractionResponse),
	}
}

func (s *MemorySink) Emit(_ context.Context, response *domain.InteractionResponse) error {
	if response == nil {
		return domain.NewInvalidInputError("nil response")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sinkKey{slideID: response.SlideID, interactionID: response.InteractionID}
	s.all = append(s.all, response)
	s.byKey[key] = append(s.byKey[key], response)
	if s.capacity > 0 && len(s.all) > s.capacity {
		s.evictOldest()
	}
	return nil
}

// evictOldest drops the first response. It is also the first entry of its
// key's slice since both are appended in emission order.
func (s *MemorySink) evictOldest() {
	oldest := s.all[0]
	s.all[0] = nil
	s.all = s.all[1:]

	key := sinkKey{slideID: oldest.SlideID, interactionID: oldest.InteractionID}
	rest := s.byKey[key][1:]
	if len(rest) == 0 {
		delete(s.byKey, key)
		return
	}
	s.byKey[key] = rest
}

// Responses returns the responses for one interaction in emission order.
func (s *MemorySink) Responses(slideID, interactionID string) []*domain.InteractionResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.byKey[sinkKey{slideID: slideID, interactionID: interactionID}]
	out := make([]*domain.InteractionResponse, len(src))
	copy(out, src)
	return out
}

// Latest returns the most recent response for one interaction.
func (s *MemorySink) Latest(slideID, interactionID string) (*domain.InteractionResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.byKey[sinkKey{slideID: slideID, interactionID: interactionID}]
	if len(src) == 0 {
		return nil, false
	}
	return src[len(src)-1], true
}

// All returns every retained response in emission order.
func (s *MemorySink) All() []*domain.InteractionResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.InteractionResponse, len(s.all))
	copy(out, s.all)
	return out
}

func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}

var _ domain.ResponseSink = (*MemorySink)(nil)
