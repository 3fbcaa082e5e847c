package service

import (
	"context"
	"sync"
	"testing"

	"slide-capture/internal/domain"
	"slide-capture/internal/logger"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- MockResponseSink ---
type MockResponseSink struct {
	mock.Mock
}

func (m *MockResponseSink) Emit(ctx context.Context, response *domain.InteractionResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

var _ domain.ResponseSink = (*MockResponseSink)(nil)

// --- MockImageStore ---
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

var _ domain.ImageStore = (*MockImageStore)(nil)

// --- MockNormalizer ---
type MockNormalizer struct {
	mock.Mock
}

func (m *MockNormalizer) Normalize(ctx context.Context, upload *domain.ImageUpload) (*NormalizedImage, error) {
	args := m.Called(ctx, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*NormalizedImage), args.Error(1)
}

var _ Normalizer = (*MockNormalizer)(nil)

// captureSink collects emitted responses in order.
type captureSink struct {
	mu        sync.Mutex
	responses []*domain.InteractionResponse
}

func (s *captureSink) Emit(_ context.Context, response *domain.InteractionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
	return nil
}

func (s *captureSink) All() []*domain.InteractionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.InteractionResponse, len(s.responses))
	copy(out, s.responses)
	return out
}

// observeLogs routes the global logger into an in-memory observer for the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })
	return logs
}

func boolPtr(v bool) *bool { return &v }

func redoxQuestion() *domain.QuestionMetadata {
	return &domain.QuestionMetadata{
		Kind:           domain.KindSingleChoice,
		Prompt:         "Fe3+ gains an electron. Which process is this?",
		Options:        []string{"Oxidation", "Reduction"},
		CorrectOptions: []string{"Reduction"},
	}
}

func judgingInteraction() *domain.Interaction {
	return &domain.Interaction{
		ID:          "identify-process",
		SlideID:     "redox-2",
		ConceptID:   "redox",
		ConceptName: "Redox reactions",
		Kind:        domain.InteractionJudging,
		Description: "Classify the half reaction",
		Question:    redoxQuestion(),
	}
}

func learningInteraction() *domain.Interaction {
	return &domain.Interaction{
		ID:          "explore-cell",
		SlideID:     "redox-1",
		ConceptID:   "galvanic-cell",
		ConceptName: "Galvanic cells",
		Kind:        domain.InteractionLearning,
	}
}
