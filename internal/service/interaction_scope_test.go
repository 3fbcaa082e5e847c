package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"slide-capture/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// optionButton stands in for UI nested several layers below the declaration.
func optionButton(ctx context.Context, label string) (*domain.InteractionResponse, error) {
	return optionList(ctx, label)
}

func optionList(ctx context.Context, label string) (*domain.InteractionResponse, error) {
	return CompleteInteraction(ctx, domain.SingleChoiceAnswer(label), nil, nil)
}

func TestCompleteInteraction_ReachesDeepDescendants(t *testing.T) {
	sink := &captureSink{}
	w := NewInteractionWrapper(judgingInteraction(), NewResponseRecorder(nil, nil), sink)
	w.Mount()
	ctx := WithInteraction(context.Background(), w)

	resp, err := optionButton(ctx, "Reduction")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, *resp.IsCorrect)
	assert.Len(t, sink.All(), 1)
}

func TestCompleteInteraction_NoScopeIsNoop(t *testing.T) {
	resp, err := optionButton(context.Background(), "Reduction")
	assert.Nil(t, resp)
	assert.NoError(t, err)

	resp, err = ActivateInteraction(context.Background())
	assert.Nil(t, resp)
	assert.NoError(t, err)

	_, ok := InteractionFrom(WithInteraction(context.Background(), nil))
	assert.False(t, ok)
}

func TestCompleteInteraction_StrayContextAfterUnmount(t *testing.T) {
	sink := &captureSink{}
	w := NewInteractionWrapper(judgingInteraction(), NewResponseRecorder(nil, nil), sink)
	w.Mount()
	ctx := WithInteraction(context.Background(), w)
	w.Unmount()

	resp, err := optionButton(ctx, "Reduction")
	assert.Nil(t, resp)
	assert.NoError(t, err)
	assert.Empty(t, sink.All())
}

func TestActivateInteraction_InnermostScopeWins(t *testing.T) {
	outerSink, innerSink := &captureSink{}, &captureSink{}
	outer := NewInteractionWrapper(learningInteraction(), NewResponseRecorder(nil, nil), outerSink)
	innerDef := learningInteraction()
	innerDef.ID = "explore-salt-bridge"
	inner := NewInteractionWrapper(innerDef, NewResponseRecorder(nil, nil), innerSink)
	outer.Mount()
	inner.Mount()

	ctx := WithInteraction(WithInteraction(context.Background(), outer), inner)
	resp, err := ActivateInteraction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "explore-salt-bridge", resp.InteractionID)
	assert.Empty(t, outerSink.All())
	assert.Len(t, innerSink.All(), 1)
}

func TestScopeRegistry_Lifecycle(t *testing.T) {
	registry := NewScopeRegistry()
	recorder := NewResponseRecorder(nil, nil)
	key := ScopeKey{SessionID: "sess-1", SlideID: "redox-1", InteractionID: "explore-cell"}
	build := func() *InteractionWrapper {
		return NewInteractionWrapper(learningInteraction(), recorder, nil)
	}
	ctx := context.Background()

	w := registry.Mount(key, build)
	require.True(t, w.Mounted())
	_, _ = w.Activate(ctx)
	assert.Same(t, w, registry.Mount(key, build))

	found, ok := registry.Lookup(key)
	require.True(t, ok)
	assert.Same(t, w, found)

	assert.True(t, registry.Unmount(key))
	assert.False(t, w.Mounted())
	_, ok = registry.Lookup(key)
	assert.False(t, ok)
	assert.False(t, registry.Unmount(key))

	fresh := registry.Mount(key, build)
	assert.NotSame(t, w, fresh)
	resp, err := fresh.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LearningCount(1), resp.Value)
}

func TestScopeRegistry_UnmountSession(t *testing.T) {
	registry := NewScopeRegistry()
	recorder := NewResponseRecorder(nil, nil)
	build := func() *InteractionWrapper {
		return NewInteractionWrapper(learningInteraction(), recorder, nil)
	}

	a := registry.Mount(ScopeKey{SessionID: "s1", SlideID: "x", InteractionID: "a"}, build)
	registry.Mount(ScopeKey{SessionID: "s1", SlideID: "x", InteractionID: "b"}, build)
	other := registry.Mount(ScopeKey{SessionID: "s2", SlideID: "x", InteractionID: "a"}, build)

	assert.Equal(t, 2, registry.UnmountSession("s1"))
	assert.Equal(t, 1, registry.Len())
	assert.False(t, a.Mounted())
	assert.True(t, other.Mounted())
}

// fakeNow is a settable clock for idle tracking.
type fakeNow struct {
	mu sync.Mutex
	at time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.at
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.at = f.at.Add(d)
}

func TestScopeRegistry_SweepDropsIdleScopes(t *testing.T) {
	clock := &fakeNow{at: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	registry := NewScopeRegistry(WithRegistryClock(clock.Now))
	recorder := NewResponseRecorder(nil, nil)
	build := func() *InteractionWrapper {
		return NewInteractionWrapper(learningInteraction(), recorder, nil)
	}
	idleKey := ScopeKey{SessionID: "gone", SlideID: "redox-1", InteractionID: "explore-cell"}
	liveKey := ScopeKey{SessionID: "here", SlideID: "redox-1", InteractionID: "explore-cell"}

	idle := registry.Mount(idleKey, build)
	registry.Mount(liveKey, build)

	clock.Advance(90 * time.Minute)
	_, ok := registry.Lookup(liveKey)
	require.True(t, ok)
	assert.Zero(t, registry.Sweep(time.Hour), "nothing idle past the TTL yet")

	clock.Advance(45 * time.Minute)
	assert.Equal(t, 1, registry.Sweep(time.Hour))
	assert.False(t, idle.Mounted())
	_, ok = registry.Lookup(idleKey)
	assert.False(t, ok)
	_, ok = registry.Lookup(liveKey)
	assert.True(t, ok)

	assert.Zero(t, registry.Sweep(0))
}

func TestScopeRegistry_SweepKeepsUploadInFlight(t *testing.T) {
	clock := &fakeNow{at: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	registry := NewScopeRegistry(WithRegistryClock(clock.Now))
	norm := &blockingNormalizer{started: make(chan struct{}), release: make(chan struct{})}
	def := judgingInteraction()
	def.Question = &domain.QuestionMetadata{Kind: domain.KindImage, Prompt: "Sketch the galvanic cell"}
	key := ScopeKey{SessionID: "s1", SlideID: "redox-3", InteractionID: "sketch-cell"}
	w := registry.Mount(key, func() *InteractionWrapper {
		return NewInteractionWrapper(def, NewResponseRecorder(nil, nil), nil, WithImageUploader(NewImageUploader(norm, nil)))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Upload(context.Background(), &domain.ImageUpload{}, nil)
	}()
	select {
	case <-norm.started:
	case <-time.After(2 * time.Second):
		t.Fatal("upload never started")
	}

	clock.Advance(3 * time.Hour)
	assert.Zero(t, registry.Sweep(time.Hour))

	close(norm.release)
	<-done
	assert.Equal(t, 1, registry.Sweep(time.Hour))
}

func TestScopeRegistry_RunSweeperStopsWithContext(t *testing.T) {
	registry := NewScopeRegistry()
	registry.Mount(ScopeKey{SessionID: "s1", SlideID: "x", InteractionID: "a"}, func() *InteractionWrapper {
		return NewInteractionWrapper(learningInteraction(), NewResponseRecorder(nil, nil), nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		registry.RunSweeper(ctx, time.Nanosecond, 5*time.Millisecond)
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return registry.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
