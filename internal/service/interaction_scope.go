package service

import (
	"context"
	"sync"
	"time"

	"slide-capture/internal/domain"
	"slide-capture/internal/logger"

	"go.uber.org/zap"
)

type scopeContextKey struct{}

// WithInteraction places w in ctx so code further down the call tree can
// complete the interaction without having w passed to it. The innermost
// wrapper wins when scopes nest.
func WithInteraction(ctx context.Context, w *InteractionWrapper) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, w)
}

// InteractionFrom returns the wrapper in scope, if any.
func InteractionFrom(ctx context.Context) (*InteractionWrapper, bool) {
	w, ok := ctx.Value(scopeContextKey{}).(*InteractionWrapper)
	return w, ok && w != nil
}

// CompleteInteraction invokes the completion callback of the wrapper in scope.
// Without a wrapper in scope the call is a no-op.
func CompleteInteraction(ctx context.Context, value domain.AnswerValue, isCorrect *bool, question *domain.QuestionMetadata) (*domain.InteractionResponse, error) {
	w, ok := InteractionFrom(ctx)
	if !ok {
		logger.Get().Debug("Scope: complete called with no interaction in scope")
		return nil, nil
	}
	return w.Complete(ctx, value, isCorrect, question)
}

// ActivateInteraction signals engagement on the learning wrapper in scope.
func ActivateInteraction(ctx context.Context) (*domain.InteractionResponse, error) {
	w, ok := InteractionFrom(ctx)
	if !ok {
		logger.Get().Debug("Scope: activate called with no interaction in scope")
		return nil, nil
	}
	return w.Activate(ctx)
}

// ScopeKey identifies one mounted interaction across requests.
type ScopeKey struct {
	SessionID     string
	DeckID        string
	SlideID       string
	InteractionID string
}

// ScopeRegistry keeps the mounted wrappers of every live session. Scopes that
// nobody touches for longer than the idle TTL are unmounted by Sweep.
type ScopeRegistry struct {
	now func() time.Time

	mu     sync.Mutex
	scopes map[ScopeKey]*scopeEntry
}

type scopeEntry struct {
	wrapper  *InteractionWrapper
	lastSeen time.Time
}

// RegistryOption configures a ScopeRegistry.
type RegistryOption func(*ScopeRegistry)

// WithRegistryClock replaces time.Now for idle tracking.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *ScopeRegistry) { r.now = now }
}

func NewScopeRegistry(opts ...RegistryOption) *ScopeRegistry {
	r := &ScopeRegistry{now: time.Now, scopes: make(map[ScopeKey]*scopeEntry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount returns the wrapper mounted under key, creating and mounting one
// with build if none is.
func (r *ScopeRegistry) Mount(key ScopeKey, build func() *InteractionWrapper) *InteractionWrapper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.scopes[key]; ok {
		e.lastSeen = r.now()
		return e.wrapper
	}
	w := build()
	w.Mount()
	r.scopes[key] = &scopeEntry{wrapper: w, lastSeen: r.now()}
	logger.Get().Debug("Scope: mounted",
		zap.String("session_id", key.SessionID),
		zap.String("deck_id", key.DeckID),
		zap.String("slide_id", key.SlideID),
		zap.String("interaction_id", key.InteractionID),
	)
	return w
}

// Lookup returns the wrapper mounted under key and marks it as used.
func (r *ScopeRegistry) Lookup(key ScopeKey) (*InteractionWrapper, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.scopes[key]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.wrapper, true
}

// Unmount removes and unmounts the wrapper under key. Stray references held
// elsewhere become no-ops.
func (r *ScopeRegistry) Unmount(key ScopeKey) bool {
	r.mu.Lock()
	e, ok := r.scopes[key]
	delete(r.scopes, key)
	r.mu.Unlock()
	if ok {
		e.wrapper.Unmount()
	}
	return ok
}

// UnmountSession drops every wrapper of a session and returns how many there were.
func (r *ScopeRegistry) UnmountSession(sessionID string) int {
	return r.unmountWhere(func(key ScopeKey, _ *scopeEntry) bool {
		return key.SessionID == sessionID
	})
}

// Sweep unmounts scopes idle for longer than idle. Scopes with an upload in
// flight are kept until the upload finishes.
func (r *ScopeRegistry) Sweep(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-idle)
	n := r.unmountWhere(func(_ ScopeKey, e *scopeEntry) bool {
		return e.lastSeen.Before(cutoff) && !e.wrapper.UploadInProgress()
	})
	if n > 0 {
		logger.Get().Info("Scope: swept idle scopes", zap.Int("count", n), zap.Duration("idle", idle))
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *ScopeRegistry) RunSweeper(ctx context.Context, idle, interval time.Duration) {
	if idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}

func (r *ScopeRegistry) unmountWhere(match func(ScopeKey, *scopeEntry) bool) int {
	r.mu.Lock()
	var dropped []*InteractionWrapper
	for key, e := range r.scopes {
		if match(key, e) {
			dropped = append(dropped, e.wrapper)
			delete(r.scopes, key)
		}
	}
	r.mu.Unlock()
	for _, w := range dropped {
		w.Unmount()
	}
	return len(dropped)
}

func (r *ScopeRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}
