package service

import (
	"context"

	"slide-capture/internal/domain"
	"slide-capture/internal/dto"
	"slide-capture/internal/logger"
	"slide-capture/internal/validation"

	"go.uber.org/zap"
)

// CaptureService drives interaction scopes on behalf of remote clients.
type CaptureService interface {
	// ListInteractions returns the authored interactions of a slide.
	ListInteractions(deckID, slideID string) ([]*domain.Interaction, error)

	// Mount mounts the interaction for the session, or returns the existing scope.
	Mount(ref dto.ScopeParams, studentID string) (*dto.MountStatus, error)

	// Unmount closes one scope. Unmounting an unknown scope is not an error.
	Unmount(ref dto.ScopeParams) (*dto.MountStatus, error)

	// EndSession closes every scope of a session.
	EndSession(sessionID string) int

	// Activate fires a learning interaction.
	Activate(ctx context.Context, ref dto.ScopeParams) (*dto.RecordResult, error)

	// Complete submits a candidate to a judging interaction.
	Complete(ctx context.Context, ref dto.ScopeParams, req *dto.CompleteRequest) (*dto.RecordResult, error)

	// Upload normalizes an image and completes an image interaction with it.
	Upload(ctx context.Context, ref dto.ScopeParams, upload *domain.ImageUpload, isCorrect *bool) (*dto.RecordResult, error)

	// Scopes returns the number of mounted scopes.
	Scopes() int
}

type captureService struct {
	decks      domain.DeckRepository
	registry   *ScopeRegistry
	recorder   Recorder
	sink       domain.ResponseSink
	normalizer Normalizer
	store      domain.ImageStore
	validator  *validation.Validator
}

// CaptureDeps collects the collaborators of NewCaptureService. Store may be nil.
type CaptureDeps struct {
	Decks      domain.DeckRepository
	Registry   *ScopeRegistry
	Recorder   Recorder
	Sink       domain.ResponseSink
	Normalizer Normalizer
	Store      domain.ImageStore
	Validator  *validation.Validator
}

func NewCaptureService(deps CaptureDeps) CaptureService {
	if deps.Registry == nil {
		deps.Registry = NewScopeRegistry()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator()
	}
	return &captureService{
		decks:      deps.Decks,
		registry:   deps.Registry,
		recorder:   deps.Recorder,
		sink:       deps.Sink,
		normalizer: deps.Normalizer,
		store:      deps.Store,
		validator:  deps.Validator,
	}
}

func scopeKey(ref dto.ScopeParams) ScopeKey {
	return ScopeKey{SessionID: ref.SessionID, DeckID: ref.DeckID, SlideID: ref.SlideID, InteractionID: ref.InteractionID}
}

func (s *captureService) ListInteractions(deckID, slideID string) ([]*domain.Interaction, error) {
	return s.decks.GetSlideInteractions(deckID, slideID)
}

func (s *captureService) Mount(ref dto.ScopeParams, studentID string) (*dto.MountStatus, error) {
	interaction, err := s.decks.GetInteraction(ref.DeckID, ref.SlideID, ref.InteractionID)
	if err != nil {
		return nil, err
	}

	w := s.registry.Mount(scopeKey(ref), func() *InteractionWrapper {
		opts := []WrapperOption{WithStudentID(studentID)}
		if acceptsUpload(interaction) && s.normalizer != nil {
			opts = append(opts, WithImageUploader(NewImageUploader(s.normalizer, s.store)))
		}
		return NewInteractionWrapper(interaction, s.recorder, s.sink, opts...)
	})
	return s.status(ref, w), nil
}

func (s *captureService) Unmount(ref dto.ScopeParams) (*dto.MountStatus, error) {
	if !s.registry.Unmount(scopeKey(ref)) {
		logger.Get().Debug("CaptureService: unmount of unknown scope", zap.String("session_id", ref.SessionID), zap.String("interaction_id", ref.InteractionID))
	}
	return &dto.MountStatus{
		SessionID:     ref.SessionID,
		DeckID:        ref.DeckID,
		SlideID:       ref.SlideID,
		InteractionID: ref.InteractionID,
	}, nil
}

func (s *captureService) EndSession(sessionID string) int {
	n := s.registry.UnmountSession(sessionID)
	logger.Get().Info("CaptureService: session ended", zap.String("session_id", sessionID), zap.Int("unmounted", n))
	return n
}

func (s *captureService) Activate(ctx context.Context, ref dto.ScopeParams) (*dto.RecordResult, error) {
	w, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	return toResult(w.Activate(ctx))
}

func (s *captureService) Complete(ctx context.Context, ref dto.ScopeParams, req *dto.CompleteRequest) (*dto.RecordResult, error) {
	w, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	if errs := s.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, errs
	}
	if errs := s.validator.ValidateQuestion(req.Question); len(errs) > 0 {
		return nil, errs
	}

	value, err := domain.DecodeAnswer(req.ValueKind, req.Value)
	if err != nil {
		return nil, domain.ValidationErrors{domain.NewInvalidValueError("value", err.Error())}
	}
	return toResult(w.Complete(ctx, value, req.IsCorrect, req.Question))
}

func (s *captureService) Upload(ctx context.Context, ref dto.ScopeParams, upload *domain.ImageUpload, isCorrect *bool) (*dto.RecordResult, error) {
	w, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	return toResult(w.Upload(ctx, upload, isCorrect))
}

func (s *captureService) Scopes() int {
	return s.registry.Len()
}

func (s *captureService) lookup(ref dto.ScopeParams) (*InteractionWrapper, error) {
	w, ok := s.registry.Lookup(scopeKey(ref))
	if !ok {
		return nil, domain.NewNotMountedError(ref.InteractionID)
	}
	return w, nil
}

func (s *captureService) status(ref dto.ScopeParams, w *InteractionWrapper) *dto.MountStatus {
	return &dto.MountStatus{
		SessionID:     ref.SessionID,
		DeckID:        ref.DeckID,
		SlideID:       ref.SlideID,
		InteractionID: ref.InteractionID,
		Kind:          w.Interaction().Kind,
		Mounted:       w.Mounted(),
		Count:         w.Count(),
		AcceptsUpload: w.uploader != nil,
	}
}

func acceptsUpload(interaction *domain.Interaction) bool {
	return interaction.IsJudging() && interaction.Question != nil && interaction.Question.Kind == domain.KindImage
}

// toResult turns a wrapper outcome into a client result. A sink failure still
// counts as recorded.
func toResult(resp *domain.InteractionResponse, err error) (*dto.RecordResult, error) {
	if err != nil {
		if resp != nil && domain.HasCode(err, domain.CodeSinkFailed) {
			return &dto.RecordResult{Recorded: true, Response: resp, Warning: err.Error()}, nil
		}
		return nil, err
	}
	if resp == nil {
		return &dto.RecordResult{Recorded: false}, nil
	}
	return &dto.RecordResult{Recorded: true, Response: resp}, nil
}
