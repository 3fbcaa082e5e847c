package service

import (
	"context"
	"sync"

	"slide-capture/internal/domain"
	"slide-capture/internal/logger"

	"go.uber.org/zap"
)

// CompletionFunc is the callback judged UI invokes with its answer.
type CompletionFunc func(ctx context.Context, value domain.AnswerValue, isCorrect *bool, question *domain.QuestionMetadata) (*domain.InteractionResponse, error)

// InteractionWrapper binds one mounted interaction to the recorder and the sink.
//
// Lifecycle: Unmounted -> Mount -> Mounted(0) -> Mounted(k) -> ... -> Unmount.
// There is no completed state; every firing goes through the recorder again.
// Calls made while unmounted are no-ops returning (nil, nil).
type InteractionWrapper struct {
	interaction *domain.Interaction
	recorder    Recorder
	sink        domain.ResponseSink
	uploader    *ImageUploader
	studentID   string

	mu      sync.Mutex
	mounted bool
	count   int64
}

// WrapperOption configures an InteractionWrapper.
type WrapperOption func(*InteractionWrapper)

// WithStudentID stamps every response with the learner's identity.
func WithStudentID(studentID string) WrapperOption {
	return func(w *InteractionWrapper) { w.studentID = studentID }
}

// WithImageUploader attaches the upload pipeline used by Upload.
func WithImageUploader(uploader *ImageUploader) WrapperOption {
	return func(w *InteractionWrapper) { w.uploader = uploader }
}

// NewInteractionWrapper creates an unmounted wrapper over a private copy of interaction.
func NewInteractionWrapper(interaction *domain.Interaction, recorder Recorder, sink domain.ResponseSink, opts ...WrapperOption) *InteractionWrapper {
	w := &InteractionWrapper{
		interaction: interaction.Clone(),
		recorder:    recorder,
		sink:        sink,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Interaction returns a copy of the wrapped definition.
func (w *InteractionWrapper) Interaction() *domain.Interaction {
	return w.interaction.Clone()
}

// Mount starts a fresh mount with the counter at zero. Mounting an already
// mounted wrapper keeps the current counter.
func (w *InteractionWrapper) Mount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mounted {
		return
	}
	w.mounted = true
	w.count = 0
	logger.Get().Debug("Wrapper: mounted", zap.String("interaction_id", w.interaction.ID))
}

// Unmount ends the mount. The counter is discarded.
func (w *InteractionWrapper) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}
	w.mounted = false
	w.count = 0
	logger.Get().Debug("Wrapper: unmounted", zap.String("interaction_id", w.interaction.ID))
}

func (w *InteractionWrapper) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

// Count is the number of learning activations accepted in the current mount.
func (w *InteractionWrapper) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Activate signals that the learner engaged with a learning interaction.
func (w *InteractionWrapper) Activate(ctx context.Context) (*domain.InteractionResponse, error) {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		w.ignored("activate")
		return nil, nil
	}
	if w.interaction.IsJudging() {
		w.mu.Unlock()
		logger.Get().Warn("Wrapper: activate ignored on judged interaction", zap.String("interaction_id", w.interaction.ID))
		return nil, nil
	}
	next := w.reserveLocked()
	w.mu.Unlock()
	return w.recordActivation(ctx, next)
}

// Complete submits a judged answer. On a learning interaction the value is
// ignored and the call counts as an activation.
//
// The lock is released before recording, so sinks may call back into the
// wrapper and slow sinks do not serialize other callers.
func (w *InteractionWrapper) Complete(ctx context.Context, value domain.AnswerValue, isCorrect *bool, question *domain.QuestionMetadata) (*domain.InteractionResponse, error) {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		w.ignored("complete")
		return nil, nil
	}
	if !w.interaction.IsJudging() {
		next := w.reserveLocked()
		w.mu.Unlock()
		return w.recordActivation(ctx, next)
	}
	w.mu.Unlock()

	response, err := w.recorder.Record(ctx, w.interaction, Candidate{
		Value:     value,
		IsCorrect: isCorrect,
		Question:  question,
		StudentID: w.studentID,
	}, w.sink)
	return response, swallowRejection(err)
}

// Callback exposes Complete to descendant UI.
func (w *InteractionWrapper) Callback() CompletionFunc {
	return w.Complete
}

// Upload normalizes an image and completes the interaction with it. The
// wrapper is not locked while the image is processed, so the response
// timestamp reflects when the normalized image was accepted.
func (w *InteractionWrapper) Upload(ctx context.Context, upload *domain.ImageUpload, isCorrect *bool) (*domain.InteractionResponse, error) {
	if w.uploader == nil {
		return nil, domain.NewInvalidInputError("interaction " + w.interaction.ID + " does not accept uploads")
	}
	if !w.Mounted() {
		w.ignored("upload")
		return nil, nil
	}
	answer, err := w.uploader.Upload(ctx, w.interaction.ID, upload)
	if err != nil {
		return nil, err
	}
	return w.Complete(ctx, answer, isCorrect, nil)
}

// UploadInProgress reports whether an upload is being processed.
func (w *InteractionWrapper) UploadInProgress() bool {
	return w.uploader != nil && w.uploader.InProgress()
}

// reserveLocked takes the next counter value. A learning count is never
// rejected by the recorder, so the reservation is final.
func (w *InteractionWrapper) reserveLocked() int64 {
	w.count++
	return w.count
}

func (w *InteractionWrapper) recordActivation(ctx context.Context, count int64) (*domain.InteractionResponse, error) {
	response, err := w.recorder.Record(ctx, w.interaction, Candidate{
		Value:     domain.LearningCount(count),
		StudentID: w.studentID,
	}, w.sink)
	return response, swallowRejection(err)
}

func (w *InteractionWrapper) ignored(op string) {
	logger.Get().Debug("Wrapper: call ignored while unmounted",
		zap.String("interaction_id", w.interaction.ID),
		zap.String("op", op),
	)
}

// swallowRejection drops invalid-candidate errors; the recorder has already
// reported them and the UI shows nothing.
func swallowRejection(err error) error {
	if domain.HasCode(err, domain.CodeInvalidCandidate) {
		return nil
	}
	return err
}
