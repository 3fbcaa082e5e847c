package service

import (
	"context"

	"slide-capture/internal/domain"
	"slide-capture/internal/logger"
	"slide-capture/internal/metrics"
	"slide-capture/internal/util"

	"go.uber.org/zap"
)

// Rejection reasons reported as diagnostics and metric labels.
const (
	RejectEmptyValue      = "empty_value"
	RejectNotLearningTick = "not_learning_count"
)

// Candidate is one raw user action handed to the recorder.
type Candidate struct {
	Value     domain.AnswerValue
	IsCorrect *bool
	// Question overrides the interaction's own metadata when set.
	Question  *domain.QuestionMetadata
	StudentID string
}

// Recorder turns candidates into response records.
type Recorder interface {
	Record(ctx context.Context, interaction *domain.Interaction, candidate Candidate, sink domain.ResponseSink) (*domain.InteractionResponse, error)
}

// ResponseRecorder validates and stamps candidates. It holds no per-interaction
// state; the only shared piece is the clock.
type ResponseRecorder struct {
	clock   util.Clock
	metrics *metrics.Collector
}

// NewResponseRecorder creates a recorder. A nil clock means a fresh MonotonicClock.
func NewResponseRecorder(clock util.Clock, collector *metrics.Collector) *ResponseRecorder {
	if clock == nil {
		clock = util.NewMonotonicClock(nil)
	}
	return &ResponseRecorder{clock: clock, metrics: collector}
}

// Record produces exactly one response for an accepted candidate and hands it
// to sink. Rejected candidates produce no record and a CodeInvalidCandidate
// error; a sink failure returns the record together with a CodeSinkFailed error.
func (r *ResponseRecorder) Record(ctx context.Context, interaction *domain.Interaction, candidate Candidate, sink domain.ResponseSink) (*domain.InteractionResponse, error) {
	if interaction == nil {
		return nil, domain.NewInvalidInputError("interaction is required")
	}
	log := logger.Get().With(
		zap.String("interaction_id", interaction.ID),
		zap.String("slide_id", interaction.SlideID),
		zap.String("interaction_kind", string(interaction.Kind)),
	)

	value := candidate.Value
	if domain.IsEmptyAnswer(value) {
		log.Warn("Recorder: candidate rejected", zap.String("reason", RejectEmptyValue))
		r.metrics.ResponseRejected(RejectEmptyValue)
		return nil, domain.NewInvalidCandidateError(interaction.ID, "value is absent or empty")
	}
	value = domain.CanonicalAnswer(value)

	question := candidate.Question
	if question == nil {
		question = interaction.Question
	}

	var isCorrect *bool
	if interaction.IsJudging() {
		isCorrect = r.judge(log, question, value, candidate.IsCorrect)
	} else {
		if _, ok := value.(domain.LearningCount); !ok {
			log.Warn("Recorder: candidate rejected",
				zap.String("reason", RejectNotLearningTick),
				zap.String("value_kind", string(value.Kind())),
			)
			r.metrics.ResponseRejected(RejectNotLearningTick)
			return nil, domain.NewInvalidCandidateError(interaction.ID, "learning interactions record a counter")
		}
		if candidate.IsCorrect != nil {
			log.Debug("Recorder: correctness ignored for learning interaction")
		}
	}

	response := &domain.InteractionResponse{
		ID:                 util.NewULID(),
		InteractionID:      interaction.ID,
		SlideID:            interaction.SlideID,
		InteractionKind:    interaction.Kind,
		Value:              value,
		IsCorrect:          isCorrect,
		Timestamp:          r.clock.Now(),
		ConceptID:          interaction.ConceptID,
		ConceptName:        interaction.ConceptName,
		ConceptDescription: interaction.Description,
		StudentID:          candidate.StudentID,
		Question:           question.Clone(),
	}
	r.metrics.ResponseRecorded(string(interaction.Kind), string(value.Kind()))

	if sink != nil {
		if err := sink.Emit(ctx, response); err != nil {
			log.Error("Recorder: sink rejected response", zap.String("response_id", response.ID), zap.Error(err))
			r.metrics.SinkFailed()
			return response, domain.NewSinkError(err)
		}
	}

	log.Debug("Recorder: response recorded",
		zap.String("response_id", response.ID),
		zap.String("value_kind", string(value.Kind())),
		zap.Time("timestamp", response.Timestamp),
	)
	return response, nil
}

// judge resolves correctness for a judged interaction. A caller-supplied
// verdict wins; otherwise the answer key grades the value when it can.
func (r *ResponseRecorder) judge(log *zap.Logger, question *domain.QuestionMetadata, value domain.AnswerValue, supplied *bool) *bool {
	if question == nil {
		log.Warn("Recorder: missing question metadata on judged interaction",
			zap.String("code", string(domain.CodeMissingQuestionMetadata)),
		)
		r.metrics.MissingMetadata()
	} else if value.Kind() != question.Kind {
		log.Warn("Recorder: value kind does not match question kind",
			zap.String("value_kind", string(value.Kind())),
			zap.String("question_kind", string(question.Kind)),
		)
	}

	if supplied != nil {
		v := *supplied
		return &v
	}
	if correct, graded := question.Grade(value); graded {
		return &correct
	}
	return nil
}
