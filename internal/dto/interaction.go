package dto

import (
	"encoding/json"

	"slide-capture/internal/domain"
)

// ScopeParams identifies one interaction inside a learner session.
type ScopeParams struct {
	SessionID     string `json:"session_id" validate:"required,max=128"`
	DeckID        string `json:"deck_id" validate:"required,max=128"`
	SlideID       string `json:"slide_id" validate:"required,max=128"`
	InteractionID string `json:"interaction_id" validate:"required,max=128"`
}

// CompleteRequest is the body of a judged completion.
// @Description Candidate answer for a judging interaction
type CompleteRequest struct {
	ValueKind domain.QuestionKind      `json:"value_kind" validate:"required,question_kind"`
	Value     json.RawMessage          `json:"value"`
	IsCorrect *bool                    `json:"is_correct,omitempty"`
	Question  *domain.QuestionMetadata `json:"question,omitempty"`
}

// RecordResult reports whether a call produced a response. Recorded is false
// for rejected candidates; the client shows nothing in that case.
type RecordResult struct {
	Recorded bool                        `json:"recorded"`
	Response *domain.InteractionResponse `json:"response,omitempty"`
	// Warning carries a delivery problem when the response was produced but
	// the sink did not accept it.
	Warning string `json:"warning,omitempty"`
}

// MountStatus describes a mounted interaction scope.
type MountStatus struct {
	SessionID     string                 `json:"session_id"`
	DeckID        string                 `json:"deck_id"`
	SlideID       string                 `json:"slide_id"`
	InteractionID string                 `json:"interaction_id"`
	Kind          domain.InteractionKind `json:"kind"`
	Mounted       bool                   `json:"mounted"`
	Count         int64                  `json:"count"`
	AcceptsUpload bool                   `json:"accepts_upload"`
}

// InteractionListResponse lists the authored interactions of a slide.
type InteractionListResponse struct {
	DeckID       string                `json:"deck_id"`
	SlideID      string                `json:"slide_id"`
	Interactions []*domain.Interaction `json:"interactions"`
}

// SessionEndResponse reports how many scopes a session closed.
type SessionEndResponse struct {
	SessionID string `json:"session_id"`
	Unmounted int    `json:"unmounted"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Scopes int    `json:"scopes"`
}
