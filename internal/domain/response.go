package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// InteractionResponse is the immutable record of one accepted interaction event.
// Concept fields and the question snapshot are copied so the record stays
// self-describing after authored content changes.
type InteractionResponse struct {
	ID                 string
	InteractionID      string
	SlideID            string
	InteractionKind    InteractionKind
	Value              AnswerValue
	IsCorrect          *bool
	Timestamp          time.Time
	ConceptID          string
	ConceptName        string
	ConceptDescription string
	StudentID          string
	Question           *QuestionMetadata
}

type responseJSON struct {
	ID                 string            `json:"id"`
	InteractionID      string            `json:"interaction_id"`
	SlideID            string            `json:"slide_id,omitempty"`
	InteractionKind    InteractionKind   `json:"interaction_kind"`
	ValueKind          QuestionKind      `json:"value_kind"`
	Value              json.RawMessage   `json:"value"`
	IsCorrect          *bool             `json:"is_correct,omitempty"`
	Timestamp          time.Time         `json:"timestamp"`
	ConceptID          string            `json:"concept_id"`
	ConceptName        string            `json:"concept_name"`
	ConceptDescription string            `json:"concept_description,omitempty"`
	StudentID          string            `json:"student_id,omitempty"`
	Question           *QuestionMetadata `json:"question,omitempty"`
}

// MarshalJSON writes the value next to its kind discriminant.
func (r InteractionResponse) MarshalJSON() ([]byte, error) {
	if r.Value == nil {
		return nil, fmt.Errorf("response %s has no value", r.ID)
	}
	value, err := json.Marshal(r.Value)
	if err != nil {
		return nil, fmt.Errorf("marshal %s value: %w", r.Value.Kind(), err)
	}
	return json.Marshal(responseJSON{
		ID:                 r.ID,
		InteractionID:      r.InteractionID,
		SlideID:            r.SlideID,
		InteractionKind:    r.InteractionKind,
		ValueKind:          r.Value.Kind(),
		Value:              value,
		IsCorrect:          r.IsCorrect,
		Timestamp:          r.Timestamp,
		ConceptID:          r.ConceptID,
		ConceptName:        r.ConceptName,
		ConceptDescription: r.ConceptDescription,
		StudentID:          r.StudentID,
		Question:           r.Question,
	})
}

// UnmarshalJSON restores the typed value using the kind discriminant.
func (r *InteractionResponse) UnmarshalJSON(data []byte) error {
	var raw responseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := DecodeAnswer(raw.ValueKind, raw.Value)
	if err != nil {
		return err
	}
	*r = InteractionResponse{
		ID:                 raw.ID,
		InteractionID:      raw.InteractionID,
		SlideID:            raw.SlideID,
		InteractionKind:    raw.InteractionKind,
		Value:              value,
		IsCorrect:          raw.IsCorrect,
		Timestamp:          raw.Timestamp,
		ConceptID:          raw.ConceptID,
		ConceptName:        raw.ConceptName,
		ConceptDescription: raw.ConceptDescription,
		StudentID:          raw.StudentID,
		Question:           raw.Question,
	}
	return nil
}
