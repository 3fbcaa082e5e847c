package domain

// InteractionKind selects the invocation protocol of an interaction.
type InteractionKind string

const (
	// InteractionLearning counts engagement and has no notion of correctness.
	InteractionLearning InteractionKind = "learning"
	// InteractionJudging produces a verdict for a question.
	InteractionJudging InteractionKind = "judging"
)

func (k InteractionKind) Valid() bool {
	return k == InteractionLearning || k == InteractionJudging
}

// Interaction is an authored binding between a slide concept and a point where
// the learner acts. It is read-only once loaded.
type Interaction struct {
	ID          string            `json:"id" yaml:"id" validate:"required"`
	SlideID     string            `json:"slide_id" yaml:"-"`
	ConceptID   string            `json:"concept_id" yaml:"concept_id" validate:"required"`
	ConceptName string            `json:"concept_name" yaml:"concept_name" validate:"required"`
	Kind        InteractionKind   `json:"kind" yaml:"kind" validate:"required,interaction_kind"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Question    *QuestionMetadata `json:"question,omitempty" yaml:"question,omitempty"`
}

// IsJudging reports whether the interaction produces verdicts.
func (i *Interaction) IsJudging() bool {
	return i.Kind == InteractionJudging
}

// Clone returns a deep copy.
func (i *Interaction) Clone() *Interaction {
	if i == nil {
		return nil
	}
	c := *i
	c.Question = i.Question.Clone()
	return &c
}
