package domain

import (
	"fmt"
	"slices"
)

// QuestionKind is the closed set of answer shapes a question can ask for.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single-choice"
	KindMultiSelect  QuestionKind = "multi-select"
	KindInteger      QuestionKind = "integer"
	KindMatching     QuestionKind = "matching"
	KindFreeText     QuestionKind = "free-text"
	KindImage        QuestionKind = "image"

	// KindLearningCount tags counter values emitted by learning interactions.
	// It is a value discriminant only and never a valid question kind.
	KindLearningCount QuestionKind = "learning-count"
)

// QuestionKinds lists every valid question kind.
func QuestionKinds() []QuestionKind {
	return []QuestionKind{KindSingleChoice, KindMultiSelect, KindInteger, KindMatching, KindFreeText, KindImage}
}

// Valid reports whether k may appear in QuestionMetadata.
func (k QuestionKind) Valid() bool {
	return slices.Contains(QuestionKinds(), k)
}

// MatchPair links a left-hand key to a right-hand label.
type MatchPair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// QuestionMetadata is the canonical description of a question shown to the learner.
// The answer-key fields are optional; when present the recorder grades with them.
type QuestionMetadata struct {
	Kind           QuestionKind `json:"kind" yaml:"kind" validate:"required,question_kind"`
	Prompt         string       `json:"prompt" yaml:"prompt" validate:"required"`
	Options        []string     `json:"options,omitempty" yaml:"options,omitempty" validate:"omitempty,dive,required"`
	CorrectOptions []string     `json:"correct_options,omitempty" yaml:"correct_options,omitempty"`
	CorrectInteger *int64       `json:"correct_integer,omitempty" yaml:"correct_integer,omitempty"`
	Left           []string     `json:"left,omitempty" yaml:"left,omitempty" validate:"omitempty,dive,required"`
	Right          []string     `json:"right,omitempty" yaml:"right,omitempty" validate:"omitempty,dive,required"`
	CorrectPairs   []MatchPair  `json:"correct_pairs,omitempty" yaml:"correct_pairs,omitempty"`
}

// Validate checks the authoring contract for the question's kind.
// Violations are authoring defects and are reported at load time, never at record time.
func (q *QuestionMetadata) Validate() ValidationErrors {
	var errs ValidationErrors
	if !q.Kind.Valid() {
		errs = append(errs, NewInvalidFormatError("kind", q.Kind))
		return errs
	}
	if q.Prompt == "" {
		errs = append(errs, NewMissingFieldError("prompt"))
	}

	switch q.Kind {
	case KindSingleChoice, KindMultiSelect:
		if len(q.Options) == 0 {
			errs = append(errs, NewMissingFieldError("options"))
			break
		}
		for _, c := range q.CorrectOptions {
			if !slices.Contains(q.Options, c) {
				errs = append(errs, NewInvalidValueError("correct_options", fmt.Sprintf("%q is not one of the options", c)))
			}
		}
		if q.Kind == KindSingleChoice && len(q.CorrectOptions) > 1 {
			errs = append(errs, NewInvalidValueError("correct_options", "single-choice accepts at most one correct option"))
		}
	case KindMatching:
		if len(q.Left) == 0 {
			errs = append(errs, NewMissingFieldError("left"))
		}
		if len(q.Right) == 0 {
			errs = append(errs, NewMissingFieldError("right"))
		}
		seen := make(map[string]bool, len(q.CorrectPairs))
		for _, p := range q.CorrectPairs {
			if !slices.Contains(q.Left, p.Key) {
				errs = append(errs, NewInvalidValueError("correct_pairs", fmt.Sprintf("key %q is not in left", p.Key)))
			}
			if !slices.Contains(q.Right, p.Value) {
				errs = append(errs, NewInvalidValueError("correct_pairs", fmt.Sprintf("value %q is not in right", p.Value)))
			}
			if seen[p.Key] {
				errs = append(errs, NewInvalidValueError("correct_pairs", fmt.Sprintf("key %q appears more than once", p.Key)))
			}
			seen[p.Key] = true
		}
	case KindInteger, KindFreeText, KindImage:
		// no shape constraints
	}
	return errs
}

// Grade evaluates v against the answer key. graded is false when the question
// carries no key for its kind or v has the wrong shape.
func (q *QuestionMetadata) Grade(v AnswerValue) (correct bool, graded bool) {
	if q == nil || v == nil {
		return false, false
	}
	switch q.Kind {
	case KindSingleChoice:
		a, ok := v.(SingleChoiceAnswer)
		if !ok || len(q.CorrectOptions) == 0 {
			return false, false
		}
		return slices.Contains(q.CorrectOptions, string(a)), true
	case KindMultiSelect:
		a, ok := v.(MultiSelectAnswer)
		if !ok || len(q.CorrectOptions) == 0 {
			return false, false
		}
		return slices.Equal(NewMultiSelectAnswer(q.CorrectOptions...), NewMultiSelectAnswer(a...)), true
	case KindInteger:
		a, ok := v.(IntegerAnswer)
		if !ok || q.CorrectInteger == nil {
			return false, false
		}
		return int64(a) == *q.CorrectInteger, true
	case KindMatching:
		a, ok := v.(MatchingAnswer)
		if !ok || len(q.CorrectPairs) == 0 {
			return false, false
		}
		if len(a) != len(q.CorrectPairs) {
			return false, true
		}
		given := make(map[string]string, len(a))
		for _, p := range a {
			given[p.Key] = p.Value
		}
		for _, p := range q.CorrectPairs {
			if got, ok := given[p.Key]; !ok || got != p.Value {
				return false, true
			}
		}
		return true, true
	case KindFreeText, KindImage:
		return false, false
	}
	return false, false
}

// Clone returns a deep copy so snapshots survive later edits to authored content.
func (q *QuestionMetadata) Clone() *QuestionMetadata {
	if q == nil {
		return nil
	}
	c := *q
	c.Options = slices.Clone(q.Options)
	c.CorrectOptions = slices.Clone(q.CorrectOptions)
	c.Left = slices.Clone(q.Left)
	c.Right = slices.Clone(q.Right)
	c.CorrectPairs = slices.Clone(q.CorrectPairs)
	if q.CorrectInteger != nil {
		v := *q.CorrectInteger
		c.CorrectInteger = &v
	}
	return &c
}
