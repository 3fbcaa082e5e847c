package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// AnswerValue is the tagged union of candidate values. Kind is the discriminant.
type AnswerValue interface {
	Kind() QuestionKind
	// Empty reports an absent payload or an empty collection.
	Empty() bool
}

type SingleChoiceAnswer string

func (SingleChoiceAnswer) Kind() QuestionKind { return KindSingleChoice }
func (SingleChoiceAnswer) Empty() bool        { return false }

// MultiSelectAnswer is a set of options kept sorted and de-duplicated.
type MultiSelectAnswer []string

// NewMultiSelectAnswer collapses duplicates and ignores order.
func NewMultiSelectAnswer(values ...string) MultiSelectAnswer {
	out := slices.Clone(values)
	slices.Sort(out)
	return MultiSelectAnswer(slices.Compact(out))
}

func (MultiSelectAnswer) Kind() QuestionKind { return KindMultiSelect }
func (a MultiSelectAnswer) Empty() bool      { return len(a) == 0 }

type IntegerAnswer int64

func (IntegerAnswer) Kind() QuestionKind { return KindInteger }
func (IntegerAnswer) Empty() bool        { return false }

// MatchingAnswer is an ordered list of pairs. Duplicate keys are an authoring
// concern and are not rejected here.
type MatchingAnswer []MatchPair

func (MatchingAnswer) Kind() QuestionKind { return KindMatching }
func (a MatchingAnswer) Empty() bool      { return len(a) == 0 }

type FreeTextAnswer string

func (FreeTextAnswer) Kind() QuestionKind { return KindFreeText }
func (FreeTextAnswer) Empty() bool        { return false }

// ImageAnswer is a normalized upload embedded inline as a data URI.
type ImageAnswer struct {
	DataURI   string `json:"data_uri"`
	MimeType  string `json:"mime_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
	ObjectKey string `json:"object_key,omitempty"`
}

func (ImageAnswer) Kind() QuestionKind { return KindImage }
func (a ImageAnswer) Empty() bool      { return a.DataURI == "" }

// LearningCount is the per-mount engagement counter of a learning interaction.
type LearningCount int64

func (LearningCount) Kind() QuestionKind { return KindLearningCount }
func (LearningCount) Empty() bool        { return false }

// IsEmptyAnswer treats a nil interface, a typed nil and empty collections alike.
func IsEmptyAnswer(v AnswerValue) bool {
	if v == nil {
		return true
	}
	// value methods called through a nil pointer would panic
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return true
	}
	return v.Empty()
}

// CanonicalAnswer dereferences a non-nil pointer answer so grading and
// serialization see the value form.
func CanonicalAnswer(v AnswerValue) AnswerValue {
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return v
	}
	if inner, ok := rv.Elem().Interface().(AnswerValue); ok {
		return inner
	}
	return v
}

// DecodeAnswer parses raw according to kind. A missing or null payload
// decodes to a nil value and no error.
func DecodeAnswer(kind QuestionKind, raw json.RawMessage) (AnswerValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch kind {
	case KindSingleChoice:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decode %s answer: %w", kind, err)
		}
		return SingleChoiceAnswer(s), nil
	case KindMultiSelect:
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, fmt.Errorf("decode %s answer: %w", kind, err)
		}
		return NewMultiSelectAnswer(values...), nil
	case KindInteger:
		var n int64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, fmt.Errorf("decode %s answer: %w", kind, err)
		}
		return IntegerAnswer(n), nil
	case KindMatching:
		var pairs []MatchPair
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("decode %s answer: %w", kind, err)
		}
		return MatchingAnswer(pairs), nil
	case KindFreeText:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decode %s answer: %w", kind, err)
		}
		return FreeTextAnswer(s), nil
	case KindImage:
		var uri string
		if err := json.Unmarshal(trimmed, &uri); err == nil {
			return imageAnswerFromURI(uri), nil
		}
		var img ImageAnswer
		if err := json.Unmarshal(trimmed, &img); err != nil {
			return nil, fmt.Errorf("decode %s answer: %w", kind, err)
		}
		return img, nil
	case KindLearningCount:
		var n int64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, fmt.Errorf("decode %s value: %w", kind, err)
		}
		return LearningCount(n), nil
	}
	return nil, fmt.Errorf("unknown value kind %q", kind)
}

func imageAnswerFromURI(uri string) ImageAnswer {
	img := ImageAnswer{DataURI: uri}
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		if mime, _, ok := strings.Cut(rest, ";"); ok {
			img.MimeType = mime
		}
	}
	return img
}
