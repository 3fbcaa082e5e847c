package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"slide-capture/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator checks authored definitions and incoming requests. Struct tags
// cover field presence; per-kind rules live on domain.QuestionMetadata.
type Validator struct {
	structValidator *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	registerCustomValidators(v)
	return &Validator{structValidator: v}
}

func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("question_kind", func(fl validator.FieldLevel) bool {
		return domain.QuestionKind(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("interaction_kind", func(fl validator.FieldLevel) bool {
		return domain.InteractionKind(fl.Field().String()).Valid()
	})

	// report json names so messages match what authors and clients wrote
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct runs the struct tags of s and converts failures to domain errors.
func (v *Validator) ValidateStruct(s interface{}) domain.ValidationErrors {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.ValidationErrors{domain.NewInvalidValueError("", err.Error())}
	}

	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toValidationError(fe))
	}
	return out
}

// ValidateInteraction checks one authored interaction. A judging interaction
// without question metadata is allowed; the recorder reports it when used.
func (v *Validator) ValidateInteraction(interaction *domain.Interaction) domain.ValidationErrors {
	if interaction == nil {
		return domain.ValidationErrors{domain.NewMissingFieldError("interaction")}
	}
	if errs := v.ValidateStruct(interaction); len(errs) > 0 {
		return errs
	}
	if interaction.Question == nil {
		return nil
	}
	if errs := interaction.Question.Validate(); len(errs) > 0 {
		return errs.Prefixed("question")
	}
	return nil
}

// ValidateQuestion checks a question supplied at completion time.
func (v *Validator) ValidateQuestion(question *domain.QuestionMetadata) domain.ValidationErrors {
	if question == nil {
		return nil
	}
	if errs := v.ValidateStruct(question); len(errs) > 0 {
		return errs.Prefixed("question")
	}
	if errs := question.Validate(); len(errs) > 0 {
		return errs.Prefixed("question")
	}
	return nil
}

func toValidationError(fe validator.FieldError) domain.ValidationError {
	field := fe.Namespace()
	// drop the root struct name
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return domain.NewMissingFieldError(field)
	case "question_kind", "interaction_kind", "oneof":
		return domain.NewInvalidFormatError(field, fe.Value())
	case "max":
		return domain.NewInvalidValueError(field, fmt.Sprintf("must be at most %s", fe.Param()))
	default:
		return domain.NewInvalidValueError(field, fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}
