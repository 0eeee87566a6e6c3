package service

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"bureau-engine/internal/domain"
)

// choiceSets backs the custom validation tags that accept a fixed list of
// values. oneof cannot express values containing commas or spaces.
var choiceSets = map[string][]string{
	"project_type":     ContactProjectTypes,
	"budget":           ContactBudgets,
	"timeline":         ContactTimelines,
	"project_category": domain.ProjectCategories,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	for tag, allowed := range choiceSets {
		allowed := allowed
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return slices.Contains(allowed, fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// validateInput runs the struct tags of in and reports failures as a
// ValidationError keyed by json field path, e.g. "images.0.url".
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.add(fieldPath(fe.Namespace()), describe(fe))
	}
	return out
}

// fieldPath drops the root struct name and flattens indexes:
// "ProjectInput.images[0].url" becomes "images.0.url".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}
	return strings.NewReplacer("[", ".", "]", "").Replace(namespace)
}

func describe(fe validator.FieldError) string {
	if allowed, ok := choiceSets[fe.Tag()]; ok {
		return "must be one of: " + strings.Join(allowed, ", ")
	}
	collection := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid uri"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if collection {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		if collection {
			return fmt.Sprintf("must contain at most %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	}
	return "is invalid"
}
