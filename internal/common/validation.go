package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// FieldValue is a payload field as seen by a rule: whether the key was sent, and its decoded value.
type FieldValue struct {
	Present bool
	Value   interface{}
}

func (f FieldValue) IsNull() bool { return f.Present && f.Value == nil }

// Rule pairs a predicate with the message reported when it fails.
type Rule struct {
	Check   func(f FieldValue) bool
	Message string
}

// Schema maps field names to ordered rule chains. Every rule of every field is evaluated.
type Schema struct {
	order []string
	rules map[string][]Rule
}

func NewSchema() *Schema {
	return &Schema{rules: make(map[string][]Rule)}
}

func (s *Schema) Field(name string, rules ...Rule) *Schema {
	if _, ok := s.rules[name]; !ok {
		s.order = append(s.order, name)
	}
	s.rules[name] = append(s.rules[name], rules...)
	return s
}

// Validate returns every violation found in payload, in declaration order.
func (s *Schema) Validate(payload map[string]interface{}) []FieldError {
	var violations []FieldError
	for _, name := range s.order {
		value, present := payload[name]
		f := FieldValue{Present: present, Value: value}
		for _, rule := range s.rules[name] {
			if !rule.Check(f) {
				violations = append(violations, FieldError{Field: name, Message: rule.Message})
			}
		}
	}
	return violations
}

func NotExists(message string) Rule {
	return Rule{Message: message, Check: func(f FieldValue) bool { return !f.Present }}
}

// Exists fails on missing keys and on explicit nulls.
func Exists(message string) Rule {
	return Rule{Message: message, Check: func(f FieldValue) bool { return f.Present && f.Value != nil }}
}

// IsString passes on absent or null values so that Exists alone reports them.
func IsString(message string) Rule {
	return Rule{Message: message, Check: func(f FieldValue) bool {
		if !f.Present || f.Value == nil {
			return true
		}
		_, ok := f.Value.(string)
		return ok
	}}
}

// MinLength and MaxLength count characters; a missing or non-string value has length zero.
func MinLength(n int, message string) Rule {
	return Rule{Message: message, Check: func(f FieldValue) bool {
		return validate.Var(stringOf(f), fmt.Sprintf("min=%d", n)) == nil
	}}
}

func MaxLength(n int, message string) Rule {
	return Rule{Message: message, Check: func(f FieldValue) bool {
		return validate.Var(stringOf(f), fmt.Sprintf("max=%d", n)) == nil
	}}
}

func stringOf(f FieldValue) string {
	s, _ := f.Value.(string)
	return s
}

// ValidateStruct runs `validate` struct tags and flattens the result.
func ValidateStruct(v interface{}) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%v is not a valid %s", fe.Value(), fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// MaxBodyBytes caps inbound JSON bodies at 100kb.
const MaxBodyBytes = 100 << 10

// DecodeObject reads a JSON object body. Anything else is a validation error.
func DecodeObject(body io.Reader) (map[string]interface{}, error) {
	var payload map[string]interface{}
	dec := json.NewDecoder(body)
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]interface{}{}, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, Wrap(CodeValidation, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), err)
		}
		return nil, Wrap(CodeValidation, "Request body must be a JSON object", err)
	}
	if payload == nil {
		return nil, ValidationError("Request body must be a JSON object")
	}
	return payload, nil
}
