// Package validate turns raw cached documents into typed records.
//
// Decoding is strict: every type mismatch and every violated constraint is collected into a
// single [Error] rather than stopping at the first problem.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"

	"github.com/desertthunder/docmigrate/internal/models"
	"github.com/desertthunder/docmigrate/internal/shared"
)

var (
	// ErrSkipListed marks a document whose cas value is on the exclusion list.
	ErrSkipListed = errors.New("document is skip-listed")
	// ErrDeleted marks a document carrying the deletion marker.
	ErrDeleted = errors.New("document is marked deleted")
)

var quotedField = regexp.MustCompile(`'([^']*)'`)

// Violation is one broken constraint of a document.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Error lists every violation found in one document.
type Error struct {
	Unit       string
	Violations []Violation
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("invalid document %s: %s", e.Unit, strings.Join(msgs, "; "))
}

// Unwrap lets callers match [shared.ErrInvalidDocument].
func (e *Error) Unwrap() error { return shared.ErrInvalidDocument }

// Details exposes the violations to the error sink.
func (e *Error) Details() any { return e.Violations }

// Validator checks cached documents against their category contract.
type Validator struct {
	v    *validator.Validate
	skip map[string]struct{}
}

// New creates a [Validator] that rejects any document whose cas is in skipCAS.
func New(skipCAS map[string]struct{}) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if skipCAS == nil {
		skipCAS = map[string]struct{}{}
	}
	return &Validator{v: v, skip: skipCAS}
}

// User validates a cached profile document.
func (v *Validator) User(unit string, doc map[string]any) (*models.UserProfile, error) {
	if err := v.checkSkip(unit, doc); err != nil {
		return nil, err
	}

	var profile models.UserProfile
	violations := decode(doc, &profile)
	// Blank identity fields must fail "required", so trim before the struct check.
	profile.Email = strings.TrimSpace(profile.Email)
	profile.SSOGuid = strings.TrimSpace(profile.SSOGuid)
	violations = append(violations, v.check(&profile, violations)...)
	if len(violations) > 0 {
		return nil, &Error{Unit: unit, Violations: violations}
	}
	return &profile, nil
}

// Playlist validates a cached playlist document. The unit id becomes the playlist id and
// each item's order is fixed to its position in the document.
func (v *Validator) Playlist(unit string, doc map[string]any) (*models.Playlist, error) {
	if err := v.checkSkip(unit, doc); err != nil {
		return nil, err
	}
	if deleted, ok := doc["_deleted"].(bool); ok && deleted {
		return nil, fmt.Errorf("%w: %s", ErrDeleted, unit)
	}

	var playlist models.Playlist
	violations := decode(doc, &playlist)
	violations = append(violations, v.check(&playlist, violations)...)
	if len(violations) > 0 {
		return nil, &Error{Unit: unit, Violations: violations}
	}

	playlist.ID = unit
	if playlist.DisplayName == "" {
		playlist.DisplayName = playlist.Name
	}
	for i := range playlist.Items {
		playlist.Items[i].Order = i
	}
	return &playlist, nil
}

// checkSkip applies the cas exclusion list before any structural check.
func (v *Validator) checkSkip(unit string, doc map[string]any) error {
	if len(v.skip) == 0 {
		return nil
	}
	cas := casString(doc["cas"])
	if cas == "" {
		return nil
	}
	if _, ok := v.skip[cas]; ok {
		return fmt.Errorf("%w: %s (cas %s)", ErrSkipListed, unit, cas)
	}
	return nil
}

// check runs struct constraints, dropping fields that already failed to decode.
func (v *Validator) check(target any, decoded []Violation) []Violation {
	err := v.v.Struct(target)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Violation{{Field: "", Rule: "struct", Message: err.Error()}}
	}

	seen := make(map[string]bool, len(decoded))
	for _, d := range decoded {
		seen[d.Field] = true
	}

	var out []Violation
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		if seen[field] {
			continue
		}
		out = append(out, Violation{Field: field, Rule: fe.Tag(), Message: message(field, fe)})
	}
	return out
}

// decode maps doc onto target, returning one violation per mistyped field.
func decode(doc map[string]any, target any) []Violation {
	input := make(map[string]any, len(doc))
	for k, val := range doc {
		input[k] = val
	}
	// cas is an opaque version token; keep the exact digits.
	if cas, ok := input["cas"]; ok && cas != nil {
		input["cas"] = casString(cas)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			strictNumberHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return []Violation{{Rule: "decoder", Message: err.Error()}}
	}

	err = dec.Decode(input)
	if err == nil {
		return nil
	}

	var merr *mapstructure.Error
	if !errors.As(err, &merr) {
		return []Violation{{Rule: "type", Message: err.Error()}}
	}

	out := make([]Violation, 0, len(merr.Errors))
	for _, msg := range merr.Errors {
		field := ""
		if m := quotedField.FindStringSubmatch(msg); m != nil {
			field = m[1]
		}
		out = append(out, Violation{Field: field, Rule: "type", Message: msg})
	}
	return out
}

// strictNumberHook refuses to turn JSON numbers into strings.
func strictNumberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if _, ok := data.(json.Number); ok && to.Kind() == reflect.String {
		return nil, fmt.Errorf("expected string, got number %v", data)
	}
	return data, nil
}

func casString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case json.Number:
		return c.String()
	case string:
		return c
	case float64:
		return fmt.Sprintf("%.0f", c)
	default:
		return fmt.Sprint(c)
	}
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "eq":
		return fmt.Sprintf("%s must be %q, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
