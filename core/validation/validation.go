// Package validation normalizes raw field values and reports structured
// issues against a declared field schema.
//
// The document store treats a field as committed once it is valid or hidden;
// fields with an error-severity issue stay in the draft but are not
// committed.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

type FieldType string

const (
	FieldText       FieldType = "text"
	FieldTextarea   FieldType = "textarea"
	FieldDate       FieldType = "date"
	FieldStringList FieldType = "string_list"
	FieldObjectList FieldType = "object_list"
)

type IssueCode string

const (
	IssueRequired  IssueCode = "required"
	IssueMaxLength IssueCode = "max_length"
	IssueEnum      IssueCode = "enum"
	IssuePattern   IssueCode = "pattern"
	IssueDate      IssueCode = "date"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DateLayout is the canonical layout dates are normalized to.
const DateLayout = "2006-01-02"

var dateInputLayouts = []string{DateLayout, time.RFC3339, "01/02/2006", "2006/01/02", "January 2, 2006", "Jan 2, 2006"}

type Field struct {
	ID        string    `json:"id" yaml:"id"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	Type      FieldType `json:"type" yaml:"type"`
	Required  bool      `json:"required,omitempty" yaml:"required,omitempty"`
	MaxLength int       `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Enum      []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Pattern   string    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Hidden    bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

func (f Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

type Issue struct {
	Field    string    `json:"field"`
	Code     IssueCode `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

type Result struct {
	Value  any
	Issues []Issue
}

// Valid reports whether no error-severity issue was raised.
func (r Result) Valid() bool {
	return !slices.ContainsFunc(r.Issues, func(issue Issue) bool {
		return issue.Severity == SeverityError
	})
}

// Schema is an ordered set of fields.
type Schema []Field

func (s Schema) Field(id string) (Field, bool) {
	for _, field := range s {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once

	patternCache sync.Map
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate normalizes raw according to the field type and checks it against
// the field's rules.
func Validate(field Field, raw any) Result {
	switch field.Type {
	case FieldStringList:
		return validateStringList(field, raw)
	case FieldObjectList:
		return validateObjectList(field, raw)
	case FieldDate:
		return validateDate(field, raw)
	default:
		return validateText(field, raw)
	}
}

func validateText(field Field, raw any) Result {
	value := normalizeText(raw, field.Type == FieldTextarea)
	result := Result{Value: value}

	if value == "" {
		if field.Required {
			result.Issues = append(result.Issues, newIssue(field, IssueRequired, SeverityError, "%s is required", field.DisplayName()))
		}
		return result
	}

	if field.MaxLength > 0 {
		if err := fieldValidator().Var(value, fmt.Sprintf("max=%d", field.MaxLength)); err != nil {
			result.Issues = append(result.Issues, newIssue(field, IssueMaxLength, SeverityError, "%s must be at most %d characters", field.DisplayName(), field.MaxLength))
		}
	}
	if len(field.Enum) > 0 {
		idx := slices.IndexFunc(field.Enum, func(option string) bool {
			return strings.EqualFold(option, value)
		})
		if idx < 0 {
			result.Issues = append(result.Issues, newIssue(field, IssueEnum, SeverityError, "%s must be one of %s", field.DisplayName(), strings.Join(field.Enum, ", ")))
		} else {
			result.Value = field.Enum[idx]
		}
	}
	if field.Pattern != "" {
		pattern, err := compilePattern(field.Pattern)
		if err != nil || !pattern.MatchString(value) {
			result.Issues = append(result.Issues, newIssue(field, IssuePattern, SeverityWarning, "%s does not match the expected format", field.DisplayName()))
		}
	}

	return result
}

func validateDate(field Field, raw any) Result {
	value := normalizeText(raw, false)
	result := Result{Value: value}
	if value == "" {
		if field.Required {
			result.Issues = append(result.Issues, newIssue(field, IssueRequired, SeverityError, "%s is required", field.DisplayName()))
		}
		return result
	}

	for _, layout := range dateInputLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			result.Value = parsed.Format(DateLayout)
			break
		}
	}

	if err := fieldValidator().Var(result.Value, "datetime="+DateLayout); err != nil {
		result.Issues = append(result.Issues, newIssue(field, IssueDate, SeverityError, "%s must be a date (YYYY-MM-DD)", field.DisplayName()))
	}
	return result
}

func validateStringList(field Field, raw any) Result {
	var items []string
	switch value := raw.(type) {
	case nil:
	case string:
		items = strings.FieldsFunc(value, func(r rune) bool {
			return r == '\n' || r == ';' || r == ','
		})
	case []string:
		items = slices.Clone(value)
	case []any:
		for _, item := range value {
			if item != nil {
				items = append(items, fmt.Sprint(item))
			}
		}
	default:
		items = []string{fmt.Sprint(value)}
	}

	normalized := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimLeft(strings.TrimSpace(item), "-•* ")
		if item != "" {
			normalized = append(normalized, item)
		}
	}

	result := Result{Value: normalized}
	if field.Required {
		if err := fieldValidator().Var(normalized, "min=1"); err != nil {
			result.Issues = append(result.Issues, newIssue(field, IssueRequired, SeverityError, "%s needs at least one entry", field.DisplayName()))
		}
	}
	if field.MaxLength > 0 {
		for _, item := range normalized {
			if err := fieldValidator().Var(item, fmt.Sprintf("max=%d", field.MaxLength)); err != nil {
				result.Issues = append(result.Issues, newIssue(field, IssueMaxLength, SeverityError, "%s entries must be at most %d characters", field.DisplayName(), field.MaxLength))
				break
			}
		}
	}
	return result
}

func validateObjectList(field Field, raw any) Result {
	var normalized []map[string]any
	switch value := raw.(type) {
	case []map[string]any:
		for _, item := range value {
			if len(item) > 0 {
				normalized = append(normalized, item)
			}
		}
	case []any:
		for _, item := range value {
			if object, ok := item.(map[string]any); ok && len(object) > 0 {
				normalized = append(normalized, object)
			}
		}
	case map[string]any:
		if len(value) > 0 {
			normalized = append(normalized, value)
		}
	}
	if normalized == nil {
		normalized = []map[string]any{}
	}

	result := Result{Value: normalized}
	if field.Required && len(normalized) == 0 {
		result.Issues = append(result.Issues, newIssue(field, IssueRequired, SeverityError, "%s needs at least one entry", field.DisplayName()))
	}
	return result
}

func normalizeText(raw any, multiline bool) string {
	var value string
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		value = typed
	default:
		value = fmt.Sprint(typed)
	}

	if multiline {
		value = strings.ReplaceAll(value, "\r\n", "\n")
		return strings.TrimSpace(value)
	}
	return strings.Join(strings.Fields(value), " ")
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid field pattern %q: %w", pattern, err)
	}
	patternCache.Store(pattern, compiled)
	return compiled, nil
}

func newIssue(field Field, code IssueCode, severity Severity, format string, args ...any) Issue {
	return Issue{Field: field.ID, Code: code, Severity: severity, Message: fmt.Sprintf(format, args...)}
}
