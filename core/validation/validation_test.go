package validation

import (
	"reflect"
	"testing"
)

func TestValidateText(t *testing.T) {
	testCases := []struct {
		name          string
		field         Field
		raw           any
		expectedValue any
		expectedCodes []IssueCode
		expectedValid bool
	}{
		{
			name:          "collapses whitespace",
			field:         Field{ID: "title", Type: FieldText},
			raw:           "  North   Star \n Initiative ",
			expectedValue: "North Star Initiative",
			expectedValid: true,
		},
		{
			name:          "required empty",
			field:         Field{ID: "title", Type: FieldText, Required: true},
			raw:           "   ",
			expectedValue: "",
			expectedCodes: []IssueCode{IssueRequired},
		},
		{
			name:          "too long",
			field:         Field{ID: "title", Type: FieldText, MaxLength: 5},
			raw:           "abcdef",
			expectedValue: "abcdef",
			expectedCodes: []IssueCode{IssueMaxLength},
		},
		{
			name:          "enum canonicalized",
			field:         Field{ID: "priority", Type: FieldText, Enum: []string{"Low", "High"}},
			raw:           "high",
			expectedValue: "High",
			expectedValid: true,
		},
		{
			name:          "enum mismatch",
			field:         Field{ID: "priority", Type: FieldText, Enum: []string{"Low", "High"}},
			raw:           "urgent",
			expectedValue: "urgent",
			expectedCodes: []IssueCode{IssueEnum},
		},
		{
			name:          "pattern mismatch is a warning",
			field:         Field{ID: "code", Type: FieldText, Pattern: `^[A-Z]{3}-\d+$`},
			raw:           "abc",
			expectedValue: "abc",
			expectedCodes: []IssueCode{IssuePattern},
			expectedValid: true,
		},
		{
			name:          "textarea keeps newlines",
			field:         Field{ID: "summary", Type: FieldTextarea},
			raw:           " line one\r\nline two ",
			expectedValue: "line one\nline two",
			expectedValid: true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := Validate(testCase.field, testCase.raw)
			if !reflect.DeepEqual(result.Value, testCase.expectedValue) {
				t.Fatalf("expected value %#v, got %#v", testCase.expectedValue, result.Value)
			}
			if got := issueCodes(result.Issues); !reflect.DeepEqual(got, testCase.expectedCodes) {
				t.Fatalf("expected issues %v, got %v", testCase.expectedCodes, got)
			}
			if result.Valid() != testCase.expectedValid {
				t.Fatalf("expected valid=%v, got %v", testCase.expectedValid, result.Valid())
			}
		})
	}
}

func TestValidateDateNormalizesKnownLayouts(t *testing.T) {
	field := Field{ID: "start", Type: FieldDate, Required: true}

	for _, raw := range []string{"2025-03-01", "03/01/2025", "March 1, 2025", "2025-03-01T10:00:00Z"} {
		result := Validate(field, raw)
		if result.Value != "2025-03-01" {
			t.Fatalf("expected %q to normalize to 2025-03-01, got %#v", raw, result.Value)
		}
		if !result.Valid() {
			t.Fatalf("expected %q to be valid, got issues %v", raw, result.Issues)
		}
	}

	result := Validate(field, "next tuesday")
	if got := issueCodes(result.Issues); !reflect.DeepEqual(got, []IssueCode{IssueDate}) {
		t.Fatalf("expected date issue, got %v", got)
	}
}

func TestValidateStringList(t *testing.T) {
	field := Field{ID: "risks", Type: FieldStringList, Required: true}

	result := Validate(field, "- budget\n- staffing; vendor delay")
	expected := []string{"budget", "staffing", "vendor delay"}
	if !reflect.DeepEqual(result.Value, expected) {
		t.Fatalf("expected %v, got %#v", expected, result.Value)
	}

	result = Validate(field, []any{"a", nil, " "})
	if !reflect.DeepEqual(result.Value, []string{"a"}) {
		t.Fatalf("expected [a], got %#v", result.Value)
	}

	result = Validate(field, nil)
	if got := issueCodes(result.Issues); !reflect.DeepEqual(got, []IssueCode{IssueRequired}) {
		t.Fatalf("expected required issue, got %v", got)
	}
}

func TestValidateObjectListDropsEmptyEntries(t *testing.T) {
	field := Field{ID: "milestones", Type: FieldObjectList, Required: true}

	result := Validate(field, []any{map[string]any{"name": "Kickoff"}, map[string]any{}, "noise"})
	value, ok := result.Value.([]map[string]any)
	if !ok || len(value) != 1 || value[0]["name"] != "Kickoff" {
		t.Fatalf("expected a single milestone, got %#v", result.Value)
	}

	result = Validate(field, []any{})
	if result.Valid() {
		t.Fatalf("expected empty required object list to be invalid")
	}
}

func issueCodes(issues []Issue) []IssueCode {
	var codes []IssueCode
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}
