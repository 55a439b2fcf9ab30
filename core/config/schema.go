package config

import "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"

// DefaultSchema is a project charter.
func DefaultSchema() validation.Schema {
	return validation.Schema{
		{ID: "title", Label: "Project title", Type: validation.FieldText, Required: true, MaxLength: 120},
		{ID: "sponsor", Label: "Sponsor", Type: validation.FieldText, Required: true},
		{ID: "project_manager", Label: "Project manager", Type: validation.FieldText},
		{ID: "start_date", Label: "Start date", Type: validation.FieldDate},
		{ID: "end_date", Label: "End date", Type: validation.FieldDate},
		{ID: "priority", Label: "Priority", Type: validation.FieldText, Enum: []string{"low", "medium", "high"}},
		{ID: "vision", Label: "Vision", Type: validation.FieldTextarea},
		{ID: "objectives", Label: "Objectives", Type: validation.FieldStringList, Required: true},
		{ID: "risks", Label: "Risks", Type: validation.FieldStringList},
		{ID: "budget_code", Label: "Budget code", Type: validation.FieldText, Pattern: `^[A-Z]{2}-\d{4}$`},
		{ID: "template_version", Type: validation.FieldText, Hidden: true},
	}
}
