package devbackend

import (
	"slices"
	"strings"

	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/events"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/syncstore"
	"github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/validation"
)

// metadataFieldID matches the key the guided flow tags answers with.
const metadataFieldID = "fieldId"

type FieldValue struct {
	ID    string
	Value string
}

// Extract reads the newest final utterance across turns. An utterance
// tagged with a field id fills that field whole; otherwise every
// "field: value" line names a field by id or label.
func Extract(turns []syncstore.AgentTurn, schema validation.Schema) []FieldValue {
	event, ok := lastFinalEvent(turns)
	if !ok {
		return nil
	}

	content := strings.TrimSpace(event.Content)
	if content == "" {
		return nil
	}
	if fieldID, _ := event.Metadata[metadataFieldID].(string); fieldID != "" {
		return []FieldValue{{ID: fieldID, Value: content}}
	}

	var values []FieldValue
	for _, line := range strings.Split(content, "\n") {
		name, value, found := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		if !found || value == "" {
			continue
		}
		fieldID, ok := resolveField(strings.TrimSpace(name), schema)
		if !ok {
			continue
		}

		idx := slices.IndexFunc(values, func(v FieldValue) bool { return v.ID == fieldID })
		if idx >= 0 {
			values[idx].Value = value
			continue
		}
		values = append(values, FieldValue{ID: fieldID, Value: value})
	}
	return values
}

func lastFinalEvent(turns []syncstore.AgentTurn) (events.NormalizedInputEvent, bool) {
	var latest events.NormalizedInputEvent
	found := false
	for _, turn := range turns {
		for _, event := range turn.Events {
			if event.Stage != events.StageFinal {
				continue
			}
			if !found || !event.CreatedAt.Before(latest.CreatedAt) {
				latest = event
				found = true
			}
		}
	}
	return latest, found
}

func resolveField(name string, schema validation.Schema) (string, bool) {
	if schema == nil {
		return name, name != "" && !strings.ContainsAny(name, " \t")
	}

	idx := slices.IndexFunc(schema, func(field validation.Field) bool {
		return !field.Hidden && (strings.EqualFold(field.ID, name) || strings.EqualFold(field.Label, name))
	})
	if idx < 0 {
		return "", false
	}
	return schema[idx].ID, true
}
