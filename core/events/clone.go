package events

import "slices"

// Clone returns a copy of m that shares no nested maps or slices with it.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	cloned := make(Metadata, len(m))
	for key, value := range m {
		cloned[key] = CloneValue(value)
	}
	return cloned
}

// CloneValue deep-copies the JSON-shaped values carried in metadata and
// document fields. Other values are returned as is.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case Metadata:
		return typed.Clone()
	case map[string]any:
		return map[string]any(Metadata(typed).Clone())
	case []any:
		cloned := make([]any, len(typed))
		for i, item := range typed {
			cloned[i] = CloneValue(item)
		}
		return cloned
	case []string:
		return slices.Clone(typed)
	case []map[string]any:
		cloned := make([]map[string]any, len(typed))
		for i, item := range typed {
			cloned[i] = map[string]any(Metadata(item).Clone())
		}
		return cloned
	default:
		return value
	}
}
