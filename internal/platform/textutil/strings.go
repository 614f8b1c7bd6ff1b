package textutil

import "strings"

// NormalizeStringMap trims keys and values and drops blank keys. It returns nil when nothing is left.
func NormalizeStringMap(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		if key = strings.TrimSpace(key); key != "" {
			result[key] = strings.TrimSpace(value)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// NormalizeList trims entries, drops blanks and removes case-insensitive duplicates, keeping first-seen order.
func NormalizeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = CollapseSpaces(value)
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CollapseSpaces trims value and folds internal whitespace runs into single spaces.
func CollapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// OptionalString trims *value and returns nil for nil or blank input.
func OptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
