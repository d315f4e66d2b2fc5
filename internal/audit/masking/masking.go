package masking

import "strings"

const maskToken = "****"

// MaskSecret keeps the last four characters of a payout account or key.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskFields returns a copy of metadata with the named string fields masked.
func MaskFields(metadata map[string]any, keys ...string) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	for _, key := range keys {
		if raw, ok := out[key].(string); ok {
			out[key] = MaskSecret(raw)
		}
	}
	return out
}
