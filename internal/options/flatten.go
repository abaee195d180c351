package options

import "strings"

// PathSeparator joins segments of a hierarchical configuration path.
const PathSeparator = ":"

// Flatten converts a nested configuration map into a flat map keyed by
// colon-separated paths. Non-map leaves are kept as-is. Keys already
// containing the separator pass through unchanged, so pre-flattened input
// is accepted.
func Flatten(m map[string]any) map[string]any {
	result := make(map[string]any)
	flattenInto("", m, result)
	return result
}

func flattenInto(prefix string, m map[string]any, result map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + PathSeparator + k
		}

		switch val := v.(type) {
		case map[string]any:
			flattenInto(key, val, result)
		case map[any]any:
			// Some YAML decoders produce map[any]any for mappings.
			converted := make(map[string]any, len(val))
			for mk, mv := range val {
				if strKey, ok := mk.(string); ok {
					converted[strKey] = mv
				}
			}
			flattenInto(key, converted, result)
		default:
			result[key] = v
		}
	}
}

// Expand converts a flat colon-path map back into a nested map, for binding
// into typed structures.
func Expand(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for path, v := range flat {
		segments := strings.Split(path, PathSeparator)
		node := result
		for i, seg := range segments {
			if i == len(segments)-1 {
				node[seg] = v
				break
			}
			child, ok := node[seg].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[seg] = child
			}
			node = child
		}
	}
	return result
}
