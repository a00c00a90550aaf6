package pipeline

// Nodes flattens a decoded JSON node that is documented as "one item or an
// array of items" into an ordered slice of object nodes. Partners disagree
// on whether a single line item, SDQ segment, or BOM component list arrives
// as a bare object or a one-element array; every consumer goes through here
// so the rest of the engine never sees the difference. Absent, null, and
// non-object input yield an empty slice.
func Nodes(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, elem := range t {
			if node, ok := elem.(map[string]any); ok {
				out = append(out, node)
			}
		}
		return out
	default:
		return nil
	}
}

// ChildNodes normalizes the common gateway wrapping where a list lives under
// a single named key, e.g. {"LineItems": {"LineItem": [...]}} or
// {"BOM": {"Component": {...}}}. The wrapper itself may also be an array.
func ChildNodes(node map[string]any, wrapper, child string) []map[string]any {
	raw, ok := node[wrapper]
	if !ok {
		return nil
	}

	out := make([]map[string]any, 0)
	for _, w := range Nodes(raw) {
		if inner, ok := w[child]; ok {
			out = append(out, Nodes(inner)...)
			continue
		}
		// Some partners skip the inner element name entirely.
		out = append(out, w)
	}
	return out
}
