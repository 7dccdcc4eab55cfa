package charge

import "sort"

// Namespaces whose nested mappings are flattened before validation.
const (
	NamespaceMetadata = "metadata"
	NamespaceShipping = "shipping"
)

// Flatten replaces a nested mapping stored under namespace with top-level
// bracketed keys: {"metadata": {"city": "Oslo"}} becomes
// {"metadata[city]": "Oslo"}. Deeper mappings keep nesting the brackets
// (shipping[address][line1]). Absent or non-mapping values are left alone.
func Flatten(args Args, namespace string) {
	nested, ok := asMap(args[namespace])
	if !ok {
		return
	}

	delete(args, namespace)
	flattenInto(args, namespace, nested)
}

func flattenInto(args Args, prefix string, nested map[string]any) {
	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := prefix + "[" + k + "]"
		if inner, ok := asMap(nested[k]); ok {
			flattenInto(args, name, inner)
			continue
		}
		args[name] = nested[k]
	}
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Args:
		return t, true
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}
