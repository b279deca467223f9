package store

import "strings"

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// pathsOverlap reports whether one path is an ancestor of (or equal to) the
// other. A write anywhere inside a subscribed subtree, or the removal of an
// ancestor, both count as changes to the subscription.
func pathsOverlap(a, b string) bool {
	pa, pb := splitPath(a), splitPath(b)
	n := len(pa)
	if len(pb) < n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}

// valueAt walks parts down a nested tree. Returns nil when the path does not
// resolve to a value.
func valueAt(root any, parts []string) any {
	cur := root
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

// setAt places value at parts inside root, creating intermediate objects and
// overwriting anything that is not an object along the way.
func setAt(root map[string]any, parts []string, value any) {
	cur := root
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
}

// removeAt deletes the value at parts, pruning nothing else.
func removeAt(root map[string]any, parts []string) {
	if len(parts) == 0 {
		return
	}
	cur := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}

// deepCopy clones a JSON-shaped value so callers can never mutate the tree
// behind the store's back.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}
