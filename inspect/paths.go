package inspect

import "sort"

// PathSet is the set of expanded node paths. It lives outside the node
// tree; Toggle returns a new set and never modifies the receiver.
type PathSet map[string]struct{}

// DefaultExpanded returns the paths the data browser opens initially.
func DefaultExpanded() PathSet {
	return NewPathSet(".address", ".preferences", ".customerScore", ".browsingBehavior")
}

// NewPathSet builds a set from paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether path is expanded. A nil set has no members.
func (s PathSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Toggle flips the membership of path.
func (s PathSet) Toggle(path string) PathSet {
	out := s.Clone()
	if out.Has(path) {
		delete(out, path)
	} else {
		out[path] = struct{}{}
	}
	return out
}

// Clone copies the set.
func (s PathSet) Clone() PathSet {
	out := make(PathSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Paths lists the members in sorted order.
func (s PathSet) Paths() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
