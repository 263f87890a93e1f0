package reporting

import (
	"fmt"
	"sort"
	"strings"

	"cashflow/internal/core"
)

// Mode selects which categories count toward a category's totals.
type Mode int

const (
	// Leaf counts only the category's own transactions.
	Leaf Mode = iota
	// Rollup adds a root's direct children to the root.
	Rollup
)

// ParseMode parses "leaf" or "rollup". An empty string is Leaf.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "leaf":
		return Leaf, nil
	case "rollup":
		return Rollup, nil
	default:
		return Leaf, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) String() string {
	if m == Rollup {
		return "rollup"
	}
	return "leaf"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scope is the set of category ids whose transactions count toward a total.
type Scope struct {
	ids map[int64]struct{}
	any bool
}

// AnyCategory matches every category.
func AnyCategory() Scope { return Scope{any: true} }

// ScopeOf matches exactly the given ids.
func ScopeOf(ids ...int64) Scope {
	s := Scope{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s Scope) Contains(id int64) bool {
	if s.any {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the member ids in ascending order. It is nil for AnyCategory.
func (s Scope) IDs() []int64 {
	if s.any {
		return nil
	}
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolver computes category scopes over a category tree.
type Resolver struct {
	tree core.CategoryTree
	mode Mode
}

func NewResolver(tree core.CategoryTree, mode Mode) Resolver {
	return Resolver{tree: tree, mode: mode}
}

func (r Resolver) Mode() Mode { return r.mode }

// Scope returns the scope of category id. In rollup mode a root includes its
// direct children; a child is always just itself. Unknown ids scope to themselves.
func (r Resolver) Scope(id int64) Scope {
	if r.mode == Rollup {
		if root, ok := r.tree.Root(id); ok {
			ids := make([]int64, 0, len(root.Children)+1)
			ids = append(ids, root.ID)
			for _, c := range root.Children {
				ids = append(ids, c.ID)
			}
			return ScopeOf(ids...)
		}
	}
	return ScopeOf(id)
}
