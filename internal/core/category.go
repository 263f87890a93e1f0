package core

import (
	"fmt"
	"sort"
	"strings"
)

// Category is the flat row shape returned by the data-access layer.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent"`
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.ParentID != nil && *c.ParentID == c.ID && c.ID != 0 {
		return ErrCategoryTooDeep
	}
	return nil
}

// ChildCategory is a category one level below a root. It cannot have children.
type ChildCategory struct {
	ID       int64
	Name     string
	ParentID int64
}

// RootCategory is a top-level category with its direct children.
type RootCategory struct {
	ID       int64
	Name     string
	Children []ChildCategory
}

// FlatCategory is a category positioned for display: level 0 for roots,
// level 1 for children.
type FlatCategory struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent"`
	Level    int    `json:"level"`
}

// CategoryTree is the two-tier category hierarchy. Depth greater than one
// cannot be expressed by its types.
type CategoryTree struct {
	Roots []RootCategory
	index map[int64]treePos
}

type treePos struct {
	root  int
	child int // -1 for a root
}

// DedupCategories removes repeated ids, keeping the first occurrence.
func DedupCategories(in []Category) []Category {
	seen := make(map[int64]struct{}, len(in))
	out := make([]Category, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// BuildCategoryTree converts flat rows into the two-tier tree. Duplicate ids
// are dropped. A parent that does not exist or that is itself a child is
// rejected.
func BuildCategoryTree(flat []Category) (CategoryTree, error) {
	cats := DedupCategories(flat)
	byID := make(map[int64]Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}

	var roots []RootCategory
	children := make(map[int64][]ChildCategory)
	for _, c := range cats {
		if c.ParentID == nil {
			roots = append(roots, RootCategory{ID: c.ID, Name: c.Name})
			continue
		}
		parent, ok := byID[*c.ParentID]
		if !ok {
			return CategoryTree{}, fmt.Errorf("category %d: %w", c.ID, ErrUnknownParent)
		}
		if parent.ParentID != nil || parent.ID == c.ID {
			return CategoryTree{}, fmt.Errorf("category %d: %w", c.ID, ErrCategoryTooDeep)
		}
		children[parent.ID] = append(children[parent.ID], ChildCategory{ID: c.ID, Name: c.Name, ParentID: parent.ID})
	}

	sort.SliceStable(roots, func(i, j int) bool { return lessByName(roots[i].Name, roots[i].ID, roots[j].Name, roots[j].ID) })
	tree := CategoryTree{Roots: roots, index: make(map[int64]treePos, len(cats))}
	for i := range tree.Roots {
		kids := children[tree.Roots[i].ID]
		sort.SliceStable(kids, func(a, b int) bool { return lessByName(kids[a].Name, kids[a].ID, kids[b].Name, kids[b].ID) })
		tree.Roots[i].Children = kids
		tree.index[tree.Roots[i].ID] = treePos{root: i, child: -1}
		for j := range kids {
			tree.index[kids[j].ID] = treePos{root: i, child: j}
		}
	}
	return tree, nil
}

func lessByName(an string, aid int64, bn string, bid int64) bool {
	a, b := strings.ToLower(an), strings.ToLower(bn)
	if a != b {
		return a < b
	}
	return aid < bid
}

// Has reports whether id is a known category.
func (t CategoryTree) Has(id int64) bool {
	_, ok := t.index[id]
	return ok
}

// Len returns the number of categories in the tree.
func (t CategoryTree) Len() int { return len(t.index) }

// Root returns the root with the given id.
func (t CategoryTree) Root(id int64) (RootCategory, bool) {
	pos, ok := t.index[id]
	if !ok || pos.child >= 0 {
		return RootCategory{}, false
	}
	return t.Roots[pos.root], true
}

// Node returns the flat view of a category.
func (t CategoryTree) Node(id int64) (FlatCategory, bool) {
	pos, ok := t.index[id]
	if !ok {
		return FlatCategory{}, false
	}
	root := t.Roots[pos.root]
	if pos.child < 0 {
		return FlatCategory{ID: root.ID, Name: root.Name, Level: 0}, true
	}
	child := root.Children[pos.child]
	parent := child.ParentID
	return FlatCategory{ID: child.ID, Name: child.Name, ParentID: &parent, Level: 1}, true
}

// Flatten lists every category, each root followed by its children.
func (t CategoryTree) Flatten() []FlatCategory {
	out := make([]FlatCategory, 0, len(t.index))
	for _, r := range t.Roots {
		out = append(out, FlatCategory{ID: r.ID, Name: r.Name, Level: 0})
		for _, c := range r.Children {
			parent := c.ParentID
			out = append(out, FlatCategory{ID: c.ID, Name: c.Name, ParentID: &parent, Level: 1})
		}
	}
	return out
}
